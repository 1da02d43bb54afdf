package nn

import (
	"math"

	"github.com/convexml/picnn/internal/tensor"
)

// Xavier creates a tensor initialized with Xavier/Glorot uniform distribution.
// Values are drawn from U(-limit, limit) where limit = sqrt(6 / (fanIn + fanOut)).
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	return tensor.Uniform[float32](shape, -limit, limit, backend)
}

// UniformInit creates a tensor with values drawn uniformly from [lo, hi).
// Positivity-constrained layers seed their raw (pre-constraint) weights from
// a negative range so the constrained weights start close to zero.
func UniformInit[B tensor.Backend](shape tensor.Shape, lo, hi float64, backend B) *tensor.Tensor[float32, B] {
	return tensor.Uniform[float32](shape, float32(lo), float32(hi), backend)
}

// Zeros creates a zero-initialized tensor (for biases).
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

// Ones creates a one-initialized tensor (for normalization scales).
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Ones[float32](shape, backend)
}
