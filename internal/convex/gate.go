package convex

import "github.com/convexml/picnn/internal/tensor"

// DefaultCELUEps is the offset added to the gate weights in CELU to keep the
// division away from zero.
const DefaultCELUEps = 1e-2

// PReLU applies a parametric ReLU with per-element negative-side slopes:
//
//	prelu(x, w) = relu(x) - w * relu(-x)
//
// For slopes in [0, 1] the result is convex and non-decreasing in x, so a
// sigmoid-bounded gate output is a valid weight tensor.
func PReLU[B Backend](inputs, weights *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b := inputs.Backend()
	pos := tensor.New[float32](b.ReLU(inputs.Raw()), b)
	neg := tensor.New[float32](b.ReLU(inputs.MulScalar(-1).Raw()), b)
	return pos.Sub(weights.Mul(neg))
}

// CELU applies a smooth convex exponential unit with per-element gate
// weights:
//
//	celu(x, w) = relu(x) - relu((1 - e^{-relu(-x)}) / (w+eps)) * (w+eps)
//
// The negative side saturates at -(w+eps) instead of growing linearly, so
// the gate bounds how far each step can push below zero. The function is
// convex and non-decreasing in x for any non-negative gate output.
func CELU[B Backend](inputs, weights *tensor.Tensor[float32, B], eps float32) *tensor.Tensor[float32, B] {
	b := inputs.Backend()
	w := weights.AddScalar(eps)

	pos := tensor.New[float32](b.ReLU(inputs.Raw()), b)
	negPart := tensor.New[float32](b.ReLU(inputs.MulScalar(-1).Raw()), b) // relu(-x)

	// (1 - e^{-relu(-x)}) / w, clamped at zero before rescaling
	ratio := negPart.MulScalar(-1).Exp().MulScalar(-1).AddScalar(1).Div(w)
	clamped := tensor.New[float32](b.ReLU(ratio.Raw()), b)

	return pos.Sub(clamped.Mul(w))
}
