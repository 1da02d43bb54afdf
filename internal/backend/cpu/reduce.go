package cpu

import (
	"fmt"

	"github.com/convexml/picnn/internal/tensor"
)

// MeanDim computes the mean along the given dimension.
// With keepDim the reduced dimension is kept with size 1 so the result
// broadcasts against the input.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("meandim: invalid dimension %d for %dD tensor", dim, ndim))
	}

	var outShape tensor.Shape
	for i, s := range shape {
		if i == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, s)
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("meandim: %v", err))
	}

	// Iterate the input as (outer, reduced, inner) blocks.
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	reduced := shape[dim]
	inner := 1
	for i := dim + 1; i < ndim; i++ {
		inner *= shape[i]
	}

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				var sum float64
				for r := 0; r < reduced; r++ {
					sum += float64(src[(o*reduced+r)*inner+in])
				}
				dst[o*inner+in] = float32(sum / float64(reduced))
			}
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				var sum float64
				for r := 0; r < reduced; r++ {
					sum += src[(o*reduced+r)*inner+in]
				}
				dst[o*inner+in] = sum / float64(reduced)
			}
		}
	}

	return result
}
