package cpu

import (
	"math"

	"github.com/convexml/picnn/internal/tensor"
)

// ReLU computes max(0, x) for each element.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("relu", x,
		func(v float32) float32 {
			if v > 0 {
				return v
			}
			return 0
		},
		func(v float64) float64 {
			if v > 0 {
				return v
			}
			return 0
		})
}

// Sigmoid computes 1 / (1 + e^-x) for each element.
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("sigmoid", x,
		func(v float32) float32 { return float32(1.0 / (1.0 + math.Exp(-float64(v)))) },
		func(v float64) float64 { return 1.0 / (1.0 + math.Exp(-v)) })
}

// Tanh computes the hyperbolic tangent of each element.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryOp("tanh", x,
		func(v float32) float32 { return float32(math.Tanh(float64(v))) },
		math.Tanh)
}

// ELU computes x for x > 0 and alpha*(e^x - 1) for x <= 0.
func (cpu *CPUBackend) ELU(x *tensor.RawTensor, alpha float64) *tensor.RawTensor {
	return cpu.unaryOp("elu", x,
		func(v float32) float32 {
			if v > 0 {
				return v
			}
			return float32(alpha * (math.Exp(float64(v)) - 1))
		},
		func(v float64) float64 {
			if v > 0 {
				return v
			}
			return alpha * (math.Exp(v) - 1)
		})
}
