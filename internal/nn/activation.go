package nn

import (
	"math"

	"github.com/convexml/picnn/internal/tensor"
)

// ReLU applies the rectified linear unit: max(0, x).
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU element-wise.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := input.Backend().ReLU(input.Raw())
	return tensor.New[float32](raw, input.Backend())
}

// Parameters returns an empty slice (ReLU has no parameters).
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// Sigmoid applies the logistic function: 1 / (1 + e^-x).
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies sigmoid element-wise.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := input.Backend().Sigmoid(input.Raw())
	return tensor.New[float32](raw, input.Backend())
}

// Parameters returns an empty slice (Sigmoid has no parameters).
func (s *Sigmoid[B]) Parameters() []*Parameter[B] {
	return nil
}

// Tanh applies the hyperbolic tangent.
type Tanh[B tensor.Backend] struct{}

// NewTanh creates a Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return &Tanh[B]{}
}

// Forward applies tanh element-wise.
func (t *Tanh[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := input.Backend().Tanh(input.Raw())
	return tensor.New[float32](raw, input.Backend())
}

// Parameters returns an empty slice (Tanh has no parameters).
func (t *Tanh[B]) Parameters() []*Parameter[B] {
	return nil
}

// ELU applies the exponential linear unit:
// x for x > 0, alpha*(e^x - 1) otherwise.
// ELU is convex and non-decreasing for alpha in [0, 1], which makes it a
// valid hidden activation for convexity-preserving layer stacks.
type ELU[B tensor.Backend] struct {
	Alpha float64
}

// NewELU creates an ELU activation module with alpha = 1.
func NewELU[B tensor.Backend]() *ELU[B] {
	return &ELU[B]{Alpha: 1.0}
}

// Forward applies ELU element-wise.
func (e *ELU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := input.Backend().ELU(input.Raw(), e.Alpha)
	return tensor.New[float32](raw, input.Backend())
}

// Parameters returns an empty slice (ELU has no parameters).
func (e *ELU[B]) Parameters() []*Parameter[B] {
	return nil
}

// Identity passes its input through unchanged. Used where a layer slot
// expects an activation but none should be applied.
type Identity[B tensor.Backend] struct{}

// NewIdentity creates an Identity module.
func NewIdentity[B tensor.Backend]() *Identity[B] {
	return &Identity[B]{}
}

// Forward returns the input unchanged.
func (i *Identity[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input
}

// Parameters returns an empty slice.
func (i *Identity[B]) Parameters() []*Parameter[B] {
	return nil
}

// IPReLU is an increasing, convexity-preserving parametric ReLU:
//
//	iprelu(x) = relu(x) - s * relu(-x)
//
// with a single learnable slope s kept in (0, 1) by a sigmoid
// reparametrization of the raw parameter. Slopes in (0, 1) keep the
// function both non-decreasing and convex for any parameter value the
// optimizer may reach.
type IPReLU[B tensor.Backend] struct {
	slope   *Parameter[B] // raw parameter, slope = sigmoid(raw)
	backend B
}

// ipreluInitSlope is the initial negative-side slope.
const ipreluInitSlope = 0.25

// NewIPReLU creates an IPReLU with the slope initialized to 0.25.
func NewIPReLU[B tensor.Backend](backend B) *IPReLU[B] {
	// raw = logit(slope) so sigmoid(raw) gives the target initial slope
	raw := float32(math.Log(ipreluInitSlope / (1 - ipreluInitSlope)))
	t := tensor.Full[float32](tensor.Shape{1}, raw, backend)
	return &IPReLU[B]{
		slope:   NewParameter("slope", t),
		backend: backend,
	}
}

// Forward applies the increasing parametric ReLU element-wise.
func (p *IPReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b := input.Backend()
	pos := tensor.New[float32](b.ReLU(input.Raw()), b)
	neg := tensor.New[float32](b.ReLU(input.MulScalar(-1).Raw()), b)
	slope := tensor.New[float32](b.Sigmoid(p.slope.Tensor().Raw()), b)
	return pos.Sub(neg.Mul(slope))
}

// Slope returns the current effective slope sigmoid(raw).
func (p *IPReLU[B]) Slope() float32 {
	b := p.slope.Tensor().Backend()
	s := tensor.New[float32](b.Sigmoid(p.slope.Tensor().Raw()), b)
	return s.Item()
}

// Parameters returns the raw slope parameter.
func (p *IPReLU[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{p.slope}
}
