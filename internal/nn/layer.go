package nn

import (
	"fmt"

	"github.com/convexml/picnn/internal/tensor"
)

// ConstraintFunc maps a raw weight tensor to the weight actually used in the
// affine transformation. Convex architectures use tensor exponentiation here
// to keep selected weight matrices entry-wise positive for any raw value.
type ConstraintFunc[B tensor.Backend] func(*tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

// Exp is the constraint function w -> e^w, yielding strictly positive
// effective weights.
func Exp[B tensor.Backend](w *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return w.Exp()
}

// LayerOptions configures a Layer.
type LayerOptions[B tensor.Backend] struct {
	// Activation applied after the affine map (and normalization).
	// Nil means no activation.
	Activation Module[B]

	// Bias adds a learnable bias vector to the affine map.
	Bias bool

	// BatchNormalize inserts batch normalization between the affine map and
	// the activation.
	BatchNormalize bool

	// BatchNormAffine enables the learnable scale and shift of the batch
	// normalization. Ignored unless BatchNormalize is set.
	BatchNormAffine bool

	// Constraint reparametrizes the raw weight before each forward pass.
	// Nil means the raw weight is used directly.
	Constraint ConstraintFunc[B]

	// UniformInitRange, when non-nil, seeds the raw weights uniformly from
	// [lo, hi) instead of Xavier initialization. Constrained layers pair a
	// negative range with the Exp constraint so effective weights start in
	// (0, 1).
	UniformInitRange *[2]float64
}

// Layer is an affine transformation with optional weight constraint,
// batch normalization, and activation, applied in that order:
//
//	y = act(norm(x @ constraint(W).T + b))
//
// It generalizes a dense layer to the constrained layers convex
// architectures are assembled from.
type Layer[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int

	weight     *Parameter[B] // raw weight, [out_features, in_features]
	bias       *Parameter[B] // [out_features], nil unless Bias
	norm       *BatchNorm1d[B]
	activation Module[B]
	constraint ConstraintFunc[B]

	backend B
}

// NewLayer creates a Layer mapping inFeatures to outFeatures.
func NewLayer[B tensor.Backend](inFeatures, outFeatures int, opts LayerOptions[B], backend B) *Layer[B] {
	weightShape := tensor.Shape{outFeatures, inFeatures}

	var weightTensor *tensor.Tensor[float32, B]
	if r := opts.UniformInitRange; r != nil {
		weightTensor = UniformInit(weightShape, r[0], r[1], backend)
	} else {
		weightTensor = Xavier(inFeatures, outFeatures, weightShape, backend)
	}

	l := &Layer[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weightTensor),
		activation:  opts.Activation,
		constraint:  opts.Constraint,
		backend:     backend,
	}

	if opts.Bias {
		l.bias = NewParameter("bias", Zeros(tensor.Shape{outFeatures}, backend))
	}
	if opts.BatchNormalize {
		l.norm = NewBatchNorm1d(outFeatures, opts.BatchNormAffine, backend)
	}

	return l
}

// Forward applies the layer.
//
// Input shape: [batch_size, in_features].
// Output shape: [batch_size, out_features].
func (l *Layer[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("Layer.Forward: expected 2D input [batch, features], got shape %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(fmt.Sprintf("Layer.Forward: expected input with %d features, got %d", l.inFeatures, shape[1]))
	}

	output := input.MatMul(l.EffectiveWeight().T())

	if l.bias != nil {
		output = output.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
	}
	if l.norm != nil {
		output = l.norm.Forward(output)
	}
	if l.activation != nil {
		output = l.activation.Forward(output)
	}

	return output
}

// EffectiveWeight returns the weight used in the affine map: the raw weight
// passed through the constraint function, or the raw weight itself when no
// constraint is set. Shape [out_features, in_features].
func (l *Layer[B]) EffectiveWeight() *tensor.Tensor[float32, B] {
	if l.constraint != nil {
		return l.constraint(l.weight.Tensor())
	}
	return l.weight.Tensor()
}

// Weight returns the raw weight parameter.
func (l *Layer[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter, or nil if the layer has no bias.
func (l *Layer[B]) Bias() *Parameter[B] {
	return l.bias
}

// Norm returns the batch normalization sub-layer, or nil.
func (l *Layer[B]) Norm() *BatchNorm1d[B] {
	return l.norm
}

// InFeatures returns the input width.
func (l *Layer[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the output width.
func (l *Layer[B]) OutFeatures() int {
	return l.outFeatures
}

// SetTraining propagates the training flag to normalization and activation.
func (l *Layer[B]) SetTraining(training bool) {
	if l.norm != nil {
		l.norm.SetTraining(training)
	}
	if l.activation != nil {
		SetTraining(l.activation, training)
	}
}

// Parameters returns the layer's trainable parameters: the raw weight, the
// bias if present, the normalization parameters if affine, and any
// activation parameters.
func (l *Layer[B]) Parameters() []*Parameter[B] {
	params := []*Parameter[B]{l.weight}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	if l.norm != nil {
		params = append(params, l.norm.Parameters()...)
	}
	if l.activation != nil {
		params = append(params, l.activation.Parameters()...)
	}
	return params
}
