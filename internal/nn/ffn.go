package nn

import (
	"fmt"

	"github.com/convexml/picnn/internal/tensor"
)

// FFN is a plain feed-forward network: a chain of Layers where layer k maps
// sizes[k] features to sizes[k+1] features.
//
// Convex architectures use FFNs in two ways: as whole networks applied in
// one Forward call, and as per-step parameter sources driven through
// ForwardStep, one layer per recurrence step.
type FFN[B tensor.Backend] struct {
	layers  []*Layer[B]
	backend B
}

// NewFFN creates a feed-forward network with the given layer widths.
// sizes[0] is the input width and sizes[len(sizes)-1] the output width, so
// at least two entries are required.
//
// hiddenActivation is instantiated once per hidden layer; outputActivation
// once for the final layer. Either may be nil for no activation. Fresh
// instances per layer keep parametric activations independently learnable.
func NewFFN[B tensor.Backend](
	sizes []int,
	hiddenActivation, outputActivation func() Module[B],
	batchNormalize bool,
	backend B,
) (*FFN[B], error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("ffn: need at least input and output sizes, got %d entries", len(sizes))
	}
	for i, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("ffn: size at position %d must be positive, got %d", i, s)
		}
	}

	numLayers := len(sizes) - 1
	layers := make([]*Layer[B], 0, numLayers)
	for k := 0; k < numLayers; k++ {
		var act Module[B]
		if k < numLayers-1 {
			if hiddenActivation != nil {
				act = hiddenActivation()
			}
		} else if outputActivation != nil {
			act = outputActivation()
		}

		layers = append(layers, NewLayer(sizes[k], sizes[k+1], LayerOptions[B]{
			Activation:      act,
			Bias:            true,
			BatchNormalize:  batchNormalize,
			BatchNormAffine: true,
		}, backend))
	}

	return &FFN[B]{layers: layers, backend: backend}, nil
}

// Forward applies all layers in order.
func (f *FFN[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, layer := range f.layers {
		output = layer.Forward(output)
	}
	return output
}

// ForwardStep applies only layer k. Recurrent architectures that carry a
// separate value per step use this to advance one step at a time.
func (f *FFN[B]) ForwardStep(k int, input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if k < 0 || k >= len(f.layers) {
		panic(fmt.Sprintf("FFN.ForwardStep: layer index %d out of range [0, %d)", k, len(f.layers)))
	}
	return f.layers[k].Forward(input)
}

// Len returns the number of layers.
func (f *FFN[B]) Len() int {
	return len(f.layers)
}

// Layer returns layer k.
func (f *FFN[B]) Layer(k int) *Layer[B] {
	return f.layers[k]
}

// SetTraining propagates the training flag to all layers.
func (f *FFN[B]) SetTraining(training bool) {
	for _, layer := range f.layers {
		layer.SetTraining(training)
	}
}

// Parameters returns the parameters of all layers.
func (f *FFN[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, layer := range f.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}
