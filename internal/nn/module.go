// Package nn provides the building blocks for convex feed-forward
// architectures: affine layers with optional weight constraints, batch
// normalization, activations, and multi-layer networks.
package nn

import "github.com/convexml/picnn/internal/tensor"

// Module is the interface implemented by all neural network components.
//
// Example:
//
//	var m nn.Module[*cpu.CPUBackend] = nn.NewFFN(...)
//	output := m.Forward(input)
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module for the given input.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of the module.
	Parameters() []*Parameter[B]
}

// Trainable is implemented by modules whose forward pass differs between
// training and evaluation, such as batch normalization.
type Trainable interface {
	// SetTraining switches the module between training and evaluation mode.
	SetTraining(training bool)
}

// SetTraining propagates the training flag to a module if it supports it.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	if t, ok := m.(Trainable); ok {
		t.SetTraining(training)
	}
}
