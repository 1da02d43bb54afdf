// Copyright 2025 ConvexML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for the neural network building blocks
// convex architectures are assembled from: constrained affine layers, batch
// normalization, activations, and feed-forward networks.
package nn

import (
	"github.com/convexml/picnn/internal/nn"
	"github.com/convexml/picnn/internal/tensor"
)

// Module interface defines the common interface for all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a trainable parameter in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Layer is an affine transformation with optional weight constraint, batch
// normalization, and activation, applied in that order.
type Layer[B tensor.Backend] = nn.Layer[B]

// LayerOptions configures a Layer.
type LayerOptions[B tensor.Backend] = nn.LayerOptions[B]

// ConstraintFunc maps a raw weight tensor to the effective weight.
type ConstraintFunc[B tensor.Backend] = nn.ConstraintFunc[B]

// Exp is the constraint function w -> e^w, yielding strictly positive
// effective weights.
func Exp[B tensor.Backend](w *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.Exp(w)
}

// NewLayer creates a Layer mapping inFeatures to outFeatures.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLayer(64, 32, nn.LayerOptions[*cpu.Backend]{
//	    Bias:       true,
//	    Activation: nn.NewReLU[*cpu.Backend](),
//	}, backend)
func NewLayer[B tensor.Backend](inFeatures, outFeatures int, opts LayerOptions[B], backend B) *Layer[B] {
	return nn.NewLayer(inFeatures, outFeatures, opts, backend)
}

// BatchNorm1d normalizes each feature over the batch dimension.
type BatchNorm1d[B tensor.Backend] = nn.BatchNorm1d[B]

// NewBatchNorm1d creates a batch normalization layer over numFeatures
// features.
func NewBatchNorm1d[B tensor.Backend](numFeatures int, affine bool, backend B) *BatchNorm1d[B] {
	return nn.NewBatchNorm1d(numFeatures, affine, backend)
}

// FFN is a plain feed-forward network.
type FFN[B tensor.Backend] = nn.FFN[B]

// NewFFN creates a feed-forward network with the given layer widths.
//
// Example:
//
//	ffn, err := nn.NewFFN([]int{8, 16, 4},
//	    func() nn.Module[*cpu.Backend] { return nn.NewELU[*cpu.Backend]() },
//	    nil, true, backend)
func NewFFN[B tensor.Backend](
	sizes []int,
	hiddenActivation, outputActivation func() Module[B],
	batchNormalize bool,
	backend B,
) (*FFN[B], error) {
	return nn.NewFFN(sizes, hiddenActivation, outputActivation, batchNormalize, backend)
}

// Sequential chains modules, feeding each module's output into the next.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a sequential container from the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Activations

// ReLU applies the rectified linear unit.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Sigmoid applies the logistic function.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return nn.NewSigmoid[B]()
}

// Tanh applies the hyperbolic tangent.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return nn.NewTanh[B]()
}

// ELU applies the exponential linear unit.
type ELU[B tensor.Backend] = nn.ELU[B]

// NewELU creates an ELU activation module with alpha = 1.
func NewELU[B tensor.Backend]() *ELU[B] {
	return nn.NewELU[B]()
}

// Identity passes its input through unchanged.
type Identity[B tensor.Backend] = nn.Identity[B]

// NewIdentity creates an Identity module.
func NewIdentity[B tensor.Backend]() *Identity[B] {
	return nn.NewIdentity[B]()
}

// IPReLU is an increasing, convexity-preserving parametric ReLU with a
// learnable slope kept in (0, 1).
type IPReLU[B tensor.Backend] = nn.IPReLU[B]

// NewIPReLU creates an IPReLU with the slope initialized to 0.25.
func NewIPReLU[B tensor.Backend](backend B) *IPReLU[B] {
	return nn.NewIPReLU(backend)
}
