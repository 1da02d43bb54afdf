// Copyright 2025 ConvexML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package convex provides partially input-convex neural network
// architectures (PICNNs): maps (x, y) -> z that are convex and
// non-decreasing in the state input x for every fixed context input y.
//
// Three variants are provided, differing in how the context stream feeds
// the state recurrence:
//   - PICNN1 steps the context through its own network alongside the state.
//   - PICNN2 embeds the context once and reuses the embedding at every step.
//   - PICNN3 extends PICNN2 with learnable context-driven step gates.
//
// Example:
//
//	backend := cpu.New()
//	model, err := convex.NewPICNN2([]int{4, 16, 1}, []int{8, 16},
//	    convex.DefaultOptions[*cpu.Backend](), backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model.Eval()
//	out := model.Forward(state, context) // convex in state, per context
package convex

import (
	"github.com/convexml/picnn/internal/convex"
	"github.com/convexml/picnn/internal/tensor"
)

// GateMode selects the learnable step gate used by PICNN3.
type GateMode = convex.GateMode

// Gate modes.
const (
	// GateCELU gates each step with the smooth convex exponential unit.
	GateCELU GateMode = convex.GateCELU

	// GatePReLU gates each step with a parametric ReLU whose negative-side
	// slope comes from the gate layer.
	GatePReLU GateMode = convex.GatePReLU
)

// Options configures the shared structure of the PICNN architectures.
type Options[B tensor.Backend] = convex.Options[B]

// DefaultOptions returns the options the architectures were designed
// around: batch normalization enabled throughout, affine U/V/W
// normalization, and raw recurrence weights seeded from [-1, 0).
func DefaultOptions[B tensor.Backend]() Options[B] {
	return convex.DefaultOptions[B]()
}

// PICNN1 steps the context through its own network alongside the state
// recurrence, one context layer per step.
type PICNN1[B tensor.Backend] = convex.PICNN1[B]

// NewPICNN1 creates a PICNN1 with state widths inputSizes and context widths
// paramSizes. The two must have equal length: one context width per step
// plus one for the final context.
func NewPICNN1[B tensor.Backend](inputSizes, paramSizes []int, opts Options[B], backend B) (*PICNN1[B], error) {
	return convex.NewPICNN1(inputSizes, paramSizes, opts, backend)
}

// PICNN2 embeds the context once and reuses the embedding at every step.
type PICNN2[B tensor.Backend] = convex.PICNN2[B]

// NewPICNN2 creates a PICNN2 with state widths inputSizes and context
// network widths paramSizes.
func NewPICNN2[B tensor.Backend](inputSizes, paramSizes []int, opts Options[B], backend B) (*PICNN2[B], error) {
	return convex.NewPICNN2(inputSizes, paramSizes, opts, backend)
}

// PICNN3 replaces fixed step activations with learnable context-driven
// gates.
type PICNN3[B tensor.Backend] = convex.PICNN3[B]

// NewPICNN3 creates a PICNN3 with state widths inputSizes and context
// network widths paramSizes.
func NewPICNN3[B tensor.Backend](inputSizes, paramSizes []int, opts Options[B], backend B) (*PICNN3[B], error) {
	return convex.NewPICNN3(inputSizes, paramSizes, opts, backend)
}

// DefaultCELUEps is the offset added to the gate weights in CELU to keep the
// division away from zero.
const DefaultCELUEps = convex.DefaultCELUEps

// CELU applies the smooth convex exponential unit with per-element gate
// weights. Convex and non-decreasing in its first argument for any
// non-negative gate output.
func CELU[B tensor.Backend](inputs, weights *tensor.Tensor[float32, B], eps float32) *tensor.Tensor[float32, B] {
	return convex.CELU(inputs, weights, eps)
}

// PReLU applies a parametric ReLU with per-element negative-side slopes.
// Convex and non-decreasing in its first argument for slopes in [0, 1].
func PReLU[B tensor.Backend](inputs, weights *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return convex.PReLU(inputs, weights)
}
