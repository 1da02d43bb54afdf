// Package convex implements partially input-convex neural network
// architectures: maps (x, y) -> z that are convex and non-decreasing in the
// state input x for every fixed context input y.
//
// Convexity is enforced structurally. The recurrence weights acting on the
// evolving state are reparametrized through exponentiation so they stay
// entry-wise positive, and the step activations are convex and
// non-decreasing, so each step preserves convexity in x.
package convex

import "github.com/convexml/picnn/internal/nn"

// GateMode selects the learnable step gate used by PICNN3.
type GateMode int

const (
	// GateCELU gates each step with the smooth convex exponential unit.
	GateCELU GateMode = iota

	// GatePReLU gates each step with a parametric ReLU whose negative-side
	// slope comes from the gate layer.
	GatePReLU
)

// Options configures the shared structure of the PICNN architectures.
// Start from DefaultOptions and override individual fields.
//
// Activation fields that construct modules are nil-defaulted by the
// architecture constructors, since the defaults differ between variants.
type Options[B Backend] struct {
	// HiddenActivation is the step activation g_k applied after each hidden
	// recurrence step. It must be convex and non-decreasing or the
	// architecture loses its convexity guarantee. The instance is shared
	// across steps. Defaults: ELU for PICNN1, IPReLU for PICNN2.
	// Unused by PICNN3, which gates steps instead.
	HiddenActivation nn.Module[B]

	// OutputActivation is applied after the final step. Nil means identity.
	// It must also be convex and non-decreasing to preserve the guarantee.
	OutputActivation nn.Module[B]

	// ParamHiddenActivation constructs the hidden activation of the context
	// network, one instance per hidden layer. Defaults to ELU.
	// The context network faces no convexity restriction.
	ParamHiddenActivation func() nn.Module[B]

	// ParamOutputActivation constructs the output activation of the context
	// network. Nil means identity.
	ParamOutputActivation func() nn.Module[B]

	// FloorFunc is the activation of the U_k layers producing the
	// multiplicative context scalings of the evolving state. It must map
	// into the non-negative reals so the scaled state keeps its convexity
	// sign structure. Defaults to ReLU. Shared across steps.
	FloorFunc nn.Module[B]

	// ParamNetBatchNormalize enables batch normalization inside the context
	// network.
	ParamNetBatchNormalize bool

	// ABLayersBatchNormalize enables batch normalization on the A_k and B_k
	// recurrence layers. The A_k normalization is always non-affine; a
	// learnable scale could turn negative and break convexity.
	ABLayersBatchNormalize bool

	// UVWLayersBatchNormalize enables batch normalization on the U_k, V_k
	// and W_k context projection layers.
	UVWLayersBatchNormalize bool

	// UVWLayersBatchNormAffine enables the learnable scale and shift of the
	// U/V/W batch normalization.
	UVWLayersBatchNormAffine bool

	// UniformInitRange seeds the raw (pre-exponentiation) A_k weights
	// uniformly from [lo, hi). The default (-1, 0) puts the effective
	// positive weights in (1/e, 1].
	UniformInitRange [2]float64

	// UseNormalizedInputs feeds the batch-normalized initial state into the
	// B_k shortcut branch instead of the raw initial state.
	UseNormalizedInputs bool

	// StepGate selects the PICNN3 step gate. Ignored by PICNN1 and PICNN2.
	StepGate GateMode
}

// DefaultOptions returns the options the architectures were designed
// around: batch normalization enabled throughout, affine U/V/W
// normalization, and raw A_k weights seeded from [-1, 0).
func DefaultOptions[B Backend]() Options[B] {
	return Options[B]{
		ParamNetBatchNormalize:   true,
		ABLayersBatchNormalize:   true,
		UVWLayersBatchNormalize:  true,
		UVWLayersBatchNormAffine: true,
		UniformInitRange:         [2]float64{-1, 0},
		StepGate:                 GateCELU,
	}
}
