package convex

import (
	"fmt"

	"github.com/convexml/picnn/internal/nn"
	"github.com/convexml/picnn/internal/tensor"
)

// PICNN1 is the partially input-convex architecture that steps the context
// through its own network alongside the state recurrence:
//
//	x_{k+1} = g_k(A_k(x_k * U_k(y_k)) + B_k(x_0 * V_k(y_k)) + W_k(y_k))
//	y_{k+1} = L_k(y_k)
//
// for k = 0..N-1, returning x_N. The U/V/W layers of step k read the context
// at its step-k width, so the context sizes must pair up with the state
// sizes: one context width per step plus one for the final (unused) context.
//
// The output is convex in the initial state x_0 for every fixed context, and
// non-decreasing in x_0 whenever the B_k and V_k weights are non-negative.
type PICNN1[B Backend] struct {
	inputSizes []int
	paramSizes []int

	paramNet  *nn.FFN[B]
	inputNorm *nn.BatchNorm1d[B]
	steps     stepStack[B]

	hiddenActivation nn.Module[B]
	outputActivation nn.Module[B]

	useNormalizedInputs bool
	backend             B
}

// NewPICNN1 creates a PICNN1 with state widths inputSizes and context widths
// paramSizes. Both need at least two entries and must have equal length, so
// the context network provides exactly one layer per recurrence step.
func NewPICNN1[B Backend](inputSizes, paramSizes []int, opts Options[B], backend B) (*PICNN1[B], error) {
	if err := validateSizes("picnn1: input sizes", inputSizes); err != nil {
		return nil, err
	}
	if err := validateSizes("picnn1: param sizes", paramSizes); err != nil {
		return nil, err
	}
	if len(paramSizes) != len(inputSizes) {
		return nil, fmt.Errorf("picnn1: need one context width per step: got %d param sizes for %d input sizes",
			len(paramSizes), len(inputSizes))
	}

	hidden := opts.HiddenActivation
	if hidden == nil {
		hidden = nn.NewELU[B]()
	}
	paramHidden := opts.ParamHiddenActivation
	if paramHidden == nil {
		paramHidden = func() nn.Module[B] { return nn.NewELU[B]() }
	}
	floor := opts.FloorFunc
	if floor == nil {
		floor = nn.NewReLU[B]()
	}

	paramNet, err := nn.NewFFN(paramSizes, paramHidden, opts.ParamOutputActivation, opts.ParamNetBatchNormalize, backend)
	if err != nil {
		return nil, fmt.Errorf("picnn1: context network: %w", err)
	}

	return &PICNN1[B]{
		inputSizes:          inputSizes,
		paramSizes:          paramSizes,
		paramNet:            paramNet,
		inputNorm:           nn.NewBatchNorm1d(inputSizes[0], false, backend),
		steps:               newStepStack(inputSizes, func(k int) int { return paramSizes[k] }, floor, opts, backend),
		hiddenActivation:    hidden,
		outputActivation:    opts.OutputActivation,
		useNormalizedInputs: opts.UseNormalizedInputs,
		backend:             backend,
	}, nil
}

// Forward maps a state batch and a context batch to the output state.
//
// state shape: [batch, inputSizes[0]], context shape: [batch, paramSizes[0]].
// Output shape: [batch, inputSizes[len(inputSizes)-1]].
func (m *PICNN1[B]) Forward(state, context *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	checkForwardInputs(state, context, m.inputSizes[0], m.paramSizes[0])

	normed := m.inputNorm.Forward(state)
	shortcut := state
	if m.useNormalizedInputs {
		shortcut = normed
	}

	x := state
	y := context
	for k := 0; k < m.Len(); k++ {
		fromState := m.steps.a[k].Forward(x.Mul(m.steps.u[k].Forward(y)))
		fromStart := m.steps.b[k].Forward(shortcut.Mul(m.steps.v[k].Forward(y)))
		x = fromState.Add(fromStart).Add(m.steps.w[k].Forward(y))
		x = m.stepActivation(k, x)
		y = m.paramNet.ForwardStep(k, y)
	}

	return x
}

// stepActivation applies g_k: the hidden activation on all but the last
// step, the output activation (if any) on the last.
func (m *PICNN1[B]) stepActivation(k int, x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if k < m.Len()-1 {
		return m.hiddenActivation.Forward(x)
	}
	if m.outputActivation != nil {
		return m.outputActivation.Forward(x)
	}
	return x
}

// Len returns the number of recurrence steps.
func (m *PICNN1[B]) Len() int {
	return m.steps.len()
}

// ParamNet returns the context network.
func (m *PICNN1[B]) ParamNet() *nn.FFN[B] {
	return m.paramNet
}

// Steps exposes the per-step recurrence layers for inspection.
func (m *PICNN1[B]) Steps() (a, u, b, v, w []*nn.Layer[B]) {
	return m.steps.a, m.steps.u, m.steps.b, m.steps.v, m.steps.w
}

// Train switches the model to training mode: batch statistics drive all
// normalization layers.
func (m *PICNN1[B]) Train() {
	m.setTraining(true)
}

// Eval switches the model to evaluation mode: running statistics drive all
// normalization layers, making the map deterministic per sample.
func (m *PICNN1[B]) Eval() {
	m.setTraining(false)
}

func (m *PICNN1[B]) setTraining(training bool) {
	m.paramNet.SetTraining(training)
	m.inputNorm.SetTraining(training)
	m.steps.setTraining(training)
	if m.hiddenActivation != nil {
		nn.SetTraining(m.hiddenActivation, training)
	}
	if m.outputActivation != nil {
		nn.SetTraining(m.outputActivation, training)
	}
}

// Parameters returns all trainable parameters of the model.
func (m *PICNN1[B]) Parameters() []*nn.Parameter[B] {
	params := m.paramNet.Parameters()
	params = append(params, m.steps.parameters()...)
	params = append(params, m.hiddenActivation.Parameters()...)
	if m.outputActivation != nil {
		params = append(params, m.outputActivation.Parameters()...)
	}
	return params
}
