package convex

import (
	"fmt"

	"github.com/convexml/picnn/internal/nn"
	"github.com/convexml/picnn/internal/tensor"
)

// PICNN2 is the partially input-convex architecture that embeds the context
// once and reuses the embedding at every step:
//
//	y* = L(y)
//	x_{k+1} = g_k(A_k(x_k * U_k(y*)) + B_k(x_0 * V_k(y*)) + W_k(y*))
//
// for k = 0..N-1, returning x_N. All U/V/W layers read the final embedding
// width, so the context network depth is independent of the recurrence
// depth.
//
// The default hidden activation is IPReLU, whose learnable slope stays in
// (0, 1) and therefore keeps every step convex and non-decreasing.
type PICNN2[B Backend] struct {
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

// NewPICNN2 creates a PICNN2 with state widths inputSizes and context
// network widths paramSizes. Both need at least two entries; the lengths are
// otherwise independent.
func NewPICNN2[B Backend](inputSizes, paramSizes []int, opts Options[B], backend B) (*PICNN2[B], error) {
	if err := validateSizes("picnn2: input sizes", inputSizes); err != nil {
		return nil, err
	}
	if err := validateSizes("picnn2: param sizes", paramSizes); err != nil {
		return nil, err
	}

	hidden := opts.HiddenActivation
	if hidden == nil {
		hidden = nn.NewIPReLU(backend)
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
		return nil, fmt.Errorf("picnn2: context network: %w", err)
	}

	embedWidth := paramSizes[len(paramSizes)-1]

	return &PICNN2[B]{
		inputSizes:          inputSizes,
		paramSizes:          paramSizes,
		paramNet:            paramNet,
		inputNorm:           nn.NewBatchNorm1d(inputSizes[0], false, backend),
		steps:               newStepStack(inputSizes, func(int) int { return embedWidth }, floor, opts, backend),
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
func (m *PICNN2[B]) Forward(state, context *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	checkForwardInputs(state, context, m.inputSizes[0], m.paramSizes[0])

	shortcut := state
	if m.useNormalizedInputs {
		shortcut = m.inputNorm.Forward(state)
	}

	embedded := m.paramNet.Forward(context)

	x := state
	for k := 0; k < m.Len(); k++ {
		fromState := m.steps.a[k].Forward(x.Mul(m.steps.u[k].Forward(embedded)))
		fromStart := m.steps.b[k].Forward(shortcut.Mul(m.steps.v[k].Forward(embedded)))
		x = fromState.Add(fromStart).Add(m.steps.w[k].Forward(embedded))
		x = m.stepActivation(k, x)
	}

	return x
}

func (m *PICNN2[B]) stepActivation(k int, x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if k < m.Len()-1 {
		return m.hiddenActivation.Forward(x)
	}
	if m.outputActivation != nil {
		return m.outputActivation.Forward(x)
	}
	return x
}

// Len returns the number of recurrence steps.
func (m *PICNN2[B]) Len() int {
	return m.steps.len()
}

// ParamNet returns the context embedding network.
func (m *PICNN2[B]) ParamNet() *nn.FFN[B] {
	return m.paramNet
}

// Steps exposes the per-step recurrence layers for inspection.
func (m *PICNN2[B]) Steps() (a, u, b, v, w []*nn.Layer[B]) {
	return m.steps.a, m.steps.u, m.steps.b, m.steps.v, m.steps.w
}

// Train switches the model to training mode.
func (m *PICNN2[B]) Train() {
	m.setTraining(true)
}

// Eval switches the model to evaluation mode.
func (m *PICNN2[B]) Eval() {
	m.setTraining(false)
}

func (m *PICNN2[B]) setTraining(training bool) {
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
func (m *PICNN2[B]) Parameters() []*nn.Parameter[B] {
	params := m.paramNet.Parameters()
	params = append(params, m.steps.parameters()...)
	params = append(params, m.hiddenActivation.Parameters()...)
	if m.outputActivation != nil {
		params = append(params, m.outputActivation.Parameters()...)
	}
	return params
}
