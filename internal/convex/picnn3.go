package convex

import (
	"fmt"

	"github.com/convexml/picnn/internal/nn"
	"github.com/convexml/picnn/internal/tensor"
)

// PICNN3 replaces the fixed step activations of PICNN2 with learnable
// context-driven gates. An extra sigmoid layer Y_k maps the context
// embedding to per-feature gate weights in (0, 1), which parametrize a
// convex non-decreasing step function:
//
//	y* = L(y)
//	z = A_k(x_k * U_k(y*)) + B_k(x_0 * V_k(y*)) + W_k(y*)
//	x_{k+1} = gate(z, Y_k(y*))
//
// With GateCELU (the default) the gate weight bounds the negative-side
// saturation of each step; with GatePReLU it sets the negative-side slope.
// Either way the step stays convex and non-decreasing in z for any gate
// output, so the context can reshape the step function freely without
// endangering convexity in the state.
type PICNN3[B Backend] struct {
	inputSizes []int
	paramSizes []int

	paramNet  *nn.FFN[B]
	inputNorm *nn.BatchNorm1d[B]
	steps     stepStack[B]
	gates     []*nn.Layer[B] // Y_k, sigmoid output in (0, 1)
	gateMode  GateMode

	useNormalizedInputs bool
	backend             B
}

// NewPICNN3 creates a PICNN3 with state widths inputSizes and context
// network widths paramSizes. Both need at least two entries.
func NewPICNN3[B Backend](inputSizes, paramSizes []int, opts Options[B], backend B) (*PICNN3[B], error) {
	if err := validateSizes("picnn3: input sizes", inputSizes); err != nil {
		return nil, err
	}
	if err := validateSizes("picnn3: param sizes", paramSizes); err != nil {
		return nil, err
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
		return nil, fmt.Errorf("picnn3: context network: %w", err)
	}

	embedWidth := paramSizes[len(paramSizes)-1]
	numSteps := len(inputSizes) - 1

	gates := make([]*nn.Layer[B], 0, numSteps)
	for k := 0; k < numSteps; k++ {
		gates = append(gates, nn.NewLayer(embedWidth, inputSizes[k+1], nn.LayerOptions[B]{
			Activation:      nn.NewSigmoid[B](),
			Bias:            true,
			BatchNormalize:  true,
			BatchNormAffine: false,
		}, backend))
	}

	return &PICNN3[B]{
		inputSizes:          inputSizes,
		paramSizes:          paramSizes,
		paramNet:            paramNet,
		inputNorm:           nn.NewBatchNorm1d(inputSizes[0], false, backend),
		steps:               newStepStack(inputSizes, func(int) int { return embedWidth }, floor, opts, backend),
		gates:               gates,
		gateMode:            opts.StepGate,
		useNormalizedInputs: opts.UseNormalizedInputs,
		backend:             backend,
	}, nil
}

// Forward maps a state batch and a context batch to the output state.
//
// state shape: [batch, inputSizes[0]], context shape: [batch, paramSizes[0]].
// Output shape: [batch, inputSizes[len(inputSizes)-1]].
func (m *PICNN3[B]) Forward(state, context *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
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
		z := fromState.Add(fromStart).Add(m.steps.w[k].Forward(embedded))

		weights := m.gates[k].Forward(embedded)
		switch m.gateMode {
		case GatePReLU:
			x = PReLU(z, weights)
		default:
			x = CELU(z, weights, DefaultCELUEps)
		}
	}

	return x
}

// Len returns the number of recurrence steps.
func (m *PICNN3[B]) Len() int {
	return m.steps.len()
}

// ParamNet returns the context embedding network.
func (m *PICNN3[B]) ParamNet() *nn.FFN[B] {
	return m.paramNet
}

// Gates exposes the per-step gate layers for inspection.
func (m *PICNN3[B]) Gates() []*nn.Layer[B] {
	return m.gates
}

// Steps exposes the per-step recurrence layers for inspection.
func (m *PICNN3[B]) Steps() (a, u, b, v, w []*nn.Layer[B]) {
	return m.steps.a, m.steps.u, m.steps.b, m.steps.v, m.steps.w
}

// Train switches the model to training mode.
func (m *PICNN3[B]) Train() {
	m.setTraining(true)
}

// Eval switches the model to evaluation mode.
func (m *PICNN3[B]) Eval() {
	m.setTraining(false)
}

func (m *PICNN3[B]) setTraining(training bool) {
	m.paramNet.SetTraining(training)
	m.inputNorm.SetTraining(training)
	m.steps.setTraining(training)
	for _, gate := range m.gates {
		gate.SetTraining(training)
	}
}

// Parameters returns all trainable parameters of the model.
func (m *PICNN3[B]) Parameters() []*nn.Parameter[B] {
	params := m.paramNet.Parameters()
	params = append(params, m.steps.parameters()...)
	for _, gate := range m.gates {
		params = append(params, gate.Parameters()...)
	}
	return params
}
