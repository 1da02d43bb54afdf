package convex

import (
	"fmt"

	"github.com/convexml/picnn/internal/nn"
	"github.com/convexml/picnn/internal/tensor"
)

// Backend is the compute backend constraint shared by all architectures.
type Backend = tensor.Backend

// stepStack holds the per-step layers of the shared recurrence
//
//	x_{k+1} = g_k(A_k(x_k * U_k(y)) + B_k(x_0 * V_k(y)) + W_k(y))
//
// with one layer of each kind per step.
type stepStack[B Backend] struct {
	a []*nn.Layer[B] // state recurrence, positive weights
	u []*nn.Layer[B] // non-negative context scaling of x_k
	b []*nn.Layer[B] // shortcut from the initial state
	v []*nn.Layer[B] // context scaling of x_0
	w []*nn.Layer[B] // additive context drive
}

// newStepStack builds the recurrence layers. paramWidth reports the context
// width feeding the U/V/W layers of step k; the architectures differ only in
// whether that width varies per step or is the fixed embedding width.
func newStepStack[B Backend](
	inputSizes []int,
	paramWidth func(k int) int,
	floor nn.Module[B],
	opts Options[B],
	backend B,
) stepStack[B] {
	numSteps := len(inputSizes) - 1
	s := stepStack[B]{
		a: make([]*nn.Layer[B], 0, numSteps),
		u: make([]*nn.Layer[B], 0, numSteps),
		b: make([]*nn.Layer[B], 0, numSteps),
		v: make([]*nn.Layer[B], 0, numSteps),
		w: make([]*nn.Layer[B], 0, numSteps),
	}

	initRange := opts.UniformInitRange

	for k := 0; k < numSteps; k++ {
		s.a = append(s.a, nn.NewLayer(inputSizes[k], inputSizes[k+1], nn.LayerOptions[B]{
			Bias:             false,
			BatchNormalize:   opts.ABLayersBatchNormalize,
			BatchNormAffine:  false, // a learnable scale could flip sign and break convexity
			Constraint:       nn.Exp[B],
			UniformInitRange: &initRange,
		}, backend))

		s.u = append(s.u, nn.NewLayer(paramWidth(k), inputSizes[k], nn.LayerOptions[B]{
			Activation:      floor,
			Bias:            true,
			BatchNormalize:  opts.UVWLayersBatchNormalize,
			BatchNormAffine: opts.UVWLayersBatchNormAffine,
		}, backend))

		s.b = append(s.b, nn.NewLayer(inputSizes[0], inputSizes[k+1], nn.LayerOptions[B]{
			Bias:            false,
			BatchNormalize:  opts.ABLayersBatchNormalize,
			BatchNormAffine: true,
		}, backend))

		s.v = append(s.v, nn.NewLayer(paramWidth(k), inputSizes[0], nn.LayerOptions[B]{
			Bias:            true,
			BatchNormalize:  opts.UVWLayersBatchNormalize,
			BatchNormAffine: opts.UVWLayersBatchNormAffine,
		}, backend))

		s.w = append(s.w, nn.NewLayer(paramWidth(k), inputSizes[k+1], nn.LayerOptions[B]{
			Bias:            true,
			BatchNormalize:  opts.UVWLayersBatchNormalize,
			BatchNormAffine: opts.UVWLayersBatchNormAffine,
		}, backend))
	}

	return s
}

// len returns the number of recurrence steps.
func (s *stepStack[B]) len() int {
	return len(s.a)
}

// parameters collects the parameters of all step layers.
func (s *stepStack[B]) parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for k := range s.a {
		params = append(params, s.a[k].Parameters()...)
		params = append(params, s.u[k].Parameters()...)
		params = append(params, s.b[k].Parameters()...)
		params = append(params, s.v[k].Parameters()...)
		params = append(params, s.w[k].Parameters()...)
	}
	return params
}

// setTraining propagates the training flag to all step layers.
func (s *stepStack[B]) setTraining(training bool) {
	for k := range s.a {
		s.a[k].SetTraining(training)
		s.u[k].SetTraining(training)
		s.b[k].SetTraining(training)
		s.v[k].SetTraining(training)
		s.w[k].SetTraining(training)
	}
}

// validateSizes checks a layer width configuration.
func validateSizes(name string, sizes []int) error {
	if len(sizes) < 2 {
		return fmt.Errorf("%s: need at least input and output sizes, got %d entries", name, len(sizes))
	}
	for i, s := range sizes {
		if s <= 0 {
			return fmt.Errorf("%s: size at position %d must be positive, got %d", name, i, s)
		}
	}
	return nil
}

// checkForwardInputs validates the state and context batches fed to Forward.
func checkForwardInputs[B Backend](state, context *tensor.Tensor[float32, B], stateWidth, contextWidth int) {
	ss, cs := state.Shape(), context.Shape()
	if len(ss) != 2 || len(cs) != 2 {
		panic(fmt.Sprintf("Forward: expected 2D inputs [batch, features], got state %v and context %v", ss, cs))
	}
	if ss[1] != stateWidth {
		panic(fmt.Sprintf("Forward: expected state with %d features, got %d", stateWidth, ss[1]))
	}
	if cs[1] != contextWidth {
		panic(fmt.Sprintf("Forward: expected context with %d features, got %d", contextWidth, cs[1]))
	}
	if ss[0] != cs[0] {
		panic(fmt.Sprintf("Forward: state batch %d does not match context batch %d", ss[0], cs[0]))
	}
}
