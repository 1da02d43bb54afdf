package convex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convexml/picnn/internal/backend/cpu"
	"github.com/convexml/picnn/internal/nn"
	"github.com/convexml/picnn/internal/tensor"
)

type cpuTensor = tensor.Tensor[float32, *cpu.CPUBackend]

// forwardFunc lets the property tests run against all three variants
// through one code path.
type forwardFunc func(state, context *cpuTensor) *cpuTensor

// variant bundles a constructed model with the accessors the property tests
// need.
type variant struct {
	name    string
	forward forwardFunc
	aLayers []*nn.Layer[*cpu.CPUBackend]
	bLayers []*nn.Layer[*cpu.CPUBackend]
	vLayers []*nn.Layer[*cpu.CPUBackend]
	eval    func()
	train   func()
}

const (
	stateWidth   = 3
	contextWidth = 4
	outWidth     = 2
)

func buildVariants(t *testing.T, backend *cpu.CPUBackend) []variant {
	t.Helper()

	inputSizes := []int{stateWidth, 5, outWidth}
	opts := DefaultOptions[*cpu.CPUBackend]()

	m1, err := NewPICNN1(inputSizes, []int{contextWidth, 6, 4}, opts, backend)
	require.NoError(t, err)
	m2, err := NewPICNN2(inputSizes, []int{contextWidth, 6}, opts, backend)
	require.NoError(t, err)
	m3, err := NewPICNN3(inputSizes, []int{contextWidth, 6}, opts, backend)
	require.NoError(t, err)

	a1, _, b1, v1, _ := m1.Steps()
	a2, _, b2, v2, _ := m2.Steps()
	a3, _, b3, v3, _ := m3.Steps()

	return []variant{
		{"picnn1", m1.Forward, a1, b1, v1, m1.Eval, m1.Train},
		{"picnn2", m2.Forward, a2, b2, v2, m2.Eval, m2.Train},
		{"picnn3", m3.Forward, a3, b3, v3, m3.Eval, m3.Train},
	}
}

// makeShortcutMonotone rewires the shortcut branch so it is provably
// non-decreasing in the initial state: B_k weights become non-negative and
// the V_k scalings become a positive constant. The architecture guarantees
// monotonicity only under a sign discipline on this branch that random
// initialization does not provide.
func makeShortcutMonotone(v variant) {
	for _, layer := range v.bLayers {
		data := layer.Weight().Data()
		for i := range data {
			data[i] = float32(math.Abs(float64(data[i])))
		}
	}
	for _, layer := range v.vLayers {
		weights := layer.Weight().Data()
		for i := range weights {
			weights[i] = 0
		}
		bias := layer.Bias().Data()
		for i := range bias {
			bias[i] = 0.5
		}
	}
}

func TestPICNN1ConstructorValidation(t *testing.T) {
	backend := cpu.New()
	opts := DefaultOptions[*cpu.CPUBackend]()

	_, err := NewPICNN1([]int{3}, []int{4}, opts, backend)
	assert.Error(t, err)

	_, err = NewPICNN1([]int{3, 0, 2}, []int{4, 5, 6}, opts, backend)
	assert.Error(t, err)

	// Context widths must pair up with state widths one per step.
	_, err = NewPICNN1([]int{3, 5, 2}, []int{4, 6}, opts, backend)
	assert.Error(t, err)

	m, err := NewPICNN1([]int{3, 5, 2}, []int{4, 6, 4}, opts, backend)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestPICNN2ConstructorValidation(t *testing.T) {
	backend := cpu.New()
	opts := DefaultOptions[*cpu.CPUBackend]()

	_, err := NewPICNN2([]int{3, 5, 2}, []int{4}, opts, backend)
	assert.Error(t, err)

	_, err = NewPICNN2([]int{3, -1, 2}, []int{4, 6}, opts, backend)
	assert.Error(t, err)

	// Context depth is independent of the recurrence depth.
	m, err := NewPICNN2([]int{3, 5, 5, 2}, []int{4, 6}, opts, backend)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
}

func TestPICNN3ConstructorValidation(t *testing.T) {
	backend := cpu.New()
	opts := DefaultOptions[*cpu.CPUBackend]()

	_, err := NewPICNN3([]int{3}, []int{4, 6}, opts, backend)
	assert.Error(t, err)

	m, err := NewPICNN3([]int{3, 5, 2}, []int{4, 6}, opts, backend)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Len(t, m.Gates(), 2)
}

func TestForwardShapeContract(t *testing.T) {
	backend := cpu.New()

	for _, v := range buildVariants(t, backend) {
		t.Run(v.name, func(t *testing.T) {
			v.eval()

			state := tensor.Randn[float32](tensor.Shape{7, stateWidth}, backend)
			context := tensor.Randn[float32](tensor.Shape{7, contextWidth}, backend)

			out := v.forward(state, context)
			assert.Equal(t, tensor.Shape{7, outWidth}, out.Shape())
		})
	}
}

func TestForwardRejectsBadInputs(t *testing.T) {
	backend := cpu.New()

	for _, v := range buildVariants(t, backend) {
		t.Run(v.name, func(t *testing.T) {
			v.eval()

			state := tensor.Randn[float32](tensor.Shape{4, stateWidth}, backend)
			context := tensor.Randn[float32](tensor.Shape{4, contextWidth}, backend)

			badState := tensor.Randn[float32](tensor.Shape{4, stateWidth + 1}, backend)
			assert.Panics(t, func() { v.forward(badState, context) })

			badContext := tensor.Randn[float32](tensor.Shape{4, contextWidth + 2}, backend)
			assert.Panics(t, func() { v.forward(state, badContext) })

			mismatched := tensor.Randn[float32](tensor.Shape{5, contextWidth}, backend)
			assert.Panics(t, func() { v.forward(state, mismatched) })

			flat := tensor.Randn[float32](tensor.Shape{stateWidth}, backend)
			assert.Panics(t, func() { v.forward(flat, context) })
		})
	}
}

func TestRecurrenceWeightsStayPositive(t *testing.T) {
	backend := cpu.New()

	for _, v := range buildVariants(t, backend) {
		t.Run(v.name, func(t *testing.T) {
			for _, layer := range v.aLayers {
				for _, w := range layer.EffectiveWeight().Data() {
					assert.Greater(t, w, float32(0))
				}
			}
		})
	}
}

func TestConvexityInState(t *testing.T) {
	backend := cpu.New()

	for _, v := range buildVariants(t, backend) {
		t.Run(v.name, func(t *testing.T) {
			v.eval()

			xa := tensor.Randn[float32](tensor.Shape{6, stateWidth}, backend)
			xb := tensor.Randn[float32](tensor.Shape{6, stateWidth}, backend)
			context := tensor.Randn[float32](tensor.Shape{6, contextWidth}, backend)

			const tFrac = 0.37
			mid := xa.MulScalar(tFrac).Add(xb.MulScalar(1 - tFrac))

			fa := v.forward(xa, context).Data()
			fb := v.forward(xb, context).Data()
			fm := v.forward(mid, context).Data()

			for i := range fm {
				bound := tFrac*float64(fa[i]) + (1-tFrac)*float64(fb[i])
				assert.LessOrEqual(t, float64(fm[i]), bound+1e-3,
					"convex combination bound violated at element %d", i)
			}
		})
	}
}

func TestMonotonicityInState(t *testing.T) {
	backend := cpu.New()

	for _, v := range buildVariants(t, backend) {
		t.Run(v.name, func(t *testing.T) {
			makeShortcutMonotone(v)
			v.eval()

			xa := tensor.Randn[float32](tensor.Shape{6, stateWidth}, backend)
			delta := tensor.Rand[float32](tensor.Shape{6, stateWidth}, backend)
			xb := xa.Add(delta.MulScalar(2)) // xb >= xa elementwise
			context := tensor.Randn[float32](tensor.Shape{6, contextWidth}, backend)

			fa := v.forward(xa, context).Data()
			fb := v.forward(xb, context).Data()

			for i := range fa {
				assert.LessOrEqual(t, float64(fa[i]), float64(fb[i])+1e-4,
					"monotonicity violated at element %d", i)
			}
		})
	}
}

func TestEvalForwardIsDeterministic(t *testing.T) {
	backend := cpu.New()

	for _, v := range buildVariants(t, backend) {
		t.Run(v.name, func(t *testing.T) {
			v.eval()

			state := tensor.Randn[float32](tensor.Shape{5, stateWidth}, backend)
			context := tensor.Randn[float32](tensor.Shape{5, contextWidth}, backend)

			first := v.forward(state, context).Data()
			second := v.forward(state, context).Data()
			assert.Equal(t, first, second)
		})
	}
}

func TestTrainModeUpdatesInputNormStats(t *testing.T) {
	backend := cpu.New()
	m, err := NewPICNN1([]int{3, 5, 2}, []int{4, 6, 4}, DefaultOptions[*cpu.CPUBackend](), backend)
	require.NoError(t, err)

	state := tensor.Randn[float32](tensor.Shape{16, 3}, backend).AddScalar(5)
	context := tensor.Randn[float32](tensor.Shape{16, 4}, backend)

	m.Train()
	m.Forward(state, context)

	// The input normalization tracks the shifted state distribution.
	mean := m.inputNorm.RunningMean().Data()
	for _, v := range mean {
		assert.NotZero(t, v)
	}

	// Eval mode stops the updates.
	m.Eval()
	before := append([]float32(nil), m.inputNorm.RunningMean().Data()...)
	m.Forward(state, context)
	assert.Equal(t, before, m.inputNorm.RunningMean().Data())
}

// newMinimalPICNN3 builds a 1x1 single-step PICNN3 with hand-set weights so
// the pre-activation is exactly 1.25 * x, and the gate layer driven to a
// fixed output by its bias.
func newMinimalPICNN3(t *testing.T, backend *cpu.CPUBackend, mode GateMode, gateBias float32) *PICNN3[*cpu.CPUBackend] {
	t.Helper()

	opts := DefaultOptions[*cpu.CPUBackend]()
	opts.ParamNetBatchNormalize = false
	opts.ABLayersBatchNormalize = false
	opts.UVWLayersBatchNormalize = false
	opts.StepGate = mode

	m, err := NewPICNN3([]int{1, 1}, []int{1, 1}, opts, backend)
	require.NoError(t, err)

	a, u, b, v, w := m.Steps()
	a[0].Weight().Data()[0] = 0 // exp(0) = 1
	u[0].Weight().Data()[0] = 0
	u[0].Bias().Data()[0] = 1 // u = relu(1) = 1
	b[0].Weight().Data()[0] = 0.5
	v[0].Weight().Data()[0] = 0
	v[0].Bias().Data()[0] = 0.5 // shortcut contributes 0.25 * x
	w[0].Weight().Data()[0] = 0
	w[0].Bias().Data()[0] = 0

	m.ParamNet().Layer(0).Weight().Data()[0] = 0
	m.ParamNet().Layer(0).Bias().Data()[0] = 0

	m.Gates()[0].Weight().Data()[0] = 0
	m.Gates()[0].Bias().Data()[0] = gateBias

	m.Eval()
	return m
}

func minimalOutputs(t *testing.T, backend *cpu.CPUBackend, m *PICNN3[*cpu.CPUBackend]) []float32 {
	t.Helper()

	state, err := tensor.FromSlice([]float32{-5, 0, 5}, tensor.Shape{3, 1}, backend)
	require.NoError(t, err)
	context := tensor.Zeros[float32](tensor.Shape{3, 1}, backend)

	return m.Forward(state, context).Data()
}

func TestPICNN3GateBoundsScenario(t *testing.T) {
	backend := cpu.New()

	m := newMinimalPICNN3(t, backend, GateCELU, 0)
	out := minimalOutputs(t, backend, m)

	assert.Less(t, out[0], out[1])
	assert.Less(t, out[1], out[2])
	assert.InDelta(t, 0, float64(out[1]), 1e-5)
	assert.InDelta(t, 6.25, float64(out[2]), 1e-4)
	// The smooth gate saturates the negative side above -1.
	assert.GreaterOrEqual(t, float64(out[0]), -1.0)
}

func TestPICNN3GateVariationKeepsMonotonicity(t *testing.T) {
	backend := cpu.New()

	// Drive the gate to near 0 and near 1: the step shape changes from
	// ReLU-like to identity-like on the negative side, but the output stays
	// non-decreasing in the state either way.
	low := minimalOutputs(t, backend, newMinimalPICNN3(t, backend, GatePReLU, -8))
	high := minimalOutputs(t, backend, newMinimalPICNN3(t, backend, GatePReLU, 8))

	for _, out := range [][]float32{low, high} {
		assert.Less(t, out[0], out[1])
		assert.LessOrEqual(t, out[1], out[2])
	}

	// Near-zero gate flattens the negative side, near-one preserves it.
	assert.InDelta(t, 0, float64(low[0]), 0.05)
	assert.InDelta(t, -6.25, float64(high[0]), 0.05)
	assert.Greater(t, float64(low[0]-high[0]), 1.0)
}
