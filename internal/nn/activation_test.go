package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convexml/picnn/internal/backend/cpu"
	"github.com/convexml/picnn/internal/tensor"
)

func TestReLUModule(t *testing.T) {
	backend := cpu.New()
	relu := NewReLU[*cpu.CPUBackend]()

	input, err := tensor.FromSlice([]float32{-1, 0, 2}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	assert.Equal(t, []float32{0, 0, 2}, relu.Forward(input).Data())
	assert.Empty(t, relu.Parameters())
}

func TestELUModule(t *testing.T) {
	backend := cpu.New()
	elu := NewELU[*cpu.CPUBackend]()

	input, err := tensor.FromSlice([]float32{-1, 0, 2}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	out := elu.Forward(input).Data()
	assert.InDelta(t, math.Exp(-1)-1, float64(out[0]), 1e-6)
	assert.InDelta(t, 0, float64(out[1]), 1e-6)
	assert.InDelta(t, 2, float64(out[2]), 1e-6)
}

func TestIdentityModule(t *testing.T) {
	backend := cpu.New()
	id := NewIdentity[*cpu.CPUBackend]()

	input := tensor.Randn[float32](tensor.Shape{2, 3}, backend)
	assert.Same(t, input, id.Forward(input))
}

func TestIPReLUInitialSlope(t *testing.T) {
	backend := cpu.New()
	act := NewIPReLU(backend)

	assert.InDelta(t, 0.25, float64(act.Slope()), 1e-5)
	assert.Len(t, act.Parameters(), 1)
}

func TestIPReLUForward(t *testing.T) {
	backend := cpu.New()
	act := NewIPReLU(backend)

	input, err := tensor.FromSlice([]float32{-4, 0, 2}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	out := act.Forward(input).Data()
	assert.InDelta(t, -1.0, float64(out[0]), 1e-5) // slope 0.25 on the negative side
	assert.InDelta(t, 0, float64(out[1]), 1e-6)
	assert.InDelta(t, 2, float64(out[2]), 1e-6)
}

func TestIPReLUSlopeStaysInUnitInterval(t *testing.T) {
	backend := cpu.New()
	act := NewIPReLU(backend)

	// Whatever value the raw parameter takes, the effective slope must stay
	// in (0, 1).
	for _, raw := range []float32{-8, -1, 0, 1, 8} {
		act.Parameters()[0].Data()[0] = raw
		s := act.Slope()
		assert.Greater(t, s, float32(0))
		assert.Less(t, s, float32(1))
	}
}
