package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convexml/picnn/internal/backend/cpu"
	"github.com/convexml/picnn/internal/tensor"
)

func reluFactory() Module[*cpu.CPUBackend] {
	return NewReLU[*cpu.CPUBackend]()
}

func TestNewFFNValidation(t *testing.T) {
	backend := cpu.New()

	_, err := NewFFN([]int{4}, nil, nil, false, backend)
	require.Error(t, err)

	_, err = NewFFN([]int{4, 0, 2}, nil, nil, false, backend)
	require.Error(t, err)

	ffn, err := NewFFN([]int{4, 8, 2}, reluFactory, nil, false, backend)
	require.NoError(t, err)
	assert.Equal(t, 2, ffn.Len())
}

func TestFFNForwardShape(t *testing.T) {
	backend := cpu.New()
	ffn, err := NewFFN([]int{4, 8, 8, 2}, reluFactory, nil, false, backend)
	require.NoError(t, err)

	input := tensor.Randn[float32](tensor.Shape{16, 4}, backend)
	output := ffn.Forward(input)

	assert.Equal(t, tensor.Shape{16, 2}, output.Shape())
}

func TestFFNForwardStepMatchesForward(t *testing.T) {
	backend := cpu.New()
	ffn, err := NewFFN([]int{3, 5, 4}, reluFactory, nil, false, backend)
	require.NoError(t, err)

	input := tensor.Randn[float32](tensor.Shape{8, 3}, backend)

	stepwise := input
	for k := 0; k < ffn.Len(); k++ {
		stepwise = ffn.ForwardStep(k, stepwise)
	}
	direct := ffn.Forward(input)

	assert.Equal(t, direct.Data(), stepwise.Data())
}

func TestFFNForwardStepOutOfRangePanics(t *testing.T) {
	backend := cpu.New()
	ffn, err := NewFFN([]int{3, 4}, nil, nil, false, backend)
	require.NoError(t, err)

	input := tensor.Randn[float32](tensor.Shape{2, 3}, backend)
	assert.Panics(t, func() { ffn.ForwardStep(1, input) })
	assert.Panics(t, func() { ffn.ForwardStep(-1, input) })
}

func TestFFNHiddenVsOutputActivation(t *testing.T) {
	backend := cpu.New()
	ffn, err := NewFFN([]int{2, 3, 2}, reluFactory, func() Module[*cpu.CPUBackend] {
		return NewSigmoid[*cpu.CPUBackend]()
	}, false, backend)
	require.NoError(t, err)

	// The output activation is sigmoid, so every output lands in (0, 1).
	input := tensor.Randn[float32](tensor.Shape{8, 2}, backend)
	output := ffn.Forward(input)
	for _, v := range output.Data() {
		assert.Greater(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestFFNSetTrainingPropagates(t *testing.T) {
	backend := cpu.New()
	ffn, err := NewFFN([]int{4, 4, 4}, nil, nil, true, backend)
	require.NoError(t, err)

	ffn.SetTraining(false)
	for k := 0; k < ffn.Len(); k++ {
		assert.False(t, ffn.Layer(k).Norm().Training())
	}
}

func TestFFNParameters(t *testing.T) {
	backend := cpu.New()
	ffn, err := NewFFN([]int{4, 8, 2}, nil, nil, false, backend)
	require.NoError(t, err)

	// Two layers with weight and bias each.
	assert.Len(t, ffn.Parameters(), 4)
}
