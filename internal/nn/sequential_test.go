package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/convexml/picnn/internal/backend/cpu"
	"github.com/convexml/picnn/internal/tensor"
)

func TestSequentialForward(t *testing.T) {
	backend := cpu.New()

	model := NewSequential[*cpu.CPUBackend](
		NewLayer(4, 8, LayerOptions[*cpu.CPUBackend]{Bias: true}, backend),
		NewReLU[*cpu.CPUBackend](),
		NewLayer(8, 1, LayerOptions[*cpu.CPUBackend]{Bias: true}, backend),
	)

	input := tensor.Randn[float32](tensor.Shape{6, 4}, backend)
	output := model.Forward(input)

	assert.Equal(t, tensor.Shape{6, 1}, output.Shape())
	assert.Equal(t, 3, model.Len())
	// Two layers with weight and bias each; ReLU contributes none.
	assert.Len(t, model.Parameters(), 4)
}

func TestSequentialAdd(t *testing.T) {
	backend := cpu.New()

	model := NewSequential[*cpu.CPUBackend]()
	model.Add(NewLayer(2, 2, LayerOptions[*cpu.CPUBackend]{}, backend))
	model.Add(NewTanh[*cpu.CPUBackend]())

	input := tensor.Randn[float32](tensor.Shape{3, 2}, backend)
	out := model.Forward(input)
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	for _, v := range out.Data() {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestSequentialSetTraining(t *testing.T) {
	backend := cpu.New()

	norm := NewBatchNorm1d(4, false, backend)
	model := NewSequential[*cpu.CPUBackend](
		NewLayer(4, 4, LayerOptions[*cpu.CPUBackend]{}, backend),
		norm,
	)

	model.SetTraining(false)
	assert.False(t, norm.Training())
}
