// Copyright 2025 ConvexML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package convex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convexml/picnn/backend/cpu"
	"github.com/convexml/picnn/convex"
	"github.com/convexml/picnn/tensor"
)

func TestPublicAPIRoundTrip(t *testing.T) {
	backend := cpu.New()
	opts := convex.DefaultOptions[*cpu.Backend]()

	m1, err := convex.NewPICNN1([]int{4, 8, 1}, []int{6, 8, 6}, opts, backend)
	require.NoError(t, err)
	m2, err := convex.NewPICNN2([]int{4, 8, 1}, []int{6, 12}, opts, backend)
	require.NoError(t, err)
	m3, err := convex.NewPICNN3([]int{4, 8, 1}, []int{6, 12}, opts, backend)
	require.NoError(t, err)

	state := tensor.Randn[float32](tensor.Shape{10, 4}, backend)
	context := tensor.Randn[float32](tensor.Shape{10, 6}, backend)

	m1.Eval()
	m2.Eval()
	m3.Eval()

	for _, out := range []*tensor.Tensor[float32, *cpu.Backend]{
		m1.Forward(state, context),
		m2.Forward(state, context),
		m3.Forward(state, context),
	} {
		assert.Equal(t, tensor.Shape{10, 1}, out.Shape())
	}

	assert.NotEmpty(t, m1.Parameters())
	assert.NotEmpty(t, m2.Parameters())
	assert.NotEmpty(t, m3.Parameters())
}

func TestGateFunctionsExported(t *testing.T) {
	backend := cpu.New()

	inputs, err := tensor.FromSlice([]float32{-1, 0, 2}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)
	weights := tensor.Full[float32](tensor.Shape{1, 3}, 0.5, backend)

	celu := convex.CELU(inputs, weights, convex.DefaultCELUEps)
	prelu := convex.PReLU(inputs, weights)

	assert.Equal(t, tensor.Shape{1, 3}, celu.Shape())
	assert.InDelta(t, -0.5, float64(prelu.Data()[0]), 1e-6)
	assert.Equal(t, float32(2), celu.Data()[2])
}

func TestOptionsVariants(t *testing.T) {
	backend := cpu.New()

	opts := convex.DefaultOptions[*cpu.Backend]()
	opts.StepGate = convex.GatePReLU
	opts.UseNormalizedInputs = true
	opts.UVWLayersBatchNormalize = false

	m, err := convex.NewPICNN3([]int{2, 4, 1}, []int{3, 6}, opts, backend)
	require.NoError(t, err)
	m.Eval()

	state := tensor.Randn[float32](tensor.Shape{5, 2}, backend)
	context := tensor.Randn[float32](tensor.Shape{5, 3}, backend)
	assert.Equal(t, tensor.Shape{5, 1}, m.Forward(state, context).Shape())
}
