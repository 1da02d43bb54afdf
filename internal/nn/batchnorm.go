package nn

import (
	"fmt"

	"github.com/convexml/picnn/internal/tensor"
)

const (
	batchNormEps      = 1e-5
	batchNormMomentum = 0.1
)

// BatchNorm1d normalizes each feature over the batch dimension.
//
// In training mode the batch statistics are used and the running statistics
// are updated with exponential momentum. In evaluation mode the running
// statistics are used, which makes the layer an affine map of its input.
//
// With affine enabled the normalized output is additionally scaled and
// shifted by learnable per-feature parameters gamma and beta.
type BatchNorm1d[B tensor.Backend] struct {
	numFeatures int
	affine      bool
	training    bool

	gamma *Parameter[B] // [features], nil unless affine
	beta  *Parameter[B] // [features], nil unless affine

	runningMean *tensor.Tensor[float32, B] // [1, features]
	runningVar  *tensor.Tensor[float32, B] // [1, features]

	backend B
}

// NewBatchNorm1d creates a batch normalization layer over numFeatures
// features. The running mean starts at zero and the running variance at one.
func NewBatchNorm1d[B tensor.Backend](numFeatures int, affine bool, backend B) *BatchNorm1d[B] {
	bn := &BatchNorm1d[B]{
		numFeatures: numFeatures,
		affine:      affine,
		training:    true,
		runningMean: tensor.Zeros[float32](tensor.Shape{1, numFeatures}, backend),
		runningVar:  tensor.Ones[float32](tensor.Shape{1, numFeatures}, backend),
		backend:     backend,
	}
	if affine {
		bn.gamma = NewParameter("gamma", Ones(tensor.Shape{numFeatures}, backend))
		bn.beta = NewParameter("beta", Zeros(tensor.Shape{numFeatures}, backend))
	}
	return bn
}

// Forward normalizes the input over the batch dimension.
//
// Input shape: [batch_size, features].
func (bn *BatchNorm1d[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("BatchNorm1d.Forward: expected 2D input [batch, features], got shape %v", shape))
	}
	if shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("BatchNorm1d.Forward: expected input with %d features, got %d", bn.numFeatures, shape[1]))
	}

	var mean, variance *tensor.Tensor[float32, B]
	if bn.training {
		mean = input.MeanDim(0, true) // [1, features]
		centered := input.Sub(mean)
		variance = centered.Mul(centered).MeanDim(0, true) // biased

		bn.updateRunningStats(mean, variance, shape[0])
	} else {
		mean = bn.runningMean
		variance = bn.runningVar
	}

	normalized := input.Sub(mean).Div(variance.AddScalar(batchNormEps).Sqrt())

	if bn.affine {
		gamma := bn.gamma.Tensor().Reshape(1, bn.numFeatures)
		beta := bn.beta.Tensor().Reshape(1, bn.numFeatures)
		normalized = normalized.Mul(gamma).Add(beta)
	}

	return normalized
}

// updateRunningStats folds the batch statistics into the running statistics.
// The running variance tracks the unbiased estimate.
func (bn *BatchNorm1d[B]) updateRunningStats(mean, variance *tensor.Tensor[float32, B], batchSize int) {
	unbiased := variance
	if batchSize > 1 {
		unbiased = variance.MulScalar(float32(batchSize) / float32(batchSize-1))
	}

	bn.runningMean = bn.runningMean.MulScalar(1 - batchNormMomentum).
		Add(mean.MulScalar(batchNormMomentum))
	bn.runningVar = bn.runningVar.MulScalar(1 - batchNormMomentum).
		Add(unbiased.MulScalar(batchNormMomentum))
}

// SetTraining switches between batch statistics and running statistics.
func (bn *BatchNorm1d[B]) SetTraining(training bool) {
	bn.training = training
}

// Training reports whether the layer uses batch statistics.
func (bn *BatchNorm1d[B]) Training() bool {
	return bn.training
}

// NumFeatures returns the number of normalized features.
func (bn *BatchNorm1d[B]) NumFeatures() int {
	return bn.numFeatures
}

// RunningMean returns the running mean, shape [1, features].
func (bn *BatchNorm1d[B]) RunningMean() *tensor.Tensor[float32, B] {
	return bn.runningMean
}

// RunningVar returns the running variance, shape [1, features].
func (bn *BatchNorm1d[B]) RunningVar() *tensor.Tensor[float32, B] {
	return bn.runningVar
}

// Parameters returns [gamma, beta] when affine, otherwise nothing.
func (bn *BatchNorm1d[B]) Parameters() []*Parameter[B] {
	if bn.affine {
		return []*Parameter[B]{bn.gamma, bn.beta}
	}
	return nil
}
