package cpu

import "github.com/convexml/picnn/internal/tensor"

// computeBroadcastStridesForShape returns the strides to use when reading a
// tensor of shape srcShape as if it had outShape. Dimensions of size 1 (or
// missing leading dimensions) get stride 0 so the same element is reused
// across the broadcasted axis.
func computeBroadcastStridesForShape(srcShape, outShape tensor.Shape) []int {
	srcStrides := srcShape.ComputeStrides()
	result := make([]int, len(outShape))

	offset := len(outShape) - len(srcShape)
	for i := range outShape {
		srcDim := i - offset
		if srcDim < 0 || srcShape[srcDim] == 1 {
			result[i] = 0
		} else {
			result[i] = srcStrides[srcDim]
		}
	}
	return result
}

// computeFlatIndex converts a flat index in the output tensor into a flat
// index in a (possibly broadcast) source tensor, using the output strides to
// decompose the index into coordinates.
func computeFlatIndex(flatIdx int, outStrides, srcStrides []int) int {
	srcIdx := 0
	remaining := flatIdx
	for i, stride := range outStrides {
		coord := remaining / stride
		remaining %= stride
		srcIdx += coord * srcStrides[i]
	}
	return srcIdx
}
