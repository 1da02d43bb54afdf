// Copyright 2025 ConvexML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/convexml/picnn/internal/tensor"
)

// RawTensor is the low-level untyped tensor buffer backends operate on.
// Most code should use the typed Tensor[T, B] instead.
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-initialized RawTensor with the given shape, data
// type, and device.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// BroadcastShapes computes the result shape of broadcasting two shapes
// following NumPy rules. The second result reports whether any actual
// broadcasting is required.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
