// Copyright 2025 ConvexML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the CPU compute backend.
//
// The backend implements all tensor operations in pure Go, delegating dense
// matrix multiplication to gonum's BLAS routines.
package cpu

import (
	internalcpu "github.com/convexml/picnn/internal/backend/cpu"
	"github.com/convexml/picnn/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/convexml/picnn/backend/cpu"
//	    "github.com/convexml/picnn/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	}
func New() *Backend {
	return internalcpu.New()
}
