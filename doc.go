// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sgemm implements single-precision general matrix multiplication,
// C = alpha*A*B + beta*C, as a set of interchangeable strategies that can be
// verified and timed against each other.
//
// Matrices are padded to whole BlockSize x BlockSize tiles with zeros, so
// tiled kernels read full tiles at the edges without bounds checks. The
// strategies are:
//   - cpu: a sequential reference over the column-major copy of B
//   - simple-tt: one unit per element of C reading main storage directly
//   - tiled-tt: one group per tile of C staging tiles of A and B in shared memory
//   - tiled-tn: as tiled-tt, over the column-major copy of B
//   - blas32: gonum's float32 BLAS, as a library baseline
//
// Kernels run on the CPU through package device, which provides grid
// launches, per-group shared memory and barriers. Package bench drives the
// strategies and reports their throughput.
package sgemm
