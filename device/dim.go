package device

import "fmt"

// Dim3 represents 3D dimensions for grid and block configurations.
// A zero Y or Z is treated as 1 by Launch.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total number of elements
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// String implements fmt.Stringer.
func (d Dim3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", d.X, d.Y, d.Z)
}

// normalized fills zero Y/Z dimensions with 1.
func (d Dim3) normalized() Dim3 {
	if d.Y == 0 {
		d.Y = 1
	}
	if d.Z == 0 {
		d.Z = 1
	}
	return d
}

func (d Dim3) valid() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}

// ThreadID identifies a unit's position within the execution hierarchy:
// the same indexing semantics as blockIdx, threadIdx, blockDim and gridDim.
// Units of a cooperative launch also reach their group's shared staging
// buffer and barrier through it.
type ThreadID struct {
	BlockIdx  Dim3 // Group index within the grid
	ThreadIdx Dim3 // Unit index within the group
	BlockDim  Dim3 // Dimensions of the group
	GridDim   Dim3 // Dimensions of the grid

	group *group
}

// Global returns the global thread index along X.
func (tid ThreadID) Global() int {
	return tid.GlobalX()
}

// GlobalX returns the global X index
func (tid ThreadID) GlobalX() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalY returns the global Y index
func (tid ThreadID) GlobalY() int {
	return tid.BlockIdx.Y*tid.BlockDim.Y + tid.ThreadIdx.Y
}

// GlobalZ returns the global Z index
func (tid ThreadID) GlobalZ() int {
	return tid.BlockIdx.Z*tid.BlockDim.Z + tid.ThreadIdx.Z
}

// Shared returns the group-local staging buffer. It is nil for launches that
// did not request shared memory.
func (tid ThreadID) Shared() []float32 {
	if tid.group == nil {
		return nil
	}
	return tid.group.shared
}

// SyncThreads blocks until every unit of the group has reached this point.
// It must only be called from kernels launched with Cooperative set: in a
// sequentially executed group it would wait forever, so it panics instead.
func (tid ThreadID) SyncThreads() {
	if tid.group == nil || tid.group.barrier == nil {
		panic("device: SyncThreads called outside a cooperative launch")
	}
	if !tid.group.barrier.Wait() {
		panic(errBarrierBroken)
	}
}
