package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// KernelFunc is the code every unit of a launch runs.
// Implementations must be safe for concurrent use: units of different groups
// always run concurrently, and units of a cooperative group do too.
type KernelFunc func(tid ThreadID)

// LaunchConfig describes the shape of a launch.
type LaunchConfig struct {
	// Name identifies the kernel in logs and errors.
	Name string

	// Grid is the number of groups along each dimension.
	Grid Dim3

	// Block is the number of units per group along each dimension.
	Block Dim3

	// SharedFloats is the size, in float32 elements, of the staging buffer
	// each group gets through ThreadID.Shared. It implies Cooperative.
	SharedFloats int

	// Cooperative runs the units of a group concurrently so they can
	// synchronize with ThreadID.SyncThreads.
	Cooperative bool
}

// ErrKernelPanic is wrapped by the execution error returned when a unit panics.
var ErrKernelPanic = errors.New("kernel panicked")

// group holds the state shared by the units of one group.
type group struct {
	shared  []float32
	barrier *Barrier
}

func newGroup(units, sharedFloats int, cooperative bool) *group {
	g := &group{}
	if sharedFloats > 0 {
		g.shared = make([]float32, sharedFloats)
	}
	if cooperative {
		g.barrier = NewBarrier(units)
	}
	return g
}

// Launch executes kernel over the grid and blocks until every group completes.
// A panic in any unit stops scheduling of further groups and is reported as
// an execution error.
func (ctx *Context) Launch(cfg LaunchConfig, kernel KernelFunc) error {
	if ctx.destroyed.Load() {
		return ErrContextDestroyed
	}
	if kernel == nil {
		return NewInvalidArgError("Launch", "nil kernel")
	}
	grid := cfg.Grid.normalized()
	block := cfg.Block.normalized()
	if !grid.valid() || !block.valid() {
		return ErrInvalidLaunch
	}
	if block.Size() > MaxThreadsPerBlock {
		return NewInvalidArgError("Launch",
			fmt.Sprintf("block %s has %d units, maximum is %d", block, block.Size(), MaxThreadsPerBlock))
	}
	if cfg.SharedFloats < 0 || cfg.SharedFloats > MaxSharedFloats {
		return NewInvalidArgError("Launch",
			fmt.Sprintf("shared buffer of %d floats outside [0, %d]", cfg.SharedFloats, MaxSharedFloats))
	}
	cooperative := cfg.Cooperative || cfg.SharedFloats > 0
	ctx.launches.Add(1)

	gridSize := grid.Size()
	numWorkers := ctx.workers
	if gridSize < numWorkers {
		numWorkers = gridSize
	}
	// Each worker processes a contiguous range of groups.
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers
	klog.V(2).Infof("device: launch %q grid=%s block=%s shared=%d cooperative=%v workers=%d",
		cfg.Name, grid, block, cfg.SharedFloats, cooperative, numWorkers)

	var (
		eg     errgroup.Group
		failed atomic.Bool
	)
	for workerID := 0; workerID < numWorkers; workerID++ {
		startBlock := workerID * blocksPerWorker
		endBlock := min(startBlock+blocksPerWorker, gridSize)
		if startBlock >= endBlock {
			break
		}
		eg.Go(func() error {
			// Staging buffer and barrier are reused across the groups of a worker.
			g := newGroup(block.Size(), cfg.SharedFloats, cooperative)
			for blockID := startBlock; blockID < endBlock; blockID++ {
				if failed.Load() {
					return nil
				}
				blockIdx := linearTo3D(blockID, grid)
				var err error
				if cooperative {
					err = runCooperative(cfg.Name, kernel, g, blockIdx, grid, block)
				} else {
					err = runSequential(cfg.Name, kernel, g, blockIdx, grid, block)
				}
				if err != nil {
					failed.Store(true)
					return err
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

// runSequential executes all units of a group one after the other on the
// calling goroutine.
func runSequential(name string, kernel KernelFunc, g *group, blockIdx, grid, block Dim3) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(name, blockIdx, r)
		}
	}()
	blockSize := block.Size()
	for threadID := 0; threadID < blockSize; threadID++ {
		kernel(ThreadID{
			BlockIdx:  blockIdx,
			ThreadIdx: linearTo3D(threadID, block),
			BlockDim:  block,
			GridDim:   grid,
			group:     g,
		})
	}
	return nil
}

// runCooperative executes every unit of a group on its own goroutine, sharing
// the group staging buffer and barrier.
func runCooperative(name string, kernel KernelFunc, g *group, blockIdx, grid, block Dim3) error {
	blockSize := block.Size()
	g.barrier.reset(blockSize)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	wg.Add(blockSize)
	for threadID := 0; threadID < blockSize; threadID++ {
		tid := ThreadID{
			BlockIdx:  blockIdx,
			ThreadIdx: linearTo3D(threadID, block),
			BlockDim:  block,
			GridDim:   grid,
			group:     g,
		}
		go func() {
			defer wg.Done()
			defer func() {
				r := recover()
				if r == nil {
					g.barrier.Leave()
					return
				}
				g.barrier.Break()
				if err, ok := r.(error); ok && errors.Is(err, errBarrierBroken) {
					// A peer failed first and already recorded the error.
					return
				}
				errOnce.Do(func() {
					firstErr = panicError(name, blockIdx, r)
				})
			}()
			kernel(tid)
		}()
	}
	wg.Wait()
	return firstErr
}

func panicError(name string, blockIdx Dim3, r interface{}) error {
	return NewExecutionError("Launch",
		fmt.Sprintf("kernel %q failed in group %s", name, blockIdx),
		fmt.Errorf("%w: %v", ErrKernelPanic, r))
}
