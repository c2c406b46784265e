// Package device provides an accelerator-style execution backend on the CPU.
//
// Kernels are launched over a grid of groups (blocks); each group is a set of
// cooperating units (threads). Cooperative launches run every unit of a group
// as its own goroutine, with a group-local shared staging buffer and a group
// barrier, the same contract a GPU work-group offers with local memory and
// barrier(). Groups never synchronize with each other and run concurrently on
// a bounded number of workers.
//
// Example usage:
//
//	ctx := device.NewContext()
//	defer ctx.Destroy()
//
//	buf, _ := ctx.Malloc(n)
//	data := buf.Float32()
//
//	err := ctx.Launch(device.LaunchConfig{
//		Name:  "fill",
//		Grid:  device.Dim3{X: (n + 255) / 256},
//		Block: device.Dim3{X: 256},
//	}, func(tid device.ThreadID) {
//		if i := tid.Global(); i < n {
//			data[i] = float32(i)
//		}
//	})
package device

import (
	"runtime"
	"sync"
	"sync/atomic"

	"k8s.io/klog/v2"
)

// Device represents a compute device. On this backend it is the CPU with its
// cores and available memory.
type Device struct {
	ID         int      // Unique device identifier
	Name       string   // Human-readable device name
	TotalMem   uint64   // Total available memory in bytes
	NumCores   int      // Number of CPU cores
	MaxThreads int      // Maximum concurrent workers
	Features   []string // SIMD extensions reported by the CPU
}

// Context represents an execution context: the device, its memory pool and
// the number of workers groups are scheduled on. A Context must be destroyed
// when no longer needed.
type Context struct {
	device    *Device
	memory    *MemoryPool
	workers   int
	destroyed atomic.Bool
	launches  atomic.Int64
}

// Option configures a Context.
type Option func(*contextConfig)

type contextConfig struct {
	workers     int
	memoryLimit uint64
}

// WithWorkers sets how many groups may execute at the same time.
// Values <= 0 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *contextConfig) {
		c.workers = n
	}
}

// WithMemoryLimit caps the bytes the memory pool hands out.
// Zero selects the total system memory.
func WithMemoryLimit(bytes uint64) Option {
	return func(c *contextConfig) {
		c.memoryLimit = bytes
	}
}

var (
	cpuDevice     *Device
	cpuDeviceOnce sync.Once

	defaultContext     *Context
	defaultContextOnce sync.Once
)

// GetDevice returns the CPU device information.
func GetDevice() *Device {
	cpuDeviceOnce.Do(func() {
		cpuDevice = &Device{
			ID:         0,
			Name:       "CPU",
			TotalMem:   getSystemMemory(),
			NumCores:   runtime.NumCPU(),
			MaxThreads: runtime.NumCPU() * 2, // Hyperthreading
			Features:   detectCPUFeatures(),
		}
	})
	return cpuDevice
}

// NewContext creates an execution context on the CPU device.
func NewContext(opts ...Option) *Context {
	cfg := contextConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	dev := GetDevice()
	if cfg.workers <= 0 {
		cfg.workers = dev.NumCores
	}
	if cfg.memoryLimit == 0 {
		cfg.memoryLimit = dev.TotalMem
	}
	klog.V(1).Infof("device: new context on %s with %d workers, memory limit %d bytes",
		dev.Name, cfg.workers, cfg.memoryLimit)
	return &Context{
		device:  dev,
		memory:  NewMemoryPool(cfg.memoryLimit),
		workers: cfg.workers,
	}
}

// Default returns the process-wide context used by the package-level helpers.
func Default() *Context {
	defaultContextOnce.Do(func() {
		defaultContext = NewContext()
	})
	return defaultContext
}

// Device returns the device the context runs on.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// Workers returns the maximum number of groups executing at the same time.
func (ctx *Context) Workers() int {
	return ctx.workers
}

// Memory returns the context memory pool.
func (ctx *Context) Memory() *MemoryPool {
	return ctx.memory
}

// Launches returns how many kernels were launched on this context.
func (ctx *Context) Launches() int64 {
	return ctx.launches.Load()
}

// Malloc allocates a zeroed buffer of n float32 elements.
func (ctx *Context) Malloc(n int) (Buffer, error) {
	if ctx.destroyed.Load() {
		return Buffer{}, ErrContextDestroyed
	}
	return ctx.memory.Allocate(n)
}

// Free releases a buffer allocated by Malloc.
func (ctx *Context) Free(buf Buffer) error {
	return ctx.memory.Free(buf)
}

// Destroy releases the context. Further launches and allocations fail.
func (ctx *Context) Destroy() {
	if ctx.destroyed.Swap(true) {
		return
	}
	allocated, peak := ctx.memory.GetStats()
	klog.V(1).Infof("device: context destroyed after %d launches (in use %d bytes, peak %d bytes)",
		ctx.launches.Load(), allocated, peak)
}

// Malloc allocates n float32 elements on the default context.
func Malloc(n int) (Buffer, error) {
	return Default().Malloc(n)
}

// Free releases memory allocated by Malloc on the default context.
func Free(buf Buffer) error {
	return Default().Free(buf)
}

// Launch executes a kernel on the default context.
func Launch(cfg LaunchConfig, kernel KernelFunc) error {
	return Default().Launch(cfg, kernel)
}
