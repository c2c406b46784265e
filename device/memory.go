package device

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"
)

// MemoryPool manages device memory allocation with efficient reuse.
// It maintains a free list of previously allocated blocks to reduce
// allocation overhead, and refuses allocations that would take the
// amount of memory in use beyond its limit.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uint64]*allocation
	freeList   []*allocation
	nextID     uint64
	limit      uint64
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	id   uint64
	data []float32
	used bool
}

// Buffer is a handle to float32 device memory. On the CPU backend device
// memory is host memory, so the contents are reachable through Float32.
type Buffer struct {
	id   uint64
	data []float32
}

// NewMemoryPool creates a new memory pool. A zero limit means no limit.
func NewMemoryPool(limit uint64) *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uint64]*allocation),
		limit:     limit,
	}
}

// Allocate returns a zeroed buffer of n float32 elements.
func (mp *MemoryPool) Allocate(n int) (Buffer, error) {
	if n <= 0 {
		return Buffer{}, ErrInvalidSize
	}
	bytes := int64(n) * Float32Size

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.limit > 0 && uint64(mp.totalAlloc+bytes) > mp.limit {
		return Buffer{}, NewMemoryError("Malloc",
			fmt.Sprintf("requesting %s with %s in use exceeds the %s limit",
				humanize.IBytes(uint64(bytes)), humanize.IBytes(uint64(mp.totalAlloc)), humanize.IBytes(mp.limit)),
			ErrOutOfMemory)
	}

	// Try to reuse from free list. A reused block is charged at its full
	// size, so it must fit under the limit and be at most twice the request.
	for i, alloc := range mp.freeList {
		size := len(alloc.data)
		blockBytes := int64(size) * Float32Size
		if size < n || size > 2*n || (mp.limit > 0 && uint64(mp.totalAlloc+blockBytes) > mp.limit) {
			continue
		}
		mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
		alloc.used = true
		mp.track(blockBytes)
		data := alloc.data[:n:n]
		clear(data)
		return Buffer{id: alloc.id, data: data}, nil
	}

	data, err := makeFloats(n)
	if err != nil {
		return Buffer{}, err
	}
	mp.nextID++
	alloc := &allocation{
		id:   mp.nextID,
		data: data,
		used: true,
	}
	mp.allocated[alloc.id] = alloc
	mp.track(bytes)
	klog.V(2).Infof("device: allocated buffer #%d of %s", alloc.id, humanize.IBytes(uint64(bytes)))
	return Buffer{id: alloc.id, data: alloc.data}, nil
}

// makeFloats turns the runtime panic of an impossible make into an error.
func makeFloats(n int) (data []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewMemoryError("Malloc", fmt.Sprintf("cannot allocate %d float32 elements", n), fmt.Errorf("%v", r))
		}
	}()
	return make([]float32, n), nil
}

func (mp *MemoryPool) track(bytes int64) {
	mp.totalAlloc += bytes
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
}

// Free returns memory to the pool. Freeing a zero Buffer is a no-op.
func (mp *MemoryPool) Free(buf Buffer) error {
	if buf.id == 0 {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[buf.id]
	if !ok {
		return NewMemoryError("Free", "buffer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(len(alloc.data)) * Float32Size
	return nil
}

// GetStats returns memory pool statistics in bytes
func (mp *MemoryPool) GetStats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// Limit returns the pool limit in bytes, 0 if unlimited.
func (mp *MemoryPool) Limit() uint64 {
	return mp.limit
}

// Float32 returns the buffer contents.
func (b Buffer) Float32() []float32 {
	return b.data
}

// Len returns the number of float32 elements.
func (b Buffer) Len() int {
	return len(b.data)
}

// Size returns the size in bytes of the memory region
func (b Buffer) Size() int {
	return len(b.data) * Float32Size
}

// IsZero reports whether b is the zero Buffer.
func (b Buffer) IsZero() bool {
	return b.id == 0
}
