package device

import "sync"

// Barrier is a reusable (cyclic) barrier for a fixed number of parties.
// Every call to Wait blocks until all parties of the current generation have
// arrived, then the barrier resets for the next generation.
//
// A barrier can be broken with Break: all current and future waiters return
// false immediately. Launch breaks a group's barrier when one of its units
// fails, so peers blocked in SyncThreads do not hang forever.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	waiting    int
	generation uint64
	broken     bool
}

// NewBarrier returns a barrier for the given number of parties.
func NewBarrier(parties int) *Barrier {
	if parties < 1 {
		parties = 1
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Parties returns the number of units the barrier waits for.
func (b *Barrier) Parties() int {
	return b.parties
}

// Wait blocks until all parties arrive. It returns false if the barrier was
// broken before or while waiting.
func (b *Barrier) Wait() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken {
		return false
	}
	gen := b.generation
	b.waiting++
	if b.waiting >= b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return true
	}
	for gen == b.generation && !b.broken {
		b.cond.Wait()
	}
	return gen != b.generation
}

// Leave removes one party for good, releasing the current generation if every
// remaining party is already waiting. Units that finish their kernel leave the
// barrier, so a unit returning before its peers reach SyncThreads does not
// block them.
func (b *Barrier) Leave() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.parties > 0 {
		b.parties--
	}
	if b.waiting > 0 && b.waiting >= b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
	}
}

// reset prepares the barrier for a new group. No unit may be waiting.
func (b *Barrier) reset(parties int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parties = parties
	b.waiting = 0
	b.broken = false
}

// Break marks the barrier as broken and releases every waiter.
func (b *Barrier) Break() {
	b.mu.Lock()
	b.broken = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Broken reports whether Break was called.
func (b *Barrier) Broken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.broken
}
