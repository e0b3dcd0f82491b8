// Package pool provides a fixed-capacity object pool backed by a single
// preallocated arena. Allocation and release are O(1) pointer moves on an
// intrusive free list; the general heap is never touched after New, so the
// matching path allocates order nodes with no GC pressure and no latency
// spikes.
package pool

import "unsafe"

const noSlot int32 = -1

// Pool hands out pointers into a contiguous arena of Capacity slots.
// Not safe for concurrent use; every pool is owned by exactly one
// goroutine. Synchronized wraps one in a spinlock for shared use.
type Pool[T any] struct {
	slots     []T
	next      []int32 // free-list links, parallel to slots
	freeHead  int32
	allocated int
}

// New creates a pool of capacity slots with every slot free.
func New[T any](capacity int) *Pool[T] {
	if capacity <= 0 {
		panic("pool: capacity must be positive")
	}
	p := &Pool[T]{
		slots:    make([]T, capacity),
		next:     make([]int32, capacity),
		freeHead: 0,
	}
	for i := 0; i < capacity-1; i++ {
		p.next[i] = int32(i + 1)
	}
	p.next[capacity-1] = noSlot
	return p
}

// Allocate pops the head of the free list. Returns nil when the pool is
// exhausted. The returned slot is zero-valued.
func (p *Pool[T]) Allocate() *T {
	if p.freeHead == noSlot {
		return nil
	}
	i := p.freeHead
	p.freeHead = p.next[i]
	p.allocated++
	return &p.slots[i]
}

// Free returns obj to the pool. obj must have come from Allocate on this
// pool; freeing a foreign pointer is a programmer error and panics.
// Free(nil) is a no-op.
func (p *Pool[T]) Free(obj *T) {
	if obj == nil {
		return
	}
	i, ok := p.index(obj)
	if !ok {
		panic("pool: Free of pointer not owned by this pool")
	}
	var zero T
	p.slots[i] = zero
	p.next[i] = p.freeHead
	p.freeHead = i
	p.allocated--
}

// Owns reports whether obj points at a slot boundary inside the arena.
func (p *Pool[T]) Owns(obj *T) bool {
	if obj == nil {
		return false
	}
	_, ok := p.index(obj)
	return ok
}

func (p *Pool[T]) index(obj *T) (int32, bool) {
	size := unsafe.Sizeof(p.slots[0])
	base := uintptr(unsafe.Pointer(&p.slots[0]))
	off := uintptr(unsafe.Pointer(obj)) - base
	if off >= size*uintptr(len(p.slots)) || off%size != 0 {
		return 0, false
	}
	return int32(off / size), true
}

// Allocated returns the number of live objects.
func (p *Pool[T]) Allocated() int {
	return p.allocated
}

// Available returns the number of free slots.
func (p *Pool[T]) Available() int {
	return len(p.slots) - p.allocated
}

// Capacity returns the total slot count.
func (p *Pool[T]) Capacity() int {
	return len(p.slots)
}

// Full reports whether no free slots remain.
func (p *Pool[T]) Full() bool {
	return p.allocated == len(p.slots)
}
