// Package queue provides the bounded single-producer/single-consumer ring
// buffer used to hand order requests across CPU cores.
//
// Design:
//   - power-of-2 capacity, index masking instead of modulo
//   - head (consumer-owned) and tail (producer-owned) on separate cache
//     lines to prevent false sharing
//   - each side keeps a locally-cached copy of the other side's index,
//     refreshed only when the cached value indicates full/empty, so in the
//     steady state every cache line is owned by a single core
//   - one slot is sacrificed to disambiguate full from empty
package queue

import (
	"runtime"
	"sync/atomic"
)

const cacheLineSize = 64

// yieldInterval is the safety valve for the busy-wait variants: after this
// many consecutive failed polls the goroutine yields to the scheduler once.
// A scheduler yield in the steady state would add latency variance, so the
// loop spins until the budget is spent.
const yieldInterval = 100_000

// SPSC is a wait-free bounded FIFO for exactly one producer goroutine and
// exactly one consumer goroutine. Any other usage is a data race.
type SPSC[T any] struct {
	buffer []T
	mask   uint64

	_    [cacheLineSize]byte
	head atomic.Uint64 // next read position, advanced by the consumer
	_    [cacheLineSize - 8]byte
	tail atomic.Uint64 // next write position, advanced by the producer
	_    [cacheLineSize - 8]byte

	cachedHead uint64 // producer's last observed head
	_          [cacheLineSize - 8]byte
	cachedTail uint64 // consumer's last observed tail
}

// NewSPSC creates a queue holding up to capacity-1 elements.
// Capacity must be a power of two and at least 2.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		panic("queue: SPSC capacity must be a power of 2 and >= 2")
	}
	return &SPSC[T]{
		buffer: make([]T, capacity),
		mask:   uint64(capacity - 1),
	}
}

// TryPush appends v and returns false, with no side effects, if the queue
// is full. Producer goroutine only.
func (q *SPSC[T]) TryPush(v T) bool {
	tail := q.tail.Load()
	next := (tail + 1) & q.mask

	// Full test against the cached head first; only reload the shared
	// index on the contested path.
	if next == q.cachedHead {
		q.cachedHead = q.head.Load()
		if next == q.cachedHead {
			return false
		}
	}

	q.buffer[tail] = v
	// The store above must be visible before the new tail is published;
	// the atomic store provides the release edge.
	q.tail.Store(next)
	return true
}

// TryPop removes the oldest element, or returns false if the queue is
// empty. Consumer goroutine only.
func (q *SPSC[T]) TryPop() (T, bool) {
	head := q.head.Load()

	if head == q.cachedTail {
		q.cachedTail = q.tail.Load()
		if head == q.cachedTail {
			var zero T
			return zero, false
		}
	}

	v := q.buffer[head]
	var zero T
	q.buffer[head] = zero // drop the reference so pointers don't pin
	q.head.Store((head + 1) & q.mask)
	return v, true
}

// Push busy-waits until the element is accepted. Cancellation is
// cooperative: done is checked between iterations and Push returns false
// if it reports true. Pass nil for an unbounded wait.
func (q *SPSC[T]) Push(v T, done func() bool) bool {
	for spins := 0; ; spins++ {
		if q.TryPush(v) {
			return true
		}
		if done != nil && done() {
			return false
		}
		if spins%yieldInterval == yieldInterval-1 {
			runtime.Gosched()
		}
	}
}

// Pop busy-waits until an element is available, with the same cooperative
// cancellation contract as Push.
func (q *SPSC[T]) Pop(done func() bool) (T, bool) {
	for spins := 0; ; spins++ {
		if v, ok := q.TryPop(); ok {
			return v, true
		}
		if done != nil && done() {
			var zero T
			return zero, false
		}
		if spins%yieldInterval == yieldInterval-1 {
			runtime.Gosched()
		}
	}
}

// Empty reports whether the queue currently holds no elements. Approximate
// when called concurrently with push/pop.
func (q *SPSC[T]) Empty() bool {
	return q.head.Load() == q.tail.Load()
}

// Size returns the current element count. Approximate when called
// concurrently with push/pop.
func (q *SPSC[T]) Size() int {
	return int((q.tail.Load() - q.head.Load()) & q.mask)
}

// Capacity returns the usable capacity (one slot is sacrificed).
func (q *SPSC[T]) Capacity() int {
	return len(q.buffer) - 1
}
