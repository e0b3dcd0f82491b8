package pool

import (
	"runtime"
	"sync/atomic"
)

// Spinlock is a test-and-set lock for short critical sections.
type Spinlock struct {
	flag atomic.Bool
}

// Lock spins until the lock is acquired, yielding periodically so a
// descheduled holder can make progress.
func (s *Spinlock) Lock() {
	for spins := 0; !s.flag.CompareAndSwap(false, true); spins++ {
		if spins%1024 == 1023 {
			runtime.Gosched()
		}
	}
}

// Unlock releases the lock.
func (s *Spinlock) Unlock() {
	s.flag.Store(false)
}

// Synchronized wraps a Pool with a spinlock for use from multiple
// goroutines. Prefer per-goroutine pools; this exists for the rare shared
// case.
type Synchronized[T any] struct {
	mu   Spinlock
	pool *Pool[T]
}

// NewSynchronized creates a spinlocked pool of capacity slots.
func NewSynchronized[T any](capacity int) *Synchronized[T] {
	return &Synchronized[T]{pool: New[T](capacity)}
}

// Allocate pops a free slot, or returns nil when exhausted.
func (s *Synchronized[T]) Allocate() *T {
	s.mu.Lock()
	obj := s.pool.Allocate()
	s.mu.Unlock()
	return obj
}

// Free returns obj to the pool.
func (s *Synchronized[T]) Free(obj *T) {
	s.mu.Lock()
	s.pool.Free(obj)
	s.mu.Unlock()
}

// Allocated returns the number of live objects.
func (s *Synchronized[T]) Allocated() int {
	s.mu.Lock()
	n := s.pool.Allocated()
	s.mu.Unlock()
	return n
}

// Capacity returns the total slot count.
func (s *Synchronized[T]) Capacity() int {
	return s.pool.Capacity()
}
