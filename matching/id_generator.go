package matching

import (
	"sync/atomic"

	"pulse-exchange/domain"
)

// IDGenerator hands out monotonically increasing order ids. Ids start at 1
// so that 0 stays free as the invalid sentinel; wrap-around at 2^64-1 is
// not a supported operating condition.
type IDGenerator struct {
	next atomic.Uint64
}

// NewIDGenerator starts the sequence at start (normally 1).
func NewIDGenerator(start uint64) *IDGenerator {
	g := &IDGenerator{}
	if start == 0 {
		start = 1
	}
	g.next.Store(start)
	return g
}

// Next returns the next id in the sequence.
func (g *IDGenerator) Next() domain.OrderID {
	return g.next.Add(1) - 1
}

// Current returns the next id that would be assigned.
func (g *IDGenerator) Current() domain.OrderID {
	return g.next.Load()
}
