package orderbook

import (
	"pulse-exchange/domain"
	"pulse-exchange/pool"
)

// orderNode wraps an Order with intrusive links into its price level.
// Nodes live in the book's fixed-capacity pool; the level list and the
// order-id index hold non-owning references. A node is in exactly one of
// three states: freshly allocated, resident (indexed and linked), or
// returned to the pool. The book removes a node from the index before
// freeing it, always.
type orderNode struct {
	Order domain.Order

	prev  *orderNode
	next  *orderNode
	level *PriceLevel
}

func newNodePool(capacity int) *pool.Pool[orderNode] {
	return pool.New[orderNode](capacity)
}
