// Package orderbook implements the per-instrument limit order book:
// price-time priority matching, O(1) cancellation through intrusive node
// links, and deterministic allocation from a fixed-capacity node pool.
//
// A book is single-threaded by design. The matching engine serializes all
// access; the only legitimate concurrent reader is one that has
// synchronized with the mutator externally.
package orderbook

import (
	"pulse-exchange/domain"
	"pulse-exchange/pool"
)

// DefaultMaxOrders bounds the node pool when no explicit capacity is
// given. Matches the sizing of the reference deployment: one million
// resting orders per instrument.
const DefaultMaxOrders = 1_000_000

// Stats is a point-in-time summary of one book.
type Stats struct {
	BidLevels        int
	AskLevels        int
	TotalOrders      int
	TotalBidQuantity domain.Quantity
	TotalAskQuantity domain.Quantity
	TradesMatched    uint64
	VolumeMatched    domain.Quantity
}

// OrderBook owns every order resting on one instrument. All nodes come
// from the book's pool; the id index and the level lists alias them, and
// the book is the only code allowed to mutate them.
type OrderBook struct {
	symbol domain.Symbol
	bids   *ladder
	asks   *ladder
	index  map[domain.OrderID]*orderNode
	nodes  *pool.Pool[orderNode]

	tradesMatched uint64
	volumeMatched domain.Quantity

	now func() domain.Timestamp
}

// New creates a book with the default pool capacity.
func New(symbol domain.Symbol) *OrderBook {
	return NewWithCapacity(symbol, DefaultMaxOrders)
}

// NewWithCapacity creates a book whose pool holds at most maxOrders
// resting orders.
func NewWithCapacity(symbol domain.Symbol, maxOrders int) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newLadder(domain.SideBuy),
		asks:   newLadder(domain.SideSell),
		index:  make(map[domain.OrderID]*orderNode),
		nodes:  newNodePool(maxOrders),
		now:    domain.Now,
	}
}

// SetClock overrides the monotonic clock. Test hook; entry and update
// times are read through it.
func (b *OrderBook) SetClock(now func() domain.Timestamp) {
	b.now = now
}

// AddOrder accepts a copy of order, emits NEW, matches it against the
// opposite side and rests any remainder according to the order type.
// Returns false when the order is rejected (pool exhausted, stop orders,
// post-only cross, unfillable FOK); rejection emits a REJECTED report and
// leaves the book untouched.
func (b *OrderBook) AddOrder(order domain.Order, cb domain.ExecutionCallback) bool {
	// Pre-acceptance checks. These reject without allocating, so a
	// rejected order never makes it into the index or onto a level.
	switch {
	case order.Type == domain.OrderTypeStopLimit:
		// No stop-trigger engine behind this book.
		return b.reject(&order, cb)
	case order.Type == domain.OrderTypePostOnly && b.wouldCross(&order):
		return b.reject(&order, cb)
	case order.Type == domain.OrderTypeFOK && !b.canFillFully(&order):
		return b.reject(&order, cb)
	}

	node := b.nodes.Allocate()
	if node == nil {
		return b.reject(&order, cb)
	}
	node.Order = order
	b.index[order.ID] = node

	emit(cb, domain.NewReport(&node.Order))

	if order.Type != domain.OrderTypePostOnly {
		b.match(node, cb)
	}

	switch {
	case node.Order.Remaining() == 0:
		// Fully filled on entry; never rested.
		b.discard(node)
	case node.Order.Type == domain.OrderTypeLimit,
		node.Order.Type == domain.OrderTypePostOnly:
		b.rest(node)
	default:
		// MARKET and IOC remainders are cancelled, never rested.
		node.Order.Cancel()
		emit(cb, domain.CancelReport(&node.Order))
		b.discard(node)
	}
	return true
}

// CancelOrder removes the order with the given id. Returns false, and
// emits nothing, when the id is not resting on the book.
func (b *OrderBook) CancelOrder(id domain.OrderID, cb domain.ExecutionCallback) bool {
	node, ok := b.index[id]
	if !ok {
		return false
	}
	node.Order.Cancel()
	emit(cb, domain.CancelReport(&node.Order))
	b.unlink(node)
	b.discard(node)
	return true
}

// ModifyOrder changes price and/or quantity of a resting order. A pure
// size-down at the same price keeps queue priority and emits no report;
// anything else is cancel-and-replace under the same id, which loses
// priority and re-runs matching.
func (b *OrderBook) ModifyOrder(id domain.OrderID, newPrice domain.Price, newQty domain.Quantity, cb domain.ExecutionCallback) bool {
	node, ok := b.index[id]
	if !ok {
		return false
	}
	if newQty <= 0 {
		return false
	}
	o := &node.Order

	if newPrice == o.Price && newQty < o.Remaining() {
		delta := o.Remaining() - newQty
		o.Quantity = o.Filled + newQty
		o.UpdateTime = b.now()
		node.level.ReduceQuantity(delta)
		return true
	}

	side, typ, clientID := o.Side, o.Type, o.ClientID

	// Silent removal: the replace emits its own NEW, the old incarnation
	// gets no CANCELLED.
	b.unlink(node)
	b.discard(node)

	replacement := domain.NewOrder(id, side, typ, newPrice, newQty, clientID)
	return b.AddOrder(replacement, cb)
}

// GetOrder returns a snapshot copy of a resting order.
func (b *OrderBook) GetOrder(id domain.OrderID) (domain.Order, bool) {
	node, ok := b.index[id]
	if !ok {
		return domain.Order{}, false
	}
	return node.Order, true
}

// BestBid returns the highest bid price, if any.
func (b *OrderBook) BestBid() (domain.Price, bool) {
	if level := b.bids.bestLevel(); level != nil {
		return level.price, true
	}
	return 0, false
}

// BestAsk returns the lowest ask price, if any.
func (b *OrderBook) BestAsk() (domain.Price, bool) {
	if level := b.asks.bestLevel(); level != nil {
		return level.price, true
	}
	return 0, false
}

// Spread returns best ask minus best bid when both sides are populated.
func (b *OrderBook) Spread() (domain.Price, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return ask - bid, true
}

// MidPrice returns the midpoint when both sides are populated.
func (b *OrderBook) MidPrice() (domain.Price, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// GetQuote returns the top-of-book quote when both sides are populated.
func (b *OrderBook) GetQuote() (domain.Quote, bool) {
	bidLevel := b.bids.bestLevel()
	askLevel := b.asks.bestLevel()
	if bidLevel == nil || askLevel == nil {
		return domain.Quote{}, false
	}
	return domain.Quote{
		BidPrice:    bidLevel.price,
		AskPrice:    askLevel.price,
		BidQuantity: bidLevel.totalQuantity,
		AskQuantity: askLevel.totalQuantity,
		Timestamp:   b.now(),
	}, true
}

// GetDepth returns up to levels aggregated price levels from each side in
// priority order.
func (b *OrderBook) GetDepth(levels int) domain.Depth {
	return domain.Depth{
		Bids: b.bids.levels(levels),
		Asks: b.asks.levels(levels),
	}
}

// GetStats summarizes the book.
func (b *OrderBook) GetStats() Stats {
	return Stats{
		BidLevels:        b.bids.len(),
		AskLevels:        b.asks.len(),
		TotalOrders:      len(b.index),
		TotalBidQuantity: b.bids.totalQuantity(),
		TotalAskQuantity: b.asks.totalQuantity(),
		TradesMatched:    b.tradesMatched,
		VolumeMatched:    b.volumeMatched,
	}
}

// TradesMatched returns the cumulative fill count.
func (b *OrderBook) TradesMatched() uint64 { return b.tradesMatched }

// VolumeMatched returns the cumulative matched quantity.
func (b *OrderBook) VolumeMatched() domain.Quantity { return b.volumeMatched }

// Clear destroys every resting order and empties both sides. Counters are
// preserved.
func (b *OrderBook) Clear() {
	for id, node := range b.index {
		delete(b.index, id)
		node.prev, node.next, node.level = nil, nil, nil
		b.nodes.Free(node)
	}
	b.bids = newLadder(domain.SideBuy)
	b.asks = newLadder(domain.SideSell)
}

// Symbol returns the instrument this book trades.
func (b *OrderBook) Symbol() domain.Symbol { return b.symbol }

// OrderCount returns the number of resting orders.
func (b *OrderBook) OrderCount() int { return len(b.index) }

// Empty reports whether no orders rest on either side.
func (b *OrderBook) Empty() bool { return len(b.index) == 0 }

// match runs the aggressor against the opposite side until it stops
// crossing or is exhausted. Execution price is always the passive price.
// Every fill emits two TRADE reports, aggressor first.
func (b *OrderBook) match(aggressor *orderNode, cb domain.ExecutionCallback) {
	opposite := b.asks
	if aggressor.Order.Side == domain.SideSell {
		opposite = b.bids
	}
	// Market orders cross at any price.
	unpriced := aggressor.Order.Type == domain.OrderTypeMarket

	for !opposite.empty() && aggressor.Order.Remaining() > 0 {
		level := opposite.bestLevel()
		if !unpriced && !crosses(aggressor.Order.Side, aggressor.Order.Price, level.price) {
			break
		}

		for !level.Empty() && aggressor.Order.Remaining() > 0 {
			passive := level.Front()

			fill := aggressor.Order.Remaining()
			if r := passive.Order.Remaining(); r < fill {
				fill = r
			}
			execPrice := passive.Order.Price // resting side sets the price

			aggressor.Order.Fill(fill)
			passive.Order.Fill(fill)
			level.ReduceQuantity(fill)

			emit(cb, domain.TradeReport(&aggressor.Order, &passive.Order, execPrice, fill))
			emit(cb, domain.TradeReport(&passive.Order, &aggressor.Order, execPrice, fill))

			b.tradesMatched++
			b.volumeMatched += fill

			if passive.Order.IsFilled() {
				level.Remove(passive)
				b.discard(passive)
			}
		}

		if level.Empty() {
			opposite.removeLevel(level.price)
		}
	}
}

// wouldCross reports whether o would execute immediately against the
// opposite best.
func (b *OrderBook) wouldCross(o *domain.Order) bool {
	opposite := b.asks
	if o.Side == domain.SideSell {
		opposite = b.bids
	}
	level := opposite.bestLevel()
	return level != nil && crosses(o.Side, o.Price, level.price)
}

// canFillFully is the FOK probe: walk the opposite side under the same
// crossing predicate as match and check the available quantity, mutating
// nothing. Probe and execution share the predicate so they can never
// disagree.
func (b *OrderBook) canFillFully(o *domain.Order) bool {
	opposite := b.asks
	if o.Side == domain.SideSell {
		opposite = b.bids
	}
	needed := o.Remaining()
	it := opposite.tree.Iterator()
	for it.Next() && needed > 0 {
		level := it.Value()
		if !crosses(o.Side, o.Price, level.price) {
			break
		}
		needed -= level.totalQuantity
	}
	return needed <= 0
}

// rest links the node at the tail of its price level, creating the level
// if absent. Entry time is assigned here: time priority is time of
// insertion into the book, not time of receipt.
func (b *OrderBook) rest(node *orderNode) {
	side := b.bids
	if node.Order.Side == domain.SideSell {
		side = b.asks
	}
	node.Order.EntryTime = b.now()
	side.getOrCreate(node.Order.Price).PushBack(node)
}

// unlink removes the node from its level, collapsing the level if it
// becomes empty.
func (b *OrderBook) unlink(node *orderNode) {
	level := node.level
	if level == nil {
		return
	}
	level.Remove(node)
	if level.Empty() {
		side := b.bids
		if node.Order.Side == domain.SideSell {
			side = b.asks
		}
		side.removeLevel(level.price)
	}
}

// discard removes the node from the index and returns it to the pool.
// Must be called with the node already unlinked.
func (b *OrderBook) discard(node *orderNode) {
	delete(b.index, node.Order.ID)
	b.nodes.Free(node)
}

// reject stamps the order rejected and reports it. Always returns false.
func (b *OrderBook) reject(o *domain.Order, cb domain.ExecutionCallback) bool {
	o.Reject()
	emit(cb, domain.RejectReport(o))
	return false
}

// crosses reports whether an aggressor at price reaches the opposite
// best: a BUY crosses at or above it, a SELL at or below.
func crosses(side domain.Side, price, best domain.Price) bool {
	if side == domain.SideBuy {
		return price >= best
	}
	return price <= best
}

func emit(cb domain.ExecutionCallback, rep domain.ExecutionReport) {
	if cb != nil {
		cb(rep)
	}
}
