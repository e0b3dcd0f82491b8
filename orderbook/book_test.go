package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse-exchange/domain"
)

func px(display float64) domain.Price {
	return domain.ToFixedPrice(display)
}

var testSymbol = domain.NewSymbol("BTC-USD")

// recorder captures execution reports in emission order.
type recorder struct {
	reports []domain.ExecutionReport
}

func (r *recorder) cb() domain.ExecutionCallback {
	return func(rep domain.ExecutionReport) {
		r.reports = append(r.reports, rep)
	}
}

func (r *recorder) ofType(t domain.ExecType) []domain.ExecutionReport {
	var out []domain.ExecutionReport
	for _, rep := range r.reports {
		if rep.ExecType == t {
			out = append(out, rep)
		}
	}
	return out
}

func limit(id domain.OrderID, side domain.Side, price domain.Price, qty domain.Quantity) domain.Order {
	return domain.NewOrder(id, side, domain.OrderTypeLimit, price, qty, 0)
}

// checkInvariants verifies the structural invariants that must hold after
// every operation: cached aggregates equal list sums, indexed nodes are
// linked at their own price on the correct side, and no empty level is
// present in either map.
func checkInvariants(t *testing.T, b *OrderBook) {
	t.Helper()

	indexed := make(map[domain.OrderID]bool)
	for _, side := range []*ladder{b.bids, b.asks} {
		it := side.tree.Iterator()
		for it.Next() {
			level := it.Value()
			require.False(t, level.Empty(), "empty level present at %d", level.price)

			var sum domain.Quantity
			count := 0
			for n := level.head; n != nil; n = n.next {
				require.Equal(t, level.price, n.Order.Price, "node price differs from level key")
				require.Greater(t, n.Order.Remaining(), domain.Quantity(0), "zero-remaining node held")
				got, ok := b.index[n.Order.ID]
				require.True(t, ok, "linked node %d missing from index", n.Order.ID)
				require.Same(t, got, n)
				indexed[n.Order.ID] = true
				sum += n.Order.Remaining()
				count++
			}
			require.Equal(t, sum, level.totalQuantity, "cached level quantity drifted")
			require.Equal(t, count, level.orderCount, "cached order count drifted")
		}
	}
	require.Len(t, b.index, len(indexed), "index holds unlinked nodes")
}

func TestBasicCross(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 10), rec.cb()))
	require.True(t, b.AddOrder(limit(2, domain.SideSell, px(100), 10), rec.cb()))

	require.Len(t, rec.reports, 4)
	assert.Equal(t, domain.ExecTypeNew, rec.reports[0].ExecType)
	assert.Equal(t, domain.OrderID(1), rec.reports[0].OrderID)
	assert.Equal(t, domain.ExecTypeNew, rec.reports[1].ExecType)
	assert.Equal(t, domain.OrderID(2), rec.reports[1].OrderID)

	// Trade pair: aggressor (2) first, then passive (1).
	agg, pas := rec.reports[2], rec.reports[3]
	assert.Equal(t, domain.ExecTypeTrade, agg.ExecType)
	assert.Equal(t, domain.OrderID(2), agg.OrderID)
	assert.Equal(t, domain.OrderID(1), agg.ContraOrderID)
	assert.Equal(t, px(100), agg.Price)
	assert.Equal(t, domain.Quantity(10), agg.Quantity)
	assert.Equal(t, domain.OrderStatusFilled, agg.OrderStatus)

	assert.Equal(t, domain.ExecTypeTrade, pas.ExecType)
	assert.Equal(t, domain.OrderID(1), pas.OrderID)
	assert.Equal(t, domain.OrderID(2), pas.ContraOrderID)
	assert.Equal(t, domain.OrderStatusFilled, pas.OrderStatus)

	assert.True(t, b.Empty())
	assert.Equal(t, uint64(1), b.TradesMatched())
	assert.Equal(t, domain.Quantity(10), b.VolumeMatched())
	checkInvariants(t, b)
}

func TestPartialFill(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 100), rec.cb()))
	require.True(t, b.AddOrder(limit(2, domain.SideSell, px(99), 30), rec.cb()))

	trades := rec.ofType(domain.ExecTypeTrade)
	require.Len(t, trades, 2)
	assert.Equal(t, domain.OrderStatusFilled, trades[0].OrderStatus) // aggressor 2
	assert.Equal(t, px(100), trades[0].Price)                       // passive sets the price

	resting, ok := b.GetOrder(1)
	require.True(t, ok)
	assert.Equal(t, domain.Quantity(70), resting.Remaining())
	assert.Equal(t, domain.OrderStatusPartiallyFilled, resting.Status)

	depth := b.GetDepth(1)
	require.Len(t, depth.Bids, 1)
	assert.Equal(t, domain.BookLevel{Price: px(100), Quantity: 70, OrderCount: 1}, depth.Bids[0])
	checkInvariants(t, b)
}

func TestPriceTimePriority(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 10), rec.cb()))
	require.True(t, b.AddOrder(limit(2, domain.SideBuy, px(100), 10), rec.cb()))
	require.True(t, b.AddOrder(limit(3, domain.SideSell, px(99), 15), rec.cb()))

	trades := rec.ofType(domain.ExecTypeTrade)
	require.Len(t, trades, 4) // two fills, two reports each

	// First fill is against id 1 (earlier arrival), 10 lots.
	assert.Equal(t, domain.OrderID(1), trades[0].ContraOrderID)
	assert.Equal(t, domain.Quantity(10), trades[0].Quantity)
	// Second fill is against id 2, 5 lots.
	assert.Equal(t, domain.OrderID(2), trades[2].ContraOrderID)
	assert.Equal(t, domain.Quantity(5), trades[2].Quantity)

	_, ok := b.GetOrder(1)
	assert.False(t, ok, "filled order must leave the index")
	second, ok := b.GetOrder(2)
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusPartiallyFilled, second.Status)

	depth := b.GetDepth(1)
	require.Len(t, depth.Bids, 1)
	assert.Equal(t, domain.BookLevel{Price: px(100), Quantity: 5, OrderCount: 1}, depth.Bids[0])
	checkInvariants(t, b)
}

func TestDoubleCancel(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 10), rec.cb()))

	require.True(t, b.CancelOrder(1, rec.cb()))
	cancels := rec.ofType(domain.ExecTypeCancelled)
	require.Len(t, cancels, 1)
	assert.Equal(t, domain.OrderStatusCancelled, cancels[0].OrderStatus)

	before := len(rec.reports)
	assert.False(t, b.CancelOrder(1, rec.cb()))
	assert.Len(t, rec.reports, before, "second cancel must emit nothing")
	checkInvariants(t, b)
}

func TestBestQuote(t *testing.T) {
	b := New(testSymbol)

	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 10), nil))
	require.True(t, b.AddOrder(limit(2, domain.SideSell, px(101), 20), nil))

	q, ok := b.GetQuote()
	require.True(t, ok)
	assert.Equal(t, px(100), q.BidPrice)
	assert.Equal(t, px(101), q.AskPrice)
	assert.Equal(t, domain.Quantity(10), q.BidQuantity)
	assert.Equal(t, domain.Quantity(20), q.AskQuantity)
	assert.Equal(t, px(1), q.Spread())
	checkInvariants(t, b)
}

func TestPostOnlyWouldCrossRejected(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideSell, px(101), 10), rec.cb()))
	statsBefore := b.GetStats()

	po := domain.NewOrder(2, domain.SideBuy, domain.OrderTypePostOnly, px(101), 5, 0)
	assert.False(t, b.AddOrder(po, rec.cb()))

	rejects := rec.ofType(domain.ExecTypeRejected)
	require.Len(t, rejects, 1)
	assert.Equal(t, domain.OrderID(2), rejects[0].OrderID)
	assert.Empty(t, rec.ofType(domain.ExecTypeTrade))

	assert.Equal(t, statsBefore, b.GetStats(), "rejected post-only must not touch the book")
	checkInvariants(t, b)
}

func TestPostOnlyRestsWhenNotCrossing(t *testing.T) {
	b := New(testSymbol)

	require.True(t, b.AddOrder(limit(1, domain.SideSell, px(101), 10), nil))
	po := domain.NewOrder(2, domain.SideBuy, domain.OrderTypePostOnly, px(100), 5, 0)
	require.True(t, b.AddOrder(po, nil))

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, px(100), bid)
	checkInvariants(t, b)
}

func TestMarketOrderCancelsRemainder(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideSell, px(101), 10), rec.cb()))
	mkt := domain.NewOrder(2, domain.SideBuy, domain.OrderTypeMarket, 0, 25, 0)
	require.True(t, b.AddOrder(mkt, rec.cb()))

	trades := rec.ofType(domain.ExecTypeTrade)
	require.Len(t, trades, 2)
	assert.Equal(t, domain.Quantity(10), trades[0].Quantity)
	assert.Equal(t, px(101), trades[0].Price)

	// Remainder cancelled after all trades, never rested.
	cancels := rec.ofType(domain.ExecTypeCancelled)
	require.Len(t, cancels, 1)
	assert.Equal(t, domain.OrderID(2), cancels[0].OrderID)
	assert.Equal(t, rec.reports[len(rec.reports)-1].ExecType, domain.ExecTypeCancelled)

	_, ok := b.GetOrder(2)
	assert.False(t, ok)
	assert.True(t, b.Empty())
	checkInvariants(t, b)
}

func TestIOCCancelsRemainder(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideSell, px(100), 10), rec.cb()))
	ioc := domain.NewOrder(2, domain.SideBuy, domain.OrderTypeIOC, px(100), 15, 0)
	require.True(t, b.AddOrder(ioc, rec.cb()))

	trades := rec.ofType(domain.ExecTypeTrade)
	require.Len(t, trades, 2)
	cancels := rec.ofType(domain.ExecTypeCancelled)
	require.Len(t, cancels, 1)
	assert.Equal(t, domain.OrderID(2), cancels[0].OrderID)
	assert.True(t, b.Empty())
	checkInvariants(t, b)
}

func TestIOCRespectsLimitPrice(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideSell, px(101), 10), rec.cb()))
	ioc := domain.NewOrder(2, domain.SideBuy, domain.OrderTypeIOC, px(100), 10, 0)
	require.True(t, b.AddOrder(ioc, rec.cb()))

	assert.Empty(t, rec.ofType(domain.ExecTypeTrade))
	require.Len(t, rec.ofType(domain.ExecTypeCancelled), 1)

	// The resting ask is untouched.
	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, px(101), ask)
	checkInvariants(t, b)
}

func TestFOKRejectedWhenUnfillable(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideSell, px(100), 10), rec.cb()))
	fok := domain.NewOrder(2, domain.SideBuy, domain.OrderTypeFOK, px(100), 15, 0)
	assert.False(t, b.AddOrder(fok, rec.cb()))

	require.Len(t, rec.ofType(domain.ExecTypeRejected), 1)
	assert.Empty(t, rec.ofType(domain.ExecTypeTrade))

	// Probe must not mutate: the resting order is intact.
	resting, ok := b.GetOrder(1)
	require.True(t, ok)
	assert.Equal(t, domain.Quantity(10), resting.Remaining())
	checkInvariants(t, b)
}

func TestFOKExecutesWhenFillable(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideSell, px(100), 10), rec.cb()))
	require.True(t, b.AddOrder(limit(2, domain.SideSell, px(101), 10), rec.cb()))

	fok := domain.NewOrder(3, domain.SideBuy, domain.OrderTypeFOK, px(101), 15, 0)
	require.True(t, b.AddOrder(fok, rec.cb()))

	trades := rec.ofType(domain.ExecTypeTrade)
	require.Len(t, trades, 4) // 10 @ 100, then 5 @ 101
	assert.Equal(t, px(100), trades[0].Price)
	assert.Equal(t, px(101), trades[2].Price)
	assert.True(t, b.OrderCount() == 1) // 5 left on order 2
	checkInvariants(t, b)
}

func TestStopLimitRejected(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	stop := domain.NewOrder(1, domain.SideBuy, domain.OrderTypeStopLimit, px(100), 10, 0)
	assert.False(t, b.AddOrder(stop, rec.cb()))
	require.Len(t, rec.ofType(domain.ExecTypeRejected), 1)
	assert.True(t, b.Empty())
}

func TestPoolExhaustionRejects(t *testing.T) {
	b := NewWithCapacity(testSymbol, 1)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 10), rec.cb()))

	assert.False(t, b.AddOrder(limit(2, domain.SideBuy, px(99), 10), rec.cb()))
	rejects := rec.ofType(domain.ExecTypeRejected)
	require.Len(t, rejects, 1)
	assert.Equal(t, domain.OrderID(2), rejects[0].OrderID)
	assert.Equal(t, 1, b.OrderCount(), "no partial insertion on exhaustion")

	// Cancelling frees the slot; the next add succeeds.
	require.True(t, b.CancelOrder(1, nil))
	assert.True(t, b.AddOrder(limit(3, domain.SideBuy, px(99), 10), nil))
	checkInvariants(t, b)
}

func TestEmptyBookQueries(t *testing.T) {
	b := New(testSymbol)

	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.BestAsk()
	assert.False(t, ok)
	_, ok = b.Spread()
	assert.False(t, ok)
	_, ok = b.MidPrice()
	assert.False(t, ok)
	_, ok = b.GetQuote()
	assert.False(t, ok)

	depth := b.GetDepth(10)
	assert.Empty(t, depth.Bids)
	assert.Empty(t, depth.Asks)
}

func TestAddThenCancelRestoresBook(t *testing.T) {
	b := New(testSymbol)
	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 10), nil))
	require.True(t, b.CancelOrder(1, nil))

	assert.True(t, b.Empty())
	assert.Equal(t, 0, b.bids.len())
	assert.Equal(t, 0, b.asks.len())
	checkInvariants(t, b)
}

func TestCancelAfterFullFillFails(t *testing.T) {
	b := New(testSymbol)
	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 10), nil))
	require.True(t, b.AddOrder(limit(2, domain.SideSell, px(100), 10), nil))

	assert.False(t, b.CancelOrder(1, nil))
	assert.False(t, b.CancelOrder(2, nil))
}

func TestModifySizeDownKeepsPriority(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 10), rec.cb()))
	require.True(t, b.AddOrder(limit(2, domain.SideBuy, px(100), 10), rec.cb()))

	before := len(rec.reports)
	require.True(t, b.ModifyOrder(1, px(100), 4, rec.cb()))
	assert.Len(t, rec.reports, before, "in-place size-down emits no report")

	// Order 1 keeps its place at the front of the level.
	require.True(t, b.AddOrder(limit(3, domain.SideSell, px(100), 4), rec.cb()))
	trades := rec.ofType(domain.ExecTypeTrade)
	require.Len(t, trades, 2)
	assert.Equal(t, domain.OrderID(1), trades[0].ContraOrderID)
	checkInvariants(t, b)
}

func TestModifySizeUpLosesPriority(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 10), rec.cb()))
	require.True(t, b.AddOrder(limit(2, domain.SideBuy, px(100), 10), rec.cb()))

	require.True(t, b.ModifyOrder(1, px(100), 20, rec.cb()))

	// Replacement keeps the id but queues behind order 2.
	news := rec.ofType(domain.ExecTypeNew)
	assert.Equal(t, domain.OrderID(1), news[len(news)-1].OrderID)

	require.True(t, b.AddOrder(limit(3, domain.SideSell, px(100), 5), rec.cb()))
	trades := rec.ofType(domain.ExecTypeTrade)
	require.Len(t, trades, 2)
	assert.Equal(t, domain.OrderID(2), trades[0].ContraOrderID)

	mod, ok := b.GetOrder(1)
	require.True(t, ok)
	assert.Equal(t, domain.Quantity(20), mod.Quantity)
	checkInvariants(t, b)
}

func TestModifyPriceChangeCanMatch(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideSell, px(101), 10), rec.cb()))
	require.True(t, b.AddOrder(limit(2, domain.SideBuy, px(100), 10), rec.cb()))

	// Repricing the bid to 101 crosses the resting ask.
	require.True(t, b.ModifyOrder(2, px(101), 10, rec.cb()))
	trades := rec.ofType(domain.ExecTypeTrade)
	require.Len(t, trades, 2)
	assert.Equal(t, px(101), trades[0].Price)
	assert.True(t, b.Empty())
	checkInvariants(t, b)
}

func TestModifyUnknownOrderFails(t *testing.T) {
	b := New(testSymbol)
	assert.False(t, b.ModifyOrder(42, px(100), 10, nil))
}

func TestGetStatsAndClear(t *testing.T) {
	b := New(testSymbol)

	require.True(t, b.AddOrder(limit(1, domain.SideBuy, px(100), 10), nil))
	require.True(t, b.AddOrder(limit(2, domain.SideBuy, px(99), 20), nil))
	require.True(t, b.AddOrder(limit(3, domain.SideSell, px(101), 30), nil))

	stats := b.GetStats()
	assert.Equal(t, 2, stats.BidLevels)
	assert.Equal(t, 1, stats.AskLevels)
	assert.Equal(t, 3, stats.TotalOrders)
	assert.Equal(t, domain.Quantity(30), stats.TotalBidQuantity)
	assert.Equal(t, domain.Quantity(30), stats.TotalAskQuantity)

	b.Clear()
	assert.True(t, b.Empty())
	assert.Equal(t, 0, b.GetStats().BidLevels)
	assert.Equal(t, 0, b.GetStats().AskLevels)
}

func TestSweepThroughMultipleLevels(t *testing.T) {
	b := New(testSymbol)
	var rec recorder

	require.True(t, b.AddOrder(limit(1, domain.SideSell, px(100), 10), rec.cb()))
	require.True(t, b.AddOrder(limit(2, domain.SideSell, px(101), 10), rec.cb()))
	require.True(t, b.AddOrder(limit(3, domain.SideSell, px(102), 10), rec.cb()))

	require.True(t, b.AddOrder(limit(4, domain.SideBuy, px(102), 25), rec.cb()))

	trades := rec.ofType(domain.ExecTypeTrade)
	require.Len(t, trades, 6)
	// Levels consumed best-first, execution at each passive price.
	assert.Equal(t, px(100), trades[0].Price)
	assert.Equal(t, px(101), trades[2].Price)
	assert.Equal(t, px(102), trades[4].Price)
	assert.Equal(t, domain.Quantity(5), trades[4].Quantity)

	// 5 remain on order 3's level; the aggressor is fully filled.
	depth := b.GetDepth(5)
	require.Len(t, depth.Asks, 1)
	assert.Equal(t, domain.BookLevel{Price: px(102), Quantity: 5, OrderCount: 1}, depth.Asks[0])
	assert.Empty(t, depth.Bids)
	assert.Equal(t, uint64(3), b.TradesMatched())
	assert.Equal(t, domain.Quantity(25), b.VolumeMatched())
	checkInvariants(t, b)
}

func TestDepthOrdering(t *testing.T) {
	b := New(testSymbol)

	for i, p := range []float64{98, 100, 99} {
		require.True(t, b.AddOrder(limit(domain.OrderID(i+1), domain.SideBuy, px(p), 10), nil))
	}
	for i, p := range []float64{103, 101, 102} {
		require.True(t, b.AddOrder(limit(domain.OrderID(i+4), domain.SideSell, px(p), 10), nil))
	}

	depth := b.GetDepth(2)
	require.Len(t, depth.Bids, 2)
	require.Len(t, depth.Asks, 2)
	assert.Equal(t, px(100), depth.Bids[0].Price) // bids descending
	assert.Equal(t, px(99), depth.Bids[1].Price)
	assert.Equal(t, px(101), depth.Asks[0].Price) // asks ascending
	assert.Equal(t, px(102), depth.Asks[1].Price)
}

func BenchmarkAddCancel(b *testing.B) {
	book := New(testSymbol)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := domain.OrderID(i + 1)
		book.AddOrder(limit(id, domain.SideBuy, px(100), 10), nil)
		book.CancelOrder(id, nil)
	}
}

func BenchmarkMatchOnePair(b *testing.B) {
	book := New(testSymbol)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := domain.OrderID(2*i + 1)
		book.AddOrder(limit(id, domain.SideBuy, px(100), 10), nil)
		book.AddOrder(limit(id+1, domain.SideSell, px(100), 10), nil)
	}
}
