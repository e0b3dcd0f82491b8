// Package matching hosts the single-threaded matching engine facade and
// its asynchronous wrapper. The engine owns one order book per instrument
// and serializes every mutation; throughput comes from keeping the hot
// path allocation-free, not from locking.
package matching

import (
	"go.uber.org/zap"

	"pulse-exchange/domain"
	"pulse-exchange/orderbook"
	"pulse-exchange/stats"
)

// EngineStats aggregates activity across all instruments. Latency fields
// measure order submission wall time, entry to last report, in
// nanoseconds.
type EngineStats struct {
	OrdersReceived  uint64
	OrdersMatched   uint64 // increments once per executed fill
	OrdersCancelled uint64
	OrdersRejected  uint64
	TotalVolume     domain.Quantity
	TotalLatencyNs  domain.Duration
	MinLatencyNs    domain.Duration
	MaxLatencyNs    domain.Duration
}

// MeanLatencyNs returns the average submission latency.
func (s EngineStats) MeanLatencyNs() float64 {
	if s.OrdersReceived == 0 {
		return 0
	}
	return float64(s.TotalLatencyNs) / float64(s.OrdersReceived)
}

// Engine routes requests to per-instrument books and assigns order ids.
// Like the books it owns, it is single-threaded: exactly one goroutine may
// call the mutating methods. AsyncEngine provides the queue-fed variant.
type Engine struct {
	books    map[string]*orderbook.OrderBook
	ids      *IDGenerator
	callback domain.ExecutionCallback
	stats    EngineStats
	latency  *stats.LatencyStats
	log      *zap.Logger

	bookCapacity int
	now          func() domain.Timestamp
}

// NewEngine creates an engine with no instruments registered. A nil logger
// falls back to zap.NewNop.
func NewEngine(logger *zap.Logger) *Engine {
	return NewEngineWithCapacity(logger, orderbook.DefaultMaxOrders)
}

// NewEngineWithCapacity sizes each instrument's node pool at bookCapacity
// resting orders.
func NewEngineWithCapacity(logger *zap.Logger, bookCapacity int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		books:        make(map[string]*orderbook.OrderBook),
		ids:          NewIDGenerator(1),
		latency:      stats.NewLatencyStats(),
		log:          logger,
		bookCapacity: bookCapacity,
		now:          domain.Now,
	}
}

// SetExecutionCallback installs the single report sink. Reports fire
// synchronously on the engine thread; the callback must not call back into
// the engine.
func (e *Engine) SetExecutionCallback(cb domain.ExecutionCallback) {
	e.callback = cb
}

// SetClock overrides the monotonic clock for the engine and every book
// registered afterwards. Test hook.
func (e *Engine) SetClock(now func() domain.Timestamp) {
	e.now = now
}

// AddInstrument registers a new trading symbol. Returns false if the
// symbol is already registered.
func (e *Engine) AddInstrument(sym domain.Symbol) bool {
	key := sym.String()
	if _, exists := e.books[key]; exists {
		return false
	}
	book := orderbook.NewWithCapacity(sym, e.bookCapacity)
	book.SetClock(e.now)
	e.books[key] = book
	e.log.Info("instrument registered", zap.String("symbol", key))
	return true
}

// SubmitOrder assigns an id, runs the order through its book and returns
// the id. Returns InvalidOrderID when the symbol is unknown or the book
// rejects the order; an unknown symbol emits no report.
func (e *Engine) SubmitOrder(sym domain.Symbol, side domain.Side, typ domain.OrderType, price domain.Price, qty domain.Quantity, clientID uint64) domain.OrderID {
	start := e.now()
	e.stats.OrdersReceived++

	book, ok := e.books[sym.String()]
	if !ok {
		e.stats.OrdersRejected++
		return domain.InvalidOrderID
	}

	id := e.ids.Next()
	order := domain.NewOrder(id, side, typ, price, qty, clientID)

	fillsBefore := book.TradesMatched()
	volumeBefore := book.VolumeMatched()

	accepted := book.AddOrder(order, e.callback)

	e.stats.OrdersMatched += book.TradesMatched() - fillsBefore
	e.stats.TotalVolume += book.VolumeMatched() - volumeBefore

	elapsed := domain.Duration(e.now() - start)
	e.recordLatency(elapsed)

	if !accepted {
		e.stats.OrdersRejected++
		return domain.InvalidOrderID
	}
	return id
}

// CancelOrder cancels a resting order on the given instrument. Returns
// false when the symbol or id is unknown.
func (e *Engine) CancelOrder(sym domain.Symbol, id domain.OrderID) bool {
	book, ok := e.books[sym.String()]
	if !ok {
		return false
	}
	if !book.CancelOrder(id, e.callback) {
		return false
	}
	e.stats.OrdersCancelled++
	return true
}

// ModifyOrder changes price and/or quantity of a resting order, keeping
// its id. Returns false when the symbol or id is unknown or the new
// quantity is not positive.
func (e *Engine) ModifyOrder(sym domain.Symbol, id domain.OrderID, price domain.Price, qty domain.Quantity) bool {
	book, ok := e.books[sym.String()]
	if !ok {
		return false
	}
	fillsBefore := book.TradesMatched()
	volumeBefore := book.VolumeMatched()

	modified := book.ModifyOrder(id, price, qty, e.callback)

	e.stats.OrdersMatched += book.TradesMatched() - fillsBefore
	e.stats.TotalVolume += book.VolumeMatched() - volumeBefore
	return modified
}

// ProcessRequest dispatches one queued request. For NEW requests the
// returned id is the assigned order id; cancels and modifies return the
// target id on success and InvalidOrderID on failure.
func (e *Engine) ProcessRequest(req domain.OrderRequest) domain.OrderID {
	switch req.Type {
	case domain.RequestNewOrder:
		return e.SubmitOrder(req.Symbol, req.Side, req.OrderType, req.Price, req.Quantity, req.ClientID)
	case domain.RequestCancelOrder:
		if e.CancelOrder(req.Symbol, req.OrderID) {
			return req.OrderID
		}
		return domain.InvalidOrderID
	case domain.RequestModifyOrder:
		if e.ModifyOrder(req.Symbol, req.OrderID, req.Price, req.Quantity) {
			return req.OrderID
		}
		return domain.InvalidOrderID
	default:
		e.log.Warn("unknown request type", zap.Uint8("type", uint8(req.Type)))
		return domain.InvalidOrderID
	}
}

// GetQuote returns top of book for the instrument.
func (e *Engine) GetQuote(sym domain.Symbol) (domain.Quote, bool) {
	book, ok := e.books[sym.String()]
	if !ok {
		return domain.Quote{}, false
	}
	return book.GetQuote()
}

// GetDepth returns aggregated depth for the instrument, or an empty depth
// for unknown symbols.
func (e *Engine) GetDepth(sym domain.Symbol, levels int) domain.Depth {
	book, ok := e.books[sym.String()]
	if !ok {
		return domain.Depth{}
	}
	return book.GetDepth(levels)
}

// GetBook exposes the underlying book. Callers must respect the engine's
// single-thread discipline.
func (e *Engine) GetBook(sym domain.Symbol) (*orderbook.OrderBook, bool) {
	book, ok := e.books[sym.String()]
	return book, ok
}

// Instruments lists the registered symbols.
func (e *Engine) Instruments() []string {
	out := make([]string, 0, len(e.books))
	for key := range e.books {
		out = append(out, key)
	}
	return out
}

// GetStats returns a copy of the aggregate counters.
func (e *Engine) GetStats() EngineStats { return e.stats }

// Latency exposes the full submission latency distribution.
func (e *Engine) Latency() *stats.LatencyStats { return e.latency }

// ResetStats zeroes the counters and the latency distribution. Books and
// resting orders are untouched.
func (e *Engine) ResetStats() {
	e.stats = EngineStats{}
	e.latency.Reset()
}

func (e *Engine) recordLatency(d domain.Duration) {
	e.latency.Add(d)
	e.stats.TotalLatencyNs += d
	if e.stats.MinLatencyNs == 0 || d < e.stats.MinLatencyNs {
		e.stats.MinLatencyNs = d
	}
	if d > e.stats.MaxLatencyNs {
		e.stats.MaxLatencyNs = d
	}
}
