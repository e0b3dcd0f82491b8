package harness

import (
	"math/rand"

	"pulse-exchange/domain"
)

// Tick is one synthetic top-of-book update.
type Tick struct {
	Symbol    domain.Symbol
	Bid       domain.Price
	Ask       domain.Price
	Quantity  domain.Quantity
	Timestamp domain.Timestamp
}

// Feed generates a deterministic random walk per symbol. The walk keeps
// one tick of spread and stays above a floor so prices never go
// non-positive.
type Feed struct {
	rng     *rand.Rand
	symbols []domain.Symbol
	mids    []domain.Price
	tickSz  domain.Price
	floor   domain.Price
}

// NewFeed seeds the walk. All symbols start at 100.0.
func NewFeed(symbols []string, seed int64) *Feed {
	f := &Feed{
		rng:    rand.New(rand.NewSource(seed)),
		tickSz: domain.PriceMultiplier / 100, // 0.01
		floor:  domain.PriceMultiplier,       // 1.0
	}
	for _, s := range symbols {
		f.symbols = append(f.symbols, domain.NewSymbol(s))
		f.mids = append(f.mids, 100*domain.PriceMultiplier)
	}
	return f
}

// Next advances one symbol's walk and returns its tick.
func (f *Feed) Next() Tick {
	i := f.rng.Intn(len(f.symbols))

	// Walk the mid by -2..+2 ticks.
	f.mids[i] += domain.Price(f.rng.Intn(5)-2) * f.tickSz
	if f.mids[i] < f.floor {
		f.mids[i] = f.floor
	}

	half := f.tickSz / 2
	return Tick{
		Symbol:    f.symbols[i],
		Bid:       f.mids[i] - half,
		Ask:       f.mids[i] + half,
		Quantity:  domain.Quantity(1 + f.rng.Intn(100)),
		Timestamp: domain.Now(),
	}
}

// Snapshot returns symbol i's current quote without advancing the walk.
func (f *Feed) Snapshot(i int) Tick {
	half := f.tickSz / 2
	return Tick{
		Symbol:    f.symbols[i],
		Bid:       f.mids[i] - half,
		Ask:       f.mids[i] + half,
		Quantity:  10,
		Timestamp: domain.Now(),
	}
}

// Signal decides whether a tick triggers an order, at the configured
// ratio.
func (f *Feed) Signal(ratio float64) bool {
	return f.rng.Float64() < ratio
}

// OrderFor turns a tick into an aggressive IOC request crossing the
// walk's own quote: buys lift the ask, sells hit the bid.
func (f *Feed) OrderFor(tick Tick) domain.OrderRequest {
	if f.rng.Intn(2) == 0 {
		return domain.NewOrderRequest(tick.Symbol, domain.SideBuy, domain.OrderTypeIOC, tick.Ask, tick.Quantity, 0)
	}
	return domain.NewOrderRequest(tick.Symbol, domain.SideSell, domain.OrderTypeIOC, tick.Bid, tick.Quantity, 0)
}

// RestingOrderFor produces passive liquidity at the given distance (in
// levels) behind the tick's quote.
func (f *Feed) RestingOrderFor(tick Tick, side domain.Side, level int) domain.OrderRequest {
	offset := domain.Price(level) * f.tickSz
	price := tick.Bid - offset
	if side == domain.SideSell {
		price = tick.Ask + offset
	}
	return domain.NewOrderRequest(tick.Symbol, side, domain.OrderTypeLimit, price, tick.Quantity, 0)
}
