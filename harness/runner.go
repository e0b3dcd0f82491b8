package harness

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"pulse-exchange/domain"
	"pulse-exchange/matching"
	"pulse-exchange/stats"
)

// Result summarizes one measurement run.
type Result struct {
	Elapsed         time.Duration
	TicksGenerated  uint64
	OrdersSubmitted uint64
	QueueFullDrops  uint64
	Engine          matching.EngineStats
	// TickToOrder is tick creation to queue admission on the producer.
	TickToOrder *stats.LatencyStats
	// SubmitLatency is the engine-side submission wall time, consumer
	// thread only.
	SubmitLatency *stats.LatencyStats
}

// Report renders the run summary.
func (r *Result) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run: %.2fs, %d ticks, %d orders submitted, %d dropped\n",
		r.Elapsed.Seconds(), r.TicksGenerated, r.OrdersSubmitted, r.QueueFullDrops)
	fmt.Fprintf(&b, "engine: %d received, %d fills, %d cancelled, %d rejected, volume %d\n",
		r.Engine.OrdersReceived, r.Engine.OrdersMatched, r.Engine.OrdersCancelled,
		r.Engine.OrdersRejected, r.Engine.TotalVolume)
	b.WriteString(r.TickToOrder.Report("tick-to-order"))
	b.WriteString(r.SubmitLatency.Report("engine submit"))
	return b.String()
}

// Runner owns one engine, one async consumer and one synthetic feed. The
// goroutine calling Run is the queue's single producer.
type Runner struct {
	cfg         Config
	log         *zap.Logger
	engine      *matching.Engine
	async       *matching.AsyncEngine
	feed        *Feed
	tickToOrder *stats.LatencyStats
}

// NewRunner validates cfg and assembles the measurement stack.
func NewRunner(cfg Config, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	engine := matching.NewEngineWithCapacity(logger, cfg.PoolCapacity)
	for _, sym := range cfg.Symbols {
		if !engine.AddInstrument(domain.NewSymbol(sym)) {
			return nil, fmt.Errorf("harness: duplicate symbol %q", sym)
		}
	}
	return &Runner{
		cfg:         cfg,
		log:         logger,
		engine:      engine,
		async:       matching.NewAsyncEngine(engine, cfg.QueueSize, logger),
		feed:        NewFeed(cfg.Symbols, seed),
		tickToOrder: stats.NewLatencyStats(),
	}, nil
}

// Run seeds liquidity, paces the feed at the configured rate for
// warmup+duration, drains the queue and returns the measurements.
func (r *Runner) Run() (*Result, error) {
	r.seedLiquidity()

	if err := r.async.Start(); err != nil {
		return nil, err
	}

	interval := time.Second / time.Duration(r.cfg.MessageRate)
	start := time.Now()
	measureFrom := start.Add(r.cfg.Warmup)
	deadline := measureFrom.Add(r.cfg.Duration)

	var ticks, submitted, drops uint64
	next := start

	for {
		now := time.Now()
		if !now.Before(deadline) {
			break
		}
		if now.Before(next) {
			runtime.Gosched()
			continue
		}
		next = next.Add(interval)

		tick := r.feed.Next()
		ticks++
		if !r.feed.Signal(r.cfg.SignalRatio) {
			continue
		}
		req := r.feed.OrderFor(tick)
		if !r.async.Submit(req) {
			drops++
			continue
		}
		submitted++
		if now.After(measureFrom) {
			r.tickToOrder.Add(domain.Now() - tick.Timestamp)
		}
	}

	r.drain()
	r.async.Stop()

	elapsed := time.Since(start)
	r.log.Info("run complete",
		zap.Duration("elapsed", elapsed),
		zap.Uint64("ticks", ticks),
		zap.Uint64("submitted", submitted),
		zap.Uint64("dropped", drops))

	return &Result{
		Elapsed:         elapsed,
		TicksGenerated:  ticks,
		OrdersSubmitted: submitted,
		QueueFullDrops:  drops,
		Engine:          r.engine.GetStats(),
		TickToOrder:     r.tickToOrder,
		SubmitLatency:   r.engine.Latency(),
	}, nil
}

// seedLiquidity rests DepthLevels of passive orders on each side of every
// symbol before the consumer starts, so aggressive flow has something to
// hit. Runs on the caller thread while the engine is still unshared.
func (r *Runner) seedLiquidity() {
	for i := range r.cfg.Symbols {
		tick := r.feed.Snapshot(i)
		for level := 1; level <= r.cfg.DepthLevels; level++ {
			r.engine.ProcessRequest(r.feed.RestingOrderFor(tick, domain.SideBuy, level))
			r.engine.ProcessRequest(r.feed.RestingOrderFor(tick, domain.SideSell, level))
		}
	}
	r.engine.ResetStats()
}

// drain waits for the consumer to catch up with everything submitted,
// bounded by a hard timeout so a wedged consumer cannot hang the run.
func (r *Runner) drain() {
	deadline := time.Now().Add(5 * time.Second)
	for r.async.Pending() > 0 && time.Now().Before(deadline) {
		runtime.Gosched()
	}
	if pending := r.async.Pending(); pending > 0 {
		r.log.Warn("queue not fully drained", zap.Int("pending", pending))
	}
}
