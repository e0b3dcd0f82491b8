package matching

import (
	"errors"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"pulse-exchange/domain"
	"pulse-exchange/queue"
)

// ErrAlreadyRunning is returned by Start when the consumer is live.
var ErrAlreadyRunning = errors.New("matching: async engine already running")

// consumerSpinBudget bounds the busy-wait on an empty queue before the
// consumer yields its core.
const consumerSpinBudget = 100_000

// AsyncEngine feeds a single-threaded Engine from an SPSC request queue.
// Exactly one producer goroutine may call Submit; the consumer goroutine
// pinned in Start is the only caller of the engine's mutating methods, so
// the engine needs no locks.
type AsyncEngine struct {
	engine   *Engine
	requests *queue.SPSC[domain.OrderRequest]
	running  atomic.Bool
	stopped  chan struct{}
	log      *zap.Logger

	processed atomic.Uint64
}

// NewAsyncEngine wraps engine with a request queue of the given capacity.
// Capacity must be a power of two.
func NewAsyncEngine(engine *Engine, queueCapacity int, logger *zap.Logger) *AsyncEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncEngine{
		engine:   engine,
		requests: queue.NewSPSC[domain.OrderRequest](queueCapacity),
		log:      logger,
	}
}

// Start launches the consumer goroutine. The goroutine is locked to an OS
// thread so the scheduler cannot migrate it mid-burst.
func (a *AsyncEngine) Start() error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	a.stopped = make(chan struct{})
	go a.run()
	return nil
}

// Stop signals the consumer and waits for it to exit. Requests still in
// the queue are not drained; callers needing a full drain should stop the
// producer first and poll Pending until it reaches zero.
func (a *AsyncEngine) Stop() {
	if !a.running.CompareAndSwap(true, false) {
		return
	}
	<-a.stopped
}

// Submit enqueues one request without blocking. Returns false when the
// queue is full or the engine is not running; the caller decides whether
// to retry, shed, or block.
func (a *AsyncEngine) Submit(req domain.OrderRequest) bool {
	if !a.running.Load() {
		return false
	}
	return a.requests.TryPush(req)
}

// Pending returns the number of queued, unprocessed requests.
func (a *AsyncEngine) Pending() int { return a.requests.Size() }

// Processed returns the number of requests the consumer has completed.
func (a *AsyncEngine) Processed() uint64 { return a.processed.Load() }

// Engine returns the wrapped engine. Only safe to use for mutations while
// the consumer is stopped.
func (a *AsyncEngine) Engine() *Engine { return a.engine }

func (a *AsyncEngine) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(a.stopped)

	a.log.Info("matching consumer started",
		zap.Int("queue_capacity", a.requests.Capacity()))

	spins := 0
	for a.running.Load() {
		req, ok := a.requests.TryPop()
		if !ok {
			spins++
			if spins >= consumerSpinBudget {
				spins = 0
				runtime.Gosched()
			}
			continue
		}
		spins = 0
		a.engine.ProcessRequest(req)
		a.processed.Add(1)
	}

	a.log.Info("matching consumer stopped",
		zap.Uint64("processed", a.processed.Load()),
		zap.Int("pending", a.requests.Size()))
}
