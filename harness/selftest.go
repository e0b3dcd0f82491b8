package harness

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pulse-exchange/domain"
	"pulse-exchange/matching"
	"pulse-exchange/pool"
	"pulse-exchange/queue"
)

// SelfTest exercises every core component end to end in-process. It is
// the deployment smoke check the perf binary runs before a measurement is
// trusted on a new machine.
func SelfTest(logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	checks := []struct {
		name string
		fn   func() error
	}{
		{"spsc_queue", checkQueue},
		{"object_pool", checkPool},
		{"order_book_matching", checkMatching},
		{"engine_accounting", checkEngineAccounting},
		{"async_round_trip", checkAsyncRoundTrip},
	}

	var failed []string
	for _, c := range checks {
		if err := c.fn(); err != nil {
			logger.Error("self-test failed", zap.String("check", c.name), zap.Error(err))
			failed = append(failed, c.name)
			continue
		}
		logger.Info("self-test passed", zap.String("check", c.name))
	}
	if len(failed) > 0 {
		return fmt.Errorf("harness: %d of %d self-tests failed: %v", len(failed), len(checks), failed)
	}
	return nil
}

func checkQueue() error {
	q := queue.NewSPSC[int](8)
	// Fill to capacity (one slot is sacrificed), then verify FIFO across a
	// wrap.
	for i := 0; i < 7; i++ {
		if !q.TryPush(i) {
			return fmt.Errorf("push %d refused below capacity", i)
		}
	}
	if q.TryPush(7) {
		return errors.New("push accepted on a full queue")
	}
	for i := 0; i < 7; i++ {
		v, ok := q.TryPop()
		if !ok || v != i {
			return fmt.Errorf("pop %d: got %v, %v", i, v, ok)
		}
	}
	if _, ok := q.TryPop(); ok {
		return errors.New("pop succeeded on an empty queue")
	}
	return nil
}

func checkPool() error {
	p := pool.New[int64](4)
	var ptrs []*int64
	for i := 0; i < 4; i++ {
		v := p.Allocate()
		if v == nil {
			return fmt.Errorf("allocation %d failed below capacity", i)
		}
		ptrs = append(ptrs, v)
	}
	if p.Allocate() != nil {
		return errors.New("allocation succeeded past capacity")
	}
	p.Free(ptrs[2])
	if got := p.Allocate(); got != ptrs[2] {
		return errors.New("freed slot was not reused first")
	}
	return nil
}

func checkMatching() error {
	sym := domain.NewSymbol("SELFTEST")
	engine := matching.NewEngineWithCapacity(nil, 64)
	engine.AddInstrument(sym)

	var trades int
	engine.SetExecutionCallback(func(rep domain.ExecutionReport) {
		if rep.ExecType == domain.ExecTypeTrade {
			trades++
		}
	})

	sell := engine.SubmitOrder(sym, domain.SideSell, domain.OrderTypeLimit, 100*domain.PriceMultiplier, 10, 0)
	if sell == domain.InvalidOrderID {
		return errors.New("resting sell rejected")
	}
	buy := engine.SubmitOrder(sym, domain.SideBuy, domain.OrderTypeLimit, 100*domain.PriceMultiplier, 10, 0)
	if buy == domain.InvalidOrderID {
		return errors.New("crossing buy rejected")
	}
	if trades != 2 {
		return fmt.Errorf("expected 2 trade reports, got %d", trades)
	}
	book, _ := engine.GetBook(sym)
	if !book.Empty() {
		return errors.New("book not empty after full cross")
	}
	return nil
}

func checkEngineAccounting() error {
	sym := domain.NewSymbol("SELFTEST")
	engine := matching.NewEngineWithCapacity(nil, 64)
	engine.AddInstrument(sym)

	engine.SubmitOrder(sym, domain.SideBuy, domain.OrderTypeLimit, 99*domain.PriceMultiplier, 5, 0)
	engine.SubmitOrder(sym, domain.SideSell, domain.OrderTypeLimit, 99*domain.PriceMultiplier, 5, 0)
	engine.SubmitOrder(sym, domain.SideBuy, domain.OrderTypeStopLimit, 99*domain.PriceMultiplier, 5, 0)

	st := engine.GetStats()
	switch {
	case st.OrdersReceived != 3:
		return fmt.Errorf("received = %d, want 3", st.OrdersReceived)
	case st.OrdersMatched != 1:
		return fmt.Errorf("fills = %d, want 1", st.OrdersMatched)
	case st.OrdersRejected != 1:
		return fmt.Errorf("rejected = %d, want 1", st.OrdersRejected)
	case st.TotalVolume != 5:
		return fmt.Errorf("volume = %d, want 5", st.TotalVolume)
	}
	return nil
}

func checkAsyncRoundTrip() error {
	sym := domain.NewSymbol("SELFTEST")
	engine := matching.NewEngineWithCapacity(nil, 64)
	engine.AddInstrument(sym)
	async := matching.NewAsyncEngine(engine, 64, nil)
	if err := async.Start(); err != nil {
		return err
	}
	defer async.Stop()

	if !async.Submit(domain.NewOrderRequest(sym, domain.SideBuy, domain.OrderTypeLimit, 100*domain.PriceMultiplier, 1, 0)) {
		return errors.New("submit refused on an empty queue")
	}
	deadline := time.Now().Add(2 * time.Second)
	for async.Processed() < 1 {
		if time.Now().After(deadline) {
			return errors.New("consumer did not process the request in time")
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}
