package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"pulse-exchange/domain"
)

// serverMetrics exports the engine counters and the HTTP submit latency.
// Engine counters are scraped through a const-metric collector so the hot
// path never touches prometheus.
type serverMetrics struct {
	registry      *prometheus.Registry
	submitLatency prometheus.Histogram
}

func newServerMetrics(s *Server) *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		submitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_submit_latency_seconds",
			Help:    "Wall time of order submission through the HTTP gateway.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
	m.registry.MustRegister(m.submitLatency, &engineCollector{server: s})
	return m
}

// engineCollector snapshots the engine counters at scrape time under the
// server's read lock.
type engineCollector struct {
	server *Server
}

var (
	descReceived = prometheus.NewDesc(
		"pulse_orders_received_total", "Orders received across all instruments.", nil, nil)
	descMatched = prometheus.NewDesc(
		"pulse_fills_total", "Executed fills across all instruments.", nil, nil)
	descCancelled = prometheus.NewDesc(
		"pulse_orders_cancelled_total", "Orders cancelled across all instruments.", nil, nil)
	descRejected = prometheus.NewDesc(
		"pulse_orders_rejected_total", "Orders rejected across all instruments.", nil, nil)
	descVolume = prometheus.NewDesc(
		"pulse_volume_total", "Matched quantity across all instruments.", nil, nil)
	descResting = prometheus.NewDesc(
		"pulse_resting_orders", "Orders currently resting, per instrument.", []string{"symbol"}, nil)
)

func (c *engineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descReceived
	ch <- descMatched
	ch <- descCancelled
	ch <- descRejected
	ch <- descVolume
	ch <- descResting
}

func (c *engineCollector) Collect(ch chan<- prometheus.Metric) {
	c.server.mu.RLock()
	st := c.server.engine.GetStats()
	resting := make(map[string]int)
	for _, sym := range c.server.engine.Instruments() {
		if book, ok := c.server.engine.GetBook(domain.NewSymbol(sym)); ok {
			resting[sym] = book.OrderCount()
		}
	}
	c.server.mu.RUnlock()

	ch <- prometheus.MustNewConstMetric(descReceived, prometheus.CounterValue, float64(st.OrdersReceived))
	ch <- prometheus.MustNewConstMetric(descMatched, prometheus.CounterValue, float64(st.OrdersMatched))
	ch <- prometheus.MustNewConstMetric(descCancelled, prometheus.CounterValue, float64(st.OrdersCancelled))
	ch <- prometheus.MustNewConstMetric(descRejected, prometheus.CounterValue, float64(st.OrdersRejected))
	ch <- prometheus.MustNewConstMetric(descVolume, prometheus.CounterValue, float64(st.TotalVolume))
	for sym, n := range resting {
		ch <- prometheus.MustNewConstMetric(descResting, prometheus.GaugeValue, float64(n), sym)
	}
}
