// Package api serves the REST, websocket and metrics front-end over a
// matching engine. The engine is single-threaded, so the server gates it
// behind a RWMutex: order flow takes the write lock, market-data reads
// share the read lock. The lock-free SPSC path is reserved for pinned
// single-producer deployments; HTTP handlers are not one.
package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pulse-exchange/domain"
	"pulse-exchange/matching"
)

// Server exposes the engine over HTTP and websocket.
type Server struct {
	engine  *matching.Engine
	mu      sync.RWMutex
	log     *zap.Logger
	router  *gin.Engine
	hub     *tradeHub
	metrics *serverMetrics
	forward domain.ExecutionCallback
}

// NewServer wires routes, metrics and the trade hub. The server installs
// its own execution callback on the engine; if forward is non-nil every
// report is also passed through to it.
func NewServer(engine *matching.Engine, logger *zap.Logger, forward domain.ExecutionCallback) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		log:     logger,
		hub:     newTradeHub(logger),
		forward: forward,
	}
	s.metrics = newServerMetrics(s)
	engine.SetExecutionCallback(s.onReport)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	r.GET("/ws/trades", s.hub.serveWS)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/depth/:symbol", s.getDepth)
		v1.GET("/quote/:symbol", s.getQuote)
		v1.GET("/stats", s.getStats)
		v1.POST("/order", s.postOrder)
		v1.DELETE("/order/:symbol/:orderId", s.deleteOrder)
	}
	s.router = r
	return s
}

// Router returns the configured gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Run starts the trade hub and serves HTTP on addr until the listener
// fails.
func (s *Server) Run(addr string) error {
	go s.hub.run()
	defer s.hub.close()
	s.log.Info("api listening", zap.String("addr", addr))
	return s.router.Run(addr)
}

// onReport fires on the engine thread while the caller holds the write
// lock. Trade broadcasts go through the hub's buffered channel, so the
// lock is never held across a slow websocket client.
func (s *Server) onReport(rep domain.ExecutionReport) {
	// The aggressor-side report arrives first; only that one becomes a
	// public trade, otherwise every fill would print twice.
	if rep.ExecType == domain.ExecTypeTrade && rep.ContraOrderID != domain.InvalidOrderID {
		if trade := domain.TradeFromReport(rep); trade.TakerOrderID > trade.MakerOrderID {
			s.hub.broadcast(trade)
		}
	}
	if s.forward != nil {
		s.forward(rep)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
