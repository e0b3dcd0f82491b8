package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pulse-exchange/domain"
)

// orderRequest is the POST /api/v1/order payload. Prices are decimal
// strings; floats never cross the boundary.
type orderRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Side     string `json:"side" binding:"required"`
	Type     string `json:"type"`
	Price    string `json:"price"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
	ClientID uint64 `json:"clientId"`
}

type orderResponse struct {
	RequestID string `json:"requestId"`
	OrderID   uint64 `json:"orderId"`
	Status    string `json:"status"`
}

type levelDTO struct {
	Price      string `json:"price"`
	Quantity   int64  `json:"quantity"`
	OrderCount int    `json:"orderCount"`
}

type depthDTO struct {
	Symbol string     `json:"symbol"`
	Bids   []levelDTO `json:"bids"`
	Asks   []levelDTO `json:"asks"`
}

type quoteDTO struct {
	Symbol      string `json:"symbol"`
	BidPrice    string `json:"bidPrice"`
	AskPrice    string `json:"askPrice"`
	BidQuantity int64  `json:"bidQuantity"`
	AskQuantity int64  `json:"askQuantity"`
	Spread      string `json:"spread"`
}

func priceDTO(p domain.Price) string {
	return decimal.New(p, -8).String()
}

func parseOrderType(s string) (domain.OrderType, bool) {
	switch s {
	case "", "LIMIT":
		return domain.OrderTypeLimit, true
	case "MARKET":
		return domain.OrderTypeMarket, true
	case "IOC":
		return domain.OrderTypeIOC, true
	case "FOK":
		return domain.OrderTypeFOK, true
	case "POST_ONLY":
		return domain.OrderTypePostOnly, true
	case "STOP_LIMIT":
		return domain.OrderTypeStopLimit, true
	}
	return 0, false
}

func parseSide(s string) (domain.Side, bool) {
	switch s {
	case "BUY":
		return domain.SideBuy, true
	case "SELL":
		return domain.SideSell, true
	}
	return 0, false
}

func (s *Server) postOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, ok := parseSide(req.Side)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be BUY or SELL"})
		return
	}
	typ, ok := parseOrderType(req.Type)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown order type"})
		return
	}

	var price domain.Price
	if typ != domain.OrderTypeMarket {
		d, err := decimal.NewFromString(req.Price)
		if err != nil || d.Sign() <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a positive decimal"})
			return
		}
		price = d.Shift(8).IntPart()
	}

	requestID := uuid.NewString()
	start := time.Now()

	s.mu.Lock()
	id := s.engine.SubmitOrder(domain.NewSymbol(req.Symbol), side, typ, price, req.Quantity, req.ClientID)
	s.mu.Unlock()

	s.metrics.submitLatency.Observe(time.Since(start).Seconds())

	if id == domain.InvalidOrderID {
		s.log.Warn("order rejected",
			zap.String("request_id", requestID),
			zap.String("symbol", req.Symbol))
		c.JSON(http.StatusUnprocessableEntity, orderResponse{
			RequestID: requestID,
			Status:    "REJECTED",
		})
		return
	}
	c.JSON(http.StatusOK, orderResponse{
		RequestID: requestID,
		OrderID:   id,
		Status:    "ACCEPTED",
	})
}

func (s *Server) deleteOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil || id == domain.InvalidOrderID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad order id"})
		return
	}
	sym := domain.NewSymbol(c.Param("symbol"))

	s.mu.Lock()
	ok := s.engine.CancelOrder(sym, id)
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": id, "status": "CANCELLED"})
}

func (s *Server) getDepth(c *gin.Context) {
	levels := 10
	if raw := c.Query("levels"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "levels must be a positive integer"})
			return
		}
		levels = n
	}
	sym := domain.NewSymbol(c.Param("symbol"))

	s.mu.RLock()
	_, known := s.engine.GetBook(sym)
	depth := s.engine.GetDepth(sym, levels)
	s.mu.RUnlock()

	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol"})
		return
	}
	out := depthDTO{
		Symbol: sym.String(),
		Bids:   make([]levelDTO, 0, len(depth.Bids)),
		Asks:   make([]levelDTO, 0, len(depth.Asks)),
	}
	for _, l := range depth.Bids {
		out.Bids = append(out.Bids, levelDTO{Price: priceDTO(l.Price), Quantity: l.Quantity, OrderCount: l.OrderCount})
	}
	for _, l := range depth.Asks {
		out.Asks = append(out.Asks, levelDTO{Price: priceDTO(l.Price), Quantity: l.Quantity, OrderCount: l.OrderCount})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getQuote(c *gin.Context) {
	sym := domain.NewSymbol(c.Param("symbol"))

	s.mu.RLock()
	_, known := s.engine.GetBook(sym)
	quote, ok := s.engine.GetQuote(sym)
	s.mu.RUnlock()

	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol"})
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, quoteDTO{
		Symbol:      sym.String(),
		BidPrice:    priceDTO(quote.BidPrice),
		AskPrice:    priceDTO(quote.AskPrice),
		BidQuantity: quote.BidQuantity,
		AskQuantity: quote.AskQuantity,
		Spread:      priceDTO(quote.Spread()),
	})
}

func (s *Server) getStats(c *gin.Context) {
	s.mu.RLock()
	st := s.engine.GetStats()
	instruments := s.engine.Instruments()
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"instruments":     instruments,
		"ordersReceived":  st.OrdersReceived,
		"ordersMatched":   st.OrdersMatched,
		"ordersCancelled": st.OrdersCancelled,
		"ordersRejected":  st.OrdersRejected,
		"totalVolume":     st.TotalVolume,
		"meanLatencyNs":   st.MeanLatencyNs(),
		"maxLatencyNs":    st.MaxLatencyNs,
	})
}
