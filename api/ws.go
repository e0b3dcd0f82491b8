package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pulse-exchange/domain"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsPingInterval   = 30 * time.Second
	wsSendBufferSize = 256
	hubBufferSize    = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Market data is public; no origin restriction.
	CheckOrigin: func(*http.Request) bool { return true },
}

// tradeDTO is the public trade record pushed to websocket subscribers.
type tradeDTO struct {
	Price         string `json:"price"`
	Quantity      int64  `json:"quantity"`
	AggressorSide string `json:"side"`
	Timestamp     int64  `json:"timestamp"`
}

// tradeHub fans trades out to websocket clients. Broadcast never blocks
// the engine: the hub channel is buffered and drops on overflow, and a
// slow client loses its own buffer first, then its connection.
type tradeHub struct {
	clients    map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	trades     chan domain.Trade
	done       chan struct{}
	dropped    uint64
	log        *zap.Logger
}

func newTradeHub(logger *zap.Logger) *tradeHub {
	return &tradeHub{
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		trades:     make(chan domain.Trade, hubBufferSize),
		done:       make(chan struct{}),
		log:        logger,
	}
}

func (h *tradeHub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case trade := <-h.trades:
			dto := tradeDTO{
				Price:         priceDTO(trade.Price),
				Quantity:      trade.Quantity,
				AggressorSide: trade.AggressorSide.String(),
				Timestamp:     trade.Timestamp,
			}
			for c := range h.clients {
				select {
				case c.send <- dto:
				default:
					// Slow consumer; drop it rather than stall the feed.
					delete(h.clients, c)
					close(c.send)
				}
			}
		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

func (h *tradeHub) close() { close(h.done) }

// broadcast hands one trade to the hub without blocking the caller.
func (h *tradeHub) broadcast(trade domain.Trade) {
	select {
	case h.trades <- trade:
	default:
		h.dropped++
	}
}

func (h *tradeHub) serveWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &wsClient{conn: conn, send: make(chan tradeDTO, wsSendBufferSize)}
	h.register <- client
	go client.writePump(h)
	go client.readPump(h)
}

type wsClient struct {
	conn *websocket.Conn
	send chan tradeDTO
}

// readPump discards inbound frames and detects disconnects.
func (c *wsClient) readPump(h *tradeHub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump(h *tradeHub) {
	ping := time.NewTicker(wsPingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case dto, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(dto); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
