package domain

// ExecutionReport is the only output the core emits. It is a plain value;
// callbacks receive a copy and may retain it freely.
type ExecutionReport struct {
	OrderID       OrderID
	ContraOrderID OrderID // 0 for non-trade events
	Price         Price
	Quantity      Quantity
	Side          Side // side of the reported order
	ExecType      ExecType
	OrderStatus   OrderStatus
	Timestamp     Timestamp
	ClientID      uint64
	Leaves        Quantity
	Cumulative    Quantity
}

// ExecutionCallback is invoked synchronously on the thread mutating the
// book. Implementations must not reenter the engine.
type ExecutionCallback func(ExecutionReport)

// NewReport is the acceptance report emitted before any matching.
func NewReport(o *Order) ExecutionReport {
	return ExecutionReport{
		OrderID:     o.ID,
		Price:       o.Price,
		Side:        o.Side,
		ExecType:    ExecTypeNew,
		OrderStatus: OrderStatusNew,
		Timestamp:   Now(),
		ClientID:    o.ClientID,
		Leaves:      o.Quantity,
	}
}

// TradeReport describes one fill from the perspective of o, with contra as
// the counterparty. Call after the fill has been applied to o.
func TradeReport(o, contra *Order, price Price, qty Quantity) ExecutionReport {
	return ExecutionReport{
		OrderID:       o.ID,
		ContraOrderID: contra.ID,
		Price:         price,
		Quantity:      qty,
		Side:          o.Side,
		ExecType:      ExecTypeTrade,
		OrderStatus:   o.Status,
		Timestamp:     Now(),
		ClientID:      o.ClientID,
		Leaves:        o.Remaining(),
		Cumulative:    o.Filled,
	}
}

// CancelReport is emitted when an order (or a market/IOC remainder) is
// cancelled.
func CancelReport(o *Order) ExecutionReport {
	return ExecutionReport{
		OrderID:     o.ID,
		Price:       o.Price,
		Side:        o.Side,
		ExecType:    ExecTypeCancelled,
		OrderStatus: OrderStatusCancelled,
		Timestamp:   Now(),
		ClientID:    o.ClientID,
		Cumulative:  o.Filled,
	}
}

// RejectReport is emitted when an order cannot be accepted (pool
// exhaustion, post-only cross, unfillable FOK).
func RejectReport(o *Order) ExecutionReport {
	return ExecutionReport{
		OrderID:     o.ID,
		Price:       o.Price,
		Side:        o.Side,
		ExecType:    ExecTypeRejected,
		OrderStatus: OrderStatusRejected,
		Timestamp:   Now(),
		ClientID:    o.ClientID,
		Leaves:      o.Remaining(),
		Cumulative:  o.Filled,
	}
}

// Quote is a top-of-book snapshot; valid only when both sides are populated.
type Quote struct {
	BidPrice    Price
	AskPrice    Price
	BidQuantity Quantity
	AskQuantity Quantity
	Timestamp   Timestamp
}

// Spread returns ask minus bid.
func (q Quote) Spread() Price {
	return q.AskPrice - q.BidPrice
}

// MidPrice returns the arithmetic midpoint.
func (q Quote) MidPrice() Price {
	return (q.BidPrice + q.AskPrice) / 2
}

// BookLevel is one aggregated price level in a depth snapshot.
type BookLevel struct {
	Price      Price
	Quantity   Quantity
	OrderCount int
}

// Depth is a point-in-time aggregate view of both sides in priority order.
type Depth struct {
	Bids []BookLevel
	Asks []BookLevel
}
