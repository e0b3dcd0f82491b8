package domain

// Order is the value carried through the matching path.
// Memory layout: hot fields (touched on every fill) are grouped in the
// first CPU cache line, cold client/timing fields after. The struct stays
// within two cache lines and is copied, never shared — external observers
// only ever see snapshots via execution reports and depth queries.
type Order struct {
	// Hot fields - first 64 bytes
	ID        OrderID  // 8 bytes
	Price     Price    // 8 bytes
	Quantity  Quantity // 8 bytes - original quantity
	Filled    Quantity // 8 bytes
	Side      Side     // 1 byte
	Type      OrderType
	Status    OrderStatus
	_         [5]byte   // pad to 8-byte boundary
	EntryTime Timestamp // 8 bytes - set when the order is inserted into a level

	// Cold fields - second cache line
	UpdateTime Timestamp
	ClientID   uint64
}

// NewOrder builds an order in state NEW with nothing filled.
func NewOrder(id OrderID, side Side, typ OrderType, price Price, qty Quantity, clientID uint64) Order {
	now := Now()
	return Order{
		ID:         id,
		Price:      price,
		Quantity:   qty,
		Side:       side,
		Type:       typ,
		Status:     OrderStatusNew,
		EntryTime:  now,
		UpdateTime: now,
		ClientID:   clientID,
	}
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() Quantity {
	return o.Quantity - o.Filled
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.Filled >= o.Quantity
}

// IsActive reports whether the order can still trade.
func (o *Order) IsActive() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusPartiallyFilled
}

// Fill applies an execution of qty and recomputes the status.
func (o *Order) Fill(qty Quantity) {
	o.Filled += qty
	o.UpdateTime = Now()
	if o.Filled >= o.Quantity {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
}

// Cancel marks the order cancelled.
func (o *Order) Cancel() {
	o.Status = OrderStatusCancelled
	o.UpdateTime = Now()
}

// Reject marks the order rejected.
func (o *Order) Reject() {
	o.Status = OrderStatusRejected
	o.UpdateTime = Now()
}
