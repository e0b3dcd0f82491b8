package domain

// RequestType tags an OrderRequest.
type RequestType uint8

const (
	RequestNewOrder RequestType = iota
	RequestCancelOrder
	RequestModifyOrder
)

// OrderRequest is the unit handed across the SPSC queue. It is a flat,
// trivially copyable value so the queue never shares memory between the
// producer and consumer cores.
type OrderRequest struct {
	Type      RequestType
	Side      Side
	OrderType OrderType
	_         [5]byte
	Symbol    Symbol
	OrderID   OrderID // set for cancel/modify
	Price     Price
	Quantity  Quantity
	ClientID  uint64
	Timestamp Timestamp
}

// NewOrderRequest builds a NEW request; the engine assigns the order id.
func NewOrderRequest(sym Symbol, side Side, typ OrderType, price Price, qty Quantity, clientID uint64) OrderRequest {
	return OrderRequest{
		Type:      RequestNewOrder,
		Symbol:    sym,
		Side:      side,
		OrderType: typ,
		Price:     price,
		Quantity:  qty,
		ClientID:  clientID,
		Timestamp: Now(),
	}
}

// CancelRequest builds a CANCEL request for an existing order.
func CancelRequest(sym Symbol, id OrderID) OrderRequest {
	return OrderRequest{
		Type:      RequestCancelOrder,
		Symbol:    sym,
		OrderID:   id,
		Timestamp: Now(),
	}
}

// ModifyRequest builds a MODIFY request with the replacement price and
// quantity.
func ModifyRequest(sym Symbol, id OrderID, price Price, qty Quantity) OrderRequest {
	return OrderRequest{
		Type:      RequestModifyOrder,
		Symbol:    sym,
		OrderID:   id,
		Price:     price,
		Quantity:  qty,
		Timestamp: Now(),
	}
}
