package domain

import (
	"strings"
	"time"
)

// Core scalar types. Prices are signed 64-bit fixed point with 8 decimal
// places: a display price of 1.0 is stored as 100_000_000. All matching
// arithmetic is integer arithmetic; floats never appear on the hot path.
type (
	Price     = int64
	Quantity  = int64
	OrderID   = uint64
	Timestamp = int64 // nanoseconds from a monotonic epoch
	Duration  = int64 // nanoseconds
)

const (
	// PriceMultiplier converts a display price to fixed point (1e8).
	PriceMultiplier int64 = 100_000_000

	// InvalidOrderID is the reserved sentinel for "no order".
	InvalidOrderID OrderID = 0
)

// ToFixedPrice converts a display price to fixed point. Only for use at the
// system boundary (tests, config, API); the core never sees floats.
func ToFixedPrice(display float64) Price {
	return Price(display * float64(PriceMultiplier))
}

// ToDisplayPrice converts a fixed-point price back to a display price.
func ToDisplayPrice(p Price) float64 {
	return float64(p) / float64(PriceMultiplier)
}

var monotonicEpoch = time.Now()

// Now returns nanoseconds since the process monotonic epoch.
// time.Since reads the monotonic clock, so the value never jumps backwards.
func Now() Timestamp {
	return time.Since(monotonicEpoch).Nanoseconds()
}

// Symbol is a fixed-width, zero-padded ASCII instrument identifier.
// Fixed width keeps Order and OrderRequest trivially copyable with no
// pointer chasing on the matching path.
type Symbol [16]byte

// NewSymbol builds a Symbol from a string, truncating to 15 bytes so the
// identifier always has a trailing zero.
func NewSymbol(s string) Symbol {
	var sym Symbol
	n := len(s)
	if n > len(sym)-1 {
		n = len(sym) - 1
	}
	copy(sym[:n], s)
	return sym
}

func (s Symbol) String() string {
	if i := strings.IndexByte(string(s[:]), 0); i >= 0 {
		return string(s[:i])
	}
	return string(s[:])
}

// Side of an order.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the contra side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType enumerates supported order types. Limit and post-only rest on
// the book; market, IOC and FOK differ only in their matching-time policy.
// Stop-limit is carried for wire compatibility and rejected on submission.
type OrderType uint8

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
	OrderTypeStopLimit
	OrderTypeIOC
	OrderTypeFOK
	OrderTypePostOnly
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeStopLimit:
		return "STOP_LIMIT"
	case OrderTypeIOC:
		return "IOC"
	case OrderTypeFOK:
		return "FOK"
	case OrderTypePostOnly:
		return "POST_ONLY"
	}
	return "UNKNOWN"
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus uint8

const (
	OrderStatusNew OrderStatus = iota
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusRejected
	OrderStatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusNew:
		return "NEW"
	case OrderStatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCancelled:
		return "CANCELLED"
	case OrderStatusRejected:
		return "REJECTED"
	case OrderStatusExpired:
		return "EXPIRED"
	}
	return "UNKNOWN"
}

// ExecType is the kind of an execution report.
type ExecType uint8

const (
	ExecTypeNew ExecType = iota
	ExecTypeTrade
	ExecTypeCancelled
	ExecTypeReplaced
	ExecTypeRejected
)

func (e ExecType) String() string {
	switch e {
	case ExecTypeNew:
		return "NEW"
	case ExecTypeTrade:
		return "TRADE"
	case ExecTypeCancelled:
		return "CANCELLED"
	case ExecTypeReplaced:
		return "REPLACED"
	case ExecTypeRejected:
		return "REJECTED"
	}
	return "UNKNOWN"
}
