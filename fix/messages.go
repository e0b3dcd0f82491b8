package fix

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"pulse-exchange/domain"
)

// Wire values for Side (54).
const (
	sideBuy  = "1"
	sideSell = "2"
)

// Wire values for OrdType (40) and TimeInForce (59). IOC and FOK ride on
// a limit OrdType with the corresponding TimeInForce; post-only is a limit
// with ExecInst 6 (participate don't initiate).
const (
	ordTypeMarket    = "1"
	ordTypeLimit     = "2"
	ordTypeStopLimit = "4"

	tifDay = "0"
	tifIOC = "3"
	tifFOK = "4"

	execInstPostOnly = "6"
)

// priceString renders a fixed-point price as a decimal wire value with no
// float round-trip.
func priceString(p domain.Price) string {
	return decimal.New(p, -8).String()
}

// parsePrice converts a decimal wire value to fixed point exactly.
func parsePrice(s string) (domain.Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("fix: bad price %q: %w", s, err)
	}
	return d.Shift(8).IntPart(), nil
}

func encodeSide(s domain.Side) string {
	if s == domain.SideBuy {
		return sideBuy
	}
	return sideSell
}

func parseSide(s string) (domain.Side, error) {
	switch s {
	case sideBuy:
		return domain.SideBuy, nil
	case sideSell:
		return domain.SideSell, nil
	}
	return 0, fmt.Errorf("fix: bad side %q", s)
}

// EncodeNewOrderSingle maps a NEW request onto 35=D.
func EncodeNewOrderSingle(req domain.OrderRequest, clOrdID string) *Message {
	m := NewMessage(MsgTypeNewOrderSingle).
		Set(TagClOrdID, clOrdID).
		Set(TagSymbol, req.Symbol.String()).
		Set(TagSide, encodeSide(req.Side))

	switch req.OrderType {
	case domain.OrderTypeMarket:
		m.Set(TagOrdType, ordTypeMarket)
	case domain.OrderTypeStopLimit:
		m.Set(TagOrdType, ordTypeStopLimit)
		m.Set(TagPrice, priceString(req.Price))
	case domain.OrderTypeIOC:
		m.Set(TagOrdType, ordTypeLimit)
		m.Set(TagPrice, priceString(req.Price))
		m.Set(TagTimeInForce, tifIOC)
	case domain.OrderTypeFOK:
		m.Set(TagOrdType, ordTypeLimit)
		m.Set(TagPrice, priceString(req.Price))
		m.Set(TagTimeInForce, tifFOK)
	case domain.OrderTypePostOnly:
		m.Set(TagOrdType, ordTypeLimit)
		m.Set(TagPrice, priceString(req.Price))
		m.Set(TagExecInst, execInstPostOnly)
	default:
		m.Set(TagOrdType, ordTypeLimit)
		m.Set(TagPrice, priceString(req.Price))
	}
	m.SetInt(TagOrderQty, req.Quantity)
	return m
}

// ParseNewOrderSingle maps 35=D back to a NEW request and the client order
// id.
func ParseNewOrderSingle(m *Message) (domain.OrderRequest, string, error) {
	var zero domain.OrderRequest
	if m.Type != MsgTypeNewOrderSingle {
		return zero, "", fmt.Errorf("fix: not a NewOrderSingle: 35=%s", m.Type)
	}
	clOrdID, ok := m.Get(TagClOrdID)
	if !ok {
		return zero, "", fmt.Errorf("%w: tag %d", ErrMissingField, TagClOrdID)
	}
	symbol, ok := m.Get(TagSymbol)
	if !ok {
		return zero, "", fmt.Errorf("%w: tag %d", ErrMissingField, TagSymbol)
	}
	sideRaw, ok := m.Get(TagSide)
	if !ok {
		return zero, "", fmt.Errorf("%w: tag %d", ErrMissingField, TagSide)
	}
	side, err := parseSide(sideRaw)
	if err != nil {
		return zero, "", err
	}
	qty, err := m.GetInt(TagOrderQty)
	if err != nil {
		return zero, "", err
	}

	ordType, _ := m.Get(TagOrdType)
	tif, _ := m.Get(TagTimeInForce)
	execInst, _ := m.Get(TagExecInst)

	var typ domain.OrderType
	switch {
	case ordType == ordTypeMarket:
		typ = domain.OrderTypeMarket
	case ordType == ordTypeStopLimit:
		typ = domain.OrderTypeStopLimit
	case tif == tifIOC:
		typ = domain.OrderTypeIOC
	case tif == tifFOK:
		typ = domain.OrderTypeFOK
	case execInst == execInstPostOnly:
		typ = domain.OrderTypePostOnly
	default:
		typ = domain.OrderTypeLimit
	}

	var price domain.Price
	if typ != domain.OrderTypeMarket {
		raw, ok := m.Get(TagPrice)
		if !ok {
			return zero, "", fmt.Errorf("%w: tag %d", ErrMissingField, TagPrice)
		}
		if price, err = parsePrice(raw); err != nil {
			return zero, "", err
		}
	}

	return domain.NewOrderRequest(domain.NewSymbol(symbol), side, typ, price, qty, 0), clOrdID, nil
}

// EncodeExecutionReport maps an engine report onto 35=8.
func EncodeExecutionReport(rep domain.ExecutionReport, sym domain.Symbol, execID string) *Message {
	m := NewMessage(MsgTypeExecutionReport).
		Set(TagOrderID, strconv.FormatUint(rep.OrderID, 10)).
		Set(TagExecID, execID).
		Set(TagExecType, encodeExecType(rep.ExecType)).
		Set(TagOrdStatus, encodeOrdStatus(rep.OrderStatus)).
		Set(TagSymbol, sym.String()).
		Set(TagSide, encodeSide(rep.Side)).
		SetInt(TagLeavesQty, rep.Leaves).
		SetInt(TagCumQty, rep.Cumulative)

	if rep.ExecType == domain.ExecTypeTrade {
		m.Set(TagLastPx, priceString(rep.Price))
		m.SetInt(TagLastQty, rep.Quantity)
	}
	return m
}

// ParseExecutionReport maps 35=8 back to an engine report. The contra
// order id is not carried on the wire.
func ParseExecutionReport(m *Message) (domain.ExecutionReport, error) {
	var rep domain.ExecutionReport
	if m.Type != MsgTypeExecutionReport {
		return rep, fmt.Errorf("fix: not an ExecutionReport: 35=%s", m.Type)
	}
	idRaw, ok := m.Get(TagOrderID)
	if !ok {
		return rep, fmt.Errorf("%w: tag %d", ErrMissingField, TagOrderID)
	}
	id, err := strconv.ParseUint(idRaw, 10, 64)
	if err != nil {
		return rep, fmt.Errorf("fix: bad order id %q: %w", idRaw, err)
	}
	rep.OrderID = id

	execRaw, ok := m.Get(TagExecType)
	if !ok {
		return rep, fmt.Errorf("%w: tag %d", ErrMissingField, TagExecType)
	}
	if rep.ExecType, err = parseExecType(execRaw); err != nil {
		return rep, err
	}
	statusRaw, ok := m.Get(TagOrdStatus)
	if !ok {
		return rep, fmt.Errorf("%w: tag %d", ErrMissingField, TagOrdStatus)
	}
	if rep.OrderStatus, err = parseOrdStatus(statusRaw); err != nil {
		return rep, err
	}
	sideRaw, ok := m.Get(TagSide)
	if !ok {
		return rep, fmt.Errorf("%w: tag %d", ErrMissingField, TagSide)
	}
	if rep.Side, err = parseSide(sideRaw); err != nil {
		return rep, err
	}
	if rep.Leaves, err = m.GetInt(TagLeavesQty); err != nil {
		return rep, err
	}
	if rep.Cumulative, err = m.GetInt(TagCumQty); err != nil {
		return rep, err
	}

	if rep.ExecType == domain.ExecTypeTrade {
		pxRaw, ok := m.Get(TagLastPx)
		if !ok {
			return rep, fmt.Errorf("%w: tag %d", ErrMissingField, TagLastPx)
		}
		if rep.Price, err = parsePrice(pxRaw); err != nil {
			return rep, err
		}
		if rep.Quantity, err = m.GetInt(TagLastQty); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// EncodeOrderCancelRequest maps a cancel onto 35=F.
func EncodeOrderCancelRequest(sym domain.Symbol, orderID domain.OrderID, clOrdID, origClOrdID string) *Message {
	return NewMessage(MsgTypeOrderCancelRequest).
		Set(TagClOrdID, clOrdID).
		Set(TagOrigClOrdID, origClOrdID).
		Set(TagOrderID, strconv.FormatUint(orderID, 10)).
		Set(TagSymbol, sym.String())
}

// ParseOrderCancelRequest maps 35=F back to a cancel request.
func ParseOrderCancelRequest(m *Message) (domain.OrderRequest, error) {
	var zero domain.OrderRequest
	if m.Type != MsgTypeOrderCancelRequest {
		return zero, fmt.Errorf("fix: not an OrderCancelRequest: 35=%s", m.Type)
	}
	symbol, ok := m.Get(TagSymbol)
	if !ok {
		return zero, fmt.Errorf("%w: tag %d", ErrMissingField, TagSymbol)
	}
	idRaw, ok := m.Get(TagOrderID)
	if !ok {
		return zero, fmt.Errorf("%w: tag %d", ErrMissingField, TagOrderID)
	}
	id, err := strconv.ParseUint(idRaw, 10, 64)
	if err != nil {
		return zero, fmt.Errorf("fix: bad order id %q: %w", idRaw, err)
	}
	return domain.CancelRequest(domain.NewSymbol(symbol), id), nil
}

func encodeExecType(t domain.ExecType) string {
	switch t {
	case domain.ExecTypeNew:
		return "0"
	case domain.ExecTypeTrade:
		return "F"
	case domain.ExecTypeCancelled:
		return "4"
	case domain.ExecTypeReplaced:
		return "5"
	default:
		return "8"
	}
}

func parseExecType(s string) (domain.ExecType, error) {
	switch s {
	case "0":
		return domain.ExecTypeNew, nil
	case "F":
		return domain.ExecTypeTrade, nil
	case "4":
		return domain.ExecTypeCancelled, nil
	case "5":
		return domain.ExecTypeReplaced, nil
	case "8":
		return domain.ExecTypeRejected, nil
	}
	return 0, fmt.Errorf("fix: bad exec type %q", s)
}

func encodeOrdStatus(s domain.OrderStatus) string {
	switch s {
	case domain.OrderStatusNew:
		return "0"
	case domain.OrderStatusPartiallyFilled:
		return "1"
	case domain.OrderStatusFilled:
		return "2"
	case domain.OrderStatusCancelled:
		return "4"
	case domain.OrderStatusExpired:
		return "C"
	default:
		return "8"
	}
}

func parseOrdStatus(s string) (domain.OrderStatus, error) {
	switch s {
	case "0":
		return domain.OrderStatusNew, nil
	case "1":
		return domain.OrderStatusPartiallyFilled, nil
	case "2":
		return domain.OrderStatusFilled, nil
	case "4":
		return domain.OrderStatusCancelled, nil
	case "C":
		return domain.OrderStatusExpired, nil
	case "8":
		return domain.OrderStatusRejected, nil
	}
	return 0, fmt.Errorf("fix: bad order status %q", s)
}
