package domain

// Trade is the public market-data record for one fill, derived from the
// aggressor-side execution report. It is what the websocket feed and the
// harness consume; the matching path itself only emits execution reports.
type Trade struct {
	MakerOrderID  OrderID
	TakerOrderID  OrderID
	Price         Price
	Quantity      Quantity
	AggressorSide Side
	Timestamp     Timestamp
}

// TradeFromReport converts the aggressor-side TRADE report into a Trade.
// Reports for a fill are emitted aggressor first, so rep.Side is the
// aggressor side and the contra order is the maker.
func TradeFromReport(rep ExecutionReport) Trade {
	return Trade{
		MakerOrderID:  rep.ContraOrderID,
		TakerOrderID:  rep.OrderID,
		Price:         rep.Price,
		Quantity:      rep.Quantity,
		AggressorSide: rep.Side,
		Timestamp:     rep.Timestamp,
	}
}
