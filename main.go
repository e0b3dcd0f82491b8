// Command pulse-exchange is a short demonstration of the matching core:
// it builds a book, trades through it and prints the execution reports
// and the resulting quote.
package main

import (
	"fmt"

	"pulse-exchange/domain"
	"pulse-exchange/matching"
)

func main() {
	sym := domain.NewSymbol("BTCUSD")
	engine := matching.NewEngineWithCapacity(nil, 1<<16)
	engine.AddInstrument(sym)
	engine.SetExecutionCallback(func(rep domain.ExecutionReport) {
		fmt.Printf("  report: order=%d %s %s px=%.2f qty=%d leaves=%d\n",
			rep.OrderID, rep.ExecType, rep.OrderStatus,
			domain.ToDisplayPrice(rep.Price), rep.Quantity, rep.Leaves)
	})

	fmt.Println("resting liquidity:")
	engine.SubmitOrder(sym, domain.SideSell, domain.OrderTypeLimit, domain.ToFixedPrice(100.50), 10, 1)
	engine.SubmitOrder(sym, domain.SideSell, domain.OrderTypeLimit, domain.ToFixedPrice(100.75), 20, 1)
	engine.SubmitOrder(sym, domain.SideBuy, domain.OrderTypeLimit, domain.ToFixedPrice(100.00), 15, 2)

	fmt.Println("aggressive buy sweeping the first ask:")
	engine.SubmitOrder(sym, domain.SideBuy, domain.OrderTypeLimit, domain.ToFixedPrice(100.60), 12, 3)

	if quote, ok := engine.GetQuote(sym); ok {
		fmt.Printf("quote: bid %.2f x %d / ask %.2f x %d\n",
			domain.ToDisplayPrice(quote.BidPrice), quote.BidQuantity,
			domain.ToDisplayPrice(quote.AskPrice), quote.AskQuantity)
	}

	st := engine.GetStats()
	fmt.Printf("stats: received=%d fills=%d volume=%d\n",
		st.OrdersReceived, st.OrdersMatched, st.TotalVolume)
}
