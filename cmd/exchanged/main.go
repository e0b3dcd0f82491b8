// exchanged serves the REST, websocket and metrics front-end over a
// matching engine.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"pulse-exchange/api"
	"pulse-exchange/domain"
	"pulse-exchange/matching"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	symbols := flag.String("symbols", "BTCUSD,ETHUSD", "comma-separated instruments")
	poolCapacity := flag.Int("pool", 1<<20, "max resting orders per instrument")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	engine := matching.NewEngineWithCapacity(logger, *poolCapacity)
	for _, sym := range strings.Split(*symbols, ",") {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		if !engine.AddInstrument(domain.NewSymbol(sym)) {
			logger.Fatal("duplicate instrument", zap.String("symbol", sym))
		}
	}

	server := api.NewServer(engine, logger, nil)
	if err := server.Run(*addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
