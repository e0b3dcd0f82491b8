// hftperf runs the measurement harness: a synthetic feed paced at a
// configured rate against the matching engine, reporting tick-to-order
// latency percentiles. With -selftest it runs the component smoke checks
// instead and exits 0 on success.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"pulse-exchange/harness"
)

func main() {
	selftest := flag.Bool("selftest", false, "run component self-tests and exit")
	configPath := flag.String("config", "", "path to a harness config file")
	flag.Parse()

	cfg := harness.DefaultConfig()
	if *configPath != "" {
		loaded, err := harness.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger, err := buildLogger(cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *selftest {
		if err := harness.SelfTest(logger); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("all self-tests passed")
		return
	}

	runner, err := harness.NewRunner(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	result, err := runner.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Print(result.Report())
}

func buildLogger(logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if logFile != "" {
		cfg.OutputPaths = []string{logFile}
	}
	return cfg.Build()
}
