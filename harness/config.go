// Package harness drives the engine with a synthetic market-data feed and
// measures tick-to-order latency. It is the performance front door: the
// hftperf binary is a thin wrapper over Runner and the self-test suite.
package harness

import (
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/spf13/viper"
)

// Config controls one measurement run.
type Config struct {
	// Duration of the measured window, after warmup.
	Duration time.Duration `mapstructure:"duration"`
	// Warmup window; samples taken during it are discarded.
	Warmup time.Duration `mapstructure:"warmup"`
	// MessageRate is the synthetic tick rate per second across all symbols.
	MessageRate int `mapstructure:"message_rate"`
	// Symbols traded during the run.
	Symbols []string `mapstructure:"symbols"`
	// QueueSize is the SPSC request queue capacity; must be a power of two.
	QueueSize int `mapstructure:"queue_size"`
	// PoolCapacity bounds resting orders per instrument.
	PoolCapacity int `mapstructure:"pool_capacity"`
	// DepthLevels of resting liquidity seeded on each side before the run.
	DepthLevels int `mapstructure:"depth_levels"`
	// SignalRatio is the fraction of ticks that trigger an order.
	SignalRatio float64 `mapstructure:"signal_ratio"`
	// Seed for the deterministic feed; 0 derives one from the clock.
	Seed int64 `mapstructure:"seed"`
	// LogFile receives structured logs; empty means stderr.
	LogFile string `mapstructure:"log_file"`
}

// DefaultConfig is a one-second smoke run on a single symbol.
func DefaultConfig() Config {
	return Config{
		Duration:     time.Second,
		Warmup:       100 * time.Millisecond,
		MessageRate:  100_000,
		Symbols:      []string{"BTCUSD"},
		QueueSize:    1 << 16,
		PoolCapacity: 1 << 20,
		DepthLevels:  16,
		SignalRatio:  0.2,
	}
}

// LoadConfig reads a YAML/JSON/TOML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("duration", cfg.Duration)
	v.SetDefault("warmup", cfg.Warmup)
	v.SetDefault("message_rate", cfg.MessageRate)
	v.SetDefault("symbols", cfg.Symbols)
	v.SetDefault("queue_size", cfg.QueueSize)
	v.SetDefault("pool_capacity", cfg.PoolCapacity)
	v.SetDefault("depth_levels", cfg.DepthLevels)
	v.SetDefault("signal_ratio", cfg.SignalRatio)
	v.SetDefault("seed", cfg.Seed)
	v.SetDefault("log_file", cfg.LogFile)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("harness: read config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("harness: unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the runner cannot honor.
func (c Config) Validate() error {
	switch {
	case c.Duration <= 0:
		return errors.New("harness: duration must be positive")
	case c.Warmup < 0:
		return errors.New("harness: warmup must not be negative")
	case c.MessageRate <= 0:
		return errors.New("harness: message_rate must be positive")
	case len(c.Symbols) == 0:
		return errors.New("harness: at least one symbol required")
	case c.QueueSize < 2 || bits.OnesCount(uint(c.QueueSize)) != 1:
		return errors.New("harness: queue_size must be a power of two >= 2")
	case c.PoolCapacity <= 0:
		return errors.New("harness: pool_capacity must be positive")
	case c.DepthLevels <= 0:
		return errors.New("harness: depth_levels must be positive")
	case c.SignalRatio < 0 || c.SignalRatio > 1:
		return errors.New("harness: signal_ratio must be in [0,1]")
	}
	return nil
}
