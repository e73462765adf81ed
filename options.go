package atomcheck

import (
	"fmt"
	"io"

	"github.com/ygrebnov/atomcheck/metrics"
)

// Option configures a Checker. Use NewOptions(opts...) to construct a
// Checker via options.
type Option func(*Config)

// WithOutput directs schedule dumps, failure diagnostics, and progress
// lines to w.
func WithOutput(w io.Writer) Option {
	return func(cfg *Config) { cfg.Output = w }
}

// WithProgressInterval emits a "run: <N>" line every n runs (default
// 100000). Zero disables progress lines.
func WithProgressInterval(n uint64) Option {
	return func(cfg *Config) { cfg.ProgressInterval = n }
}

// WithMaxRuns bounds exploration to n replayer runs. Zero means
// unlimited.
func WithMaxRuns(n uint64) Option {
	return func(cfg *Config) { cfg.MaxRuns = n }
}

// WithMetrics records exploration accounting into instruments built by p.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *Config) { cfg.Metrics = p }
}

// NewOptions creates a new Checker using functional options.
// It internally constructs a Config and delegates to New.
func NewOptions(opts ...Option) *Checker {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			panic("nil atomcheck option")
		}
		opt(&cfg)
	}

	if err := validateConfig(&cfg); err != nil {
		panic(fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}

	return New(&cfg)
}
