package atomcheck

import (
	"io"

	"github.com/ygrebnov/atomcheck/metrics"
)

// Config holds Checker configuration.
type Config struct {
	// Output receives schedule dumps, failure diagnostics, and progress
	// lines. Nil means os.Stdout.
	Output io.Writer

	// ProgressInterval emits a "run: <N>" line every N replayer runs.
	// Zero disables progress lines.
	// Default: 100000.
	ProgressInterval uint64

	// MaxRuns bounds the number of replayer runs an exploration may
	// perform. Zero (default) means unlimited. When the bound is hit,
	// Trace returns ErrRunBudgetExceeded. This is a budget, not
	// non-termination detection.
	MaxRuns uint64

	// Metrics constructs the instruments the checker records exploration
	// accounting into. Nil means a no-op provider.
	Metrics metrics.Provider
}

// defaultConfig centralizes default values for Config.
// These defaults are applied by New when config is nil and serve as the
// NewOptions builder base.
func defaultConfig() Config {
	return Config{
		Output:           nil, // resolved to os.Stdout by New
		ProgressInterval: 100000,
		MaxRuns:          0, // unlimited
		Metrics:          nil, // resolved to a no-op provider by New
	}
}

// validateConfig performs lightweight invariants checks.
// It returns nil for all currently valid states; reserved for future
// validation expansions. All zero values are meaningful (disabled or
// defaulted), so there is no hard validation at the moment.
func validateConfig(_ *Config) error {
	return nil
}
