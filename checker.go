package atomcheck

import (
	"io"
	"os"

	"github.com/ygrebnov/atomcheck/metrics"
)

// Checker owns the entire state of one exploration: the process table,
// the tracing and verbose flags, the run and object-id counters, the
// stored schedule, and the user hooks. A Checker must be driven from a
// single goroutine; the fibers it manages never run concurrently with
// it or with each other.
type Checker struct {
	cfg Config
	out io.Writer
	met instruments

	// tracing routes cell operations through the scheduler. It is off
	// during setup, hooks, and teardown.
	tracing bool
	// verbose is enabled for the single diagnostic replay of a failed
	// schedule.
	verbose bool

	procs         []*process
	current       *process
	finishedCount int
	events        chan fiberEvent

	objectIDs int
	runs      uint64
	schedule  []scheduleStep

	everyHook func()
	finalHook func()
}

// instruments are the exploration-accounting instruments the checker
// records into.
type instruments struct {
	runs       metrics.Counter
	steps      metrics.Counter
	backtracks metrics.Counter
	schedLen   metrics.Histogram
}

// New creates a new Checker instance and returns it.
// If config is nil, defaults are used.
func New(config *Config) *Checker {
	if config == nil {
		cfg := defaultConfig()
		config = &cfg
	}

	if err := validateConfig(config); err != nil {
		panic(err)
	}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	provider := config.Metrics
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}

	return &Checker{
		cfg:    *config,
		out:    out,
		events: make(chan fiberEvent),
		met: instruments{
			runs:       provider.Counter("atomcheck_runs_total", metrics.WithDescription("replayer invocations"), metrics.WithUnit("1")),
			steps:      provider.Counter("atomcheck_steps_total", metrics.WithDescription("schedule steps executed"), metrics.WithUnit("1")),
			backtracks: provider.Counter("atomcheck_backtrack_points_total", metrics.WithDescription("backtrack-set insertions discovered by race detection"), metrics.WithUnit("1")),
			schedLen:   provider.Histogram("atomcheck_schedule_length", metrics.WithDescription("length of replayed schedules"), metrics.WithUnit("1")),
		},
	}
}

// Every installs f as the hook invoked after each schedule step, replacing
// any previously installed hook. The hook runs with interception
// disabled.
func (c *Checker) Every(f func()) { c.everyHook = f }

// Final installs f as the hook invoked at the end of each completed run,
// replacing any previously installed hook. The hook runs with
// interception disabled.
func (c *Checker) Final(f func()) { c.finalHook = f }

// Check evaluates pred with interception disabled, so the predicate's
// own cell reads are not recorded as schedule steps. When pred returns
// false, the current run is abandoned, the offending schedule is dumped,
// and Trace returns ErrAssertionViolation. Check is meant to be called
// from Every or Final hooks.
func (c *Checker) Check(pred func() bool) {
	saved := c.tracing
	c.tracing = false
	ok := pred()
	c.tracing = saved
	if !ok {
		panic(assertSignal{})
	}
}

// Runs reports the number of replayer runs performed by the current or
// most recent Trace.
func (c *Checker) Runs() uint64 { return c.runs }

// newObjectID assigns the next dense object-id. Ids start at 1 and are
// reset between runs; replays recreate all cells deterministically.
func (c *Checker) newObjectID() int {
	c.objectIDs++
	return c.objectIDs
}

// reset clears all exploration state so a Checker can be traced again.
func (c *Checker) reset() {
	c.tracing = false
	c.verbose = false
	c.procs = nil
	c.current = nil
	c.finishedCount = 0
	c.objectIDs = 0
	c.runs = 0
	c.schedule = nil
}
