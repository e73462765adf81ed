// Package atomcheck is a dynamic partial-order reduction (DPOR) model
// checker for programs that coordinate through atomic shared-memory cells.
//
// A Checker runs a user-supplied setup function that spawns cooperating
// processes. Each process is a cooperative fiber; its only observable
// behavior is the sequence of atomic operations (Make, Get, Set, Exchange,
// CompareAndSwap, FetchAndAdd) it performs on cells created with Make.
// Trace explores every meaningfully distinct interleaving of those
// operations and invokes user-registered predicates at chosen points of
// each interleaving. When a predicate fails, the checker prints the
// offending schedule.
//
// Constructors
//   - New(*Config): Config-based constructor.
//   - NewOptions(opts ...Option): options-based constructor.
//
// Defaults
// Unless overridden, the following defaults apply to a newly created
// instance:
//   - Output: os.Stdout
//   - ProgressInterval: 100000 (a "run: <N>" line every 100000 runs)
//   - MaxRuns: 0 (unlimited)
//   - Metrics: a no-op provider
//
// Hooks
// Every installs a hook invoked after each schedule step and Final a hook
// invoked at the end of each completed run. Hooks run with interception
// disabled: reads through cells observe values directly. Hooks are
// observer-only by convention, not enforcement; a hook that writes
// through a cell mutates it without a schedule step being recorded.
// Check is meant to be called from a hook: when the predicate returns
// false, the offending schedule is dumped and Trace returns
// ErrAssertionViolation.
//
// Scheduling model
// Exploration is single-threaded and cooperative. Exactly one fiber (or
// the checker itself) runs at any instant; a fiber suspends exactly when
// it performs an atomic operation during a traced run. User code must be
// deterministic apart from the interleaving of its atomic operations,
// and every interleaving of it must terminate. The checker does not
// detect non-termination.
//
// Aborts
// At the end of every run, unfinished fibers are discontinued: the fiber
// unwinds so deferred cleanup in user code runs. User code must not
// recover from the unwind.
package atomcheck
