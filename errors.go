package atomcheck

import "errors"

const Namespace = "atomcheck"

var (
	// ErrAssertionViolation is returned by Trace when a Check predicate
	// returned false. The offending schedule has been written to Output.
	ErrAssertionViolation = errors.New(Namespace + ": assertion violation")

	// ErrScheduleMismatch reports a schedule step whose expected operation
	// does not match the named process's pending operation. It indicates a
	// bug in the checker or a non-deterministic user program.
	ErrScheduleMismatch = errors.New(Namespace + ": schedule step does not match pending operation")

	// ErrScheduleOverrun reports a schedule that claims a step beyond the
	// program's length.
	ErrScheduleOverrun = errors.New(Namespace + ": schedule continues past program completion")

	// ErrContinuationConsumed reports a resume of a fiber whose
	// continuation has already been invoked.
	ErrContinuationConsumed = errors.New(Namespace + ": fiber continuation already consumed")

	// ErrRunBudgetExceeded is returned by Trace when MaxRuns is set and
	// exploration would exceed it.
	ErrRunBudgetExceeded = errors.New(Namespace + ": run budget exceeded")

	// ErrInvalidConfig reports an invalid Checker configuration.
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
)
