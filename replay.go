package atomcheck

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// scheduleStep names one step of a schedule: resume process pid, which
// must be pending op on obj (noObject for Start and Make).
type scheduleStep struct {
	pid int
	op  Op
	obj int
}

// runState summarizes one executed schedule prefix for the search.
type runState struct {
	// procs snapshots every process's pending (op, object-id) at the end
	// of the prefix, indexed by pid. A finished process retains the
	// operation it last executed.
	procs []pendingOp
	// runProc, runOp, runPtr are the step that produced this state.
	runProc int
	runOp   Op
	runPtr  int
	// enabled holds the pids of processes that have not finished.
	enabled pidSet
	// backtrack holds the pids still scheduled to be explored from this
	// state; it grows as race detection discovers conflicts.
	backtrack pidSet
}

type pendingOp struct {
	pid int
	op  Op
	obj int
}

// processPanic reports a panic raised by user code inside a fiber.
type processPanic struct {
	pid int
	val any
}

func (e *processPanic) Error() string {
	return fmt.Sprintf("%s: process %d raised %v", Namespace, e.pid, e.val)
}

// hookPanic reports a panic raised by an Every or Final hook.
type hookPanic struct {
	val any
}

func (e *hookPanic) Error() string {
	return fmt.Sprintf("%s: hook raised %v", Namespace, e.val)
}

func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}

// doRun executes one schedule and returns the resulting state cell. On
// predicate failure it prints the violation banner and schedule; on a
// user-code panic it replays the same schedule once with verbose
// logging before surfacing the error; on scheduler-invariant failures it
// dumps the schedule.
func (c *Checker) doRun(ctx context.Context, initFunc func(), sched []scheduleStep) (*runState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.cfg.MaxRuns > 0 && c.runs >= c.cfg.MaxRuns {
		return nil, ErrRunBudgetExceeded
	}

	st, err := c.runOnce(initFunc, sched)
	if err == nil {
		return st, nil
	}

	switch {
	case errors.Is(err, ErrAssertionViolation):
		fmt.Fprintf(c.out, "Found assertion violation at run %d:\n", c.runs)
		c.dumpSchedule()

	case isUserFailure(err):
		// Deterministic second pass over the same schedule with per-step
		// interception logging; the only form of failure diagnostic.
		if !c.verbose {
			c.verbose = true
			if _, rerr := c.runOnce(initFunc, sched); rerr != nil {
				err = rerr
			}
			c.verbose = false
		}

	default:
		c.dumpSchedule()
	}
	return nil, err
}

func isUserFailure(err error) bool {
	var pe *processPanic
	var he *hookPanic
	return errors.As(err, &pe) || errors.As(err, &he)
}

// runOnce performs a single replay: setup with tracing off, the step
// loop with tracing on, the final hook for completed runs, a state
// snapshot, and teardown. Teardown always runs, so no fibers survive a
// failed replay.
func (c *Checker) runOnce(initFunc func(), sched []scheduleStep) (*runState, error) {
	c.tracing = false
	initFunc()
	c.schedule = sched
	c.tracing = true

	last, err := c.runSteps(sched)
	if err == nil && len(c.procs) > 0 && c.finishedCount == len(c.procs) {
		err = c.runHook(c.finalHook)
	}

	st := c.snapshot(last)
	if terr := c.teardown(len(sched)); err == nil {
		err = terr
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// runSteps drives the fibers along the schedule, asserting before each
// step that the named process is pending exactly the expected operation.
func (c *Checker) runSteps(sched []scheduleStep) (scheduleStep, error) {
	var last scheduleStep
	for _, step := range sched {
		if c.finishedCount == len(c.procs) {
			return last, wrapf(ErrScheduleOverrun, "step names process %d after all %d processes finished", step.pid, len(c.procs))
		}
		if step.pid < 0 || step.pid >= len(c.procs) {
			return last, wrapf(ErrScheduleMismatch, "no process %d", step.pid)
		}
		p := c.procs[step.pid]
		if p.finished {
			return last, wrapf(ErrScheduleMismatch, "process %d already finished", step.pid)
		}
		if p.op != step.op || p.obj != step.obj {
			return last, wrapf(ErrScheduleMismatch, "process %d is pending %s %s, schedule expects %s %s",
				step.pid, p.op, objString(p.obj), step.op, objString(step.obj))
		}

		ev, err := c.resume(p)
		if err != nil {
			return last, err
		}
		switch ev.kind {
		case evSuspended:
			// The fiber published its next pending operation before
			// yielding; nothing to do here.
		case evFinished:
			p.finished = true
			c.finishedCount++
		case evPanicked:
			if c.verbose {
				fmt.Fprintf(c.out, "Schedule: %d length\n", len(sched))
			}
			c.dumpSchedule()
			fmt.Fprintf(c.out, "Process %d raised %v\n", ev.pid, ev.val)
			return last, &processPanic{pid: ev.pid, val: ev.val}
		case evAborted:
			return last, wrapf(ErrScheduleMismatch, "process %d unwound during replay", ev.pid)
		}

		last = step
		c.met.steps.Add(1)

		if err := c.runHook(c.everyHook); err != nil {
			return last, err
		}
	}
	return last, nil
}

// runHook invokes a user hook with tracing off, converting an
// assertSignal panic into ErrAssertionViolation and any other panic into
// a hookPanic.
func (c *Checker) runHook(hook func()) (err error) {
	if hook == nil {
		return nil
	}
	saved := c.tracing
	c.tracing = false
	defer func() {
		c.tracing = saved
		if r := recover(); r != nil {
			if _, ok := r.(assertSignal); ok {
				err = ErrAssertionViolation
				return
			}
			err = &hookPanic{val: r}
		}
	}()
	hook()
	return nil
}

// snapshot builds the state cell for the just-executed prefix.
func (c *Checker) snapshot(last scheduleStep) *runState {
	st := &runState{
		procs:     make([]pendingOp, len(c.procs)),
		runProc:   last.pid,
		runOp:     last.op,
		runPtr:    last.obj,
		enabled:   pidSet{},
		backtrack: pidSet{},
	}
	for i, p := range c.procs {
		st.procs[i] = pendingOp{pid: p.id, op: p.op, obj: p.obj}
		if !p.finished {
			st.enabled.add(p.id)
		}
	}
	return st
}

// teardown ends a run: every unfinished fiber is discontinued so scoped
// resources are released, the process table is cleared, the object-id
// counter is reset, and the run counter is bumped. A panic raised by
// user cleanup during the unwind is surfaced as a user-code failure.
func (c *Checker) teardown(schedLen int) error {
	c.tracing = false
	var err error
	for _, p := range c.procs {
		if p.finished || p.gate == nil {
			continue
		}
		if ev := c.discontinue(p); ev.kind == evPanicked && err == nil {
			err = &processPanic{pid: ev.pid, val: ev.val}
		}
	}
	c.procs = nil
	c.current = nil
	c.finishedCount = 0
	c.objectIDs = 0

	c.runs++
	if pi := c.cfg.ProgressInterval; pi > 0 && c.runs%pi == 0 {
		fmt.Fprintf(c.out, "run: %d\n", c.runs)
	}
	c.met.runs.Add(1)
	c.met.schedLen.Record(float64(schedLen))
	return err
}

// dumpSchedule prints the stored schedule, one line per step:
// "Process <pid>: <op> <obj>", with an empty object field for Start and
// Make. The stored schedule survives teardown so failures can be
// reported after the run is cleaned up.
func (c *Checker) dumpSchedule() {
	for _, s := range c.schedule {
		fmt.Fprintf(c.out, "Process %d: %s %s\n", s.pid, s.op, objString(s.obj))
	}
}

// logIntercept prints one interception in verbose mode: the process id,
// operation, object-id, and a short stack trace of the suspension point.
func (c *Checker) logIntercept(pid int, op Op, obj int) {
	fmt.Fprintf(c.out, "Process %d: %s %s\n", pid, op, objString(obj))
	fmt.Fprint(c.out, shortStack())
}

const maxTraceFrames = 8

// shortStack captures a bounded stack of the caller's caller, skipping
// the interception plumbing itself.
func shortStack() string {
	pc := make([]uintptr, maxTraceFrames)
	n := runtime.Callers(4, pc)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pc[:n])
	var b strings.Builder
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "\t%s (%s:%d)\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}
