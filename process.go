package atomcheck

// A process wraps one cooperative fiber. The fiber is a goroutine parked
// on a one-shot gate channel; resuming is a send on the gate, after
// which the fiber runs straight-line user code until its next atomic
// operation, where it publishes a fresh gate together with its pending
// (op, object-id) and reports a suspension event. The gate slot is
// consumed (nilled) on every resume or discontinue, so each continuation
// can be invoked at most once.
type process struct {
	id  int
	op  Op
	obj int
	// gate is the one-shot continuation of the current suspension. A
	// gateRun send performs the pending operation and runs user code to
	// the next suspension or completion; a gateAbort send unwinds the
	// fiber so deferred cleanup runs.
	gate chan gateSignal
	// entry is the original process entry point, retained for
	// traceability.
	entry    func()
	finished bool
}

type gateSignal uint8

const (
	gateRun gateSignal = iota
	gateAbort
)

type eventKind uint8

const (
	evSuspended eventKind = iota
	evFinished
	evAborted
	evPanicked
)

// fiberEvent is what a fiber reports on the checker's events channel
// after each resumption: it suspended on its next atomic operation,
// returned normally, unwound on discontinue, or panicked.
type fiberEvent struct {
	kind eventKind
	pid  int
	val  any
}

// abortSignal is the panic value discontinue delivers into a fiber.
type abortSignal struct{}

// assertSignal is the panic value Check uses to abandon the current run.
type assertSignal struct{}

// Spawn registers a new process whose fiber will run f. The process is
// pending on the synthetic Start operation until first resumed. Spawn is
// normally called from the setup function passed to Trace.
func (c *Checker) Spawn(f func()) {
	p := &process{
		id:    len(c.procs),
		op:    OpStart,
		obj:   noObject,
		gate:  make(chan gateSignal),
		entry: f,
	}
	c.procs = append(c.procs, p)
	go c.runFiber(p, p.gate)
}

// runFiber is the goroutine body of one fiber. It parks on the initial
// gate (the Start suspension), then runs the user entry. The deferred
// handler converts the three possible exits into events: normal return,
// abort unwind, and user panic.
func (c *Checker) runFiber(p *process, gate chan gateSignal) {
	defer func() {
		switch r := recover(); r.(type) {
		case nil:
			c.events <- fiberEvent{kind: evFinished, pid: p.id}
		case abortSignal:
			c.events <- fiberEvent{kind: evAborted, pid: p.id}
		default:
			c.events <- fiberEvent{kind: evPanicked, pid: p.id, val: r}
		}
	}()
	if <-gate == gateAbort {
		panic(abortSignal{})
	}
	p.entry()
}

// suspend parks the current fiber on a fresh gate after publishing its
// pending operation, hands control to the scheduler, and, once resumed,
// applies the real atomic effect. Called on the fiber goroutine, with
// tracing on.
func (c *Checker) suspend(op Op, obj int, apply func()) {
	p := c.current
	if p == nil {
		panic(Namespace + ": traced atomic operation outside a spawned process")
	}
	gate := make(chan gateSignal)
	p.op, p.obj, p.gate = op, obj, gate
	if c.verbose {
		c.logIntercept(p.id, op, obj)
	}
	c.events <- fiberEvent{kind: evSuspended, pid: p.id}
	if <-gate == gateAbort {
		panic(abortSignal{})
	}
	apply()
}

// resume consumes the process's pending continuation and runs the fiber
// until its next event. Exactly one event is produced per resume.
func (c *Checker) resume(p *process) (fiberEvent, error) {
	if p.gate == nil {
		return fiberEvent{}, wrapf(ErrContinuationConsumed, "process %d", p.id)
	}
	gate := p.gate
	p.gate = nil
	c.current = p
	gate <- gateRun
	ev := <-c.events
	c.current = nil
	return ev, nil
}

// discontinue consumes the process's pending continuation and unwinds
// the fiber so scoped resources are released. The fiber's terminal event
// is returned; it is evAborted unless user cleanup itself panicked.
func (c *Checker) discontinue(p *process) fiberEvent {
	gate := p.gate
	p.gate = nil
	gate <- gateAbort
	return <-c.events
}
