package atomcheck

import "context"

// pidSet is a set of process ids. Minimum-element selection keeps the
// search deterministic.
type pidSet map[int]struct{}

func (s pidSet) add(pid int)      { s[pid] = struct{}{} }
func (s pidSet) has(pid int) bool { _, ok := s[pid]; return ok }

func (s pidSet) min() (int, bool) {
	m, found := 0, false
	for pid := range s {
		if !found || pid < m {
			m, found = pid, true
		}
	}
	return m, found
}

// minExcluding returns the smallest element of s not present in excl.
func minExcluding(s, excl pidSet) (int, bool) {
	m, found := 0, false
	for pid := range s {
		if excl.has(pid) {
			continue
		}
		if !found || pid < m {
			m, found = pid, true
		}
	}
	return m, found
}

func cloneIntMap(m map[int]int) map[int]int {
	out := make(map[int]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Trace explores the interleavings of the processes spawned by setup,
// starting from the singleton schedule that performs process 0's Start
// step. It returns nil when exploration completes without a violation.
// The context is observed between runs; a run is never interrupted.
func (c *Checker) Trace(ctx context.Context, setup func()) error {
	c.reset()
	initial := []scheduleStep{{pid: 0, op: OpStart, obj: noObject}}
	s0, err := c.doRun(ctx, setup, initial)
	if err != nil {
		return err
	}
	return c.explore(ctx, setup, []*runState{s0}, map[int]int{}, map[int]int{})
}

// explore is the DPOR search over the current state sequence. lastAccess
// maps each object-id to the index of the state holding the most recent
// step that touched it on this path; clock maps each process to the last
// state index at which it ran. clock is recorded but not consulted,
// paralleling the classical presentation of the algorithm. Both maps are
// copied per child so sibling branches stay independent.
func (c *Checker) explore(ctx context.Context, setup func(), seq []*runState, clock, lastAccess map[int]int) error {
	s := seq[len(seq)-1]

	// Race detection against the path: a pending access to an object
	// conflicts with the most recent step that touched it. To cover the
	// reversed order, the pending process must be scheduled at the state
	// preceding that step, or, if it was not runnable there, everything
	// that was.
	for _, pr := range s.procs {
		if pr.obj == noObject {
			continue
		}
		i, ok := lastAccess[pr.obj]
		if !ok || i < 1 {
			continue
		}
		pre := seq[i-1]
		if pre.enabled.has(pr.pid) {
			if !pre.backtrack.has(pr.pid) {
				pre.backtrack.add(pr.pid)
				c.met.backtracks.Add(1)
			}
			continue
		}
		for pid := range pre.enabled {
			if !pre.backtrack.has(pid) {
				pre.backtrack.add(pid)
				c.met.backtracks.Add(1)
			}
		}
	}

	if len(s.enabled) == 0 {
		return nil
	}

	// Depth-first expansion: the minimum enabled pid seeds the backtrack
	// set; race detection in deeper calls may grow it while this loop
	// runs.
	if m, ok := s.enabled.min(); ok {
		s.backtrack.add(m)
	}
	done := pidSet{}
	for {
		j, ok := minExcluding(s.backtrack, done)
		if !ok {
			return nil
		}
		done.add(j)

		pr := s.procs[j]
		sched := make([]scheduleStep, 0, len(seq)+1)
		for _, st := range seq {
			sched = append(sched, scheduleStep{pid: st.runProc, op: st.runOp, obj: st.runPtr})
		}
		sched = append(sched, scheduleStep{pid: j, op: pr.op, obj: pr.obj})

		ns, err := c.doRun(ctx, setup, sched)
		if err != nil {
			return err
		}

		idx := len(seq)
		nextClock := cloneIntMap(clock)
		nextClock[j] = idx
		nextLast := cloneIntMap(lastAccess)
		if pr.obj != noObject {
			nextLast[pr.obj] = idx
		}
		if err := c.explore(ctx, setup, append(seq, ns), nextClock, nextLast); err != nil {
			return err
		}
	}
}
