package atomcheck

import "sync/atomic"

// Integer is the constraint for FetchAndAdd, Incr, and Decr.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Cell is an atomic shared-memory cell under checker control. The cell
// is bimodal: outside a traced run every operation forwards directly to
// the underlying atomic value; during a traced run every operation
// suspends the calling fiber and is applied when the scheduler resumes
// it. All cells are sequentially consistent.
type Cell[T comparable] struct {
	c  *Checker
	id int
	v  atomic.Value
}

// Make creates a cell holding v. The cell's object-id identifies it for
// scheduling purposes within a single run; ids are assigned in schedule
// order and reset between runs.
func Make[T comparable](c *Checker, v T) *Cell[T] {
	h := &Cell[T]{c: c}
	if !c.tracing {
		h.id = c.newObjectID()
		h.v.Store(v)
		return h
	}
	c.suspend(OpMake, noObject, func() {
		h.id = c.newObjectID()
		h.v.Store(v)
	})
	return h
}

// Get returns the cell's current value.
func (h *Cell[T]) Get() T {
	if !h.c.tracing {
		return h.v.Load().(T)
	}
	var out T
	h.c.suspend(OpGet, h.id, func() { out = h.v.Load().(T) })
	return out
}

// Set replaces the cell's value with v.
func (h *Cell[T]) Set(v T) {
	if !h.c.tracing {
		h.v.Store(v)
		return
	}
	h.c.suspend(OpSet, h.id, func() { h.v.Store(v) })
}

// Exchange replaces the cell's value with v and returns the previous
// value.
func (h *Cell[T]) Exchange(v T) T {
	if !h.c.tracing {
		return h.v.Swap(v).(T)
	}
	var old T
	h.c.suspend(OpExchange, h.id, func() { old = h.v.Swap(v).(T) })
	return old
}

// CompareAndSwap replaces the cell's value with next if it currently
// equals seen, reporting whether the swap happened.
func (h *Cell[T]) CompareAndSwap(seen, next T) bool {
	if !h.c.tracing {
		return h.v.CompareAndSwap(seen, next)
	}
	var ok bool
	h.c.suspend(OpCompareAndSwap, h.id, func() { ok = h.v.CompareAndSwap(seen, next) })
	return ok
}

// FetchAndAdd adds n to the cell's value and returns the previous value.
// It is a free function, as Go methods cannot constrain the element type
// further; this mirrors the typed helpers of sync/atomic.
func FetchAndAdd[T Integer](h *Cell[T], n T) T {
	apply := func() T {
		for {
			cur := h.v.Load().(T)
			if h.v.CompareAndSwap(cur, cur+n) {
				return cur
			}
		}
	}
	if !h.c.tracing {
		return apply()
	}
	var old T
	h.c.suspend(OpFetchAndAdd, h.id, func() { old = apply() })
	return old
}

// Incr adds one to the cell's value.
func Incr[T Integer](h *Cell[T]) { FetchAndAdd(h, T(1)) }

// Decr subtracts one from the cell's value. ^T(0) is minus one in two's
// complement for signed widths and wraps for unsigned ones.
func Decr[T Integer](h *Cell[T]) { FetchAndAdd(h, ^T(0)) }
