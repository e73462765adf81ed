package atomcheck

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/atomcheck/metrics"
)

func TestTrace_SingleProcessSingleGet(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf))

	finals := 0
	c.Final(func() { finals++ })

	err := c.Trace(context.Background(), func() {
		c.Spawn(func() {
			r := Make(c, 0)
			r.Get()
		})
	})
	require.NoError(t, err)

	// Three replays build the single maximal schedule incrementally:
	// [start], [start make], [start make get].
	require.Equal(t, uint64(3), c.Runs())
	require.Equal(t, 1, finals)
	require.Empty(t, buf.String())
}

func TestTrace_DisjointCellsReduceToOneInterleaving(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf))

	finals := 0
	c.Final(func() { finals++ })

	err := c.Trace(context.Background(), func() {
		c.Spawn(func() {
			a := Make(c, 0)
			a.Get()
		})
		c.Spawn(func() {
			b := Make(c, 0)
			b.Get()
		})
	})
	require.NoError(t, err)

	// All operations are independent, so a single maximal interleaving
	// is explored: one replay per prefix of the six-step schedule.
	require.Equal(t, uint64(6), c.Runs())
	require.Equal(t, 1, finals)
}

func TestTrace_CounterRaceCoversBothOrders(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf))

	var r *Cell[int]
	finals := []int{}
	firsts := map[int]bool{}

	setup := func() {
		r = Make(c, 0)
		c.Spawn(func() {
			if FetchAndAdd(r, 1) == 0 {
				firsts[0] = true
			}
		})
		c.Spawn(func() {
			if FetchAndAdd(r, 1) == 0 {
				firsts[1] = true
			}
		})
	}
	c.Final(func() { finals = append(finals, r.Get()) })

	err := c.Trace(context.Background(), setup)
	require.NoError(t, err)

	// Both increments land in every completed interleaving.
	require.Equal(t, []int{2, 2, 2}, finals)
	// Both orders of the conflicting fetch_and_adds were scheduled.
	require.True(t, firsts[0])
	require.True(t, firsts[1])
	require.Equal(t, uint64(9), c.Runs())

	// A second exploration is deterministic.
	finals = finals[:0]
	err = c.Trace(context.Background(), setup)
	require.NoError(t, err)
	require.Equal(t, uint64(9), c.Runs())
	require.Equal(t, []int{2, 2, 2}, finals)
}

func TestTrace_MetricsAccounting(t *testing.T) {
	provider := metrics.NewBasicProvider()
	c := NewOptions(WithOutput(&bytes.Buffer{}), WithMetrics(provider))

	var r *Cell[int]
	setup := func() {
		r = Make(c, 0)
		c.Spawn(func() { FetchAndAdd(r, 1) })
		c.Spawn(func() { FetchAndAdd(r, 1) })
	}

	require.NoError(t, c.Trace(context.Background(), setup))

	runs := provider.Counter("atomcheck_runs_total").(*metrics.BasicCounter)
	require.Equal(t, int64(c.Runs()), runs.Snapshot())

	hist := provider.Histogram("atomcheck_schedule_length").(*metrics.BasicHistogram)
	snap := hist.Snapshot()
	require.Equal(t, int64(c.Runs()), snap.Count)
	require.Equal(t, 1.0, snap.Min)
	require.Equal(t, 4.0, snap.Max)

	steps := provider.Counter("atomcheck_steps_total").(*metrics.BasicCounter)
	require.Equal(t, int64(snap.Sum), steps.Snapshot())
}

func TestTrace_PredicateViolationPrintsSchedule(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf))

	var r *Cell[int]
	setup := func() {
		r = Make(c, 0)
		c.Spawn(func() { r.Set(1) })
		c.Spawn(func() { r.Set(2) })
	}
	c.Final(func() {
		c.Check(func() bool { return r.Get() == 1 })
	})

	err := c.Trace(context.Background(), setup)
	require.ErrorIs(t, err, ErrAssertionViolation)

	// The first completed interleaving runs process 0 to completion and
	// then process 1, so process 1's set lands last and the predicate
	// fails on the fourth replay.
	require.Contains(t, buf.String(),
		"Found assertion violation at run 4:\n"+
			"Process 0: start \n"+
			"Process 0: set 1\n"+
			"Process 1: start \n"+
			"Process 1: set 1\n")
}

func TestTrace_CASMutex(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf))

	var lock, inside *Cell[int]
	wins := map[int]bool{}

	setup := func() {
		lock = Make(c, 0)
		inside = Make(c, 0)
		for id := 0; id < 2; id++ {
			id := id
			c.Spawn(func() {
				for attempt := 0; attempt < 2; attempt++ {
					if lock.CompareAndSwap(0, 1) {
						Incr(inside)
						wins[id] = true
						Decr(inside)
						lock.Set(0)
						return
					}
				}
			})
		}
	}
	c.Every(func() {
		c.Check(func() bool { return inside.Get() <= 1 })
	})

	err := c.Trace(context.Background(), setup)
	require.NoError(t, err)

	// Both win orderings were found.
	require.True(t, wins[0])
	require.True(t, wins[1])
}

func TestTrace_AbortReleasesScopedResourcesOnce(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf))

	releases := 0
	setup := func() {
		c.Spawn(func() {
			defer func() { releases++ }()
			r := Make(c, 0)
			r.Get()
			r.Get()
		})
	}

	err := c.Trace(context.Background(), setup)
	require.NoError(t, err)

	// Every replay either completes the fiber or discontinues it; the
	// deferred release runs exactly once per replay either way.
	require.Equal(t, uint64(4), c.Runs())
	require.Equal(t, 4, releases)
}

func TestTrace_EveryHookRunsBetweenSteps(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf))

	count := 0
	c.Every(func() { count++ })

	err := c.Trace(context.Background(), func() {
		c.Spawn(func() {
			r := Make(c, 0)
			r.Get()
		})
	})
	require.NoError(t, err)

	// Replays of lengths 1, 2, and 3; the hook runs after every step.
	require.Equal(t, 6, count)
}

func TestTrace_ExchangeAndCompareAndSwap(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf))

	var r *Cell[int]
	var old int
	var swapped bool
	finals := []int{}

	setup := func() {
		r = Make(c, 1)
		c.Spawn(func() {
			old = r.Exchange(2)
			swapped = r.CompareAndSwap(2, 3)
		})
	}
	c.Final(func() { finals = append(finals, r.Get()) })

	err := c.Trace(context.Background(), setup)
	require.NoError(t, err)
	require.Equal(t, 1, old)
	require.True(t, swapped)
	require.Equal(t, []int{3}, finals)
}

func TestTrace_RunBudget(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf), WithMaxRuns(1))

	setup := func() {
		r := Make(c, 0)
		c.Spawn(func() { FetchAndAdd(r, 1) })
		c.Spawn(func() { FetchAndAdd(r, 1) })
	}

	err := c.Trace(context.Background(), setup)
	require.ErrorIs(t, err, ErrRunBudgetExceeded)
	require.Equal(t, uint64(1), c.Runs())
}

func TestTrace_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Trace(ctx, func() {
		c.Spawn(func() {})
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTrace_ProgressLine(t *testing.T) {
	var buf bytes.Buffer
	c := NewOptions(WithOutput(&buf), WithProgressInterval(2))

	err := c.Trace(context.Background(), func() {
		c.Spawn(func() {
			r := Make(c, 0)
			r.Get()
		})
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "run: 2\n")
}
