package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicProvider_CounterReuseByName(t *testing.T) {
	p := NewBasicProvider()

	c1 := p.Counter("runs", WithDescription("replayer invocations"), WithUnit("1"))
	c2 := p.Counter("runs")
	require.Same(t, c1, c2)

	c1.Add(3)
	c2.Add(2)
	require.Equal(t, int64(5), c1.(*BasicCounter).Snapshot())

	cfg, ok := p.Describe("runs")
	require.True(t, ok)
	require.Equal(t, "replayer invocations", cfg.Description)
	require.Equal(t, "1", cfg.Unit)
}

func TestBasicProvider_HistogramAggregates(t *testing.T) {
	p := NewBasicProvider()

	h := p.Histogram("schedule_length")
	require.Same(t, h, p.Histogram("schedule_length"))

	for _, v := range []float64{3, 1, 4, 2} {
		h.Record(v)
	}

	snap := h.(*BasicHistogram).Snapshot()
	require.Equal(t, int64(4), snap.Count)
	require.Equal(t, 10.0, snap.Sum)
	require.Equal(t, 1.0, snap.Min)
	require.Equal(t, 4.0, snap.Max)
	require.Equal(t, 2.5, snap.Mean)
}

func TestBasicProvider_EmptyHistogramSnapshot(t *testing.T) {
	p := NewBasicProvider()

	snap := p.Histogram("empty").(*BasicHistogram).Snapshot()
	require.Equal(t, int64(0), snap.Count)
	require.Equal(t, 0.0, snap.Mean)
}

func TestNoopProvider(t *testing.T) {
	p := NewNoopProvider()

	// No-op instruments accept measurements without effect.
	p.Counter("anything").Add(1)
	p.Histogram("anything").Record(1)
}
