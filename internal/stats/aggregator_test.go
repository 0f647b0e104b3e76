package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashquest/internal/attempt"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// tick records n outcomes stamped at epoch+offset
func tick(a *Aggregator, offset time.Duration, n int, successes int, reward uint64) {
	for i := 0; i < n; i++ {
		ok := i < successes
		var r uint64
		if ok {
			r = reward
		}
		a.Record(attempt.Outcome{Succeeded: ok, RewardGranted: r, At: epoch.Add(offset)})
	}
}

func TestEmptyWindowReportsZero(t *testing.T) {
	a := NewAggregator(16)

	assert.Zero(t, a.CurrentHashRate())
	assert.Zero(t, a.CurrentSuccessRate())
	assert.Zero(t, a.EarningsPerMinute())
	assert.Equal(t, make([]float64, 4), a.Series(4))
	assert.Equal(t, Snapshot{Capacity: 16}, a.Snapshot())
}

func TestSingleTickHasNoRate(t *testing.T) {
	a := NewAggregator(16)
	tick(a, 0, 5, 1, 10)

	assert.Zero(t, a.CurrentHashRate())
	assert.InDelta(t, 0.2, a.CurrentSuccessRate(), 1e-9)
}

func TestHashRateAcrossTicks(t *testing.T) {
	a := NewAggregator(1000)
	for i := 0; i <= 10; i++ {
		tick(a, time.Duration(i)*100*time.Millisecond, 10, 0, 0)
	}

	// ten ticks of ten attempts after the opening tick, over one second
	assert.InDelta(t, 100.0, a.CurrentHashRate(), 1e-9)
}

func TestEarningsPerMinute(t *testing.T) {
	a := NewAggregator(100)
	tick(a, 0, 1, 1, 5)
	tick(a, 30*time.Second, 1, 1, 5)
	tick(a, 60*time.Second, 1, 1, 5)

	assert.InDelta(t, 10.0, a.EarningsPerMinute(), 1e-9)
	assert.InDelta(t, 1.0, a.CurrentSuccessRate(), 1e-9)
}

func TestFIFOEviction(t *testing.T) {
	a := NewAggregator(4)
	tick(a, 0, 4, 4, 1)
	require.Equal(t, 4, a.Len())
	assert.InDelta(t, 1.0, a.CurrentSuccessRate(), 1e-9)

	// four failures push out every success
	tick(a, time.Second, 4, 0, 0)
	assert.Equal(t, 4, a.Len())
	assert.Zero(t, a.CurrentSuccessRate())

	tick(a, 2*time.Second, 2, 2, 1)
	assert.Equal(t, 4, a.Len())
	assert.InDelta(t, 0.5, a.CurrentSuccessRate(), 1e-9)
}

func TestSeriesBuckets(t *testing.T) {
	a := NewAggregator(1000)
	tick(a, 0, 1, 0, 0)
	tick(a, 500*time.Millisecond, 10, 0, 0)
	tick(a, time.Second, 30, 0, 0)

	series := a.Series(2)
	require.Len(t, series, 2)
	assert.InDelta(t, 20.0, series[0], 1e-9)
	assert.InDelta(t, 60.0, series[1], 1e-9)
	assert.Nil(t, a.Series(0))
}

func TestReset(t *testing.T) {
	a := NewAggregator(8)
	tick(a, 0, 3, 1, 1)
	a.Reset()

	assert.Zero(t, a.Len())
	assert.Zero(t, a.CurrentSuccessRate())
	assert.Equal(t, 8, a.Capacity())
}

func TestDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewAggregator(0).Capacity())
}
