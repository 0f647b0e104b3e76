// Package stats keeps a bounded window of recent attempts and answers
// rate queries over it.
package stats

import (
	"sync"
	"time"

	"hashquest/internal/attempt"
)

// DefaultCapacity is the window size used when none is configured
const DefaultCapacity = 4096

// sample is one recorded attempt
type sample struct {
	at        time.Time
	succeeded bool
	reward    uint64
}

// Snapshot is a point-in-time view of the window
type Snapshot struct {
	HashRate          float64 `json:"hash_rate"`
	SuccessRate       float64 `json:"success_rate"`
	EarningsPerMinute float64 `json:"earnings_per_minute"`
	Samples           int     `json:"samples"`
	Capacity          int     `json:"capacity"`
}

// Aggregator is a fixed-capacity ring buffer of attempt samples. Oldest
// samples are evicted first; queries are computed on demand.
type Aggregator struct {
	mu    sync.RWMutex
	buf   []sample
	head  int // index of the oldest sample
	count int
}

// NewAggregator creates an aggregator holding at most capacity samples
func NewAggregator(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Aggregator{buf: make([]sample, capacity)}
}

// Capacity returns the window size
func (a *Aggregator) Capacity() int {
	return len(a.buf)
}

// Len returns the number of samples currently held
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// Record pushes an outcome into the window
func (a *Aggregator) Record(o attempt.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := sample{at: o.At, succeeded: o.Succeeded, reward: o.RewardGranted}
	if a.count < len(a.buf) {
		a.buf[(a.head+a.count)%len(a.buf)] = s
		a.count++
		return
	}
	a.buf[a.head] = s
	a.head = (a.head + 1) % len(a.buf)
}

// Reset clears the window
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.head = 0
	a.count = 0
}

// at returns the i-th oldest sample. Caller holds the lock.
func (a *Aggregator) at(i int) sample {
	return a.buf[(a.head+i)%len(a.buf)]
}

// span returns the first and last timestamps. Caller holds the lock.
func (a *Aggregator) span() (first, last time.Time) {
	return a.at(0).at, a.at(a.count - 1).at
}

// CurrentHashRate is attempts per second across the window. Samples stamped
// with the first timestamp open the window and are not counted, so a window
// made of a single tick reports 0.
func (a *Aggregator) CurrentHashRate() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n, _, seconds := a.afterFirst()
	if seconds <= 0 {
		return 0
	}
	return float64(n) / seconds
}

// CurrentSuccessRate is the fraction of windowed attempts that succeeded
func (a *Aggregator) CurrentSuccessRate() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.count == 0 {
		return 0
	}
	successes := 0
	for i := 0; i < a.count; i++ {
		if a.at(i).succeeded {
			successes++
		}
	}
	return float64(successes) / float64(a.count)
}

// EarningsPerMinute is the reward credited per minute across the window
func (a *Aggregator) EarningsPerMinute() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, reward, seconds := a.afterFirst()
	if seconds <= 0 {
		return 0
	}
	return reward / seconds * 60
}

// afterFirst counts samples and reward stamped after the first timestamp and
// returns the window span in seconds. Caller holds the lock.
func (a *Aggregator) afterFirst() (n int, reward float64, seconds float64) {
	if a.count < 2 {
		return 0, 0, 0
	}
	first, last := a.span()
	seconds = last.Sub(first).Seconds()
	if seconds <= 0 {
		return 0, 0, 0
	}
	for i := 0; i < a.count; i++ {
		s := a.at(i)
		if s.at.After(first) {
			n++
			reward += float64(s.reward)
		}
	}
	return n, reward, seconds
}

// Series splits the window span into equal buckets and returns the hash
// rate of each, oldest first. An empty or instantaneous window yields zeros.
func (a *Aggregator) Series(buckets int) []float64 {
	if buckets <= 0 {
		return nil
	}
	out := make([]float64, buckets)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.count < 2 {
		return out
	}
	first, last := a.span()
	total := last.Sub(first)
	if total <= 0 {
		return out
	}
	width := total / time.Duration(buckets)
	if width <= 0 {
		width = 1
	}
	for i := 0; i < a.count; i++ {
		s := a.at(i)
		if !s.at.After(first) {
			continue
		}
		idx := int((s.at.Sub(first) - 1) / width)
		if idx >= buckets {
			idx = buckets - 1
		}
		out[idx]++
	}
	perBucket := width.Seconds()
	for i := range out {
		out[i] /= perBucket
	}
	return out
}

// Snapshot returns every rate at once
func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		HashRate:          a.CurrentHashRate(),
		SuccessRate:       a.CurrentSuccessRate(),
		EarningsPerMinute: a.EarningsPerMinute(),
		Samples:           a.Len(),
		Capacity:          a.Capacity(),
	}
}
