package difficulty

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbabilityIsMonotone(t *testing.T) {
	m := MustNewModel(DefaultConfig())

	for d1 := uint32(0); d1 < m.Max(); d1++ {
		for d2 := d1 + 1; d2 <= m.Max(); d2++ {
			assert.LessOrEqual(t, m.Probability(d2), m.Probability(d1), "d1=%d d2=%d", d1, d2)
		}
	}
	assert.Equal(t, 1.0, m.Probability(0))
	assert.Greater(t, m.Probability(m.Max()), 0.0, "max difficulty must stay winnable")
}

func TestIsSuccessMonotoneOverDigests(t *testing.T) {
	m := MustNewModel(DefaultConfig())

	var digest [32]byte
	digest[2] = 0x01 // 23 leading zero bits
	for d := uint32(0); d <= m.Max(); d++ {
		assert.Equal(t, d <= 23, m.IsSuccess(digest, d), "difficulty %d", d)
	}
}

func TestMinDifficultyAcceptsEverything(t *testing.T) {
	m := MustNewModel(DefaultConfig())

	var digest [32]byte
	for i := range digest {
		digest[i] = 0xff
	}
	assert.True(t, m.IsSuccess(digest, m.Min()))
}

func TestRewardKeepsExpectedValue(t *testing.T) {
	m := MustNewModel(DefaultConfig())

	for d := uint32(0); d <= m.Max(); d++ {
		expected := float64(m.Reward(d)) * m.Probability(d)
		assert.InDelta(t, float64(DefaultBaseReward), expected, 1e-9, "difficulty %d", d)
		if d > 0 {
			assert.Greater(t, m.Reward(d), m.Reward(d-1))
		}
	}
}

func TestRewardSaturates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseReward = math.MaxUint64 / 2
	m := MustNewModel(cfg)

	assert.Equal(t, uint64(math.MaxUint64), m.Reward(8))
}

func TestNextDifficulty(t *testing.T) {
	m := MustNewModel(DefaultConfig())

	assert.Equal(t, uint32(6), m.NextDifficulty(5, 0.5), "too easy steps up")
	assert.Equal(t, uint32(4), m.NextDifficulty(5, 0.001), "too hard steps down")
	assert.Equal(t, uint32(5), m.NextDifficulty(5, 0.03), "inside band holds")
	assert.Equal(t, m.Max(), m.NextDifficulty(m.Max(), 1.0), "clamped at max")
	assert.Equal(t, m.Min(), m.NextDifficulty(m.Min(), 0), "clamped at min")
	assert.Equal(t, m.Max(), m.NextDifficulty(90, 0.03), "out of range input is clamped")
}

func TestNextDifficultyBoundedStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxStep = 3
	m := MustNewModel(cfg)

	assert.Equal(t, uint32(3), m.NextDifficulty(0, 1.0), "log2(20) rounds up to 5, capped at 3")
	assert.Equal(t, uint32(12), m.NextDifficulty(10, 0.15), "log2(3) rounds up to 2")
	assert.Equal(t, uint32(9), m.NextDifficulty(10, 0.006), "log2(1.67) rounds up to 1")
}

func TestNextDifficultyConverges(t *testing.T) {
	m := MustNewModel(DefaultConfig())

	d := m.Min()
	for i := 0; i < 100; i++ {
		d = m.NextDifficulty(d, m.Probability(d))
	}
	p := m.Probability(d)
	assert.GreaterOrEqual(t, p, 0.01)
	assert.LessOrEqual(t, p, 0.05)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDifficulty = 256
	_, err := NewModel(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.TargetLow, cfg.TargetHigh = 0.2, 0.1
	_, err = NewModel(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.MinDifficulty = 40
	_, err = NewModel(cfg)
	require.Error(t, err)
}
