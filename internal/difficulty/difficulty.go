// Package difficulty turns a difficulty value into a success predicate over
// digests and retargets it toward a fixed success-rate band.
//
// Difficulty is measured in leading zero bits: a digest succeeds at
// difficulty d when its first d bits are zero, so the success probability of
// a uniformly distributed digest is 2^-d.
package difficulty

import (
	"fmt"
	"math"
	"math/bits"

	"hashquest/pkg/hashing/core"
)

const (
	// DefaultMinDifficulty lets every digest succeed (onboarding)
	DefaultMinDifficulty = 0

	// DefaultMaxDifficulty keeps the success probability at 2^-32
	DefaultMaxDifficulty = 32

	// DefaultBaseReward is the expected reward per attempt at any difficulty
	DefaultBaseReward = 1
)

// Config holds the tunables of a Model
type Config struct {
	MinDifficulty uint32  `json:"min_difficulty"`
	MaxDifficulty uint32  `json:"max_difficulty"`
	TargetLow     float64 `json:"target_low"`
	TargetHigh    float64 `json:"target_high"`
	MaxStep       uint32  `json:"max_step"`
	BaseReward    uint64  `json:"base_reward"`
}

// DefaultConfig returns the default tuning: a 1-5% success band and single
// bit steps.
func DefaultConfig() Config {
	return Config{
		MinDifficulty: DefaultMinDifficulty,
		MaxDifficulty: DefaultMaxDifficulty,
		TargetLow:     0.01,
		TargetHigh:    0.05,
		MaxStep:       1,
		BaseReward:    DefaultBaseReward,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.MaxDifficulty > core.DigestSize*8-1 {
		return fmt.Errorf("max difficulty %d leaves no winnable digest", c.MaxDifficulty)
	}
	if c.MinDifficulty > c.MaxDifficulty {
		return fmt.Errorf("min difficulty %d above max %d", c.MinDifficulty, c.MaxDifficulty)
	}
	if c.TargetLow <= 0 || c.TargetHigh > 1 || c.TargetLow > c.TargetHigh {
		return fmt.Errorf("invalid target band [%g, %g]", c.TargetLow, c.TargetHigh)
	}
	if c.MaxStep == 0 {
		return fmt.Errorf("max step must be positive")
	}
	if c.BaseReward == 0 {
		return fmt.Errorf("base reward must be positive")
	}
	return nil
}

// Model evaluates digests and retargets difficulty. It is immutable and safe
// for concurrent use.
type Model struct {
	cfg Config
}

// NewModel creates a model from cfg
func NewModel(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg}, nil
}

// MustNewModel is NewModel for known-good configurations
func MustNewModel(cfg Config) *Model {
	m, err := NewModel(cfg)
	if err != nil {
		panic(err)
	}
	return m
}

// Config returns the model configuration
func (m *Model) Config() Config {
	return m.cfg
}

// Min returns the lowest difficulty
func (m *Model) Min() uint32 { return m.cfg.MinDifficulty }

// Max returns the highest difficulty
func (m *Model) Max() uint32 { return m.cfg.MaxDifficulty }

// Clamp limits d to [Min, Max]
func (m *Model) Clamp(d uint32) uint32 {
	if d < m.cfg.MinDifficulty {
		return m.cfg.MinDifficulty
	}
	if d > m.cfg.MaxDifficulty {
		return m.cfg.MaxDifficulty
	}
	return d
}

// IsSuccess reports whether digest meets difficulty
func (m *Model) IsSuccess(digest [core.DigestSize]byte, difficulty uint32) bool {
	return core.HasLeadingZeroBits(digest, int(m.Clamp(difficulty)))
}

// Probability is the success probability of a uniform digest at difficulty
func (m *Model) Probability(difficulty uint32) float64 {
	return math.Ldexp(1, -int(m.Clamp(difficulty)))
}

// Reward is the payout of a successful attempt at difficulty. It doubles
// with every bit, keeping the expected reward per attempt at BaseReward.
func (m *Model) Reward(difficulty uint32) uint64 {
	d := m.Clamp(difficulty)
	if bitsUsed := 64 - bits.LeadingZeros64(m.cfg.BaseReward); uint32(bitsUsed)+d > 64 {
		return math.MaxUint64
	}
	return m.cfg.BaseReward << d
}

// NextDifficulty moves current toward the target band by at most MaxStep
// bits, based on the recently observed success rate.
func (m *Model) NextDifficulty(current uint32, recentSuccessRate float64) uint32 {
	current = m.Clamp(current)

	switch {
	case recentSuccessRate > m.cfg.TargetHigh:
		// Each extra bit halves the rate; step just far enough to re-enter
		// the band, bounded by MaxStep.
		step := stepsToward(recentSuccessRate, m.cfg.TargetHigh, m.cfg.MaxStep)
		if m.cfg.MaxDifficulty-current < step {
			return m.cfg.MaxDifficulty
		}
		return current + step
	case recentSuccessRate < m.cfg.TargetLow:
		step := stepsToward(m.cfg.TargetLow, math.Max(recentSuccessRate, math.SmallestNonzeroFloat64), m.cfg.MaxStep)
		if current-m.cfg.MinDifficulty < step {
			return m.cfg.MinDifficulty
		}
		return current - step
	default:
		return current
	}
}

// stepsToward returns ceil(log2(from/to)) clamped to [1, maxStep]
func stepsToward(from, to float64, maxStep uint32) uint32 {
	ratio := math.Log2(from / to)
	steps := uint32(1)
	if ratio > 1 {
		steps = uint32(math.Ceil(ratio))
	}
	if steps > maxStep {
		steps = maxStep
	}
	return steps
}
