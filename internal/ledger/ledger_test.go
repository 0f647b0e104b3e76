package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashquest/internal/attempt"
	"hashquest/internal/difficulty"
	"hashquest/internal/gameerr"
)

func newTestLedger(t *testing.T, state GameState, upgrades ...Upgrade) *Ledger {
	t.Helper()
	model := difficulty.MustNewModel(difficulty.DefaultConfig())
	catalog := DefaultCatalog()
	if len(upgrades) > 0 {
		catalog = MustNewCatalog(upgrades...)
	}
	return New(state, catalog, model)
}

func TestApplyOutcomeKeepsAttemptsAboveSuccesses(t *testing.T) {
	l := newTestLedger(t, NewGameState(0))

	pattern := []bool{true, false, false, true, true, false, true}
	for i, ok := range pattern {
		reward := uint64(0)
		if ok {
			reward = 3
		}
		l.ApplyOutcome(attempt.Outcome{Succeeded: ok, RewardGranted: reward, At: time.Now()})

		s := l.State()
		assert.GreaterOrEqual(t, s.TotalAttempts, s.TotalSuccesses, "after outcome %d", i)
		require.NoError(t, s.Validate())
	}

	s := l.State()
	assert.Equal(t, uint64(7), s.TotalAttempts)
	assert.Equal(t, uint64(4), s.TotalSuccesses)
	assert.Equal(t, uint64(12), s.Balance)
	assert.Equal(t, uint64(12), s.TotalEarned)
}

func TestApplyOutcomeSaturates(t *testing.T) {
	state := NewGameState(0)
	state.Balance = math.MaxUint64 - 1
	l := newTestLedger(t, state)

	l.ApplyOutcome(attempt.Outcome{Succeeded: true, RewardGranted: 10})
	assert.Equal(t, uint64(math.MaxUint64), l.State().Balance)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	state := NewGameState(0)
	state.Balance = 50
	l := newTestLedger(t, state, Upgrade{ID: "x", Name: "X", Cost: 100, Effect: Effect{EffectHashPower, 1}})

	_, err := l.PurchaseUpgrade("x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gameerr.ErrInsufficientFunds))

	s := l.State()
	assert.Equal(t, uint64(50), s.Balance)
	assert.Empty(t, s.UnlockedUpgrades)
}

func TestPurchaseAlreadyUnlocked(t *testing.T) {
	state := NewGameState(0)
	state.Balance = 1000
	l := newTestLedger(t, state, Upgrade{ID: "x", Name: "X", Cost: 100, Effect: Effect{EffectHashPower, 1}})

	u, err := l.PurchaseUpgrade("x")
	require.NoError(t, err)
	assert.Equal(t, "x", u.ID)
	assert.Equal(t, uint64(900), l.State().Balance)

	before := l.State()
	_, err = l.PurchaseUpgrade("x")
	assert.True(t, errors.Is(err, gameerr.ErrAlreadyUnlocked))
	assert.Equal(t, before, l.State(), "failed purchase must not change state")
}

func TestPurchaseUnknownUpgrade(t *testing.T) {
	state := NewGameState(0)
	state.Balance = 1000
	l := newTestLedger(t, state)

	_, err := l.PurchaseUpgrade("warp-drive")
	assert.True(t, errors.Is(err, gameerr.ErrUnknownUpgrade))
	assert.Equal(t, uint64(1000), l.State().Balance)
}

func TestUpgradeSetStaysSorted(t *testing.T) {
	state := NewGameState(0)
	state.Balance = 1_000_000
	l := newTestLedger(t, state)

	for _, id := range []string{"gpu-rig", "asic-miner", "cpu-overclock", "mining-pool"} {
		_, err := l.PurchaseUpgrade(id)
		require.NoError(t, err, id)
	}
	s := l.State()
	assert.Equal(t, []string{"asic-miner", "cpu-overclock", "gpu-rig", "mining-pool"}, s.UnlockedUpgrades)
	assert.True(t, s.Has("gpu-rig"))
	assert.False(t, s.Has("asic-farm"))
	assert.Equal(t, uint64(64+1+4), l.HashPower())
	assert.Equal(t, uint64(10), l.RewardBonus())
}

func TestRewardForAppliesBonus(t *testing.T) {
	state := NewGameState(0)
	state.Balance = 1_000_000
	l := newTestLedger(t, state)

	assert.Equal(t, uint64(1<<6), l.RewardFor(6))

	_, err := l.PurchaseUpgrade("mining-pool")
	require.NoError(t, err)
	_, err = l.PurchaseUpgrade("immersion-cooling")
	require.NoError(t, err)

	// 64 * 135 / 100
	assert.Equal(t, uint64(86), l.RewardFor(6))
}

func TestRetargetUsesModel(t *testing.T) {
	l := newTestLedger(t, NewGameState(0))

	from, to := l.Retarget(1.0)
	assert.Equal(t, uint32(0), from)
	assert.Equal(t, uint32(1), to)
	assert.Equal(t, uint32(1), l.Difficulty())
}

func TestResetIsIdempotent(t *testing.T) {
	state := NewGameState(7)
	state.Balance = 500
	state.TotalAttempts = 90
	state.TotalSuccesses = 3
	state.UnlockedUpgrades = []string{"gpu-rig"}
	l := newTestLedger(t, state)

	first := l.Reset()
	second := l.Reset()
	assert.Equal(t, first, second)
	assert.Equal(t, NewGameState(0), first)
}

func TestReplaceRejectsBrokenState(t *testing.T) {
	l := newTestLedger(t, NewGameState(0))

	bad := NewGameState(0)
	bad.TotalAttempts = 1
	bad.TotalSuccesses = 2
	err := l.Replace(bad)
	assert.True(t, errors.Is(err, gameerr.ErrInvalidSave))
	assert.Equal(t, NewGameState(0), l.State())
}

func TestLevelProjection(t *testing.T) {
	cases := map[uint64]uint32{
		0:    1,
		99:   1,
		100:  2,
		299:  2,
		300:  3,
		700:  4,
		1500: 5,
	}
	for earned, level := range cases {
		assert.Equal(t, level, LevelFor(earned), "earned %d", earned)
	}
	assert.Equal(t, uint64(100), NextLevelAt(1))
	assert.Equal(t, uint64(300), NextLevelAt(2))
	assert.Equal(t, uint32(57), LevelFor(math.MaxUint64))

	s := NewGameState(0)
	s.TotalEarned = 320
	assert.Equal(t, uint32(3), s.Level())
}

func TestCatalogValidation(t *testing.T) {
	_, err := NewCatalog(Upgrade{ID: "a", Effect: Effect{EffectHashPower, 1}}, Upgrade{ID: "a", Effect: Effect{EffectHashPower, 1}})
	assert.Error(t, err)

	_, err = NewCatalog(Upgrade{ID: " ", Effect: Effect{EffectHashPower, 1}})
	assert.Error(t, err)

	_, err = NewCatalog(Upgrade{ID: "b", Effect: Effect{Kind: "teleport"}})
	assert.Error(t, err)

	assert.Equal(t, 7, DefaultCatalog().Len())
}
