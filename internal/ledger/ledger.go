// Package ledger tracks balance, counters and unlocked upgrades. All GameState
// mutation goes through a Ledger; only the save store writes it to disk.
package ledger

import (
	"fmt"
	"math/bits"
	"sync"

	"hashquest/internal/attempt"
	"hashquest/internal/difficulty"
	"hashquest/internal/gameerr"
)

// Ledger guards the live GameState of a session
type Ledger struct {
	mu      sync.RWMutex
	state   GameState
	catalog *Catalog
	model   *difficulty.Model
}

// New creates a ledger around state. The difficulty is clamped into the
// model's range and upgrade IDs absent from the catalog are kept but grant
// no effect.
func New(state GameState, catalog *Catalog, model *difficulty.Model) *Ledger {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	state = state.Clone()
	state.Difficulty = model.Clamp(state.Difficulty)
	return &Ledger{
		state:   state,
		catalog: catalog,
		model:   model,
	}
}

// Catalog returns the upgrade catalog
func (l *Ledger) Catalog() *Catalog {
	return l.catalog
}

// Model returns the difficulty model
func (l *Ledger) Model() *difficulty.Model {
	return l.model
}

// State returns a copy of the current state
func (l *Ledger) State() GameState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// Difficulty returns the current difficulty
func (l *Ledger) Difficulty() uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Difficulty
}

// ApplyOutcome folds one attempt into the counters and balance
func (l *Ledger) ApplyOutcome(o attempt.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.TotalAttempts = saturatingAdd(l.state.TotalAttempts, 1)
	if !o.Succeeded {
		return
	}
	if l.state.TotalSuccesses < l.state.TotalAttempts {
		l.state.TotalSuccesses++
	}
	l.state.Balance = saturatingAdd(l.state.Balance, o.RewardGranted)
	l.state.TotalEarned = saturatingAdd(l.state.TotalEarned, o.RewardGranted)
}

// PurchaseUpgrade debits the cost of id and unlocks it. On error nothing
// changes.
func (l *Ledger) PurchaseUpgrade(id string) (Upgrade, error) {
	u, ok := l.catalog.Get(id)
	if !ok {
		return Upgrade{}, gameerr.Wrap(gameerr.ErrUnknownUpgrade, nil, id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Has(id) {
		return Upgrade{}, gameerr.Wrap(gameerr.ErrAlreadyUnlocked, nil, id)
	}
	if l.state.Balance < u.Cost {
		return Upgrade{}, gameerr.Wrap(gameerr.ErrInsufficientFunds, nil,
			fmt.Sprintf("%s costs %d, balance %d", id, u.Cost, l.state.Balance))
	}

	upgrades := withUpgrade(l.state.UnlockedUpgrades, id)
	l.state.Balance -= u.Cost
	l.state.UnlockedUpgrades = upgrades
	return u, nil
}

// Retarget applies the difficulty model's rule to the current difficulty. It
// is the only way difficulty changes during play.
func (l *Ledger) Retarget(recentSuccessRate float64) (from, to uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	from = l.state.Difficulty
	l.state.Difficulty = l.model.NextDifficulty(from, recentSuccessRate)
	return from, l.state.Difficulty
}

// Reset reinitializes the state to new-game defaults
func (l *Ledger) Reset() GameState {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = NewGameState(l.model.Min())
	return l.state.Clone()
}

// Replace swaps in a loaded or imported state
func (l *Ledger) Replace(state GameState) error {
	if err := state.Validate(); err != nil {
		return gameerr.Wrap(gameerr.ErrInvalidSave, err, err.Error())
	}
	state = state.Clone()
	state.Difficulty = l.model.Clamp(state.Difficulty)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = state
	return nil
}

// HashPower is the extra attempts per tick granted by unlocked upgrades
func (l *Ledger) HashPower() uint64 {
	return l.sumEffect(EffectHashPower)
}

// RewardBonus is the total reward percentage granted by unlocked upgrades
func (l *Ledger) RewardBonus() uint64 {
	return l.sumEffect(EffectRewardBonus)
}

func (l *Ledger) sumEffect(kind EffectKind) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total uint64
	for _, id := range l.state.UnlockedUpgrades {
		if u, ok := l.catalog.Get(id); ok && u.Effect.Kind == kind {
			total = saturatingAdd(total, u.Effect.Amount)
		}
	}
	return total
}

// RewardFor is the payout of a success at difficulty, including bonuses
func (l *Ledger) RewardFor(d uint32) uint64 {
	base := l.model.Reward(d)
	bonus := l.RewardBonus()
	if bonus == 0 {
		return base
	}
	hi, lo := bits.Mul64(base, 100+bonus)
	if hi >= 100 {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, 100)
	return q
}
