package ledger

import (
	"fmt"
	"math"
	"sort"
)

// SchemaVersion is the version tag written with every GameState
const SchemaVersion = 2

// levelUnit scales the level thresholds: level n+1 needs 100*(2^n-1) earned
const levelUnit = 100

// GameState is the root aggregate of a save. Level is not stored; it is
// projected from TotalEarned on read.
type GameState struct {
	Version          int      `json:"version"`
	Balance          uint64   `json:"balance"`
	Difficulty       uint32   `json:"difficulty"`
	TotalAttempts    uint64   `json:"total_attempts"`
	TotalSuccesses   uint64   `json:"total_successes"`
	TotalEarned      uint64   `json:"total_earned"`
	UnlockedUpgrades []string `json:"unlocked_upgrades,omitempty"`
}

// NewGameState returns the new-game defaults at the given starting difficulty
func NewGameState(difficulty uint32) GameState {
	return GameState{
		Version:    SchemaVersion,
		Difficulty: difficulty,
	}
}

// Level is the progression level projected from lifetime earnings
func (s GameState) Level() uint32 {
	return LevelFor(s.TotalEarned)
}

// Has reports whether the upgrade id is unlocked
func (s GameState) Has(id string) bool {
	i := sort.SearchStrings(s.UnlockedUpgrades, id)
	return i < len(s.UnlockedUpgrades) && s.UnlockedUpgrades[i] == id
}

// Clone returns a deep copy
func (s GameState) Clone() GameState {
	c := s
	if len(s.UnlockedUpgrades) > 0 {
		c.UnlockedUpgrades = append([]string(nil), s.UnlockedUpgrades...)
	} else {
		c.UnlockedUpgrades = nil
	}
	return c
}

// Validate checks the structural invariants of a state
func (s GameState) Validate() error {
	if s.TotalSuccesses > s.TotalAttempts {
		return fmt.Errorf("total successes %d exceed total attempts %d", s.TotalSuccesses, s.TotalAttempts)
	}
	if !sort.StringsAreSorted(s.UnlockedUpgrades) {
		return fmt.Errorf("unlocked upgrades not sorted")
	}
	for i := 1; i < len(s.UnlockedUpgrades); i++ {
		if s.UnlockedUpgrades[i] == s.UnlockedUpgrades[i-1] {
			return fmt.Errorf("duplicate unlocked upgrade %q", s.UnlockedUpgrades[i])
		}
	}
	return nil
}

// withUpgrade returns the sorted upgrade set with id inserted
func withUpgrade(ids []string, id string) []string {
	i := sort.SearchStrings(ids, id)
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:i]...)
	out = append(out, id)
	return append(out, ids[i:]...)
}

// LevelFor projects lifetime earnings onto a level, starting at 1
func LevelFor(earned uint64) uint32 {
	level := uint32(1)
	for n := uint(1); n < 57; n++ {
		if earned < levelUnit*((uint64(1)<<n)-1) {
			break
		}
		level = uint32(n) + 1
	}
	return level
}

// NextLevelAt returns the lifetime earnings needed to leave level
func NextLevelAt(level uint32) uint64 {
	if level == 0 {
		level = 1
	}
	if level >= 57 {
		return math.MaxUint64
	}
	return levelUnit * ((uint64(1) << level) - 1)
}

// saturatingAdd adds without wrapping past MaxUint64
func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
