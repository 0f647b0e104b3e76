package game

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"hashquest/internal/engine"
	"hashquest/internal/ledger"
	"hashquest/internal/stats"
)

// Snapshot is everything a view needs to render one frame
type Snapshot struct {
	State              ledger.GameState `json:"state"`
	Level              uint32           `json:"level"`
	NextLevelAt        uint64           `json:"next_level_at"`
	Engine             engine.Status    `json:"engine"`
	Stats              stats.Snapshot   `json:"stats"`
	HashPower          uint64           `json:"hash_power"`
	RewardBonus        uint64           `json:"reward_bonus"`
	RewardPerSuccess   uint64           `json:"reward_per_success"`
	SuccessProbability float64          `json:"success_probability"`
	SavePending        bool             `json:"save_pending"`
	LastSaved          time.Time        `json:"last_saved,omitempty"`
	SaveError          string           `json:"save_error,omitempty"`
	Series             []float64        `json:"series,omitempty"`
}

// UpgradeView is a catalog entry with the player's standing against it
type UpgradeView struct {
	ledger.Upgrade
	Owned      bool   `json:"owned"`
	Affordable bool   `json:"affordable"`
	EffectText string `json:"effect_text"`
}

// Snapshot returns the current view. buckets > 0 includes a hash-rate series.
func (g *Game) Snapshot(buckets int) Snapshot {
	state := g.ledger.State()
	snap := Snapshot{
		State:              state,
		Level:              state.Level(),
		NextLevelAt:        ledger.NextLevelAt(state.Level()),
		Engine:             g.engine.Status(),
		Stats:              g.stats.Snapshot(),
		HashPower:          g.ledger.HashPower(),
		RewardBonus:        g.ledger.RewardBonus(),
		RewardPerSuccess:   g.ledger.RewardFor(state.Difficulty),
		SuccessProbability: g.model.Probability(state.Difficulty),
		SavePending:        g.store.Pending(),
		LastSaved:          g.store.LastSaved(),
	}
	if err := g.store.LastError(); err != nil {
		snap.SaveError = err.Error()
	}
	if buckets > 0 {
		snap.Series = g.stats.Series(buckets)
	}
	return snap
}

// Upgrades lists the catalog in display order
func (g *Game) Upgrades() []UpgradeView {
	state := g.ledger.State()
	all := g.ledger.Catalog().All()
	views := make([]UpgradeView, 0, len(all))
	for _, u := range all {
		owned := state.Has(u.ID)
		views = append(views, UpgradeView{
			Upgrade:    u,
			Owned:      owned,
			Affordable: !owned && state.Balance >= u.Cost,
			EffectText: u.Effect.String(),
		})
	}
	return views
}

// Summary renders a human-readable progress report
func (g *Game) Summary() string {
	snap := g.Snapshot(0)
	s := snap.State

	var b strings.Builder
	fmt.Fprintf(&b, "HashQuest progress\n")
	fmt.Fprintf(&b, "  Level:        %d (next at %s earned)\n", snap.Level, Amount(snap.NextLevelAt))
	fmt.Fprintf(&b, "  Balance:      %s\n", Amount(s.Balance))
	fmt.Fprintf(&b, "  Earned:       %s\n", Amount(s.TotalEarned))
	fmt.Fprintf(&b, "  Difficulty:   %d bits (1 in %s)\n", s.Difficulty, Amount(uint64(1)<<min(s.Difficulty, 63)))
	fmt.Fprintf(&b, "  Attempts:     %s (%s successful)\n", Amount(s.TotalAttempts), Amount(s.TotalSuccesses))
	fmt.Fprintf(&b, "  Hash rate:    %s\n", HashRate(snap.Stats.HashRate))
	fmt.Fprintf(&b, "  Earnings:     %.2f/min\n", snap.Stats.EarningsPerMinute)
	fmt.Fprintf(&b, "  Upgrades:     %d/%d", len(s.UnlockedUpgrades), g.ledger.Catalog().Len())
	if len(s.UnlockedUpgrades) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(s.UnlockedUpgrades, ", "))
	}
	b.WriteString("\n")
	if !snap.LastSaved.IsZero() {
		fmt.Fprintf(&b, "  Last saved:   %s\n", humanize.Time(snap.LastSaved))
	}
	return b.String()
}

// Amount formats a balance with thousands separators
func Amount(v uint64) string {
	return humanize.BigComma(new(big.Int).SetUint64(v))
}

// HashRate formats attempts per second with an SI prefix
func HashRate(rate float64) string {
	return humanize.SIWithDigits(rate, 2, "H/s")
}
