package ledger

import (
	"fmt"
	"strings"
)

// EffectKind names what an upgrade changes
type EffectKind string

const (
	// EffectHashPower adds candidate attempts to every tick
	EffectHashPower EffectKind = "hash_power"

	// EffectRewardBonus adds a percentage to every reward
	EffectRewardBonus EffectKind = "reward_bonus"
)

// Effect is the bonus an unlocked upgrade grants
type Effect struct {
	Kind   EffectKind `json:"kind"`
	Amount uint64     `json:"amount"`
}

func (e Effect) String() string {
	switch e.Kind {
	case EffectHashPower:
		return fmt.Sprintf("+%d hashes/tick", e.Amount)
	case EffectRewardBonus:
		return fmt.Sprintf("+%d%% reward", e.Amount)
	default:
		return string(e.Kind)
	}
}

// Upgrade is a read-only catalog entry
type Upgrade struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        uint64 `json:"cost"`
	Effect      Effect `json:"effect"`
}

// Catalog is the static list of purchasable upgrades
type Catalog struct {
	upgrades []Upgrade
	byID     map[string]Upgrade
}

// NewCatalog builds a catalog, rejecting blank or duplicate IDs
func NewCatalog(upgrades ...Upgrade) (*Catalog, error) {
	c := &Catalog{
		upgrades: make([]Upgrade, 0, len(upgrades)),
		byID:     make(map[string]Upgrade, len(upgrades)),
	}
	for _, u := range upgrades {
		if strings.TrimSpace(u.ID) == "" {
			return nil, fmt.Errorf("upgrade id is required")
		}
		if _, dup := c.byID[u.ID]; dup {
			return nil, fmt.Errorf("duplicate upgrade id %q", u.ID)
		}
		switch u.Effect.Kind {
		case EffectHashPower, EffectRewardBonus:
		default:
			return nil, fmt.Errorf("upgrade %q: unknown effect %q", u.ID, u.Effect.Kind)
		}
		c.upgrades = append(c.upgrades, u)
		c.byID[u.ID] = u
	}
	return c, nil
}

// MustNewCatalog is NewCatalog for static definitions
func MustNewCatalog(upgrades ...Upgrade) *Catalog {
	c, err := NewCatalog(upgrades...)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the built-in rig upgrades
func DefaultCatalog() *Catalog {
	return MustNewCatalog(
		Upgrade{ID: "cpu-overclock", Name: "CPU Overclock", Description: "Push the CPU past its rated clock", Cost: 50, Effect: Effect{EffectHashPower, 1}},
		Upgrade{ID: "gpu-rig", Name: "GPU Rig", Description: "A single graphics card joins the rig", Cost: 400, Effect: Effect{EffectHashPower, 4}},
		Upgrade{ID: "mining-pool", Name: "Mining Pool", Description: "Pool membership smooths payouts", Cost: 1_500, Effect: Effect{EffectRewardBonus, 10}},
		Upgrade{ID: "gpu-array", Name: "GPU Array", Description: "A rack of graphics cards", Cost: 5_000, Effect: Effect{EffectHashPower, 16}},
		Upgrade{ID: "immersion-cooling", Name: "Immersion Cooling", Description: "Cooler chips, fewer stale shares", Cost: 20_000, Effect: Effect{EffectRewardBonus, 25}},
		Upgrade{ID: "asic-miner", Name: "ASIC Miner", Description: "Purpose-built hashing silicon", Cost: 60_000, Effect: Effect{EffectHashPower, 64}},
		Upgrade{ID: "asic-farm", Name: "ASIC Farm", Description: "A warehouse of ASICs", Cost: 750_000, Effect: Effect{EffectHashPower, 256}},
	)
}

// Get returns the upgrade with id
func (c *Catalog) Get(id string) (Upgrade, bool) {
	u, ok := c.byID[id]
	return u, ok
}

// All returns the upgrades in catalog order
func (c *Catalog) All() []Upgrade {
	return append([]Upgrade(nil), c.upgrades...)
}

// Len returns the number of upgrades
func (c *Catalog) Len() int {
	return len(c.upgrades)
}
