package savestore

import (
	"encoding/json"
	"fmt"
)

// Migration rewrites a JSON-encoded GameState from one schema version to the
// next registered one
type Migration func(state json.RawMessage) (json.RawMessage, error)

// Migrations is a registry of schema steps keyed by (from, to)
type Migrations struct {
	steps map[[2]int]Migration
}

// NewMigrations creates an empty registry
func NewMigrations() *Migrations {
	return &Migrations{steps: make(map[[2]int]Migration)}
}

// Register adds the step from -> to
func (m *Migrations) Register(from, to int, fn Migration) *Migrations {
	m.steps[[2]int{from, to}] = fn
	return m
}

// Path returns the steps leading from -> to. At every version a direct step
// to the target wins over a single-version step.
func (m *Migrations) Path(from, to int) ([]Migration, bool) {
	if from == to {
		return nil, true
	}
	if from > to {
		return nil, false
	}
	var path []Migration
	for cur := from; cur != to; {
		if fn, ok := m.steps[[2]int{cur, to}]; ok {
			return append(path, fn), true
		}
		fn, ok := m.steps[[2]int{cur, cur + 1}]
		if !ok {
			return nil, false
		}
		path = append(path, fn)
		cur++
	}
	return path, true
}

// DefaultMigrations returns the steps shipped with the game
func DefaultMigrations() *Migrations {
	return NewMigrations().Register(1, 2, migrateV1toV2)
}

// migrateV1toV2 seeds total_earned from balance; v1 did not track lifetime
// earnings.
func migrateV1toV2(state json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(state, &fields); err != nil {
		return nil, fmt.Errorf("decode v1 state: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	if _, ok := fields["total_earned"]; !ok {
		balance, ok := fields["balance"]
		if !ok {
			balance = json.RawMessage("0")
		}
		fields["total_earned"] = balance
	}
	fields["version"] = json.RawMessage("2")
	return json.Marshal(fields)
}
