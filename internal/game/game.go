// Package game is the command surface used by the terminal UI and the HTTP
// API. It wires the engine, the ledger, the statistics window and the save
// store together.
package game

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"hashquest/internal/difficulty"
	"hashquest/internal/engine"
	"hashquest/internal/gameerr"
	"hashquest/internal/ledger"
	"hashquest/internal/logging"
	"hashquest/internal/savestore"
	"hashquest/internal/stats"
	"hashquest/pkg/hashing/core"
)

// Options configure a Game
type Options struct {
	Engine      engine.Config
	Difficulty  difficulty.Config
	Catalog     *ledger.Catalog
	StatsWindow int
}

// DefaultOptions returns the game defaults
func DefaultOptions() Options {
	return Options{
		Engine:      engine.DefaultConfig(),
		Difficulty:  difficulty.DefaultConfig(),
		Catalog:     ledger.DefaultCatalog(),
		StatsWindow: stats.DefaultCapacity,
	}
}

// Game is one local player's session
type Game struct {
	log    *logging.Logger
	store  *savestore.Store
	oracle core.HashMethod
	model  *difficulty.Model
	ledger *ledger.Ledger
	stats  *stats.Aggregator
	engine *engine.Engine

	// serializes commands that replace the whole state
	cmdMu sync.Mutex
}

// New loads the saved state and builds an idle game around it. The oracle
// must already be initialized.
func New(ctx context.Context, store *savestore.Store, oracle core.HashMethod, opts Options, log *logging.Logger) (*Game, error) {
	if log == nil {
		log = logging.Nop()
	}
	if opts.Catalog == nil {
		opts.Catalog = ledger.DefaultCatalog()
	}
	model, err := difficulty.NewModel(opts.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("difficulty model: %w", err)
	}

	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load save: %w", err)
	}

	g := &Game{
		log:    log,
		store:  store,
		oracle: oracle,
		model:  model,
		ledger: ledger.New(state, opts.Catalog, model),
		stats:  stats.NewAggregator(opts.StatsWindow),
	}
	g.engine = engine.New(opts.Engine, g.ledger, g.stats, oracle, log, engine.Hooks{
		OnTick:  g.onTick,
		OnFault: g.onFault,
	})

	loaded := g.ledger.State()
	log.Info("Loaded slot %q: level %d, balance %d, difficulty %d, %d upgrades",
		store.Slot(), loaded.Level(), loaded.Balance, loaded.Difficulty, len(loaded.UnlockedUpgrades))
	return g, nil
}

func (g *Game) onTick(engine.TickReport) {
	g.store.Schedule(g.ledger.State())
}

func (g *Game) onFault(err error) {
	g.log.Error("Mining halted: %v", err)
	g.flush("fault")
}

func (g *Game) flush(reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g.store.Schedule(g.ledger.State())
	if err := g.store.Flush(ctx); err != nil {
		g.log.Warn("Save on %s failed: %v", reason, err)
		return err
	}
	return nil
}

// Start begins or resumes mining
func (g *Game) Start() engine.Status {
	g.engine.Start()
	return g.engine.Status()
}

// Stop ends the session and saves
func (g *Game) Stop() (engine.Status, error) {
	g.engine.Stop()
	err := g.flush("stop")
	return g.engine.Status(), err
}

// Pause suspends mining and saves
func (g *Game) Pause() (engine.Status, error) {
	g.engine.Pause()
	err := g.flush("pause")
	return g.engine.Status(), err
}

// Resume continues a paused session
func (g *Game) Resume() engine.Status {
	g.engine.Resume()
	return g.engine.Status()
}

// SetTickRate changes ticks per second and returns the applied, clamped rate
func (g *Game) SetTickRate(rate float64) float64 {
	applied := g.engine.SetTickRate(rate)
	g.log.Info("Tick rate set to %.2f/s", applied)
	return applied
}

// Tick runs one tick now; used when the engine is in manual mode
func (g *Game) Tick() (engine.TickReport, error) {
	return g.engine.Tick()
}

// PurchaseUpgrade buys an upgrade from the catalog
func (g *Game) PurchaseUpgrade(id string) (ledger.Upgrade, error) {
	u, err := g.ledger.PurchaseUpgrade(strings.TrimSpace(id))
	if err != nil {
		return ledger.Upgrade{}, err
	}
	g.log.Info("Purchased %s for %d", u.Name, u.Cost)
	g.store.Schedule(g.ledger.State())
	return u, nil
}

// ResetGame stops mining and overwrites the stored record with new-game
// defaults. Calling it twice leaves the same state.
func (g *Game) ResetGame(ctx context.Context) (ledger.GameState, error) {
	g.cmdMu.Lock()
	defer g.cmdMu.Unlock()

	g.engine.Stop()
	state := g.ledger.Reset()
	g.stats.Reset()
	if err := g.store.Save(ctx, state); err != nil {
		return state, err
	}
	g.log.Info("Game reset")
	return state, nil
}

// ExportSave returns the current state as a base64 record string
func (g *Game) ExportSave() (string, error) {
	data, err := g.store.Encode(g.ledger.State())
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ImportSave replaces the current state with an exported record. Mining is
// stopped first; older schema versions are migrated.
func (g *Game) ImportSave(ctx context.Context, encoded string) (ledger.GameState, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return ledger.GameState{}, gameerr.Wrap(gameerr.ErrInvalidSave, err, "not base64")
	}
	state, err := g.store.Decode(data)
	if err != nil {
		return ledger.GameState{}, err
	}

	g.cmdMu.Lock()
	defer g.cmdMu.Unlock()

	g.engine.Stop()
	if err := g.ledger.Replace(state); err != nil {
		return ledger.GameState{}, err
	}
	g.stats.Reset()
	state = g.ledger.State()
	if err := g.store.Save(ctx, state); err != nil {
		return state, err
	}
	g.log.Info("Imported save: level %d, balance %d", state.Level(), state.Balance)
	return state, nil
}

// Shutdown stops mining, writes the final state and closes the store
func (g *Game) Shutdown(ctx context.Context) error {
	g.engine.Stop()
	g.store.Schedule(g.ledger.State())
	err := g.store.Close(ctx)
	if shutdownErr := g.oracle.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}
