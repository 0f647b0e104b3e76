// Package app assembles a playable game from configuration. Both binaries
// share it so a local session and a hosted one see the same save.
package app

import (
	"context"
	"fmt"

	"hashquest/internal/config"
	"hashquest/internal/game"
	"hashquest/internal/logging"
	"hashquest/internal/savestore"
	"hashquest/pkg/hashing/factory"
)

// Open wires the save backend, the hash oracle and the game together. The
// returned game owns every resource it opened; release them with
// Game.Shutdown.
func Open(ctx context.Context, cfg *config.Config, log *logging.Logger) (*game.Game, error) {
	backend, err := savestore.OpenBackend(cfg.SaveBackend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open save backend: %w", err)
	}
	store := savestore.New(backend, cfg.StoreOptions(), log)

	methods := factory.NewHashMethodFactory(factory.ConfigFor(cfg.HashMethod))
	oracle, err := methods.Open(cfg.HashMethod)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("open hash oracle: %w", err)
	}
	log.Info("Hash oracle: %s", oracle.Name())

	g, err := game.New(ctx, store, oracle, cfg.GameOptions(), log)
	if err != nil {
		_ = oracle.Shutdown()
		_ = backend.Close()
		return nil, err
	}
	log.Info("Save backend: %s (slot %s) in %s", cfg.SaveBackend, cfg.SaveSlot, cfg.DataDir)
	return g, nil
}
