// HashQuest: an idle proof-of-work mining game
// Copyright (C) 2026  Guillermo Perry
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"hashquest/internal/app"
	"hashquest/internal/cli/ui"
	"hashquest/internal/client"
	"hashquest/internal/config"
	"hashquest/internal/logging"
)

// CLI configuration flags
var (
	remote     = flag.String("remote", "", "drive a hashquest-host at this address instead of a local game")
	dataDir    = flag.String("data-dir", "", "save directory (overrides HASHQUEST_DATA_DIR)")
	backend    = flag.String("backend", "", "save backend: bolt, sqlite or memory")
	hashMethod = flag.String("hash", "", "hash oracle: sha256, sha256d, sha3-256 or blake2b-256")
	tickRate   = flag.Float64("tick-rate", 0, "mining ticks per second")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	// The terminal belongs to the UI, so logs go to a rotated file
	logger, err := logging.NewLogger(cfg.LoggingConfig(filepath.Join(cfg.DataDir, "logs", "hashquest.log")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("%v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config) {
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *backend != "" {
		cfg.SaveBackend = *backend
	}
	if *hashMethod != "" {
		cfg.HashMethod = *hashMethod
	}
	if *tickRate > 0 {
		cfg.TickRate = *tickRate
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := context.Background()

	var ctrl ui.Controller
	var shutdown func() error

	if *remote != "" {
		c := client.NewAPIClient(*remote)
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		health, err := c.GetHealth(healthCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("hashquest-host at %s is not reachable: %w", *remote, err)
		}
		logger.Info("Connected to %s (engine %s, oracle %s)", *remote, health.Engine, health.Oracle)
		ctrl = c
		shutdown = func() error { return nil }
	} else {
		g, err := app.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		ctrl = ui.Local{Game: g}
		shutdown = func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return g.Shutdown(shutdownCtx)
		}
	}

	model := ui.NewModel(ctrl)
	model.Remote = *remote
	p := tea.NewProgram(model, tea.WithAltScreen())

	// A signal quits the UI; the deferred shutdown below saves progress
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(ui.AppendLogMsg{Log: "Received shutdown signal."})
			p.Quit()
		}
	}()

	_, runErr := p.Run()
	if err := shutdown(); err != nil {
		logger.Error("Shutdown: %v", err)
		if runErr == nil {
			runErr = err
		}
	}
	logger.Info("HashQuest exited")
	return runErr
}
