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
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"hashquest/internal/api"
	"hashquest/internal/app"
	"hashquest/internal/config"
	"hashquest/internal/game"
	"hashquest/internal/logging"
)

// Host configuration flags
var (
	port      = flag.Int("port", 0, "HTTP API server port (overrides HASHQUEST_API_PORT)")
	grpcPort  = flag.Int("grpc-port", -1, "gRPC health port, 0 disables (overrides HASHQUEST_GRPC_PORT)")
	host      = flag.String("host", "", "HTTP API listen host (overrides HASHQUEST_API_HOST)")
	dataDir   = flag.String("data-dir", "", "save directory (overrides HASHQUEST_DATA_DIR)")
	autoStart = flag.Bool("autostart", false, "start mining as soon as the host is up")
)

const healthInterval = 2 * time.Second

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, *autoStart)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config) {
	if *port > 0 {
		cfg.APIPort = *port
	}
	if *grpcPort >= 0 {
		cfg.GRPCPort = *grpcPort
	}
	if *host != "" {
		cfg.APIHost = *host
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
}

// run hosts the game until ctx is cancelled. Every exit path returns through
// here so the logger is closed and its last lines reach disk.
func run(ctx context.Context, cfg *config.Config, autoStart bool) error {
	logger, err := logging.NewLogger(cfg.LoggingConfig("stdout"))
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.Info("HashQuest host starting...")

	g, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open game: %v", err)
		return err
	}
	if autoStart {
		g.Start()
		logger.Info("Mining started")
	}

	if err := serve(ctx, cfg, g, logger); err != nil {
		logger.Error("Host error: %v", err)
		return err
	}
	return nil
}

// serve runs the HTTP API and, when enabled, the gRPC health service until
// ctx is cancelled, then shuts the servers and the game down in that order so
// the final state reaches disk.
func serve(ctx context.Context, cfg *config.Config, g *game.Game, logger *logging.Logger) error {
	srv := &http.Server{
		Addr:              cfg.APIAddr(),
		Handler:           api.NewServer(g, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var grpcServer *grpc.Server
	var grpcListener net.Listener
	health := api.NewHealthService(g)
	if addr := cfg.GRPCAddr(); addr != "" {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			_ = g.Shutdown(context.Background())
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcListener = listener
		grpcServer = grpc.NewServer()
		health.Register(grpcServer)
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("API server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if grpcServer != nil {
		group.Go(func() error {
			logger.Info("gRPC health service listening on %s", grpcListener.Addr())
			return grpcServer.Serve(grpcListener)
		})
		group.Go(func() error {
			health.Run(gctx, healthInterval)
			return nil
		})
	}
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var errs []error
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := g.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("game shutdown: %w", err))
		}
		logger.Info("Server stopped")
		return errors.Join(errs...)
	})
	return group.Wait()
}
