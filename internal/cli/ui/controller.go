package ui

import (
	"context"

	"hashquest/internal/client"
	"hashquest/internal/game"
	"hashquest/internal/ledger"
)

// Controller is the command surface the UI drives. It is satisfied by Local
// for an in-process game and by client.APIClient for a remote host.
type Controller interface {
	Snapshot(ctx context.Context, buckets int) (game.Snapshot, error)
	Upgrades(ctx context.Context) ([]game.UpgradeView, error)
	Summary(ctx context.Context) (string, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	SetTickRate(ctx context.Context, rate float64) (float64, error)
	PurchaseUpgrade(ctx context.Context, id string) (ledger.Upgrade, error)
	ResetGame(ctx context.Context) error
	ExportSave(ctx context.Context) (string, error)
	ImportSave(ctx context.Context, data string) error
}

var (
	_ Controller = Local{}
	_ Controller = (*client.APIClient)(nil)
)

// Local adapts an in-process Game to Controller
type Local struct {
	Game *game.Game
}

func (l Local) Snapshot(_ context.Context, buckets int) (game.Snapshot, error) {
	return l.Game.Snapshot(buckets), nil
}

func (l Local) Upgrades(context.Context) ([]game.UpgradeView, error) {
	return l.Game.Upgrades(), nil
}

func (l Local) Summary(context.Context) (string, error) {
	return l.Game.Summary(), nil
}

func (l Local) Start(context.Context) error {
	l.Game.Start()
	return nil
}

func (l Local) Stop(context.Context) error {
	_, err := l.Game.Stop()
	return err
}

func (l Local) Pause(context.Context) error {
	_, err := l.Game.Pause()
	return err
}

func (l Local) Resume(context.Context) error {
	l.Game.Resume()
	return nil
}

func (l Local) SetTickRate(_ context.Context, rate float64) (float64, error) {
	return l.Game.SetTickRate(rate), nil
}

func (l Local) PurchaseUpgrade(_ context.Context, id string) (ledger.Upgrade, error) {
	return l.Game.PurchaseUpgrade(id)
}

func (l Local) ResetGame(ctx context.Context) error {
	_, err := l.Game.ResetGame(ctx)
	return err
}

func (l Local) ExportSave(context.Context) (string, error) {
	return l.Game.ExportSave()
}

func (l Local) ImportSave(ctx context.Context, data string) error {
	_, err := l.Game.ImportSave(ctx, data)
	return err
}
