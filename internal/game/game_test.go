package game

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashquest/internal/engine"
	"hashquest/internal/gameerr"
	"hashquest/internal/ledger"
	"hashquest/internal/savestore"
	"hashquest/pkg/hashing/factory"
)

func newTestGame(t *testing.T, backend savestore.Backend) *Game {
	t.Helper()
	opts := DefaultOptions()
	opts.Engine.Manual = true
	opts.Engine.AttemptsPerTick = 1
	opts.Engine.RetargetInterval = 0

	storeOpts := savestore.DefaultOptions()
	storeOpts.Debounce = time.Hour
	storeOpts.MaxDelay = time.Hour
	storeOpts.RetryInitial = time.Millisecond
	store := savestore.New(backend, storeOpts, nil)

	oracle, err := factory.NewHashMethodFactory(nil).Open("sha256")
	require.NoError(t, err)

	g, err := New(context.Background(), store, oracle, opts, nil)
	require.NoError(t, err)
	return g
}

func mine(t *testing.T, g *Game, ticks int) {
	t.Helper()
	g.Start()
	for i := 0; i < ticks; i++ {
		_, err := g.Tick()
		require.NoError(t, err)
	}
}

func TestFirstTickCreditsReward(t *testing.T) {
	g := newTestGame(t, savestore.NewMemoryBackend())
	mine(t, g, 1)

	snap := g.Snapshot(0)
	assert.Equal(t, uint64(1), snap.State.Balance)
	assert.Equal(t, uint64(1), snap.State.TotalSuccesses)
	assert.Equal(t, 1, snap.Stats.Samples)
	assert.Equal(t, engine.Running, snap.Engine.State)
	assert.True(t, snap.SavePending)
}

func TestPauseFlushesSave(t *testing.T) {
	backend := savestore.NewMemoryBackend()
	g := newTestGame(t, backend)
	mine(t, g, 3)

	status, err := g.Pause()
	require.NoError(t, err)
	assert.Equal(t, engine.Paused, status.State)
	assert.Equal(t, 1, backend.Puts())

	reloaded := newTestGame(t, backend)
	assert.Equal(t, g.Snapshot(0).State, reloaded.Snapshot(0).State)
	assert.Equal(t, engine.Idle, reloaded.Snapshot(0).Engine.State, "sessions never survive a load")
}

func TestPurchaseFlow(t *testing.T) {
	g := newTestGame(t, savestore.NewMemoryBackend())

	_, err := g.PurchaseUpgrade("cpu-overclock")
	assert.True(t, errors.Is(err, gameerr.ErrInsufficientFunds))

	mine(t, g, 50)
	require.GreaterOrEqual(t, g.Snapshot(0).State.Balance, uint64(50))

	u, err := g.PurchaseUpgrade("cpu-overclock")
	require.NoError(t, err)
	assert.Equal(t, "cpu-overclock", u.ID)

	_, err = g.PurchaseUpgrade("cpu-overclock")
	assert.True(t, errors.Is(err, gameerr.ErrAlreadyUnlocked))

	var owned int
	for _, v := range g.Upgrades() {
		if v.Owned {
			owned++
			assert.False(t, v.Affordable)
		}
	}
	assert.Equal(t, 1, owned)
	assert.Equal(t, uint64(1), g.Snapshot(0).HashPower)
	assert.Equal(t, uint64(2), g.Snapshot(0).Engine.AttemptsPerTick)
}

func TestResetGameIsIdempotent(t *testing.T) {
	backend := savestore.NewMemoryBackend()
	g := newTestGame(t, backend)
	mine(t, g, 10)

	first, err := g.ResetGame(context.Background())
	require.NoError(t, err)
	second, err := g.ResetGame(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, ledger.NewGameState(0), first)
	assert.Equal(t, engine.Idle, g.Snapshot(0).Engine.State)
	assert.Zero(t, g.Snapshot(0).Stats.Samples)

	reloaded := newTestGame(t, backend)
	assert.Equal(t, first, reloaded.Snapshot(0).State, "reset overwrites the stored record")
}

func TestExportImportRoundTrip(t *testing.T) {
	g := newTestGame(t, savestore.NewMemoryBackend())
	mine(t, g, 20)
	want := g.Snapshot(0).State

	exported, err := g.ExportSave()
	require.NoError(t, err)

	other := newTestGame(t, savestore.NewMemoryBackend())
	got, err := other.ImportSave(context.Background(), exported)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, other.Snapshot(0).State)
}

func TestImportRejectsGarbage(t *testing.T) {
	g := newTestGame(t, savestore.NewMemoryBackend())
	mine(t, g, 2)
	before := g.Snapshot(0).State

	_, err := g.ImportSave(context.Background(), "%%% not base64")
	assert.Equal(t, gameerr.CodeInvalidSave, gameerr.CodeOf(err))

	future := base64.StdEncoding.EncodeToString([]byte(`{"version":7,"state":{"version":7}}`))
	_, err = g.ImportSave(context.Background(), future)
	assert.Equal(t, gameerr.CodeUnsupportedSchemaVersion, gameerr.CodeOf(err))

	assert.Equal(t, before, g.Snapshot(0).State)
	assert.Equal(t, engine.Running, g.Snapshot(0).Engine.State, "a rejected import does not stop mining")
}

func TestSummaryMentionsProgress(t *testing.T) {
	g := newTestGame(t, savestore.NewMemoryBackend())
	mine(t, g, 1)

	summary := g.Summary()
	assert.Contains(t, summary, "Level:")
	assert.Contains(t, summary, "Balance:      1\n")
	assert.Contains(t, summary, "Upgrades:     0/7")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567", Amount(1234567))
	assert.Equal(t, "18,446,744,073,709,551,615", Amount(^uint64(0)))
	assert.Equal(t, "1.5 kH/s", HashRate(1500))
}

func TestShutdownWritesFinalState(t *testing.T) {
	backend := savestore.NewMemoryBackend()
	g := newTestGame(t, backend)
	mine(t, g, 5)
	want := g.Snapshot(0).State

	require.NoError(t, g.Shutdown(context.Background()))

	reloaded := newTestGame(t, backend)
	assert.Equal(t, want, reloaded.Snapshot(0).State)
}

func TestSnapshotSeries(t *testing.T) {
	g := newTestGame(t, savestore.NewMemoryBackend())
	assert.Len(t, g.Snapshot(12).Series, 12)
	assert.Nil(t, g.Snapshot(0).Series)
}
