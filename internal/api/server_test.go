package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashquest/internal/engine"
	"hashquest/internal/game"
	"hashquest/internal/gameerr"
	"hashquest/internal/ledger"
	"hashquest/internal/savestore"
	"hashquest/pkg/hashing/factory"
)

func newTestServer(t *testing.T) (*game.Game, http.Handler) {
	t.Helper()
	opts := game.DefaultOptions()
	opts.Engine.Manual = true
	opts.Engine.AttemptsPerTick = 1
	opts.Engine.RetargetInterval = 0

	storeOpts := savestore.DefaultOptions()
	storeOpts.Debounce = time.Hour
	storeOpts.MaxDelay = time.Hour
	store := savestore.New(savestore.NewMemoryBackend(), storeOpts, nil)

	oracle, err := factory.NewHashMethodFactory(nil).Open("")
	require.NoError(t, err)
	g, err := game.New(context.Background(), store, oracle, opts, nil)
	require.NoError(t, err)
	return g, NewServer(g, nil).Router()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "idle", health.Engine)
}

func TestSessionControl(t *testing.T) {
	g, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/v1/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engine.Running, decode[engine.Status](t, w).State)

	_, err := g.Tick()
	require.NoError(t, err)

	w = do(t, h, http.MethodPost, "/api/v1/pause", nil)
	assert.Equal(t, engine.Paused, decode[engine.Status](t, w).State)

	w = do(t, h, http.MethodPost, "/api/v1/resume", nil)
	assert.Equal(t, engine.Running, decode[engine.Status](t, w).State)

	w = do(t, h, http.MethodPost, "/api/v1/stop", nil)
	assert.Equal(t, engine.Idle, decode[engine.Status](t, w).State)

	w = do(t, h, http.MethodGet, "/api/v1/state?series=8", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[game.Snapshot](t, w)
	assert.Equal(t, uint64(1), snap.State.TotalAttempts)
	assert.Len(t, snap.Series, 8)

	w = do(t, h, http.MethodGet, "/api/v1/state?series=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTickRate(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/v1/tick-rate", TickRateRequest{Rate: 1e6})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engine.DefaultConfig().MaxTickRate, decode[TickRateResponse](t, w).Rate)

	w = do(t, h, http.MethodPost, "/api/v1/tick-rate", TickRateRequest{Rate: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPurchaseErrorMapping(t *testing.T) {
	g, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/v1/upgrades/cpu-overclock/purchase", nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, gameerr.CodeInsufficientFunds, decode[ErrorResponse](t, w).Code)

	w = do(t, h, http.MethodPost, "/api/v1/upgrades/flux-capacitor/purchase", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	g.Start()
	for i := 0; i < 50; i++ {
		_, err := g.Tick()
		require.NoError(t, err)
	}

	w = do(t, h, http.MethodPost, "/api/v1/upgrades/cpu-overclock/purchase", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[PurchaseResponse](t, w)
	assert.Equal(t, "cpu-overclock", resp.Upgrade.ID)
	assert.Equal(t, []string{"cpu-overclock"}, resp.State.UnlockedUpgrades)

	w = do(t, h, http.MethodPost, "/api/v1/upgrades/cpu-overclock/purchase", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/upgrades", nil)
	views := decode[[]game.UpgradeView](t, w)
	require.Len(t, views, 7)
	assert.True(t, views[0].Owned)
}

func TestSaveExportImportAndReset(t *testing.T) {
	g, h := newTestServer(t)
	g.Start()
	for i := 0; i < 5; i++ {
		_, err := g.Tick()
		require.NoError(t, err)
	}

	w := do(t, h, http.MethodGet, "/api/v1/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	exported := decode[SaveData](t, w)
	require.NotEmpty(t, exported.Data)

	w = do(t, h, http.MethodPost, "/api/v1/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ledger.NewGameState(0), decode[ledger.GameState](t, w))

	w = do(t, h, http.MethodPost, "/api/v1/save", exported)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(5), decode[ledger.GameState](t, w).Balance)

	w = do(t, h, http.MethodPost, "/api/v1/save", SaveData{Data: "!!!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, gameerr.CodeInvalidSave, decode[ErrorResponse](t, w).Code)

	w = do(t, h, http.MethodGet, "/api/v1/summary", nil)
	assert.Contains(t, decode[SummaryResponse](t, w).Summary, "Balance:      5")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(gameerr.ErrOracleUnavailable))
	assert.Equal(t, http.StatusBadRequest, StatusFor(gameerr.ErrUnsupportedSchemaVersion))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(gameerr.ErrStorageWriteFailed))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}
