package ui

import (
	"context"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashquest/internal/api"
	"hashquest/internal/client"
	"hashquest/internal/game"
	"hashquest/internal/savestore"
	"hashquest/pkg/hashing/factory"
)

func newRemoteController(t *testing.T) *client.APIClient {
	t.Helper()
	opts := game.DefaultOptions()
	opts.Engine.Manual = true

	oracle, err := factory.NewHashMethodFactory(nil).Open("sha256")
	require.NoError(t, err)
	store := savestore.New(savestore.NewMemoryBackend(), savestore.DefaultOptions(), nil)
	g, err := game.New(context.Background(), store, oracle, opts, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewServer(g, nil).Router())
	t.Cleanup(func() {
		srv.Close()
		_ = g.Shutdown(context.Background())
	})
	return client.NewAPIClient(srv.URL)
}

func TestRemoteRefreshOnWideTerminal(t *testing.T) {
	m := NewModel(newRemoteController(t))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 300, Height: 40})
	m = next.(Model)
	require.Greater(t, m.chartWidth(), api.MaxSeriesBuckets)

	msg := m.refresh()()
	snap, ok := msg.(snapshotMsg)
	require.True(t, ok)
	require.NoError(t, snap.err)
	assert.Len(t, snap.snap.Series, api.MaxSeriesBuckets)
	assert.NotEmpty(t, snap.upgrades)

	// the chart pads the shorter series to the full width
	next, _ = m.Update(snap)
	assert.Contains(t, next.(Model).View(), "Hash rate")
}
