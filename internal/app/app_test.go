package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashquest/internal/config"
	"hashquest/internal/engine"
	"hashquest/internal/logging"
)

func testConfig(t *testing.T, vars ...string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(t.TempDir(), append([]string{"HASHQUEST_DATA_DIR=" + t.TempDir()}, vars...))
	require.NoError(t, err)
	return cfg
}

func TestOpenPersistsAcrossSessions(t *testing.T) {
	for _, backend := range []string{"bolt", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, "HASHQUEST_SAVE_BACKEND="+backend)
			ctx := context.Background()

			g, err := Open(ctx, cfg, logging.Nop())
			require.NoError(t, err)
			g.Start()
			for i := 0; i < 5; i++ {
				_, err := g.Tick()
				require.NoError(t, err)
			}
			_, err = g.Pause()
			require.NoError(t, err)
			before := g.Snapshot(0).State
			assert.NotZero(t, before.TotalAttempts)
			require.NoError(t, g.Shutdown(ctx))

			g, err = Open(ctx, cfg, logging.Nop())
			require.NoError(t, err)
			defer g.Shutdown(ctx)

			after := g.Snapshot(0)
			assert.Equal(t, before.Balance, after.State.Balance)
			assert.Equal(t, before.TotalAttempts, after.State.TotalAttempts)
			assert.Equal(t, before.Difficulty, after.State.Difficulty)
			assert.Equal(t, engine.Idle, after.Engine.State)
		})
	}
}

func TestOpenRejectsUnknownHashMethod(t *testing.T) {
	cfg := testConfig(t, "HASHQUEST_SAVE_BACKEND=memory", "HASHQUEST_HASH_METHOD=md4")
	_, err := Open(context.Background(), cfg, logging.Nop())
	assert.ErrorContains(t, err, "unknown hash method")
}
