package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duque/internal/config"
	"duque/internal/docstore"
)

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Driver: config.DriverMemory}}
		ds, err := OpenStore(ctx, cfg, log)
		require.NoError(t, err)
		assert.IsType(t, &docstore.Memory{}, ds)
	})

	t.Run("json survives reopen", func(t *testing.T) {
		cfg := &config.Config{
			Storage: config.StorageConfig{Driver: config.DriverJSON, Path: filepath.Join(t.TempDir(), "data.json"), SyncWrites: true},
			Limits:  config.LimitsConfig{TriggerPrefix: "?", HistoryLimit: 5, MaxHistoryEntries: 10, BatchSize: 2},
		}
		s, err := Open(ctx, cfg, log)
		require.NoError(t, err)
		assert.Equal(t, "?", s.Limits().TriggerPrefix)
		_, err = s.AddCommand(ctx, "c1", "hi", "hello", "u1")
		require.NoError(t, err)
		require.NoError(t, s.Close())

		s, err = Open(ctx, cfg, log)
		require.NoError(t, err)
		defer s.Close()
		cmd, err := s.GetCommand(ctx, "c1", "hi")
		require.NoError(t, err)
		require.NotNil(t, cmd)
		assert.Equal(t, "hello", cmd.CurrentResponse)
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Driver: "mongo"}}
		_, err := Open(ctx, cfg, log)
		assert.ErrorContains(t, err, `unknown storage driver "mongo"`)
	})
}
