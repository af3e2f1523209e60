package jsonfile_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/keshon/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duque/internal/docstore"
	"duque/internal/docstore/jsonfile"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "store.json")

	s, err := jsonfile.Open(ctx, jsonfile.Options{Path: path, SyncWrites: true}, discard())
	require.NoError(t, err)

	err = s.RunInTx(ctx, func(ctx context.Context) error {
		for _, trigger := range []string{"hi", "bye"} {
			if _, err := s.Insert(ctx, "customCommands", map[string]any{"channelId": "c1", "trigger": trigger}); err != nil {
				return err
			}
		}
		_, err := s.Insert(ctx, "appMeta", map[string]any{"key": "k"})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := jsonfile.Open(ctx, jsonfile.Options{Path: path}, discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	docs, err := reopened.List(ctx, docstore.Query{Collection: "customCommands", Where: map[string]any{"channelId": "c1"}})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var first struct {
		Trigger string `json:"trigger"`
	}
	require.NoError(t, docs[0].Decode(&first))
	assert.Equal(t, "hi", first.Trigger)

	id, err := reopened.Insert(ctx, "customCommands", map[string]any{"channelId": "c1", "trigger": "new"})
	require.NoError(t, err)
	doc, ok, err := reopened.Get(ctx, "customCommands", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(4), doc.Seq, "sequence continues after reload")
}

func TestStore_DroppedCollectionIsForgotten(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := jsonfile.Open(ctx, jsonfile.Options{Path: path, SyncWrites: true}, discard())
	require.NoError(t, err)

	id, err := s.Insert(ctx, "approvedGuilds", map[string]any{"guildId": "g1"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "approvedGuilds", id))
	require.NoError(t, s.Close())

	reopened, err := jsonfile.Open(ctx, jsonfile.Options{Path: path}, discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	n, err := reopened.Count(ctx, "approvedGuilds")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_CloseAfterContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := jsonfile.Open(ctx, jsonfile.Options{Path: path}, discard())
	require.NoError(t, err)
	_, err = s.Insert(ctx, "appMeta", map[string]any{"key": "k"})
	require.NoError(t, err)

	cancel()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Insert(context.Background(), "appMeta", map[string]any{"key": "late"})
	assert.ErrorIs(t, err, datastore.ErrClosed)

	reopened, err := jsonfile.Open(context.Background(), jsonfile.Options{Path: path}, discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	n, err := reopened.Count(context.Background(), "appMeta")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
