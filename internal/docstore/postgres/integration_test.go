//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"duque/internal/config"
	"duque/internal/docstore"
	"duque/internal/docstore/postgres"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// setupStore starts a shared PostgreSQL container once per test run and
// returns a migrated store connected to it.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	once.Do(func() {
		sharedDSN, initErr = startContainer()
	})
	if initErr != nil {
		t.Fatalf("failed to start postgres: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := postgres.Open(ctx, config.DatabaseConfig{
		DSN:             sharedDSN,
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func startContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "duque",
			"POSTGRES_PASSWORD": "duque",
			"POSTGRES_DB":       "duque",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("get mapped port: %w", err)
	}

	return fmt.Sprintf("postgres://duque:duque@%s:%s/duque?sslmode=disable", host, port.Port()), nil
}

func TestIntegration_ArrayOpsAndOrdering(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	coll := fmt.Sprintf("it_%d", time.Now().UnixNano())

	id, err := s.Insert(ctx, coll, map[string]any{"channelId": "c1", "editorRoleIds": []string{}})
	require.NoError(t, err)

	added, err := s.AddToSet(ctx, coll, id, "editorRoleIds", "r1", map[string]any{"updatedAt": 2})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddToSet(ctx, coll, id, "editorRoleIds", "r1", map[string]any{"updatedAt": 3})
	require.NoError(t, err)
	assert.False(t, added)

	pulled, err := s.Pull(ctx, coll, id, "editorRoleIds", "r1", nil)
	require.NoError(t, err)
	assert.True(t, pulled)

	doc, ok, err := s.Get(ctx, coll, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"channelId":"c1","editorRoleIds":[],"updatedAt":2}`, string(doc.Body))

	for _, ts := range []int64{300, 100, 100, 200} {
		_, err := s.Insert(ctx, coll, map[string]any{"timestamp": ts})
		require.NoError(t, err)
	}
	docs, err := s.List(ctx, docstore.Query{Collection: coll, Where: map[string]any{"timestamp": 100}, OrderBy: "timestamp"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Less(t, docs[0].Seq, docs[1].Seq)

	n, err := s.Count(ctx, coll)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestIntegration_TxRollback(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	coll := fmt.Sprintf("it_tx_%d", time.Now().UnixNano())

	err := s.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.Insert(ctx, coll, map[string]any{"n": 1}); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	n, err := s.Count(ctx, coll)
	require.NoError(t, err)
	assert.Zero(t, n)
}
