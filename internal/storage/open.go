package storage

import (
	"context"
	"fmt"
	"log/slog"

	"duque/internal/config"
	"duque/internal/docstore"
	"duque/internal/docstore/jsonfile"
	"duque/internal/docstore/postgres"
)

// OpenStore opens the document engine selected by cfg.Storage.Driver.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (docstore.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Warn("Using the in-memory store, data is lost on exit")
		return docstore.NewMemory(), nil
	case config.DriverJSON:
		s, err := jsonfile.Open(ctx, jsonfile.Options{Path: cfg.Storage.Path, SyncWrites: cfg.Storage.SyncWrites}, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Open builds a Storage over the configured engine. Close releases the engine.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Storage, error) {
	ds, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	return New(ds, LimitsFromConfig(cfg.Limits), log), nil
}
