// Package jsonfile persists a docstore.Memory engine into a JSON file through
// keshon/datastore. Each collection lives under its own datastore key and is
// replaced on every committed write; the datastore flushes to disk on its own
// autosave interval and on Close.
package jsonfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/keshon/datastore"

	"duque/internal/docstore"
)

const (
	keyPrefix = "docs:"
	metaKey   = "docstore"

	saveInterval     = time.Minute
	syncSaveInterval = time.Second
)

// Options configure Open.
type Options struct {
	Path string
	// SyncWrites shortens the autosave interval so committed writes reach the
	// file within a second. Close always flushes.
	SyncWrites bool
}

type collectionState struct {
	Records []docstore.Record `json:"records"`
}

type metaState struct {
	Seq int64 `json:"seq"`
}

// Store is a docstore.Store backed by a JSON file.
type Store struct {
	*docstore.Memory

	ds     *datastore.DataStore
	cancel context.CancelFunc
	log    *slog.Logger

	mu    sync.Mutex
	known map[string]struct{}
}

// Open loads path (creating it and its directory if needed) and returns a
// ready store. The autosave loop runs until ctx is done or Close is called.
func Open(ctx context.Context, opts Options, log *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	interval := saveInterval
	if opts.SyncWrites {
		interval = syncSaveInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	ds, err := datastore.New(ctx, opts.Path,
		datastore.WithSaveInterval(interval),
		datastore.WithLogger(log.With("component", "datastore")),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open datastore %s: %w", opts.Path, err)
	}

	s := &Store{
		ds:     ds,
		cancel: cancel,
		log:    log.With("component", "jsonfile"),
		known:  make(map[string]struct{}),
	}

	dump, err := s.load()
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.Memory = docstore.NewMemory(docstore.WithCommitHook(s.persist))
	s.Memory.Load(dump)

	total := 0
	for _, recs := range dump.Collections {
		total += len(recs)
	}
	s.log.Info("Document file loaded", "path", opts.Path, "collections", len(dump.Collections), "documents", total)
	return s, nil
}

func (s *Store) load() (docstore.Dump, error) {
	dump := docstore.Dump{Collections: make(map[string][]docstore.Record)}

	var meta metaState
	if _, err := s.ds.Get(metaKey, &meta); err != nil {
		return dump, err
	}
	dump.Seq = meta.Seq

	for _, key := range s.ds.Keys() {
		collection, ok := strings.CutPrefix(key, keyPrefix)
		if !ok {
			continue
		}
		var st collectionState
		if _, err := s.ds.Get(key, &st); err != nil {
			return dump, err
		}
		dump.Collections[collection] = st.Records
		s.known[collection] = struct{}{}
	}
	return dump, nil
}

func (s *Store) persist(d docstore.Dump) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[string]struct{}, len(d.Collections))
	for name, recs := range d.Collections {
		if err := s.ds.Set(keyPrefix+name, &collectionState{Records: recs}); err != nil {
			return err
		}
		current[name] = struct{}{}
	}
	for name := range s.known {
		if _, ok := current[name]; ok {
			continue
		}
		if err := s.ds.Delete(keyPrefix + name); err != nil {
			return err
		}
	}
	s.known = current

	return s.ds.Set(metaKey, &metaState{Seq: d.Seq})
}

// Close stops the autosave loop and writes the file one last time.
func (s *Store) Close() error {
	s.cancel()
	return s.ds.Close()
}
