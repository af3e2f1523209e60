package storage

import (
	"context"
	"errors"
	"fmt"

	"duque/internal/docstore"
	st "duque/internal/storagetypes"
)

// historyCounter mirrors the persisted history row count for the duration of
// one mutation.
type historyCounter struct {
	metaID string
	count  int
	dirty  bool
}

// historyRecorder appends audit entries within one transaction and keeps the
// history table at or below MaxHistoryEntries. The counter is read at most
// once and written at most once per transaction.
type historyRecorder struct {
	s       *Storage
	counter *historyCounter
}

// withHistory runs fn in a transaction with a fresh recorder and persists the
// counter before committing.
func (s *Storage) withHistory(ctx context.Context, fn func(ctx context.Context, rec *historyRecorder) error) error {
	return s.ds.RunInTx(ctx, func(ctx context.Context) error {
		rec := &historyRecorder{s: s}
		if err := fn(ctx, rec); err != nil {
			return err
		}
		return rec.persist(ctx)
	})
}

func metaQuery() docstore.Query {
	return docstore.Query{
		Collection: collAppMeta,
		Where:      map[string]any{"key": historyCountKey},
	}
}

func (r *historyRecorder) ensureCounter(ctx context.Context) (*historyCounter, error) {
	if r.counter != nil {
		return r.counter, nil
	}

	meta, err := findOne[st.AppMeta](ctx, r.s.ds, metaQuery())
	if err != nil {
		return nil, err
	}
	if meta != nil {
		r.counter = &historyCounter{metaID: meta.ID, count: max(meta.CommandHistoryCount, 0)}
		return r.counter, nil
	}

	n, err := r.s.ds.Count(ctx, collCommandHistory)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	id, err := r.s.ds.Insert(ctx, collAppMeta, st.AppMeta{
		Key:                 historyCountKey,
		CommandHistoryCount: n,
		UpdatedAt:           r.s.nowMs(),
	})
	if err != nil {
		return nil, fmt.Errorf("insert history counter: %w", err)
	}
	r.s.logWrite(ctx, collAppMeta, "insert", "id", id, "key", historyCountKey, "count", n)

	r.counter = &historyCounter{metaID: id, count: n}
	return r.counter, nil
}

// insertCapped appends entry and evicts the globally oldest entries once the
// table exceeds MaxHistoryEntries.
func (r *historyRecorder) insertCapped(ctx context.Context, entry st.CommandHistoryEntry) (string, error) {
	c, err := r.ensureCounter(ctx)
	if err != nil {
		return "", err
	}

	id, err := r.s.ds.Insert(ctx, collCommandHistory, entry)
	if err != nil {
		return "", fmt.Errorf("insert history: %w", err)
	}
	r.s.logWrite(ctx, collCommandHistory, "insert",
		"id", id, "channel_id", entry.ChannelID, "trigger", entry.Trigger,
		"action", entry.Action, "actor_id", entry.ActorUserID)

	c.count++
	c.dirty = true

	limit := r.s.limits.MaxHistoryEntries
	if c.count <= limit {
		return id, nil
	}

	oldest, err := findAll[st.CommandHistoryEntry](ctx, r.s.ds, docstore.Query{
		Collection: collCommandHistory,
		OrderBy:    "timestamp",
		Limit:      c.count - limit,
	})
	if err != nil {
		return "", err
	}

	removed := 0
	for _, e := range oldest {
		if err := r.s.ds.Delete(ctx, collCommandHistory, e.ID); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				continue
			}
			return "", fmt.Errorf("evict history: %w", err)
		}
		removed++
		r.s.logWrite(ctx, collCommandHistory, "delete",
			"id", e.ID, "channel_id", e.ChannelID, "trigger", e.Trigger,
			"reason", "retention_cap", "max_entries", limit)
	}
	c.count = max(c.count-removed, 0)
	return id, nil
}

func (r *historyRecorder) persist(ctx context.Context) error {
	if r.counter == nil || !r.counter.dirty {
		return nil
	}
	if err := r.s.ds.Patch(ctx, collAppMeta, r.counter.metaID, map[string]any{
		"commandHistoryCount": r.counter.count,
		"updatedAt":           r.s.nowMs(),
	}); err != nil {
		return fmt.Errorf("persist history counter: %w", err)
	}
	r.s.logWrite(ctx, collAppMeta, "patch", "id", r.counter.metaID, "key", historyCountKey, "count", r.counter.count)
	r.counter.dirty = false
	return nil
}

// GetHistory returns the channel's newest entries first. limit <= 0 uses HistoryLimit.
func (s *Storage) GetHistory(ctx context.Context, channelID string, limit int) ([]st.CommandHistoryEntry, error) {
	if limit <= 0 {
		limit = s.limits.HistoryLimit
	}
	return findAll[st.CommandHistoryEntry](ctx, s.ds, docstore.Query{
		Collection: collCommandHistory,
		Where:      map[string]any{"channelId": channelID},
		OrderBy:    "timestamp",
		Desc:       true,
		Limit:      limit,
	})
}

// GetHistoryForTrigger returns every entry for one trigger, newest first.
func (s *Storage) GetHistoryForTrigger(ctx context.Context, channelID, trigger string) ([]st.CommandHistoryEntry, error) {
	return findAll[st.CommandHistoryEntry](ctx, s.ds, docstore.Query{
		Collection: collCommandHistory,
		Where:      map[string]any{"channelId": channelID, "trigger": NormalizeTrigger(trigger)},
		OrderBy:    "timestamp",
		Desc:       true,
	})
}

// HistoryCount returns the persisted counter value, or -1 when the counter
// has not been created yet.
func (s *Storage) HistoryCount(ctx context.Context) (int, error) {
	meta, err := findOne[st.AppMeta](ctx, s.ds, metaQuery())
	if err != nil {
		return 0, err
	}
	if meta == nil {
		return -1, nil
	}
	return meta.CommandHistoryCount, nil
}

// RecountHistory resets the counter to the true number of history rows and
// returns it. Concurrent mutations can make the counter drift; this repairs it.
func (s *Storage) RecountHistory(ctx context.Context) (int, error) {
	var n int
	err := s.ds.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.ds.Count(ctx, collCommandHistory)
		if err != nil {
			return fmt.Errorf("count history: %w", err)
		}

		meta, err := findOne[st.AppMeta](ctx, s.ds, metaQuery())
		if err != nil {
			return err
		}
		if meta == nil {
			id, err := s.ds.Insert(ctx, collAppMeta, st.AppMeta{
				Key:                 historyCountKey,
				CommandHistoryCount: n,
				UpdatedAt:           s.nowMs(),
			})
			if err != nil {
				return fmt.Errorf("insert history counter: %w", err)
			}
			s.logWrite(ctx, collAppMeta, "insert", "id", id, "key", historyCountKey, "count", n)
			return nil
		}

		if err := s.ds.Patch(ctx, collAppMeta, meta.ID, map[string]any{
			"commandHistoryCount": n,
			"updatedAt":           s.nowMs(),
		}); err != nil {
			return fmt.Errorf("patch history counter: %w", err)
		}
		s.logWrite(ctx, collAppMeta, "patch", "id", meta.ID, "key", historyCountKey, "count", n, "previous", meta.CommandHistoryCount)
		return nil
	})
	return n, err
}
