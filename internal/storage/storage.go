// Package storage implements the bot's persistence operations on top of a
// docstore.Store: channel configuration, custom commands with their capped
// audit history, and the guild allow/deny list.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"duque/internal/config"
	"duque/internal/docstore"
)

const (
	collChannelConfigs = "channelConfigs"
	collCustomCommands = "customCommands"
	collCommandHistory = "commandHistory"
	collApprovedGuilds = "approvedGuilds"
	collAppMeta        = "appMeta"

	historyCountKey = "command_history_count"
)

// Limits are the tunables of the storage layer.
type Limits struct {
	// TriggerPrefix is used for channels without a configured prefix.
	TriggerPrefix string
	// HistoryLimit is the default page size of GetHistory.
	HistoryLimit int
	// MaxHistoryEntries caps the history table across all channels.
	MaxHistoryEntries int
	// BatchSize is how many commands RemoveAllByChannel deletes per call.
	BatchSize int
}

// DefaultLimits returns "!", 50, 1000 and 100.
func DefaultLimits() Limits {
	return Limits{
		TriggerPrefix:     "!",
		HistoryLimit:      50,
		MaxHistoryEntries: 1000,
		BatchSize:         100,
	}
}

// LimitsFromConfig fills zero values from DefaultLimits.
func LimitsFromConfig(c config.LimitsConfig) Limits {
	l := DefaultLimits()
	if c.TriggerPrefix != "" {
		l.TriggerPrefix = c.TriggerPrefix
	}
	if c.HistoryLimit > 0 {
		l.HistoryLimit = c.HistoryLimit
	}
	if c.MaxHistoryEntries > 0 {
		l.MaxHistoryEntries = c.MaxHistoryEntries
	}
	if c.BatchSize > 0 {
		l.BatchSize = c.BatchSize
	}
	return l
}

type Storage struct {
	ds     docstore.Store
	limits Limits
	log    *slog.Logger
	now    func() time.Time
}

type Option func(*Storage)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

func New(ds docstore.Store, limits Limits, log *slog.Logger, opts ...Option) *Storage {
	if log == nil {
		log = slog.Default()
	}
	s := &Storage{
		ds:     ds,
		limits: limits,
		log:    log.With("component", "storage"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

func (s *Storage) Limits() Limits { return s.limits }

func (s *Storage) nowMs() int64 { return s.now().UnixMilli() }

// logWrite records a document mutation at debug level.
func (s *Storage) logWrite(ctx context.Context, collection, op string, attrs ...any) {
	s.log.DebugContext(ctx, "db write", append([]any{"collection", collection, "op", op}, attrs...)...)
}

// NormalizeTrigger lowercases and trims a trigger.
func NormalizeTrigger(trigger string) string {
	return strings.ToLower(strings.TrimSpace(trigger))
}

type identified[T any] interface {
	*T
	SetID(string)
}

func decode[T any, PT identified[T]](doc docstore.Document) (*T, error) {
	v := new(T)
	if err := doc.Decode(v); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	PT(v).SetID(doc.ID)
	return v, nil
}

// findOne returns the first match of q or nil.
func findOne[T any, PT identified[T]](ctx context.Context, ds docstore.Store, q docstore.Query) (*T, error) {
	doc, ok, err := ds.First(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	if !ok {
		return nil, nil
	}
	return decode[T, PT](doc)
}

func findAll[T any, PT identified[T]](ctx context.Context, ds docstore.Store, q docstore.Query) ([]T, error) {
	docs, err := ds.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode[T, PT](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
