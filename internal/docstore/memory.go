package docstore

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Record is the in-memory form of a document. Bodies are never mutated in
// place; every write installs a fresh map, so snapshots and dumps may share them.
type Record struct {
	ID   string         `json:"id"`
	Seq  int64          `json:"seq"`
	Body map[string]any `json:"body"`
}

// Dump is a point-in-time copy of a Memory engine.
type Dump struct {
	Seq         int64               `json:"seq"`
	Collections map[string][]Record `json:"collections"`
}

// CommitHook receives the full state after every committed change.
type CommitHook func(Dump) error

type MemoryOption func(*Memory)

// WithCommitHook registers a hook called after each committed write. If the
// hook fails, the write is rolled back and the error returned.
func WithCommitHook(h CommitHook) MemoryOption {
	return func(m *Memory) { m.onCommit = h }
}

// WithIDGenerator overrides the document id generator.
func WithIDGenerator(fn func() string) MemoryOption {
	return func(m *Memory) { m.newID = fn }
}

// Memory is a Store held entirely in process memory. Transactions hold an
// exclusive lock for their whole duration and roll back by restoring a snapshot.
//
// Inside RunInTx, always pass the callback's context to the store: a call with
// an unrelated context would wait on the transaction's own lock.
type Memory struct {
	mu       sync.Mutex
	seq      int64
	cols     map[string][]Record
	onCommit CommitHook
	newID    func() string
}

var _ Store = (*Memory)(nil)

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		cols:  make(map[string][]Record),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type memTxKey struct{ m *Memory }

type memTx struct {
	dirty bool
}

func (m *Memory) txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{m}).(*memTx)
	return tx
}

func (m *Memory) read(ctx context.Context) func() {
	if m.txFrom(ctx) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) write(ctx context.Context, fn func() (bool, error)) error {
	if tx := m.txFrom(ctx); tx != nil {
		changed, err := fn()
		if changed {
			tx.dirty = true
		}
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var snap memSnapshot
	if m.onCommit != nil {
		snap = m.snapshot()
	}
	changed, err := fn()
	if err != nil || !changed {
		return err
	}
	if err := m.commit(); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.txFrom(ctx) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	tx := &memTx{}

	defer func() {
		if r := recover(); r != nil {
			m.restore(snap)
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, memTxKey{m}, tx)); err != nil {
		m.restore(snap)
		return err
	}
	if !tx.dirty {
		return nil
	}
	if err := m.commit(); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *Memory) commit() error {
	if m.onCommit == nil {
		return nil
	}
	if err := m.onCommit(m.dumpLocked()); err != nil {
		return fmt.Errorf("commit hook: %w", err)
	}
	return nil
}

type memSnapshot struct {
	seq  int64
	cols map[string][]Record
}

func (m *Memory) snapshot() memSnapshot {
	cols := make(map[string][]Record, len(m.cols))
	for k, v := range m.cols {
		cols[k] = slices.Clone(v)
	}
	return memSnapshot{seq: m.seq, cols: cols}
}

func (m *Memory) restore(s memSnapshot) {
	m.seq = s.seq
	m.cols = s.cols
}

// Dump returns a copy of the current state.
func (m *Memory) Dump() Dump {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dumpLocked()
}

func (m *Memory) dumpLocked() Dump {
	s := m.snapshot()
	return Dump{Seq: s.seq, Collections: s.cols}
}

// Load replaces the current state with d.
func (m *Memory) Load(d Dump) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cols := make(map[string][]Record, len(d.Collections))
	seq := d.Seq
	for k, v := range d.Collections {
		recs := slices.Clone(v)
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
		for _, r := range recs {
			seq = max(seq, r.Seq)
		}
		cols[k] = recs
	}
	m.seq = seq
	m.cols = cols
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, bool, error) {
	unlock := m.read(ctx)
	defer unlock()

	i := m.indexOf(collection, id)
	if i < 0 {
		return Document{}, false, nil
	}
	doc, err := toDocument(m.cols[collection][i])
	return doc, err == nil, err
}

func (m *Memory) First(ctx context.Context, q Query) (Document, bool, error) {
	q.Limit = 1
	docs, err := m.List(ctx, q)
	if err != nil || len(docs) == 0 {
		return Document{}, false, err
	}
	return docs[0], true, nil
}

func (m *Memory) List(ctx context.Context, q Query) ([]Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	where, err := patchMap(q.Where)
	if err != nil {
		return nil, err
	}

	unlock := m.read(ctx)
	defer unlock()

	var hits []Record
	for _, r := range m.cols[q.Collection] {
		if matches(r.Body, where) {
			hits = append(hits, r)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		c := 0
		if q.OrderBy != "" {
			c = compareValues(hits[i].Body[q.OrderBy], hits[j].Body[q.OrderBy])
		}
		if c == 0 {
			c = cmp.Compare(hits[i].Seq, hits[j].Seq)
		}
		if q.Desc {
			return c > 0
		}
		return c < 0
	})
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	docs := make([]Document, 0, len(hits))
	for _, r := range hits {
		doc, err := toDocument(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *Memory) Count(ctx context.Context, collection string) (int, error) {
	unlock := m.read(ctx)
	defer unlock()
	return len(m.cols[collection]), nil
}

func (m *Memory) Insert(ctx context.Context, collection string, doc any) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	body, err := ToMap(doc)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", collection, err)
	}

	var id string
	err = m.write(ctx, func() (bool, error) {
		m.seq++
		id = m.newID()
		m.cols[collection] = append(m.cols[collection], Record{ID: id, Seq: m.seq, Body: body})
		return true, nil
	})
	return id, err
}

func (m *Memory) Patch(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := patchMap(fields)
	if err != nil {
		return fmt.Errorf("encode %s patch: %w", collection, err)
	}
	return m.write(ctx, func() (bool, error) {
		i := m.indexOf(collection, id)
		if i < 0 {
			return false, fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
		}
		m.replaceBody(collection, i, patch)
		return true, nil
	})
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	return m.write(ctx, func() (bool, error) {
		i := m.indexOf(collection, id)
		if i < 0 {
			return false, fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
		}
		m.cols[collection] = slices.Delete(m.cols[collection], i, i+1)
		return true, nil
	})
}

func (m *Memory) AddToSet(ctx context.Context, collection, id, field, value string, fields map[string]any) (bool, error) {
	return m.updateArray(ctx, collection, id, field, fields, func(vals []any) ([]any, bool) {
		if slices.Contains(vals, any(value)) {
			return vals, false
		}
		return append(slices.Clone(vals), value), true
	})
}

func (m *Memory) Pull(ctx context.Context, collection, id, field, value string, fields map[string]any) (bool, error) {
	return m.updateArray(ctx, collection, id, field, fields, func(vals []any) ([]any, bool) {
		out := slices.DeleteFunc(slices.Clone(vals), func(v any) bool { return v == any(value) })
		return out, len(out) != len(vals)
	})
}

func (m *Memory) updateArray(ctx context.Context, collection, id, field string, fields map[string]any, fn func([]any) ([]any, bool)) (bool, error) {
	if !ValidField(field) {
		return false, fmt.Errorf("%w: bad array field %s", ErrInvalidQuery, field)
	}
	patch, err := patchMap(fields)
	if err != nil {
		return false, fmt.Errorf("encode %s patch: %w", collection, err)
	}

	var applied bool
	err = m.write(ctx, func() (bool, error) {
		i := m.indexOf(collection, id)
		if i < 0 {
			return false, fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
		}
		cur, _ := m.cols[collection][i].Body[field].([]any)
		next, ok := fn(cur)
		if !ok {
			return false, nil
		}
		if next == nil {
			next = []any{}
		}
		patch[field] = next
		m.replaceBody(collection, i, patch)
		applied = true
		return true, nil
	})
	return applied, err
}

func (m *Memory) indexOf(collection, id string) int {
	return slices.IndexFunc(m.cols[collection], func(r Record) bool { return r.ID == id })
}

func (m *Memory) replaceBody(collection string, i int, patch map[string]any) {
	r := m.cols[collection][i]
	body := maps.Clone(r.Body)
	maps.Copy(body, patch)
	r.Body = body
	m.cols[collection][i] = r
}

func patchMap(fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return map[string]any{}, nil
	}
	return ToMap(fields)
}

func toDocument(r Record) (Document, error) {
	raw, err := json.Marshal(r.Body)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: r.ID, Seq: r.Seq, Body: raw}, nil
}

func matches(body, where map[string]any) bool {
	for k, want := range where {
		got, ok := body[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// compareValues orders decoded JSON values the way Postgres orders jsonb
// scalars: null < string < number < boolean.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch x := a.(type) {
	case string:
		return cmp.Compare(x, b.(string))
	case float64:
		return cmp.Compare(x, b.(float64))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case string:
		return 1
	case float64:
		return 2
	case bool:
		return 3
	default:
		return 4
	}
}
