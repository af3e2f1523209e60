// Package docstore defines the document store contract the bot's storage layer
// runs on, plus an in-memory engine. File and Postgres engines live in
// subpackages.
//
// Documents are JSON objects grouped by collection. Every document gets an
// opaque id and a monotonically increasing sequence number used as the final
// tie-break when ordering.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
)

var (
	// ErrNotFound is returned by Patch, Delete, AddToSet and Pull when the target document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidQuery is returned when a query or field name cannot be served.
	ErrInvalidQuery = errors.New("invalid query")
)

// Document is a stored record.
type Document struct {
	ID   string
	Seq  int64
	Body json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Body, v)
}

// Query selects documents of one collection.
//
// Where matches top-level fields by equality. OrderBy names a top-level field;
// when empty, documents come back in insertion order. Equal sort keys are
// ordered by sequence in the same direction. Limit <= 0 means no limit.
type Query struct {
	Collection string
	Where      map[string]any
	OrderBy    string
	Desc       bool
	Limit      int
}

// Store is implemented by every engine.
//
// All methods accept the context returned by RunInTx; operations issued with
// that context join the transaction.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, bool, error)
	First(ctx context.Context, q Query) (Document, bool, error)
	List(ctx context.Context, q Query) ([]Document, error)
	Count(ctx context.Context, collection string) (int, error)

	Insert(ctx context.Context, collection string, doc any) (string, error)
	Patch(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error

	// AddToSet appends value to the string array field unless already present,
	// applying fields in the same write. Reports whether the value was added.
	AddToSet(ctx context.Context, collection, id, field, value string, fields map[string]any) (bool, error)
	// Pull removes value from the string array field, applying fields in the
	// same write. Reports whether the value was present.
	Pull(ctx context.Context, collection, id, field, value string, fields map[string]any) (bool, error)

	// RunInTx runs fn atomically. A nested call joins the outer transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Close() error
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidField reports whether name can be used as a field in Where, OrderBy or array operations.
func ValidField(name string) bool {
	return fieldName.MatchString(name)
}

// Validate checks the collection and field names of q.
func (q Query) Validate() error {
	if q.Collection == "" {
		return errors.Join(ErrInvalidQuery, errors.New("collection is required"))
	}
	if q.OrderBy != "" && !ValidField(q.OrderBy) {
		return errors.Join(ErrInvalidQuery, errors.New("bad order field "+q.OrderBy))
	}
	for k := range q.Where {
		if !ValidField(k) {
			return errors.Join(ErrInvalidQuery, errors.New("bad filter field "+k))
		}
	}
	return nil
}

// ToMap converts a document value into its JSON object form.
func ToMap(doc any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.Join(ErrInvalidQuery, errors.New("document must be a JSON object"))
	}
	return m, nil
}
