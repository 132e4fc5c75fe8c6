package docstore

import (
	"context"
	"errors"
)

// Collections used by the account-management core.
const (
	CollectionUsers    = "users"
	CollectionSettings = "settings"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrUnavailable = errors.New("document store unavailable")
)

// Fields is a partial document: keys present overwrite, keys absent are
// left untouched by MergeWrite.
type Fields map[string]any

// Store is the document-store contract the core depends on. The platform
// runs it against SQL in practice, but nothing above this interface may
// assume more than get / merge-write / equality query.
type Store interface {
	// Get returns the decoded document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Fields, error)

	// MergeWrite updates only the given fields, creating the document if
	// it does not exist. Merge is field-level and last-write-wins.
	MergeWrite(ctx context.Context, collection, id string, fields Fields) error

	// QueryWhere returns every document in the collection whose field
	// equals value. No ordering or pagination guarantee.
	QueryWhere(ctx context.Context, collection, field string, value any) ([]Fields, error)
}
