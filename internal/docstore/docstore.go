// Package docstore abstracts the document database the durable store writes
// to. Collection paths may address subcollections with slashes, e.g.
// "issues/<id>/comments".
package docstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("docstore: document not found")

// Filter is an equality constraint on a document field.
type Filter struct {
	Field string
	Value any
}

type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Snapshot is a document read result: generated id plus the stored fields.
type Snapshot struct {
	ID   string
	Data map[string]any
}

// Client is the minimal collection/document surface the adapters need.
type Client interface {
	// Add inserts a document with a generated id and returns the id.
	Add(ctx context.Context, path string, data map[string]any) (string, error)
	// Set writes a document under a caller-chosen id, creating or replacing it.
	Set(ctx context.Context, path, id string, data map[string]any) error
	// Get returns (nil, nil) when the document does not exist.
	Get(ctx context.Context, path, id string) (map[string]any, error)
	// Update patches the named fields; a nil value clears the field.
	// Returns ErrNotFound when the document does not exist.
	Update(ctx context.Context, path, id string, fields map[string]any) error
	Delete(ctx context.Context, path, id string) error
	Query(ctx context.Context, path string, q Query) ([]Snapshot, error)
	Close() error
}
