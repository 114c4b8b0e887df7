package types

import "context"

// Document is a record as held by a Store: the key plus the stored JSON
// object without its "id" member. Stores never reshape Body.
type Document struct {
	ID   int64
	Body []byte
}

// Store is a keyed object store with an auto-incrementing integer key.
// Every call blocks until the single operation completes.
type Store interface {
	// GetAll returns every document in key order.
	GetAll(ctx context.Context) ([]Document, error)

	// Get returns the document stored under id.
	// Returns ErrNotFound if no document exists with that id.
	Get(ctx context.Context, id int64) (Document, error)

	// Add stores a new document and returns the key assigned to it.
	// Keys are never reused, even after Delete.
	Add(ctx context.Context, body []byte) (int64, error)

	// Put stores body under id, replacing any existing document.
	Put(ctx context.Context, id int64, body []byte) (int64, error)

	// Delete removes the document stored under id.
	// Returns ErrNotFound if no document exists with that id.
	Delete(ctx context.Context, id int64) error

	// Close releases the store. Idempotent.
	Close() error
}
