// Package storage defines the record source abstraction the dedup engine
// reads contacts from, plus an in-memory implementation for tests and
// one-shot CLI runs. Persistent backends live in subpackages (sqlite).
package storage

import (
	"context"

	"github.com/posix4e/ContactDedup/internal/types"
)

// RecordSource is the interface contact backends implement. The detector
// only ever reads a snapshot via List; Save and Delete exist so merge
// results can be written back.
type RecordSource interface {
	// List returns a snapshot of every contact in the source. Callers own
	// the returned records and may mutate them freely.
	List(ctx context.Context) ([]*types.ContactRecord, error)

	// Get returns the contact with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*types.ContactRecord, error)

	// Save inserts or replaces a contact by ID.
	Save(ctx context.Context, record *types.ContactRecord) error

	// Delete removes a contact by ID. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// Count returns the number of contacts in the source.
	Count(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

// Config holds storage configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".contactdedup/contacts.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".contactdedup/contacts.db",
	}
}
