package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/posix4e/ContactDedup/internal/types"
)

// ErrNotFound is returned by Get when no contact has the requested ID.
var ErrNotFound = errors.New("contact not found")

// MemorySource is an in-memory RecordSource. It is safe for concurrent
// use and hands out deep copies, so callers can never corrupt the store
// through a returned record.
type MemorySource struct {
	mu      sync.RWMutex
	records map[string]*types.ContactRecord
}

// NewMemorySource creates an empty in-memory record source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		records: make(map[string]*types.ContactRecord),
	}
}

// List returns copies of all records, ordered by ID for determinism.
func (s *MemorySource) List(ctx context.Context) ([]*types.ContactRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]*types.ContactRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, s.records[id].Clone())
	}
	return records, nil
}

// Get returns a copy of the record with the given ID.
func (s *MemorySource) Get(ctx context.Context, id string) (*types.ContactRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return record.Clone(), nil
}

// Save inserts or replaces a record by ID.
func (s *MemorySource) Save(ctx context.Context, record *types.ContactRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}

// Delete removes a record by ID. Missing IDs are ignored.
func (s *MemorySource) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// Count returns the number of stored records.
func (s *MemorySource) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op for the in-memory source.
func (s *MemorySource) Close() error {
	return nil
}
