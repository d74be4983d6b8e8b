// Package sqlite provides the persistent contact store backing the CLI.
// One row per contact: a handful of indexed scalar columns plus the full
// record serialized as JSON. External identifiers get their own table so
// imports can find an existing row without scanning payloads.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/posix4e/ContactDedup/internal/storage"
	"github.com/posix4e/ContactDedup/internal/types"
)

// Store implements storage.RecordSource using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) a contact database at the given path.
// The special path ":memory:" creates a throwaway in-memory database.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// List returns every contact, ordered by ID.
func (s *Store) List(ctx context.Context) ([]*types.ContactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var records []*types.ContactRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan contact row: %w", err)
		}
		record, err := decodeRecord(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return records, nil
}

// Get returns the contact with the given ID, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*types.ContactRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM contacts WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact %s: %w", id, err)
	}
	return decodeRecord(payload)
}

// FindByExternalID returns the contact that carries the given external
// identifier, or storage.ErrNotFound. Imports use this to recognize
// contacts seen in a previous run.
func (s *Store) FindByExternalID(ctx context.Context, source types.SourceKind, externalID string) (*types.ContactRecord, error) {
	var contactID string
	err := s.db.QueryRowContext(ctx,
		`SELECT contact_id FROM external_ids WHERE source = ? AND external_id = ?`,
		string(source), externalID).Scan(&contactID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", storage.ErrNotFound, source, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up external ID %s/%s: %w", source, externalID, err)
	}
	return s.Get(ctx, contactID)
}

// Save inserts or replaces a contact by ID, keeping the external-ID
// index in sync.
func (s *Store) Save(ctx context.Context, record *types.ContactRecord) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal contact %s: %w", record.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contacts (id, first_name, last_name, company, source, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			company = excluded.company,
			source = excluded.source,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, record.ID, record.FirstName, record.LastName, record.Company,
		string(record.Source), string(payload), record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save contact %s: %w", record.ID, err)
	}

	// Re-derive the external-ID rows from scratch. Cheap (at most one row
	// per source kind) and immune to stale entries after an edit.
	if _, err := tx.ExecContext(ctx, `DELETE FROM external_ids WHERE contact_id = ?`, record.ID); err != nil {
		return fmt.Errorf("failed to clear external IDs for %s: %w", record.ID, err)
	}
	for source, externalID := range record.ExternalIDs {
		if externalID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO external_ids (source, external_id, contact_id) VALUES (?, ?, ?)
			ON CONFLICT(source, external_id) DO UPDATE SET contact_id = excluded.contact_id
		`, string(source), externalID, record.ID)
		if err != nil {
			return fmt.Errorf("failed to index external ID %s/%s: %w", source, externalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contact %s: %w", record.ID, err)
	}
	return nil
}

// Delete removes a contact by ID. Missing IDs are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		log.Printf("[STORE] delete of unknown contact %s (no-op)", id)
	}
	return nil
}

// Count returns the number of stored contacts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

// GetConfig reads a config value. Returns "" (no error) when unset.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read config %s: %w", key, err)
	}
	return value, nil
}

// SetConfig writes a config value.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set config %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func decodeRecord(payload string) (*types.ContactRecord, error) {
	var record types.ContactRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact payload: %w", err)
	}
	return &record, nil
}
