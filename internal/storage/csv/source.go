// Package csv reads contact records out of a connections CSV export
// (the "First Name,Last Name,URL,Email Address,Company,Position,Connected On"
// format). It is a read-only feed for the import path, not a full
// RecordSource: exports are snapshots, so writing back makes no sense.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/posix4e/ContactDedup/internal/types"
)

// Column headers recognized in a connections export. Matching is
// case-insensitive and ignores surrounding whitespace.
const (
	colFirstName   = "first name"
	colLastName    = "last name"
	colURL         = "url"
	colEmail       = "email address"
	colCompany     = "company"
	colPosition    = "position"
	colConnectedOn = "connected on"
)

// connectedOnLayout is the date format exports use, e.g. "12 Mar 2024".
const connectedOnLayout = "02 Jan 2006"

// Reader parses contact records from a connections CSV stream.
type Reader struct {
	reader  *stdcsv.Reader
	columns map[string]int
}

// NewReader wraps an open CSV stream. It consumes the header row
// immediately and fails if the export lacks name columns.
func NewReader(r io.Reader) (*Reader, error) {
	cr := stdcsv.NewReader(r)
	cr.FieldsPerRecord = -1 // exports pad trailing fields inconsistently

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns[colFirstName]; !ok {
		return nil, fmt.Errorf("CSV header has no %q column", colFirstName)
	}
	if _, ok := columns[colLastName]; !ok {
		return nil, fmt.Errorf("CSV header has no %q column", colLastName)
	}

	return &Reader{reader: cr, columns: columns}, nil
}

// Open opens a connections CSV file. The returned cleanup func closes it.
func Open(path string) (*Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	reader, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return reader, f.Close, nil
}

// Next returns the next contact record, or io.EOF when the export is
// exhausted. Rows with no usable fields at all are skipped.
func (r *Reader) Next(ctx context.Context) (*types.ContactRecord, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.reader.Read()
		if err != nil {
			return nil, err
		}

		record := r.recordFromRow(row)
		if record == nil {
			continue
		}
		return record, nil
	}
}

// ReadAll drains the export into a slice.
func (r *Reader) ReadAll(ctx context.Context) ([]*types.ContactRecord, error) {
	var records []*types.ContactRecord
	for {
		record, err := r.Next(ctx)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

func (r *Reader) recordFromRow(row []string) *types.ContactRecord {
	record := types.NewContactRecord(types.SourceCSV)

	record.FirstName = r.field(row, colFirstName)
	record.LastName = r.field(row, colLastName)
	record.Company = r.field(row, colCompany)
	record.JobTitle = r.field(row, colPosition)

	if email := r.field(row, colEmail); email != "" {
		record.AddEmail(email)
	}
	if url := r.field(row, colURL); url != "" {
		record.AddURL(url)
		// The profile URL is the only stable identifier an export carries.
		record.SetExternalID(types.SourceCSV, url)
	}
	if connected := r.field(row, colConnectedOn); connected != "" {
		if when, err := time.Parse(connectedOnLayout, connected); err == nil {
			record.AddDate(types.LabeledDate{
				Label: "connected",
				Date:  types.PartialDate{Year: when.Year(), Month: int(when.Month()), Day: when.Day()},
			})
		} else {
			log.Printf("[CSV] unparseable connected-on date %q (skipping field)", connected)
		}
	}

	if record.FirstName == "" && record.LastName == "" &&
		len(record.Emails) == 0 && len(record.URLs) == 0 {
		return nil
	}
	return record
}

func (r *Reader) field(row []string, column string) string {
	idx, ok := r.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
