package merge

import (
	"fmt"

	"github.com/posix4e/ContactDedup/internal/types"
)

// MergeConflict records one scalar field where two group members carried
// differing non-empty values. The merged record keeps the winning value;
// the losing value is preserved here with full provenance so nothing is
// silently discarded.
type MergeConflict struct {
	// Field is the name of the conflicting scalar field.
	Field string `json:"field"`

	// LosingValue is the value that did not make it into the merged
	// record. For notes it is the secondary's note text verbatim.
	LosingValue string `json:"losing_value"`

	// SourceRecordID is the in-memory ID of the record the losing value
	// came from. Transient: valid only within the detection pass that
	// produced the group.
	SourceRecordID string `json:"source_record_id"`

	// SourceLabel is the display name of the source record at merge time.
	SourceLabel string `json:"source_label,omitempty"`
}

// Validate checks if the conflict has valid values
func (c *MergeConflict) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("field is required")
	}
	if c.LosingValue == "" {
		return fmt.Errorf("losing_value is required")
	}
	if c.SourceRecordID == "" {
		return fmt.Errorf("source_record_id is required")
	}
	return nil
}

// MergeResult bundles the unioned record with the ordered conflict log.
type MergeResult struct {
	Record    *types.ContactRecord `json:"record"`
	Conflicts []MergeConflict      `json:"conflicts,omitempty"`
}
