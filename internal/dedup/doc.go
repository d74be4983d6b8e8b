// Package dedup implements duplicate detection over contact records.
//
// # Overview
//
// The detector finds groups of records that denote the same person without
// comparing all O(n²) pairs. Each pass:
//
//  1. Builds a NormalizedView for every record (lowercased names, digit-only
//     phones, lowercased emails).
//  2. Builds three inverted indexes: phone-suffix, email local-part/domain,
//     and name-key (prefix and phonetic).
//  3. Walks the records in input order, gathering candidates from the
//     record's own index keys, and classifies each candidate pair.
//  4. Emits a DuplicateGroup for every working group with two or more
//     members, sorted by descending overall score.
//
// # Classification
//
// Pairwise classification is the single source of truth for matching, in
// strict priority order:
//
//   - shared normalized email → "same email"
//   - shared full phone number, or shared 7-digit suffix → "same phone"
//   - both records carry a full name and both first- and last-name
//     similarity clear the configured threshold → "similar"
//
// Company similarity never participates in the decision; when computable it
// is attached to the group as an auxiliary score only.
//
// # Concurrency
//
// Detection is read-only over the snapshot it is handed and may run on a
// worker goroutine. Progress events are delivered with a non-blocking send;
// dropped events are acceptable. Cancellation is checked once per record:
// a cancelled pass returns the groups formed so far together with the
// context error.
//
// # Failure semantics
//
// Malformed input is not an error. Records with empty names, no phones, or
// no identifying information at all are silently unmatchable; they never
// produce singleton groups and never abort a pass.
package dedup
