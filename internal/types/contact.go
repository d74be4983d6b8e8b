package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies which collaborator a record was loaded from.
//
// The in-memory record ID is regenerated on every load, so SourceKind plus
// the matching external identifier is the only stable key for a record
// across detection passes. Anything persisted (dismissals, merge history
// references) must be keyed on the external identifier, never on ID.
type SourceKind string

const (
	// SourceDevice is the local device contact store.
	SourceDevice SourceKind = "device"

	// SourceGraph is the remote people-graph API.
	SourceGraph SourceKind = "graph"

	// SourceCSV is a connections CSV export.
	SourceCSV SourceKind = "csv"
)

// IsValid checks if the source kind value is valid
func (s SourceKind) IsValid() bool {
	switch s {
	case SourceDevice, SourceGraph, SourceCSV:
		return true
	}
	return false
}

// SourceKinds lists every valid source kind in a fixed order.
func SourceKinds() []SourceKind {
	return []SourceKind{SourceDevice, SourceGraph, SourceCSV}
}

// PartialDate is a calendar date where any part may be absent (zero).
// A birthday with no year, or an anniversary with only a year, are both valid.
type PartialDate struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// IsZero reports whether no part of the date is set.
func (d PartialDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String renders the date with "?" placeholders for absent parts.
func (d PartialDate) String() string {
	year := "????"
	if d.Year != 0 {
		year = fmt.Sprintf("%04d", d.Year)
	}
	month := "??"
	if d.Month != 0 {
		month = fmt.Sprintf("%02d", d.Month)
	}
	day := "??"
	if d.Day != 0 {
		day = fmt.Sprintf("%02d", d.Day)
	}
	return year + "-" + month + "-" + day
}

// Validate checks if the date parts are in range
func (d PartialDate) Validate() error {
	if d.Month < 0 || d.Month > 12 {
		return fmt.Errorf("month must be between 1 and 12 (got %d)", d.Month)
	}
	if d.Day < 0 || d.Day > 31 {
		return fmt.Errorf("day must be between 1 and 31 (got %d)", d.Day)
	}
	if d.Year < 0 {
		return fmt.Errorf("year cannot be negative (got %d)", d.Year)
	}
	return nil
}

// ServiceAccount is a (service, username) pair used for both social
// profiles and messaging addresses.
type ServiceAccount struct {
	Service  string `json:"service"`
	Username string `json:"username"`
}

// Key returns the case-insensitive identity of the account.
func (a ServiceAccount) Key() string {
	return strings.ToLower(strings.TrimSpace(a.Service)) + "/" + strings.ToLower(strings.TrimSpace(a.Username))
}

// Relationship is a (name, relation-label) pair, e.g. ("Jane Doe", "sister").
type Relationship struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Key returns the case-insensitive identity of the relationship.
func (r Relationship) Key() string {
	return strings.ToLower(strings.TrimSpace(r.Name)) + "/" + strings.ToLower(strings.TrimSpace(r.Label))
}

// LabeledDate is a (label, partial-date) pair, e.g. ("anniversary", 1998-06-??).
type LabeledDate struct {
	Label string      `json:"label"`
	Date  PartialDate `json:"date"`
}

// Key returns the identity of the labeled date.
func (d LabeledDate) Key() string {
	return strings.ToLower(strings.TrimSpace(d.Label)) + "/" + d.Date.String()
}

// ContactRecord is the unit of deduplication: one contact entity as loaded
// from a record source.
//
// The record is a plain value. Detection operates on an immutable snapshot
// and never mutates its input; merge produces a new value. ID is an opaque
// in-memory identifier assigned at creation and regenerated every load —
// see SourceKind for the persistence rule.
//
// Invariant: after normalization, list-valued fields contain no exact
// duplicates (case-insensitive for emails/URLs/social, digit-only for
// phones). The Add* helpers maintain this; sources should ingest through
// them.
type ContactRecord struct {
	ID string `json:"id"`

	FirstName  string `json:"first_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Nickname   string `json:"nickname,omitempty"`

	Company    string `json:"company,omitempty"`
	JobTitle   string `json:"job_title,omitempty"`
	Department string `json:"department,omitempty"`

	Emails    []string `json:"emails,omitempty"`
	Phones    []string `json:"phones,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
	URLs      []string `json:"urls,omitempty"`

	SocialProfiles     []ServiceAccount `json:"social_profiles,omitempty"`
	MessagingAddresses []ServiceAccount `json:"messaging_addresses,omitempty"`
	Relationships      []Relationship   `json:"relationships,omitempty"`

	Birthday *PartialDate  `json:"birthday,omitempty"`
	Dates    []LabeledDate `json:"dates,omitempty"`

	Notes string `json:"notes,omitempty"`
	Photo []byte `json:"photo,omitempty"`

	Source SourceKind `json:"source"`

	// ExternalIDs holds up to one identifier per origin kind. This is the
	// only identifier that survives a reload.
	ExternalIDs map[SourceKind]string `json:"external_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewContactRecord creates an empty record with a fresh in-memory ID and
// creation timestamps.
func NewContactRecord(source SourceKind) *ContactRecord {
	now := time.Now()
	return &ContactRecord{
		ID:        uuid.New().String(),
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks if the record has valid field values.
// Empty names, empty lists, and missing fields are all valid: a record with
// zero identifying information is "insufficient data", not an error.
func (c *ContactRecord) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid source kind: %s", c.Source)
	}
	if c.Birthday != nil {
		if err := c.Birthday.Validate(); err != nil {
			return fmt.Errorf("invalid birthday: %w", err)
		}
	}
	for kind := range c.ExternalIDs {
		if !kind.IsValid() {
			return fmt.Errorf("external id has invalid source kind: %s", kind)
		}
	}
	return nil
}

// DisplayName returns the best human-readable label for the record,
// used in progress reporting and CLI output.
func (c *ContactRecord) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name != "" {
		return name
	}
	if n := strings.TrimSpace(c.Nickname); n != "" {
		return n
	}
	if co := strings.TrimSpace(c.Company); co != "" {
		return co
	}
	if len(c.Emails) > 0 {
		return c.Emails[0]
	}
	if len(c.Phones) > 0 {
		return c.Phones[0]
	}
	return "(no name)"
}

// ExternalID returns the record's identifier for the given origin, if any.
func (c *ContactRecord) ExternalID(kind SourceKind) (string, bool) {
	id, ok := c.ExternalIDs[kind]
	return id, ok
}

// SetExternalID records the identifier the given origin uses for this record.
func (c *ContactRecord) SetExternalID(kind SourceKind, id string) {
	if c.ExternalIDs == nil {
		c.ExternalIDs = make(map[SourceKind]string, 1)
	}
	c.ExternalIDs[kind] = id
}

// AddEmail appends an email unless an equal one (case-insensitive) is
// already present. Returns true if the email was added.
func (c *ContactRecord) AddEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	key := EmailKey(email)
	for _, existing := range c.Emails {
		if EmailKey(existing) == key {
			return false
		}
	}
	c.Emails = append(c.Emails, email)
	return true
}

// AddPhone appends a phone unless an equal one (digit-only compare) is
// already present. Returns true if the phone was added.
func (c *ContactRecord) AddPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return false
	}
	key := PhoneDigits(phone)
	if key == "" {
		return false
	}
	for _, existing := range c.Phones {
		if PhoneDigits(existing) == key {
			return false
		}
	}
	c.Phones = append(c.Phones, phone)
	return true
}

// AddAddress appends a free-text address unless an exact-string duplicate
// is already present.
func (c *ContactRecord) AddAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	for _, existing := range c.Addresses {
		if strings.TrimSpace(existing) == addr {
			return false
		}
	}
	c.Addresses = append(c.Addresses, addr)
	return true
}

// AddURL appends a URL unless an equal one (case-insensitive) is already
// present.
func (c *ContactRecord) AddURL(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	key := strings.ToLower(url)
	for _, existing := range c.URLs {
		if strings.ToLower(strings.TrimSpace(existing)) == key {
			return false
		}
	}
	c.URLs = append(c.URLs, url)
	return true
}

// AddSocialProfile appends a social profile unless the (service, username)
// pair is already present case-insensitively.
func (c *ContactRecord) AddSocialProfile(p ServiceAccount) bool {
	if strings.TrimSpace(p.Username) == "" {
		return false
	}
	for _, existing := range c.SocialProfiles {
		if existing.Key() == p.Key() {
			return false
		}
	}
	c.SocialProfiles = append(c.SocialProfiles, p)
	return true
}

// AddMessagingAddress appends a messaging address unless the
// (service, username) pair is already present case-insensitively.
func (c *ContactRecord) AddMessagingAddress(p ServiceAccount) bool {
	if strings.TrimSpace(p.Username) == "" {
		return false
	}
	for _, existing := range c.MessagingAddresses {
		if existing.Key() == p.Key() {
			return false
		}
	}
	c.MessagingAddresses = append(c.MessagingAddresses, p)
	return true
}

// AddRelationship appends a relationship unless the (name, label) pair is
// already present case-insensitively.
func (c *ContactRecord) AddRelationship(r Relationship) bool {
	if strings.TrimSpace(r.Name) == "" {
		return false
	}
	for _, existing := range c.Relationships {
		if existing.Key() == r.Key() {
			return false
		}
	}
	c.Relationships = append(c.Relationships, r)
	return true
}

// AddDate appends a labeled date unless an equal one is already present.
func (c *ContactRecord) AddDate(d LabeledDate) bool {
	if d.Date.IsZero() {
		return false
	}
	for _, existing := range c.Dates {
		if existing.Key() == d.Key() {
			return false
		}
	}
	c.Dates = append(c.Dates, d)
	return true
}

// Clone returns a deep copy of the record. Merge works on a clone of the
// primary so input records are never mutated.
func (c *ContactRecord) Clone() *ContactRecord {
	out := *c
	out.Emails = append([]string(nil), c.Emails...)
	out.Phones = append([]string(nil), c.Phones...)
	out.Addresses = append([]string(nil), c.Addresses...)
	out.URLs = append([]string(nil), c.URLs...)
	out.SocialProfiles = append([]ServiceAccount(nil), c.SocialProfiles...)
	out.MessagingAddresses = append([]ServiceAccount(nil), c.MessagingAddresses...)
	out.Relationships = append([]Relationship(nil), c.Relationships...)
	out.Dates = append([]LabeledDate(nil), c.Dates...)
	if c.Birthday != nil {
		bd := *c.Birthday
		out.Birthday = &bd
	}
	if c.Photo != nil {
		out.Photo = append([]byte(nil), c.Photo...)
	}
	if c.ExternalIDs != nil {
		out.ExternalIDs = make(map[SourceKind]string, len(c.ExternalIDs))
		for k, v := range c.ExternalIDs {
			out.ExternalIDs[k] = v
		}
	}
	return &out
}

// EmailKey returns the comparison key for an email: trimmed and lowercased.
func EmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PhoneDigits returns the comparison key for a phone number: digits only.
// Returns "" for strings containing no digits.
func PhoneDigits(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
