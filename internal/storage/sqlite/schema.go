package sqlite

// schema defines the contact store. Scalar columns exist for the fields
// worth indexing; the full record lives in the payload column as JSON so
// the schema never chases the record shape.
const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	company    TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	payload    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_last_name ON contacts(last_name);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company);
CREATE INDEX IF NOT EXISTS idx_contacts_source ON contacts(source);

CREATE TABLE IF NOT EXISTS external_ids (
	source      TEXT NOT NULL,
	external_id TEXT NOT NULL,
	contact_id  TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	PRIMARY KEY (source, external_id)
);

CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
