package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the policy and decision tables.
const Schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS policies (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	version     TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id             TEXT PRIMARY KEY,
	policy_id      TEXT NOT NULL,
	policy_version TEXT NOT NULL DEFAULT '',
	outcome        TEXT NOT NULL,
	constraints    TEXT,
	trace_id       TEXT,
	evaluated_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_policy ON decisions(policy_id, evaluated_at);
CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome);
`

// insertSchemaVersion records the schema version, ignoring duplicates.
const insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

// getSchemaVersion retrieves the highest recorded schema version.
const getSchemaVersion = `SELECT MAX(version) FROM schema_version`
