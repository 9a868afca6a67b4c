package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
// Timestamps are stored as Unix nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    check_id TEXT NOT NULL,
    request_id TEXT,
    source TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,

    -- Content fingerprint
    content_hash TEXT NOT NULL,
    content_length INTEGER NOT NULL,

    -- Decision
    score INTEGER NOT NULL,
    passed BOOLEAN NOT NULL,
    blocked BOOLEAN NOT NULL,
    risk_level TEXT NOT NULL,

    -- Issues
    issue_count INTEGER NOT NULL,
    issue_types TEXT,
    severities TEXT,
    issue_ids TEXT,
    checks_performed TEXT,

    truncated BOOLEAN NOT NULL DEFAULT 0,
    sanitized BOOLEAN NOT NULL DEFAULT 0,
    duration_ms REAL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON audit_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_audit_check_id ON audit_records(check_id);
CREATE INDEX IF NOT EXISTS idx_audit_request_id ON audit_records(request_id);
CREATE INDEX IF NOT EXISTS idx_audit_blocked ON audit_records(blocked);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const recordColumns = `id, check_id, request_id, source, recorded_at,
	content_hash, content_length,
	score, passed, blocked, risk_level,
	issue_count, issue_types, severities, issue_ids, checks_performed,
	truncated, sanitized, duration_ms`
