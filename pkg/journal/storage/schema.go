package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the journal tables. Times are stored as Unix nanoseconds
// and structured fields as JSON text.
const Schema = `
CREATE TABLE IF NOT EXISTS entries (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    recorded_at INTEGER NOT NULL,

    rule TEXT NOT NULL,
    value TEXT,
    unit TEXT NOT NULL DEFAULT '',
    display TEXT NOT NULL DEFAULT '',

    status TEXT NOT NULL,
    error TEXT,
    error_type TEXT,

    engine_id TEXT NOT NULL DEFAULT '',
    situation_id TEXT NOT NULL DEFAULT '',
    situation TEXT,
    traversed TEXT,

    duration INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_recorded_at ON entries(recorded_at);
CREATE INDEX IF NOT EXISTS idx_entries_rule ON entries(rule);
CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const entryColumns = `id, recorded_at, rule, value, unit, display, status, error, error_type,
    engine_id, situation_id, situation, traversed, duration`
