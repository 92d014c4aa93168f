package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)

	"regles-hq/calcul/pkg/journal"
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverCgo     = "sqlite3"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path, or ":memory:".
	Path string

	// Driver is the database/sql driver: "sqlite" or "sqlite3".
	// Default: "sqlite"
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 1
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default configuration for the database at path.
func DefaultSQLiteConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:         path,
		Driver:       DriverModernc,
		MaxOpenConns: 1,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements journal.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, creating the schema if needed.
func NewSQLiteStorage(config *SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if config == nil || config.Path == "" {
		return nil, journal.NewStorageError("sqlite", "open", errors.New("database path is required"))
	}
	if config.Driver == "" {
		config.Driver = DriverModernc
	}
	if config.Driver != DriverModernc && config.Driver != DriverCgo {
		return nil, journal.NewStorageError("sqlite", "open", fmt.Errorf("unsupported driver %q", config.Driver))
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 1
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "journal.storage.sqlite")

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, journal.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxOpenConns)

	s := &SQLiteStorage{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("SQLite journal opened",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return journal.NewStorageError("sqlite", "enable_wal", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return journal.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return journal.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return journal.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return journal.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return journal.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store inserts an entry.
func (s *SQLiteStorage) Store(ctx context.Context, entry *journal.Entry) error {
	value, err := json.Marshal(entry.Value)
	if err != nil {
		return journal.NewStorageError("sqlite", "store", fmt.Errorf("failed to encode value: %w", err))
	}
	situation, err := json.Marshal(entry.Situation)
	if err != nil {
		return journal.NewStorageError("sqlite", "store", err)
	}
	traversed, err := json.Marshal(entry.Traversed)
	if err != nil {
		return journal.NewStorageError("sqlite", "store", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO entries ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.ID, entry.RecordedAt.UnixNano(),
		entry.Rule, string(value), entry.Unit, entry.Display,
		entry.Status, nullString(entry.Error), nullString(entry.ErrorType),
		entry.EngineID, entry.SituationID, string(situation), string(traversed),
		int64(entry.Duration),
	)
	if err != nil {
		return journal.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves the matching entries.
func (s *SQLiteStorage) Query(ctx context.Context, query *journal.Query) ([]*journal.Entry, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	q := *query
	q.ApplyDefaults()

	where, args := buildWhereClause(&q)
	order := "DESC"
	if q.SortOrder == "asc" {
		order = "ASC"
	}
	sqlQuery := fmt.Sprintf("SELECT %s FROM entries%s ORDER BY recorded_at %s, seq %s LIMIT %d OFFSET %d",
		entryColumns, where, order, order, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, journal.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	entries := []*journal.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, journal.NewStorageError("sqlite", "scan", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, journal.NewStorageError("sqlite", "query", err)
	}
	return entries, nil
}

// Count returns the number of matching entries.
func (s *SQLiteStorage) Count(ctx context.Context, query *journal.Query) (int64, error) {
	where, args := buildWhereClause(query)

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries"+where, args...).Scan(&count); err != nil {
		return 0, journal.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes the matching entries.
func (s *SQLiteStorage) Delete(ctx context.Context, query *journal.Query) (int64, error) {
	where, args := buildWhereClause(query)

	result, err := s.db.ExecContext(ctx, "DELETE FROM entries"+where, args...)
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Trim keeps the keep most recent entries.
func (s *SQLiteStorage) Trim(ctx context.Context, keep int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM entries WHERE seq NOT IN (
			SELECT seq FROM entries ORDER BY recorded_at DESC, seq DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "trim", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "trim", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return journal.NewStorageError("sqlite", "close", err)
	}
	return nil
}

// buildWhereClause returns the WHERE clause of query, with its leading
// space, and the clause arguments.
func buildWhereClause(query *journal.Query) (string, []any) {
	var conditions []string
	var args []any

	if query.Since != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, query.Since.UnixNano())
	}
	if query.Until != nil {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, query.Until.UnixNano())
	}
	if query.Rule != "" {
		conditions = append(conditions, "rule = ?")
		args = append(args, query.Rule)
	}
	if query.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, query.Status)
	}
	if query.EngineID != "" {
		conditions = append(conditions, "engine_id = ?")
		args = append(args, query.EngineID)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanEntry(rows *sql.Rows) (*journal.Entry, error) {
	var (
		entry                      journal.Entry
		recordedAt, duration       int64
		value, situation, traverse sql.NullString
		errMsg, errType            sql.NullString
	)
	err := rows.Scan(
		&entry.ID, &recordedAt,
		&entry.Rule, &value, &entry.Unit, &entry.Display,
		&entry.Status, &errMsg, &errType,
		&entry.EngineID, &entry.SituationID, &situation, &traverse,
		&duration,
	)
	if err != nil {
		return nil, err
	}

	entry.RecordedAt = time.Unix(0, recordedAt)
	entry.Duration = time.Duration(duration)
	entry.Error = errMsg.String
	entry.ErrorType = errType.String

	if value.Valid {
		if err := json.Unmarshal([]byte(value.String), &entry.Value); err != nil {
			return nil, fmt.Errorf("failed to decode value of entry %s: %w", entry.ID, err)
		}
	}
	if situation.Valid {
		if err := json.Unmarshal([]byte(situation.String), &entry.Situation); err != nil {
			return nil, fmt.Errorf("failed to decode situation of entry %s: %w", entry.ID, err)
		}
	}
	if traverse.Valid {
		if err := json.Unmarshal([]byte(traverse.String), &entry.Traversed); err != nil {
			return nil, fmt.Errorf("failed to decode traversed rules of entry %s: %w", entry.ID, err)
		}
	}
	return &entry, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
