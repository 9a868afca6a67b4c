package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/config"
)

const backendSQLite = "sqlite"

// SQLiteStorage implements audit.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config config.SQLiteConfig
	logger *slog.Logger
}

var _ audit.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (creating if needed) the database at cfg.Path,
// applies the pragmas and creates the schema.
func NewSQLiteStorage(cfg config.SQLiteConfig) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, audit.NewStorageError(backendSQLite, "open", errors.New("database path is empty"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = config.DefaultAuditSQLiteBusyTimeout
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, audit.NewStorageError(backendSQLite, "mkdir", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStorage{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// dsn builds a connection string whose pragmas apply to every pooled
// connection.
func dsn(cfg config.SQLiteConfig) string {
	params := []string{fmt.Sprintf("_pragma=busy_timeout(%d)", cfg.BusyTimeout.Milliseconds())}
	if cfg.WALMode {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	return "file:" + cfg.Path + "?" + strings.Join(params, "&")
}

// initialize creates the schema and verifies its version.
func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError(backendSQLite, "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return audit.NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists an audit record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	issueTypes, _ := json.Marshal(record.IssueTypes)
	severities, _ := json.Marshal(record.Severities)
	issueIDs, _ := json.Marshal(record.IssueIDs)
	checks, _ := json.Marshal(record.ChecksPerformed)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_records ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		record.ID, record.CheckID, record.RequestID, string(record.Source), record.Timestamp.UnixNano(),
		record.ContentHash, record.ContentLength,
		record.Score, record.Passed, record.Blocked, record.RiskLevel,
		record.IssueCount, string(issueTypes), string(severities), string(issueIDs), string(checks),
		record.Truncated, record.Sanitized, record.DurationMs,
	)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "store", err)
	}
	return nil
}

// Query retrieves audit records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT " + recordColumns + " FROM audit_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	sortOrder := "DESC"
	if query.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY recorded_at %s, id %s", sortOrder, sortOrder)

	limit := -1
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, audit.NewStorageError(backendSQLite, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	return records, nil
}

// Count returns the number of audit records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM audit_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError(backendSQLite, "count", err)
	}
	return count, nil
}

// Delete removes audit records matching the query filters and returns the
// number of records deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM audit_records"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete", err)
	}
	return count, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return audit.NewStorageError(backendSQLite, "ping", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError(backendSQLite, "close", err)
	}
	s.logger.Info("SQLite audit storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the clause (without "WHERE") and its arguments.
func buildWhereClause(query *audit.Query) (string, []any) {
	var conditions []string
	var args []any

	if query.StartTime != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.CheckID != "" {
		conditions = append(conditions, "check_id = ?")
		args = append(args, query.CheckID)
	}
	if query.RequestID != "" {
		conditions = append(conditions, "request_id = ?")
		args = append(args, query.RequestID)
	}
	if query.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, string(query.Source))
	}
	if query.RiskLevel != "" {
		conditions = append(conditions, "risk_level = ?")
		args = append(args, query.RiskLevel)
	}
	if query.Blocked != nil {
		conditions = append(conditions, "blocked = ?")
		args = append(args, *query.Blocked)
	}
	if query.MinScore != nil {
		conditions = append(conditions, "score >= ?")
		args = append(args, *query.MinScore)
	}
	if query.MaxScore != nil {
		conditions = append(conditions, "score <= ?")
		args = append(args, *query.MaxScore)
	}

	return strings.Join(conditions, " AND "), args
}

// scanRow scans a database row into a Record.
func scanRow(rows *sql.Rows) (*audit.Record, error) {
	var record audit.Record
	var requestID sql.NullString
	var source string
	var recordedAt int64
	var issueTypes, severities, issueIDs, checks sql.NullString
	var duration sql.NullFloat64

	err := rows.Scan(
		&record.ID, &record.CheckID, &requestID, &source, &recordedAt,
		&record.ContentHash, &record.ContentLength,
		&record.Score, &record.Passed, &record.Blocked, &record.RiskLevel,
		&record.IssueCount, &issueTypes, &severities, &issueIDs, &checks,
		&record.Truncated, &record.Sanitized, &duration,
	)
	if err != nil {
		return nil, err
	}

	record.RequestID = requestID.String
	record.Source = audit.Source(source)
	record.Timestamp = time.Unix(0, recordedAt).UTC()
	record.DurationMs = duration.Float64

	if err := unmarshalField(issueTypes, &record.IssueTypes); err != nil {
		return nil, fmt.Errorf("issue_types: %w", err)
	}
	if err := unmarshalField(severities, &record.Severities); err != nil {
		return nil, fmt.Errorf("severities: %w", err)
	}
	if err := unmarshalField(issueIDs, &record.IssueIDs); err != nil {
		return nil, fmt.Errorf("issue_ids: %w", err)
	}
	if err := unmarshalField(checks, &record.ChecksPerformed); err != nil {
		return nil, fmt.Errorf("checks_performed: %w", err)
	}
	return &record, nil
}

func unmarshalField(s sql.NullString, v any) error {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}
