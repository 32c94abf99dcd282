package trace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Fixed-width UTC layout so timestamps sort lexically
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteExporter stores one row per trace record in a SQLite database.
type SQLiteExporter struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteExporter opens (or creates) the database at dbPath and ensures
// the traces table exists. dbPath may be ":memory:".
func NewSQLiteExporter(dbPath string) (*SQLiteExporter, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create trace directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	exporter := &SQLiteExporter{db: db}
	if err := exporter.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize trace schema: %w", err)
	}

	return exporter, nil
}

func (s *SQLiteExporter) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS traces (
		operation_id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		operation TEXT NOT NULL,
		model TEXT,
		duration_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		error_type TEXT,
		spans TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_traces_operation ON traces(operation, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Export inserts the record. Records with a duplicate operation ID are rejected.
func (s *SQLiteExporter) Export(ctx context.Context, record *TraceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("exporter closed")
	}

	spans, err := json.Marshal(record.Spans)
	if err != nil {
		return fmt.Errorf("encode trace spans: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO traces (operation_id, timestamp, operation, model, duration_ms, status, error_type, spans)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.OperationID,
		record.Timestamp.UTC().Format(sqliteTimeLayout),
		record.Operation,
		record.Model,
		record.DurationMs,
		record.Status,
		record.ErrorType,
		string(spans),
	)
	if err != nil {
		return fmt.Errorf("insert trace record: %w", err)
	}
	return nil
}

// Records returns stored traces for operation (all operations when empty),
// oldest first.
func (s *SQLiteExporter) Records(ctx context.Context, operation string) ([]TraceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT operation_id, timestamp, operation, model, duration_ms, status, error_type, spans FROM traces`
	var args []any
	if operation != "" {
		query += ` WHERE operation = ?`
		args = append(args, operation)
	}
	query += ` ORDER BY timestamp, operation_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace records: %w", err)
	}
	defer rows.Close()

	var records []TraceRecord
	for rows.Next() {
		var (
			r         TraceRecord
			timestamp string
			model     sql.NullString
			errorType sql.NullString
			spans     sql.NullString
		)
		if err := rows.Scan(&r.OperationID, &timestamp, &r.Operation, &model, &r.DurationMs, &r.Status, &errorType, &spans); err != nil {
			return nil, fmt.Errorf("scan trace record: %w", err)
		}

		r.Timestamp, err = time.Parse(sqliteTimeLayout, timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse trace timestamp: %w", err)
		}
		r.Model = model.String
		r.ErrorType = errorType.String
		if spans.Valid && spans.String != "" {
			if err := json.Unmarshal([]byte(spans.String), &r.Spans); err != nil {
				return nil, fmt.Errorf("decode trace spans: %w", err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database. Safe to call more than once.
func (s *SQLiteExporter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
