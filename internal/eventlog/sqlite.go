// Package eventlog reads the device event log from a SQLite file written by
// the site gateway.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/speedwagon-io/xrgimon/internal/lib/logger/sl"
	"github.com/speedwagon-io/xrgimon/internal/model"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
)

type SQLiteLog struct {
	log    *slog.Logger
	db     *sql.DB
	maxAge time.Duration
}

func NewSQLiteLog(log *slog.Logger, dbPath string, maxAge time.Duration) (*SQLiteLog, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	l := NewSQLiteLogFromDB(log, db, maxAge)

	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return l, nil
}

func NewSQLiteLogFromDB(log *slog.Logger, db *sql.DB, maxAge time.Duration) *SQLiteLog {
	return &SQLiteLog{
		log:    log,
		db:     db,
		maxAge: maxAge,
	}
}

func (l *SQLiteLog) Name() string {
	return "sqlite"
}

// Raw timestamps are stored as text exactly as received; received_at is the
// local insert time and only drives cleanup.
func (l *SQLiteLog) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL,
			raw_timestamp TEXT NOT NULL,
			value_json TEXT NOT NULL,
			received_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_key ON events(key);
		CREATE INDEX IF NOT EXISTS idx_events_received_at ON events(received_at);
	`
	_, err := l.db.Exec(query)
	return err
}

func (l *SQLiteLog) Append(ctx context.Context, rec *model.EventRecord) error {
	rawTS, err := json.Marshal(rec.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	value := rec.Value
	if len(value) == 0 {
		value = json.RawMessage("null")
	}

	query := `
		INSERT OR IGNORE INTO events (id, key, raw_timestamp, value_json, received_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = l.db.ExecContext(ctx, query,
		rec.ID,
		rec.Key,
		string(rawTS),
		string(value),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}

	l.log.Debug("event stored", slog.String("id", rec.ID), slog.String("key", rec.Key))
	return nil
}

func (l *SQLiteLog) Records(ctx context.Context) ([]model.EventRecord, error) {
	query := `
		SELECT id, key, raw_timestamp, value_json
		FROM events
		ORDER BY received_at ASC, rowid ASC
	`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []model.EventRecord
	for rows.Next() {
		var id, key, rawTS, valueJSON string

		if err := rows.Scan(&id, &key, &rawTS, &valueJSON); err != nil {
			l.log.Error("failed to scan row", sl.Err(err))
			continue
		}

		var ts timestamp.RawTimestamp
		if err := json.Unmarshal([]byte(rawTS), &ts); err != nil {
			l.log.Error("failed to decode timestamp", slog.String("id", id), sl.Err(err))
			continue
		}

		records = append(records, model.EventRecord{
			ID:        id,
			Key:       key,
			Timestamp: ts,
			Value:     json.RawMessage(valueJSON),
		})
	}

	return records, rows.Err()
}

func (l *SQLiteLog) Cleanup(ctx context.Context) error {
	if l.maxAge <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().Add(-l.maxAge).Format(time.RFC3339)

	result, err := l.db.ExecContext(ctx, "DELETE FROM events WHERE received_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old events: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		l.log.Info("cleaned up old events", slog.Int64("deleted", deleted))
	}

	return nil
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func (l *SQLiteLog) Count(ctx context.Context) (int64, error) {
	var count int64
	err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	return count, err
}
