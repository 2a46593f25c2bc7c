// Package devops provides the incident-response toolset: a service log
// store, anomaly thresholds, and the tools the planner composes into
// remediation workflows.
package devops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"go.uber.org/zap"
)

// LogRecord is one ingested service log line.
type LogRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// LogQuery filters log reads. Zero values mean "no filter".
type LogQuery struct {
	Service string
	Level   string
	Since   time.Time
	Limit   int
}

// LogStore persists service logs and tracks when error spikes started,
// which feeds the detection-latency measurement.
type LogStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLogStore opens (or creates) the log database at path.
func NewLogStore(path string, logger *zap.Logger) (*LogStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening log database: %w", err)
	}
	return &LogStore{db: db, logger: logger}, nil
}

// Setup creates the schema. Safe to call repeatedly.
func (s *LogStore) Setup(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS logs (
		timestamp     REAL NOT NULL,
		service       TEXT NOT NULL,
		level         TEXT NOT NULL,
		message       TEXT NOT NULL,
		metadata_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_logs_service_ts ON logs(service, timestamp);
	CREATE TABLE IF NOT EXISTS spike_tracker (
		service          TEXT PRIMARY KEY,
		spike_started_at REAL NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating log schema: %w", err)
	}
	return nil
}

// Ingest appends one record. The first ERROR for a service without an open
// spike marks the spike start, later errors do not move it.
func (s *LogStore) Ingest(ctx context.Context, rec LogRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	var meta []byte
	if len(rec.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encoding log metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (timestamp, service, level, message, metadata_json) VALUES (?, ?, ?, ?, ?)`,
		float64(rec.Timestamp.UnixMilli())/1000.0, rec.Service, rec.Level, rec.Message, string(meta),
	)
	if err != nil {
		return fmt.Errorf("inserting log record: %w", err)
	}

	if rec.Level == "ERROR" {
		_, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO spike_tracker (service, spike_started_at) VALUES (?, ?)`,
			rec.Service, float64(rec.Timestamp.UnixMilli())/1000.0,
		)
		if err != nil {
			return fmt.Errorf("tracking error spike: %w", err)
		}
	}
	return nil
}

// Query returns matching records, newest first.
func (s *LogStore) Query(ctx context.Context, q LogQuery) ([]LogRecord, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `SELECT timestamp, service, level, message, metadata_json FROM logs WHERE 1=1`
	var args []any
	if q.Service != "" {
		query += ` AND service = ?`
		args = append(args, q.Service)
	}
	if q.Level != "" {
		query += ` AND level = ?`
		args = append(args, q.Level)
	}
	if !q.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, float64(q.Since.UnixMilli())/1000.0)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var out []LogRecord
	for rows.Next() {
		var (
			ts   float64
			rec  LogRecord
			meta sql.NullString
		)
		if err := rows.Scan(&ts, &rec.Service, &rec.Level, &rec.Message, &meta); err != nil {
			return nil, fmt.Errorf("scanning log record: %w", err)
		}
		rec.Timestamp = time.UnixMilli(int64(ts * 1000))
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &rec.Metadata); err != nil {
				s.logger.Warn("dropping unreadable log metadata", zap.Error(err))
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ErrorRate returns the fraction of ERROR records for service within the
// trailing window, plus the total record count observed in that window.
func (s *LogStore) ErrorRate(ctx context.Context, service string, window time.Duration) (rate float64, total int, err error) {
	since := float64(time.Now().Add(-window).UnixMilli()) / 1000.0
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN level = 'ERROR' THEN 1 ELSE 0 END), 0)
		 FROM logs WHERE service = ? AND timestamp >= ?`,
		service, since,
	)
	var errCount int
	if err := row.Scan(&total, &errCount); err != nil {
		return 0, 0, fmt.Errorf("computing error rate: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(errCount) / float64(total), total, nil
}

// SpikeStart reports when the open error spike for service began. The
// second return is false when no spike is open.
func (s *LogStore) SpikeStart(ctx context.Context, service string) (time.Time, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT spike_started_at FROM spike_tracker WHERE service = ?`, service)
	var ts float64
	switch err := row.Scan(&ts); err {
	case nil:
		return time.UnixMilli(int64(ts * 1000)), true, nil
	case sql.ErrNoRows:
		return time.Time{}, false, nil
	default:
		return time.Time{}, false, fmt.Errorf("reading spike tracker: %w", err)
	}
}

// ClearSpike closes the open spike for service, typically after a
// successful remediation.
func (s *LogStore) ClearSpike(ctx context.Context, service string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM spike_tracker WHERE service = ?`, service); err != nil {
		return fmt.Errorf("clearing spike tracker: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *LogStore) Close() error {
	return s.db.Close()
}
