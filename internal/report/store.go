// Package report persists analysis output (validation, traffic, day-2
// reports) to a local SQLite database. Simulation state is never stored here;
// the archive only holds the JSON-encoded results of analysis passes.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Kinds of archived reports.
const (
	KindValidation = "validation"
	KindTraffic    = "traffic"
	KindDay2       = "day2"
)

var ErrNotFound = errors.New("report not found")

// Record is one archived report row.
type Record struct {
	ID        string
	Kind      string
	CreatedAt time.Time
	Data      json.RawMessage
}

// Store is a SQLite-backed report archive.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the archive at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate report store: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		data JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_kind_created ON reports(kind, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a report of the given kind and returns its row ID.
func (s *Store) Save(ctx context.Context, kind string, report any) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode %s report: %w", kind, err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, kind, created_at, data) VALUES (?, ?, ?, ?)
	`, id, kind, time.Now().UTC(), data)
	if err != nil {
		return "", fmt.Errorf("insert %s report: %w", kind, err)
	}
	return id, nil
}

// Latest returns the most recently archived report of the given kind.
func (s *Store) Latest(ctx context.Context, kind string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, created_at, data FROM reports
		WHERE kind = ? ORDER BY created_at DESC, id LIMIT 1
	`, kind)

	var rec Record
	if err := row.Scan(&rec.ID, &rec.Kind, &rec.CreatedAt, &rec.Data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: kind %q", ErrNotFound, kind)
		}
		return nil, fmt.Errorf("query latest %s report: %w", kind, err)
	}
	return &rec, nil
}

// List returns archived reports of the given kind, newest first, up to limit
// rows (0 means no limit).
func (s *Store) List(ctx context.Context, kind string, limit int) ([]Record, error) {
	query := `
		SELECT id, kind, created_at, data FROM reports
		WHERE kind = ? ORDER BY created_at DESC, id
	`
	args := []any{kind}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s reports: %w", kind, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.CreatedAt, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
