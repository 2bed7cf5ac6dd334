package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sweeper/internal/config"
)

// Status tracks the lifecycle of one processed download.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusDeferred  Status = "deferred"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Record is the journal entry for one completion event's outcome.
type Record struct {
	ID           int64
	GID          string
	Title        string
	Category     string
	Status       Status
	FinalPath    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists the processing journal in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    gid TEXT NOT NULL,
    title TEXT NOT NULL,
    category TEXT,
    status TEXT NOT NULL,
    final_path TEXT,
    error_message TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_gid ON history(gid);
CREATE INDEX IF NOT EXISTS idx_history_status ON history(status);
`

// Open initializes or connects to the journal database under the log
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Add inserts a new record, filling ID and timestamps.
func (s *Store) Add(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("nil record")
	}
	if record.Status == "" {
		record.Status = StatusPending
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO history (gid, title, category, status, final_path, error_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.GID,
		record.Title,
		nullableString(record.Category),
		string(record.Status),
		nullableString(record.FinalPath),
		nullableString(record.ErrorMessage),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("read insert id: %w", err)
	}
	record.ID = id
	return nil
}

// Update persists the mutable fields of an existing record.
func (s *Store) Update(ctx context.Context, record *Record) error {
	if record == nil || record.ID == 0 {
		return errors.New("record missing id")
	}
	record.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`UPDATE history SET category = ?, status = ?, final_path = ?, error_message = ?, updated_at = ?
		 WHERE id = ?`,
		nullableString(record.Category),
		string(record.Status),
		nullableString(record.FinalPath),
		nullableString(record.ErrorMessage),
		record.UpdatedAt.Format(time.RFC3339),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("update history record %d: %w", record.ID, err)
	}
	return nil
}

const recordColumns = "id, gid, title, category, status, final_path, error_message, created_at, updated_at"

// FindByGID returns the most recent record for a gid, or nil when none
// exists.
func (s *Store) FindByGID(ctx context.Context, gid string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM history WHERE gid = ? ORDER BY id DESC LIMIT 1", gid)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// List returns up to limit records, newest first. A non-empty status
// restricts the result set.
func (s *Store) List(ctx context.Context, status Status, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}

	query := "SELECT " + recordColumns + " FROM history"
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats returns record counts grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM history GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// ClearCompleted removes terminal records, keeping failures for inspection.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM history WHERE status IN (?, ?)",
		string(StatusCompleted), string(StatusSkipped))
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return result.RowsAffected()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		gid          string
		title        string
		category     sql.NullString
		statusStr    string
		finalPath    sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &gid, &title, &category, &statusStr, &finalPath, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan history record: %w", err)
	}

	record := &Record{
		ID:           id,
		GID:          gid,
		Title:        title,
		Category:     category.String,
		Status:       Status(statusStr),
		FinalPath:    finalPath.String,
		ErrorMessage: errorMessage.String,
	}
	record.CreatedAt = parseTime(createdRaw)
	record.UpdatedAt = parseTime(updatedRaw)
	return record, nil
}

func parseTime(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
