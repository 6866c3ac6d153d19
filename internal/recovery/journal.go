package recovery

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Journal is an append-only record of status transitions backed by SQLite.
// It exists for post-hoc diagnostics; the journal never stores the mnemonic
// or any credential because details are redacted before they reach it.
type Journal struct {
	db   *sql.DB
	path string
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS transitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    detail TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_session ON transitions(session_id);
`

// OpenJournal initializes or connects to the journal database.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
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
	if _, err := db.Exec(journalSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Journal{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Transition is one recorded status change.
type Transition struct {
	ID         int64
	SessionID  string
	FromStatus Status
	ToStatus   Status
	Detail     string
	CreatedAt  time.Time
}

// Append records a status transition. A nil journal is a no-op so callers can
// run without one.
func (j *Journal) Append(ctx context.Context, sessionID string, from, to Status, detail string) error {
	if j == nil || j.db == nil {
		return nil
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := j.db.ExecContext(
		ctx,
		`INSERT INTO transitions (session_id, from_status, to_status, detail, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(from), string(to), detail, timestamp,
	)
	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

// Recent returns the latest transitions, newest first. Limit <= 0 means 50.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Transition, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(
		ctx,
		`SELECT id, session_id, from_status, to_status, detail, created_at
         FROM transitions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var (
			tr        Transition
			from, to  string
			createdAt string
			detail    sql.NullString
		)
		if err := rows.Scan(&tr.ID, &tr.SessionID, &from, &to, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.FromStatus = Status(from)
		tr.ToStatus = Status(to)
		tr.Detail = detail.String
		if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			tr.CreatedAt = parsed
		}
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}
