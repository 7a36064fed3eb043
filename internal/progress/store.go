package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Status records the final outcome of one migration action.
type Status string

const (
	// StatusCompleted marks bytes copied and verified at the target path.
	StatusCompleted Status = "completed"
	// StatusSkipped marks a target that already held verified bytes.
	StatusSkipped Status = "skipped"
	// StatusLinked marks a duplicate reference created without byte transfer.
	StatusLinked Status = "linked"
	// StatusFailed marks an action whose retries were exhausted.
	StatusFailed Status = "failed"
)

// Done reports whether the status means the action needs no further work.
func (s Status) Done() bool {
	switch s {
	case StatusCompleted, StatusSkipped, StatusLinked:
		return true
	}
	return false
}

// Entry is one journal row.
type Entry struct {
	TargetPath     string
	RunID          string
	Status         Status
	ObservedDigest string
	Message        string
	RecordedAt     time.Time
}

// Stats aggregates journal contents.
type Stats struct {
	Completed int
	Skipped   int
	Linked    int
	Failed    int
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path.
// synchronous=FULL makes every committed row durable before the write call
// returns; resumption safety depends on it.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	// One connection: pragmas apply to every statement, and concurrent
	// workers queue on the pool instead of tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the journal database location.
func (s *Store) Path() string {
	return s.path
}

// Record persists the outcome of one action. A done entry is never
// downgraded: recording a failure over a previously successful row is
// rejected so a flaky re-run cannot erase completed work.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.TargetPath == "" {
		return errors.New("journal entry missing target path")
	}
	existing, ok, err := s.Get(ctx, entry.TargetPath)
	if err != nil {
		return err
	}
	if ok && existing.Status.Done() && !entry.Status.Done() {
		return nil
	}

	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journal (target_path, run_id, status, observed_digest, message, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(target_path) DO UPDATE SET
           run_id = excluded.run_id,
           status = excluded.status,
           observed_digest = excluded.observed_digest,
           message = excluded.message,
           recorded_at = excluded.recorded_at`,
		entry.TargetPath,
		entry.RunID,
		string(entry.Status),
		nullableString(entry.ObservedDigest),
		nullableString(entry.Message),
		recordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

// Get fetches the journal entry for a target path.
func (s *Store) Get(ctx context.Context, targetPath string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT target_path, run_id, status, observed_digest, message, recorded_at
         FROM journal WHERE target_path = ?`, targetPath)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get journal entry: %w", err)
	}
	return entry, true, nil
}

// DoneTargets returns the target paths whose actions need no further work.
func (s *Store) DoneTargets(ctx context.Context) (map[string]Status, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_path, status FROM journal WHERE status IN (?, ?, ?)`,
		string(StatusCompleted), string(StatusSkipped), string(StatusLinked))
	if err != nil {
		return nil, fmt.Errorf("query done targets: %w", err)
	}
	defer rows.Close()

	done := make(map[string]Status)
	for rows.Next() {
		var target, status string
		if err := rows.Scan(&target, &status); err != nil {
			return nil, fmt.Errorf("scan done target: %w", err)
		}
		done[target] = Status(status)
	}
	return done, rows.Err()
}

// Stats returns aggregate counts over the journal.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM journal GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("query journal stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan journal stats: %w", err)
		}
		switch Status(status) {
		case StatusCompleted:
			stats.Completed = count
		case StatusSkipped:
			stats.Skipped = count
		case StatusLinked:
			stats.Linked = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (Entry, error) {
	var entry Entry
	var status string
	var observed, message sql.NullString
	var recordedAt string
	if err := row.Scan(&entry.TargetPath, &entry.RunID, &status, &observed, &message, &recordedAt); err != nil {
		return Entry{}, err
	}
	entry.Status = Status(status)
	entry.ObservedDigest = observed.String
	entry.Message = message.String
	if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
		entry.RecordedAt = ts
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
