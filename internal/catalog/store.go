// Package catalog maintains a queryable SQLite index over the sidecar
// documents a migration leaves behind.
//
// The database is derived state. Every row can be rebuilt from the sidecar
// tree, so re-indexing after a crash or schema bump is always safe.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reelvault/internal/sidecar"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current catalog schema version. On mismatch the
// database should be deleted and rebuilt from the sidecars.
const schemaVersion = 1

// ErrSchemaMismatch indicates the catalog schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("catalog schema version mismatch")

// Clip is one indexed catalog row.
type Clip struct {
	TargetPath   string
	Digest       string
	SourcePath   string
	Device       string
	Category     string
	SizeBytes    int64
	CreationDate string
	MigratedAt   string
	DuplicateOf  string
	DurationSecs float64
	Width        int
	Height       int
	FPS          float64
	Codec        string
	IndexedAt    time.Time
}

// DeviceCount is one row of the per-device breakdown.
type DeviceCount struct {
	Device string
	Clips  int
	Bytes  int64
}

// Stats aggregates catalog contents.
type Stats struct {
	Clips      int
	TotalBytes int64
	Duplicates int
	Devices    []DeviceCount
}

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	// One connection so the pragmas apply to every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
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

// Path returns the catalog database location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read catalog schema version: %w", err)
	}

	if version != schemaVersion {
		return fmt.Errorf("%w: catalog has version %d, expected %d (delete %s and re-index)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}

	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create catalog schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record catalog schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog schema: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the row for one sidecar record.
func (s *Store) Upsert(ctx context.Context, rec sidecar.Record) error {
	if rec.TargetPath == "" {
		return errors.New("sidecar record missing target path")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clips (target_path, digest, source_path, device, category,
            size_bytes, creation_date, migrated_at, duplicate_of,
            duration_secs, width, height, fps, codec, indexed_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(target_path) DO UPDATE SET
           digest = excluded.digest,
           source_path = excluded.source_path,
           device = excluded.device,
           category = excluded.category,
           size_bytes = excluded.size_bytes,
           creation_date = excluded.creation_date,
           migrated_at = excluded.migrated_at,
           duplicate_of = excluded.duplicate_of,
           duration_secs = excluded.duration_secs,
           width = excluded.width,
           height = excluded.height,
           fps = excluded.fps,
           codec = excluded.codec,
           indexed_at = excluded.indexed_at`,
		rec.TargetPath,
		rec.ID,
		rec.SourcePath,
		nullableString(rec.Device),
		rec.Category,
		rec.SizeBytes,
		nullableString(rec.CreationDate),
		rec.MigratedAt,
		nullableString(rec.DuplicateOf),
		nullableFloat(rec.DurationSecs),
		nullableInt(rec.Width),
		nullableInt(rec.Height),
		nullableFloat(rec.FPS),
		nullableString(rec.Codec),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert clip: %w", err)
	}
	return nil
}

// Get fetches the catalog row for a target path.
func (s *Store) Get(ctx context.Context, targetPath string) (Clip, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT target_path, digest, source_path, device, category, size_bytes,
            creation_date, migrated_at, duplicate_of, duration_secs, width,
            height, fps, codec, indexed_at
         FROM clips WHERE target_path = ?`, targetPath)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Clip{}, false, nil
	}
	if err != nil {
		return Clip{}, false, fmt.Errorf("get clip: %w", err)
	}
	return clip, true, nil
}

// ByDigest returns every catalog row sharing a content digest, ordered by
// target path.
func (s *Store) ByDigest(ctx context.Context, digest string) ([]Clip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_path, digest, source_path, device, category, size_bytes,
            creation_date, migrated_at, duplicate_of, duration_secs, width,
            height, fps, codec, indexed_at
         FROM clips WHERE digest = ? ORDER BY target_path`, digest)
	if err != nil {
		return nil, fmt.Errorf("query clips by digest: %w", err)
	}
	defer rows.Close()

	var clips []Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// Stats returns aggregate counts over the catalog.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(size_bytes), 0),
            COALESCE(SUM(CASE WHEN duplicate_of IS NOT NULL THEN 1 ELSE 0 END), 0)
         FROM clips`).Scan(&stats.Clips, &stats.TotalBytes, &stats.Duplicates)
	if err != nil {
		return Stats{}, fmt.Errorf("query catalog stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(device, ''), COUNT(1), COALESCE(SUM(size_bytes), 0)
         FROM clips GROUP BY device ORDER BY COUNT(1) DESC, device`)
	if err != nil {
		return Stats{}, fmt.Errorf("query device breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dc DeviceCount
		if err := rows.Scan(&dc.Device, &dc.Clips, &dc.Bytes); err != nil {
			return Stats{}, fmt.Errorf("scan device breakdown: %w", err)
		}
		stats.Devices = append(stats.Devices, dc)
	}
	return stats, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanClip(row scannable) (Clip, error) {
	var clip Clip
	var device, creationDate, duplicateOf, codec sql.NullString
	var duration, fps sql.NullFloat64
	var width, height sql.NullInt64
	var indexedAt string
	err := row.Scan(&clip.TargetPath, &clip.Digest, &clip.SourcePath, &device,
		&clip.Category, &clip.SizeBytes, &creationDate, &clip.MigratedAt,
		&duplicateOf, &duration, &width, &height, &fps, &codec, &indexedAt)
	if err != nil {
		return Clip{}, err
	}
	clip.Device = device.String
	clip.CreationDate = creationDate.String
	clip.DuplicateOf = duplicateOf.String
	clip.DurationSecs = duration.Float64
	clip.Width = int(width.Int64)
	clip.Height = int(height.Int64)
	clip.FPS = fps.Float64
	clip.Codec = codec.String
	if ts, err := time.Parse(time.RFC3339Nano, indexedAt); err == nil {
		clip.IndexedAt = ts
	}
	return clip, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}
