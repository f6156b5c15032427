// Package areastore tracks the bookkeeping history of derived area
// snapshots: one row per committed generation, backed by a small SQLite
// database migrated with goose. The area data itself (the area objects a
// "make area" query produced) lives in the snapshot directory as a
// shadow-file-then-rename commit; this package only remembers which
// commit is current and when it happened.
package areastore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // sqlite3 driver (pure Go)
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store records committed area-generation metadata in a SQLite database.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if necessary) the bookkeeping database at path and
// migrates it to the latest schema version. Use ":memory:" for tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("areastore: open sqlite database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("areastore: ping sqlite database: %w", err)
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("areastore: set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("areastore: run migrations: %w", err)
	}
	return nil
}

// Close closes the bookkeeping database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Debug("closing area bookkeeping database", slog.String("path", s.path))
	return s.db.Close()
}

// Generation is one committed area-derivation run.
type Generation struct {
	ID          int64
	Label       string
	BaseTS      string
	CommittedAt string
	ObjectCount int
}

// RecordCommit inserts a row for a generation whose shadow file has just
// been renamed into place, and returns its assigned id.
func (s *Store) RecordCommit(ctx context.Context, label, baseTS, committedAt string, objectCount int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO area_generations (label, base_ts, committed_at, object_count)
		VALUES (?, ?, ?, ?)
	`, label, baseTS, committedAt, objectCount)
	if err != nil {
		return 0, fmt.Errorf("areastore: record commit: %w", err)
	}
	return res.LastInsertId()
}

// Latest returns the most recently committed generation, or ok=false if
// no area snapshot has ever been committed.
func (s *Store) Latest(ctx context.Context) (gen Generation, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, label, base_ts, committed_at, object_count
		FROM area_generations
		ORDER BY id DESC
		LIMIT 1
	`)
	err = row.Scan(&gen.ID, &gen.Label, &gen.BaseTS, &gen.CommittedAt, &gen.ObjectCount)
	if err == sql.ErrNoRows {
		return Generation{}, false, nil
	}
	if err != nil {
		return Generation{}, false, fmt.Errorf("areastore: latest generation: %w", err)
	}
	return gen, true, nil
}

// History returns the most recent generations, newest first, bounded by
// limit.
func (s *Store) History(ctx context.Context, limit int) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, base_ts, committed_at, object_count
		FROM area_generations
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("areastore: history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Generation
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.ID, &g.Label, &g.BaseTS, &g.CommittedAt, &g.ObjectCount); err != nil {
			return nil, fmt.Errorf("areastore: scan generation: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("areastore: history rows: %w", err)
	}
	return out, nil
}
