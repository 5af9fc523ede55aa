// Package sqlite implements the ippi persistence contracts on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ippiapp/ippi-server/internal/domain"
	"github.com/ippiapp/ippi-server/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed width so that text ordering of timestamps matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"busy_timeout(5000)",
}

// querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides SQLite-backed persistence for the ippi server.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ store.StatsStore       = (*Store)(nil)
	_ store.AchievementStore = (*Store)(nil)
	_ store.ActivityStore    = (*Store)(nil)
	_ store.FollowStore      = (*Store)(nil)
	_ store.ReactionStore    = (*Store)(nil)
)

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite has a single writer; a small pool is enough for concurrent readers.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

func dsn(path string) string {
	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// statsTx implements store.StatsTx on a connection holding an open transaction.
type statsTx struct {
	q querier
}

// WithStatsTx runs fn inside one write transaction.
//
// The transaction is opened with BEGIN IMMEDIATE so the write lock is taken up
// front (waiting up to busy_timeout) rather than on the first write, which would
// otherwise fail with SQLITE_BUSY when another writer committed in between.
func (s *Store) WithStatsTx(ctx context.Context, fn func(tx store.StatsTx) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return mapError(fmt.Errorf("acquire conn: %w", err))
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return mapError(fmt.Errorf("begin: %w", err))
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// Rollback on a fresh context so a cancelled request still releases the lock.
		if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			s.logger.Warn("stats tx rollback failed", "error", rbErr)
		}
	}()

	if err := fn(&statsTx{q: conn}); err != nil {
		return mapError(err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	committed = true
	return nil
}

// mapError converts driver lock contention into store.ErrBusy and leaves other errors unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return store.ErrBusy.WithCause(err)
		}
	}
	if strings.Contains(err.Error(), "database is locked") {
		return store.ErrBusy.WithCause(err)
	}
	return err
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// formatTime formats a time.Time for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// formatDate formats a calendar date, mapping the zero date to NULL.
func formatDate(d time.Time) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: domain.FormatDate(d), Valid: true}
}

// parseDate parses a nullable calendar date column.
func parseDate(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return domain.ParseDate(s.String)
}

// nullString returns a sql.NullString, treating empty strings as NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
