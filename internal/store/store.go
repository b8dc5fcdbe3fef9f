// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-playground/validator/v10"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	// ErrNotFound is returned when a row addressed by id or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPhrase is returned when a phrase fails boundary validation.
	ErrInvalidPhrase = errors.New("invalid phrase")
	// ErrUnknownWordType is returned for a word type without a table.
	ErrUnknownWordType = errors.New("unknown word type")
)

// Store wraps SQLite access for curriculum, vocabulary and practice data.
type Store struct {
	db       *sql.DB
	builder  sq.StatementBuilderType
	validate *validator.Validate
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	store := &Store{
		db:       db,
		builder:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	if err := store.migrate(context.Background()); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, sub)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}

func rollback(tx *sql.Tx) {
	if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
		// Best-effort rollback.
		_ = rerr
	}
}

// timeLayout keeps a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts the formats written by this package and by SQLite's
// CURRENT_TIMESTAMP.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
