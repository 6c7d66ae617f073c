package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/simonjohansson/taskboard/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrNotFound        = errors.New("not found")
	ErrOngoingConflict = errors.New("ongoing card already exists")
	ErrDuplicateEmail  = errors.New("email already registered")
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteStore struct {
	db *sql.DB
}

// Open opens the database at path and applies pending migrations. Write
// transactions begin with BEGIN IMMEDIATE so check-then-write sequences are
// serialized across connections.
func Open(path string) (*SQLiteStore, error) {
	if err := Migrate(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func Migrate(path string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	// Close releases both the source and the migration connection.
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Tx groups the repositories bound to one transaction (or to the pool for
// read-only views).
type Tx struct {
	q querier
}

func (t *Tx) Cards() *CardRepository {
	return &CardRepository{q: t.q}
}

func (t *Tx) Comments() *CommentRepository {
	return &CommentRepository{q: t.q}
}

func (t *Tx) Users() *UserRepository {
	return &UserRepository{q: t.q}
}

// InTx runs fn inside a single transaction, committing when fn returns nil.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&Tx{q: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// View runs fn against the connection pool without a transaction.
func (s *SQLiteStore) View(ctx context.Context, fn func(tx *Tx) error) error {
	return fn(&Tx{q: s.db})
}

func formatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(model.DateLayout, raw)
}

func nullableString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func isUniqueViolation(err error, column string) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return strings.Contains(sqliteErr.Error(), column)
}
