// Package sqlite persists the bearer token in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/niksmo/shopfront/internal/core/port"
	_ "modernc.org/sqlite"
)

var _ port.TokenStore = (*Store)(nil)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db  *sql.DB
	key string
}

// Open opens the database at path and applies pending migrations. Tokens
// are stored under key.
func Open(ctx context.Context, path, key string) (*Store, error) {
	const op = "sqlite.Open"

	if key == "" {
		return nil, fmt.Errorf("%s: token key is empty", op)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: opening %s: %w", op, path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: setting busy timeout: %w", op, err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info("token store is ready", "op", op, "path", path)
	return &Store{db: db, key: key}, nil
}

func (s *Store) Load(ctx context.Context) (string, error) {
	const op = "sqlite.Store.Load"

	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM tokens WHERE key = ?`, s.key,
	).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

func (s *Store) Save(ctx context.Context, token string) error {
	const op = "sqlite.Store.Save"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		s.key, token,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	const op = "sqlite.Store.Clear"

	_, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE key = ?`, s.key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) Close() {
	const op = "sqlite.Store.Close"
	log := slog.With("op", op)

	if err := s.db.Close(); err != nil {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("token store is closed")
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	m.Log = newMigrationLogger()

	// m.Close would close db, which is owned by the store.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

type migrationLogger struct {
	logger *slog.Logger
}

func newMigrationLogger() *migrationLogger {
	return &migrationLogger{logger: slog.Default().With("op", "sqlite.migrate")}
}

func (ml *migrationLogger) Printf(format string, v ...any) {
	ml.logger.Debug(fmt.Sprintf(format, v...))
}

func (ml *migrationLogger) Verbose() bool {
	return false
}
