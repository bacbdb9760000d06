// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose),
// and the transactional Store built on top of it.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/lemonauth/internal/dbx"
	"github.com/dmitrijs2005/lemonauth/internal/server/migrations"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/options"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// Sessions returns a sessions.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

// Options returns an options.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Options(db dbx.DBTX) options.Repository {
	return options.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

// SQLStore implements Store on a *sql.DB.
type SQLStore struct {
	db   *sql.DB
	tx   dbx.DBTX
	m    RepositoryManager
	inTx bool
}

// NewStore returns a Store whose repositories run against db.
func NewStore(db *sql.DB, m RepositoryManager) *SQLStore {
	return &SQLStore{db: db, tx: db, m: m}
}

func (s *SQLStore) Users() users.Repository       { return s.m.Users(s.tx) }
func (s *SQLStore) Sessions() sessions.Repository { return s.m.Sessions(s.tx) }
func (s *SQLStore) Options() options.Repository   { return s.m.Options(s.tx) }

// WithinTx opens a transaction via dbx.WithTx. Nested calls reuse the
// outer transaction.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &SQLStore{db: s.db, tx: tx, m: s.m, inTx: true})
	})
}
