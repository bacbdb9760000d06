package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/lemonauth/internal/dbx"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/options"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX and runs migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Options(db dbx.DBTX) options.Repository
}

// Store is what services depend on: repositories bound either to the pool
// or, inside WithinTx, to a single transaction.
type Store interface {
	Users() users.Repository
	Sessions() sessions.Repository
	Options() options.Repository

	// WithinTx runs fn with a Store whose repositories share one transaction.
	// The transaction commits if fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
