package store

import (
	"context"
	"database/sql"
)

// Execer and Getter are the halves of *sqlx.Tx a service hands to store
// methods that must join its transaction. DB is the pool-backed side used for
// reads and for the idempotency table, which never joins a caller's unit of work.

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}
