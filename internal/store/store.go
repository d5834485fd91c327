// Package store is the Postgres persistence layer. It implements the store
// contracts of the service packages with pgx and translates database failures
// into the shared error taxonomy.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-idm/open-idm/internal/apperr"
)

// Store bundles all repositories over one connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store over the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool for components that manage their own
// connections, such as the advisory lock manager and the session store.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// translateErr maps driver errors onto the shared taxonomy: unique and
// foreign-key violations become conflicts, missing rows become not-found.
func translateErr(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Conflict(entity, pgErr.ConstraintName+" violated")
		case "23503":
			return apperr.Conflict(entity, "still referenced ("+pgErr.ConstraintName+")")
		}
	}
	return err
}

func errNoRows() error {
	return pgx.ErrNoRows
}

func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
