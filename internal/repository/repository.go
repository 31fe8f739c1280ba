package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/mangareview/internal/store"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so every repository can run
// either standalone or inside a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Series  *SeriesRepository
	Reviews *ReviewsRepository
	Likes   *LikesRepository
	Users   *UsersRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithDB(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return NewWithDB(pool)
}

// WithTx returns repositories bound to tx.
func WithTx(tx pgx.Tx) *Repository {
	return NewWithDB(tx)
}

// NewWithDB binds all repositories to db.
func NewWithDB(db DBTX) *Repository {
	return &Repository{
		Series:  &SeriesRepository{db: db},
		Reviews: &ReviewsRepository{db: db},
		Likes:   &LikesRepository{db: db},
		Users:   &UsersRepository{db: db},
	}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
