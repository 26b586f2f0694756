package db

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

func New(url string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return conn, nil
}

func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "create pgx pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return pool, nil
}
