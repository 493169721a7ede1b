// Package db constructs the pgx connection pool used by every repository.
package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pingTimeout = 5 * time.Second

// Options bound the pool and cap statement runtime.
type Options struct {
	PoolMin          int32
	PoolMax          int32
	StatementTimeout time.Duration
}

// NewPool builds a pgxpool.Pool and validates the connection.
//
// Connections run in exec query mode with no statement cache: the service sits
// behind a transaction-mode pooler, so nothing may depend on connection-local
// prepared statements. NUMERIC columns are mapped to shopspring decimals.
func NewPool(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("db: empty DSN")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("db: parse dsn: %w", err)
	}

	if opts.PoolMin > 0 {
		cfg.MinConns = opts.PoolMin
	}
	if opts.PoolMax > 0 {
		cfg.MaxConns = opts.PoolMax
	}

	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
	if opts.StatementTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] =
			strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return pool, nil
}
