package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	maxOpenConns    = 4
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute
	dialTimeout     = 5 * time.Second
)

// NewDB opens the MySQL handle behind SQLTokenStore. database/sql always
// hands out connections from a pool, so the pool is capped rather than
// avoided: the token row is written by Login and cleared by the 401 hook,
// and those two can overlap, but a CLI process never needs more than a few
// connections. An unreachable server is logged, not fatal; the first token
// read reports it instead.
func NewDB(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = dialTimeout
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		slog.Warn("token database unreachable", "addr", cfg.Addr, "error", err)
	}

	return db, nil
}
