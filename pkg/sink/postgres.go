package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolInterface is the subset of pgxpool.Pool used by PostgresSink.
// This allows for easier testing with mock implementations.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresSink inserts each record as a jsonb row.
//
// The table must exist and have a jsonb column named record, for example:
//
//	CREATE TABLE request_logs (
//	    id         bigserial PRIMARY KEY,
//	    record     jsonb NOT NULL,
//	    created_at timestamptz NOT NULL DEFAULT now()
//	);
type PostgresSink struct {
	pool   PoolInterface
	table  string
	insert string
}

// NewPostgres opens a connection pool and verifies it with a ping.
func NewPostgres(ctx context.Context, cfg config.PostgresSinkConfig) (*PostgresSink, error) {
	if cfg.Host == "" {
		return nil, errors.NewInvalidInput("sink.postgres.host", "host is required")
	}
	if cfg.Database == "" {
		return nil, errors.NewInvalidInput("sink.postgres.database", "database is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, errors.NewInvalidInputWithCause("sink.postgres", "failed to parse pool config", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.NewTemporary("failed to create connection pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewTemporary("failed to ping database", err)
	}

	return NewPostgresWithPool(pool, cfg.Table), nil
}

// NewPostgresWithPool creates a sink on an existing pool. An empty table
// name selects request_logs.
func NewPostgresWithPool(pool PoolInterface, table string) *PostgresSink {
	if table == "" {
		table = "request_logs"
	}
	return &PostgresSink{
		pool:   pool,
		table:  table,
		insert: fmt.Sprintf("INSERT INTO %s (record) VALUES ($1::jsonb)", pgx.Identifier{table}.Sanitize()),
	}
}

// buildConnString constructs a PostgreSQL connection string from the config.
func buildConnString(cfg config.PostgresSinkConfig) string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s",
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.User,
		cfg.Password,
	)

	if cfg.SSLMode != "" {
		connStr += fmt.Sprintf(" sslmode=%s", cfg.SSLMode)
	}
	if cfg.ConnectTimeout > 0 {
		connStr += fmt.Sprintf(" connect_timeout=%d", int(cfg.ConnectTimeout.Seconds()))
	}

	return connStr
}

// Write inserts line into the table.
func (s *PostgresSink) Write(ctx context.Context, line []byte) error {
	if _, err := s.pool.Exec(ctx, s.insert, string(trimNewline(line))); err != nil {
		return errors.NewTemporary("failed to insert access record", err)
	}
	return nil
}

// Check pings the database.
func (s *PostgresSink) Check(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return errors.NewTemporary("database ping failed", err)
	}
	return nil
}

// Close closes all connections in the pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresSink) String() string {
	return "postgres:" + s.table
}

// Ensure pgxpool.Pool implements PoolInterface at compile time.
var _ PoolInterface = (*pgxpool.Pool)(nil)
