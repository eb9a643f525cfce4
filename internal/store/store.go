// Package store owns the bounded connection pool against the relational
// database and the one-time schema bootstrap, per spec.md §4.1.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/objectfs/docvfs/internal/circuit"
	"github.com/objectfs/docvfs/internal/config"
	"github.com/objectfs/docvfs/pkg/errors"
	"github.com/objectfs/docvfs/pkg/retry"
	"github.com/objectfs/docvfs/pkg/types"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting VFS
// primitives run against either the shared pool (auto-commit) or the
// connection held by the ambient TxScope, without knowing which.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store owns the connection pool and the one-time schema bootstrap.
type Store struct {
	pool    *pgxpool.Pool
	breaker *circuit.CircuitBreaker
	retryer *retry.Retryer
	metrics types.MetricsCollector
}

// New validates cfg and opens a bounded pool against the configured
// database. It fails with ErrCodeConfigMissing when required settings are
// absent, per spec.md §4.1.
func New(ctx context.Context, cfg config.DatabaseConfig, metrics types.MetricsCollector) (*Store, error) {
	if cfg.Host == "" {
		return nil, errors.New(errors.ErrCodeConfigMissing, "database.host is required")
	}
	if cfg.Database == "" {
		return nil, errors.New(errors.ErrCodeConfigMissing, "database.database is required")
	}
	if cfg.User == "" {
		return nil, errors.New(errors.ErrCodeConfigMissing, "database.user is required")
	}

	maxConns := cfg.Pool.MaxConns
	if maxConns <= 0 {
		maxConns = 20
	}
	idleTimeout := cfg.Pool.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	connectTimeout := cfg.Pool.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "parse database dsn: %v", err)
	}
	poolCfg.MaxConns = int32(maxConns)
	poolCfg.MaxConnIdleTime = idleTimeout
	poolCfg.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Newf(errors.ErrCodeConnectionFailed, "open connection pool: %v", err)
	}

	breaker := circuit.NewCircuitBreaker("store", circuit.Config{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuit.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	retryer := retry.New(retry.DefaultConfig())

	return &Store{pool: pool, breaker: breaker, retryer: retryer, metrics: metrics}, nil
}

// Pool returns the underlying connection pool, used as the default Querier
// when no TxScope is active (auto-commit).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Acquire fetches a pooled connection, guarded by the circuit breaker so a
// database outage fails fast instead of queuing every caller behind a dead
// pool. Transient failures within one Acquire call (connection timeouts,
// momentary pool exhaustion) are retried with backoff by pkg/retry before
// the breaker ever sees them as a single failed request.
func (s *Store) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	var conn *pgxpool.Conn
	err := s.breaker.Execute(func() error {
		return s.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			c, err := s.pool.Acquire(ctx)
			if err != nil {
				return errors.Newf(errors.ErrCodeConnectionFailed, "acquire pooled connection: %v", err)
			}
			conn = c
			return nil
		})
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("store.acquire", err)
		}
		return nil, errors.Newf(errors.ErrCodeConnectionPool, "acquire connection: %v", err)
	}
	return conn, nil
}

// Bootstrap idempotently installs the nodes schema and the VFS stored
// procedures declared in §6.1/§4.3. Safe to call on every process start.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return errors.Newf(errors.ErrCodeInternalError, "install schema: %v", err)
	}
	if _, err := s.pool.Exec(ctx, schemaFunctions); err != nil {
		return errors.Newf(errors.ErrCodeInternalError, "install stored procedures: %v", err)
	}
	return nil
}

// Stats reports pool saturation for the health/ops surface.
func (s *Store) Stats() types.ConnectionStats {
	stat := s.pool.Stat()
	return types.ConnectionStats{
		Active:      int(stat.AcquiredConns()),
		Idle:        int(stat.IdleConns()),
		Total:       int(stat.TotalConns()),
		MaxOpen:     int(stat.MaxConns()),
		IdleTimeout: 0,
	}
}

// HealthCheck satisfies types.ConnectionManager: a cheap round trip that
// proves the pool can still reach the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	var one int
	row := s.pool.QueryRow(ctx, "SELECT 1")
	if err := row.Scan(&one); err != nil {
		return errors.Newf(errors.ErrCodeConnectionFailed, "health check: %v", err)
	}
	return nil
}

// GetStats satisfies types.ConnectionManager.
func (s *Store) GetStats() types.ConnectionStats {
	return s.Stats()
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}
