// Package pg es el acceso a Postgres del gateway: pool pgx, lectura de profiles y
// creator_universe, y migraciones embebidas.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
)

// ErrNoDSN se devuelve cuando no hay DATABASE_URL.
var ErrNoDSN = errors.New("pg: empty DSN")

type Config struct {
	DSN      string
	MaxConns int32
	Logger   *zap.Logger
}

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// New abre el pool. El ping inicial no es fatal: el gateway arranca aunque la base
// esté caída y /readyz lo reporta.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, ErrNoDSN
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	} else {
		pcfg.MaxConns = 5
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	log := logger.OrGlobal(cfg.Logger, "pg")
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg_pool_startup_ping_failed", logger.Err(err))
	} else {
		log.Info("pg_pool_ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return &Store{pool: pool, log: log}, nil
}

// Pool expone el pool interno (tests, herramientas).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
