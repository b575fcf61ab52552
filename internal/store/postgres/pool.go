// Package postgres は pgx のコネクションプールを作成します。
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourusername/user-kit/internal/config"
	"github.com/yourusername/user-kit/internal/logger"
)

// NewPool は設定からコネクションプールを作成し、接続できるまで再試行します。
func NewPool(ctx context.Context, cfg *config.Config, log logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxInterval = 5 * time.Second

	operation := func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("creating connection pool: %w", err))
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			log.Warn().Err(err).Msg("database is not reachable yet, retrying")
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		return pool, nil
	}

	return backoff.Retry(
		ctx,
		operation,
		backoff.WithMaxTries(cfg.DBConnectRetries+1),
		backoff.WithBackOff(expBackoff),
	)
}
