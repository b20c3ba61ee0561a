package database

import (
	"context"
	"fmt"
	"time"

	"gameforge-server/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// NewPool creates a pgx connection pool and verifies connectivity with a
// ping.
func NewPool(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err = pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database (ping failed): %w", err)
	}

	logger.Info("Database connection pool established",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
		zap.Int("maxConns", cfg.DBMaxConns))
	return pool, nil
}
