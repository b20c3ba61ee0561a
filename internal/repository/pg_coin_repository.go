package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gameforge-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ CoinRepository = (*pgCoinRepository)(nil)

type pgCoinRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgCoinRepository(db DBTX, logger *zap.Logger) CoinRepository {
	return &pgCoinRepository{
		db:     db,
		logger: logger.Named("PgCoinRepo"),
	}
}

const createCoinQuery = `
INSERT INTO coins (id, build_id, wallet_address, token_address, symbol, duration_days, max_points, multiplier, premium_threshold, max_plays, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const getCoinByBuildIDQuery = `
SELECT id, build_id, wallet_address, token_address, symbol, duration_days, max_points, multiplier, premium_threshold, max_plays, created_at, updated_at
FROM coins
WHERE build_id = $1`

func (r *pgCoinRepository) Create(ctx context.Context, coin *models.Coin) error {
	if coin.ID == uuid.Nil {
		coin.ID = uuid.New()
	}
	now := time.Now()
	if coin.CreatedAt.IsZero() {
		coin.CreatedAt = now
	}
	coin.UpdatedAt = now

	_, err := r.db.Exec(ctx, createCoinQuery,
		coin.ID,
		coin.BuildID,
		coin.WalletAddress,
		coin.TokenAddress,
		coin.Symbol,
		coin.DurationDays,
		coin.MaxPoints,
		coin.Multiplier,
		coin.PremiumThreshold,
		coin.MaxPlays,
		coin.CreatedAt,
		coin.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create coin", zap.Error(err), zap.String("buildID", coin.BuildID.String()))
		return fmt.Errorf("failed to create coin for build %s: %w", coin.BuildID, err)
	}
	r.logger.Info("Coin created", zap.String("buildID", coin.BuildID.String()), zap.String("symbol", coin.Symbol))
	return nil
}

func (r *pgCoinRepository) GetByBuildID(ctx context.Context, buildID uuid.UUID) (*models.Coin, error) {
	var coin models.Coin
	err := pgxscan.Get(ctx, r.db, &coin, getCoinByBuildIDQuery, buildID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Coin not found", zap.String("buildID", buildID.String()))
			return nil, models.ErrCoinNotFound
		}
		r.logger.Error("Failed to get coin", zap.Error(err), zap.String("buildID", buildID.String()))
		return nil, fmt.Errorf("failed to get coin for build %s: %w", buildID, err)
	}
	return &coin, nil
}
