package service

import (
	"context"
	"errors"
	"fmt"

	"gameforge-server/internal/models"
	"gameforge-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PublishParams is the reward-token configuration supplied when publishing
// a build.
type PublishParams struct {
	WalletAddress    string  `json:"walletAddress"`
	TokenAddress     string  `json:"tokenAddress"`
	Symbol           string  `json:"symbol"`
	DurationDays     int     `json:"durationDays"`
	MaxPoints        int     `json:"maxPoints"`
	Multiplier       float64 `json:"multiplier"`
	PremiumThreshold int     `json:"premiumThreshold"`
	MaxPlays         int     `json:"maxPlays"`
}

// CoinService publishes builds by attaching a one-to-one reward-token
// record. Chain settlement happens elsewhere; this layer only validates and
// persists the configuration.
type CoinService interface {
	Publish(ctx context.Context, buildID uuid.UUID, params PublishParams) (*models.Coin, error)
	Get(ctx context.Context, buildID uuid.UUID) (*models.Coin, error)
}

type coinServiceImpl struct {
	builds repository.BuildRepository
	coins  repository.CoinRepository
	logger *zap.Logger
}

func NewCoinService(builds repository.BuildRepository, coins repository.CoinRepository, logger *zap.Logger) CoinService {
	return &coinServiceImpl{
		builds: builds,
		coins:  coins,
		logger: logger.Named("CoinService"),
	}
}

func validatePublishParams(p PublishParams) error {
	switch {
	case p.WalletAddress == "":
		return fmt.Errorf("%w: wallet address is required", models.ErrBadRequest)
	case p.Symbol == "" || len(p.Symbol) > 10:
		return fmt.Errorf("%w: symbol must be 1-10 characters", models.ErrBadRequest)
	case p.DurationDays <= 0:
		return fmt.Errorf("%w: duration must be positive", models.ErrBadRequest)
	case p.MaxPoints <= 0:
		return fmt.Errorf("%w: max points must be positive", models.ErrBadRequest)
	case p.Multiplier <= 0:
		return fmt.Errorf("%w: multiplier must be positive", models.ErrBadRequest)
	case p.PremiumThreshold < 0:
		return fmt.Errorf("%w: premium threshold cannot be negative", models.ErrBadRequest)
	case p.MaxPlays < 0:
		return fmt.Errorf("%w: max plays cannot be negative", models.ErrBadRequest)
	}
	return nil
}

func (s *coinServiceImpl) Publish(ctx context.Context, buildID uuid.UUID, params PublishParams) (*models.Coin, error) {
	if err := validatePublishParams(params); err != nil {
		return nil, err
	}

	build, err := s.builds.GetByID(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if build.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: build is not completed", models.ErrBadRequest)
	}

	if _, err := s.coins.GetByBuildID(ctx, buildID); err == nil {
		return nil, fmt.Errorf("%w: build is already published", models.ErrBadRequest)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	coin := &models.Coin{
		BuildID:          buildID,
		WalletAddress:    params.WalletAddress,
		TokenAddress:     params.TokenAddress,
		Symbol:           params.Symbol,
		DurationDays:     params.DurationDays,
		MaxPoints:        params.MaxPoints,
		Multiplier:       params.Multiplier,
		PremiumThreshold: params.PremiumThreshold,
		MaxPlays:         params.MaxPlays,
	}
	if err := s.coins.Create(ctx, coin); err != nil {
		return nil, err
	}
	s.logger.Info("Build published",
		zap.String("buildID", buildID.String()),
		zap.String("symbol", coin.Symbol))
	return coin, nil
}

func (s *coinServiceImpl) Get(ctx context.Context, buildID uuid.UUID) (*models.Coin, error) {
	return s.coins.GetByBuildID(ctx, buildID)
}
