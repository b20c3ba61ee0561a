package models

import (
	"time"

	"github.com/google/uuid"
)

// Coin is the reward-token record associated one-to-one with a published
// build. On-chain settlement lives outside this service; this record only
// carries the reward-pool wallet and token configuration.
type Coin struct {
	ID               uuid.UUID `json:"id" db:"id"`
	BuildID          uuid.UUID `json:"buildId" db:"build_id"`
	WalletAddress    string    `json:"walletAddress" db:"wallet_address"`
	TokenAddress     string    `json:"tokenAddress,omitempty" db:"token_address"`
	Symbol           string    `json:"symbol" db:"symbol"`
	DurationDays     int       `json:"durationDays" db:"duration_days"`
	MaxPoints        int       `json:"maxPoints" db:"max_points"`
	Multiplier       float64   `json:"multiplier" db:"multiplier"`
	PremiumThreshold int       `json:"premiumThreshold" db:"premium_threshold"`
	MaxPlays         int       `json:"maxPlays" db:"max_plays"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}
