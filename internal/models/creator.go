package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReputationTier string

const (
	ReputationTierNewcomer ReputationTier = "NEWCOMER"
	ReputationTierBronze   ReputationTier = "BRONZE"
	ReputationTierSilver   ReputationTier = "SILVER"
	ReputationTierGold     ReputationTier = "GOLD"
	ReputationTierDiamond  ReputationTier = "DIAMOND"
)

// CreatorProfile aggregates a creator's lifetime event stats and reputation
type CreatorProfile struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WalletAddress string    `gorm:"size:64;uniqueIndex;not null" json:"wallet_address"`

	EventsCreated   int64 `gorm:"not null;default:0" json:"events_created"`
	EventsCompleted int64 `gorm:"not null;default:0" json:"events_completed"`
	EventsCancelled int64 `gorm:"not null;default:0" json:"events_cancelled"`
	EventsActive    int64 `gorm:"not null;default:0" json:"events_active"`

	TotalParticipants int64 `gorm:"not null;default:0" json:"total_participants"`
	TotalPredictions  int64 `gorm:"not null;default:0" json:"total_predictions"`

	TotalDeposited   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"total_deposited"`
	TotalFeesEarned  decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"total_fees_earned"`
	TotalPrizesPaid  decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"total_prizes_paid"`

	CompletionRate  float64 `gorm:"type:decimal(5,2);not null;default:100" json:"completion_rate"`
	AverageFillRate float64 `gorm:"type:decimal(5,2);not null;default:0" json:"average_fill_rate"`

	ReputationScore float64        `gorm:"type:decimal(5,2);not null;default:0" json:"reputation_score"`
	ReputationTier  ReputationTier `gorm:"size:20;not null;default:NEWCOMER" json:"reputation_tier"`

	CurrentStreak int `gorm:"not null;default:0" json:"current_streak"`
	BestStreak    int `gorm:"not null;default:0" json:"best_streak"`

	PlatformFeeDiscount float64 `gorm:"type:decimal(5,2);not null;default:0" json:"platform_fee_discount"`
	CreatorFeeBonus     float64 `gorm:"type:decimal(5,2);not null;default:0" json:"creator_fee_bonus"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CreatorProfile) TableName() string {
	return "creator_profiles"
}

// CreatorAchievement is one unlocked achievement; the (wallet, achievement)
// pair is unique so unlocks are set-semantics.
type CreatorAchievement struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WalletAddress string    `gorm:"size:64;not null;index;uniqueIndex:idx_wallet_achievement" json:"wallet_address"`
	AchievementID string    `gorm:"size:64;not null;uniqueIndex:idx_wallet_achievement" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlocked_at"`
}

func (CreatorAchievement) TableName() string {
	return "creator_achievements"
}

// CreatorProfileResponse bundles a profile with its unlocked achievements
type CreatorProfileResponse struct {
	Profile      *CreatorProfile `json:"profile"`
	Achievements []string        `json:"achievements"`
}
