package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StakeTier string

const (
	StakeTierFree    StakeTier = "FREE"
	StakeTierBronze  StakeTier = "BRONZE"
	StakeTierSilver  StakeTier = "SILVER"
	StakeTierGold    StakeTier = "GOLD"
	StakeTierDiamond StakeTier = "DIAMOND"
)

// Tier thresholds in staked tokens: FREE < 10k <= BRONZE < 100k <= SILVER < 1M <= GOLD < 10M <= DIAMOND
var (
	bronzeThreshold  = decimal.NewFromInt(10_000)
	silverThreshold  = decimal.NewFromInt(100_000)
	goldThreshold    = decimal.NewFromInt(1_000_000)
	diamondThreshold = decimal.NewFromInt(10_000_000)
)

// TierOf maps a staked balance to its tier
func TierOf(stakedAmount decimal.Decimal) StakeTier {
	switch {
	case stakedAmount.GreaterThanOrEqual(diamondThreshold):
		return StakeTierDiamond
	case stakedAmount.GreaterThanOrEqual(goldThreshold):
		return StakeTierGold
	case stakedAmount.GreaterThanOrEqual(silverThreshold):
		return StakeTierSilver
	case stakedAmount.GreaterThanOrEqual(bronzeThreshold):
		return StakeTierBronze
	default:
		return StakeTierFree
	}
}

// TierConfig holds the per-tier creation allowance and lock policy
type TierConfig struct {
	DailyEventLimit    int
	LockDays           int
	FeeDiscountPercent int
}

var tierConfigs = map[StakeTier]TierConfig{
	StakeTierFree:    {DailyEventLimit: 0, LockDays: 0, FeeDiscountPercent: 0},
	StakeTierBronze:  {DailyEventLimit: 1, LockDays: 7, FeeDiscountPercent: 0},
	StakeTierSilver:  {DailyEventLimit: 3, LockDays: 14, FeeDiscountPercent: 10},
	StakeTierGold:    {DailyEventLimit: 5, LockDays: 30, FeeDiscountPercent: 25},
	StakeTierDiamond: {DailyEventLimit: 10, LockDays: 60, FeeDiscountPercent: 50},
}

// ConfigFor returns the tier's creation allowance and lock policy
func ConfigFor(tier StakeTier) TierConfig {
	return tierConfigs[tier]
}

// StakeRecord tracks a wallet's staked balance and creation allowance
type StakeRecord struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	WalletAddress      string          `gorm:"size:64;uniqueIndex;not null" json:"wallet_address"`
	StakedAmount       decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"staked_amount"`
	Tier               StakeTier       `gorm:"size:20;not null;default:FREE" json:"tier"`
	UnlocksAt          *time.Time      `json:"unlocks_at"`
	EventsCreatedToday int             `gorm:"not null;default:0" json:"events_created_today"`
	LastEventCreatedAt *time.Time      `json:"last_event_created_at"`
	TotalEventsCreated int64           `gorm:"not null;default:0" json:"total_events_created"`
	TotalSlashed       decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"total_slashed"`
	CreatedAt          time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (StakeRecord) TableName() string {
	return "stake_records"
}

// CreationGate is the tier gate's verdict on a create-event attempt
type CreationGate struct {
	Allowed        bool            `json:"allowed"`
	Reason         string          `json:"reason,omitempty"`
	Tier           StakeTier       `json:"tier"`
	DailyLimit     int             `json:"daily_limit"`
	RemainingToday int             `json:"remaining_today"`
	CreationFee    decimal.Decimal `json:"creation_fee"`
}

// StakeRequest represents a stake or unstake amount
type StakeRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}
