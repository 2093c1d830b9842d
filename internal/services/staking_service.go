package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"prediction-events/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StakingService is the tier/stake gate: it owns StakeRecord mutations and
// decides whether a wallet may create a new event today.
type StakingService struct {
	db              *gorm.DB
	baseCreationFee decimal.Decimal
	now             func() time.Time
}

func NewStakingService(db *gorm.DB, baseCreationFee decimal.Decimal) *StakingService {
	return &StakingService{
		db:              db,
		baseCreationFee: baseCreationFee,
		now:             time.Now,
	}
}

// SetClock overrides the service clock (tests only)
func (s *StakingService) SetClock(now func() time.Time) {
	s.now = now
}

// GetStakeRecord retrieves a wallet's stake record, creating it lazily
func (s *StakingService) GetStakeRecord(ctx context.Context, wallet string) (*models.StakeRecord, error) {
	var record models.StakeRecord
	err := s.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&record).Error

	if err == gorm.ErrRecordNotFound {
		record = models.StakeRecord{
			ID:            uuid.New(),
			WalletAddress: wallet,
			StakedAmount:  decimal.Zero,
			Tier:          models.StakeTierFree,
			TotalSlashed:  decimal.Zero,
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return nil, fmt.Errorf("failed to create stake record: %w", err)
		}
		return &record, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CanCreate decides whether the wallet may create an event right now and at
// what fee. It never mutates the record; the daily counter is interpreted
// against today's date without being reset here.
func (s *StakingService) CanCreate(ctx context.Context, wallet string) (*models.CreationGate, error) {
	record, err := s.GetStakeRecord(ctx, wallet)
	if err != nil {
		return nil, err
	}

	cfg := models.ConfigFor(record.Tier)
	gate := &models.CreationGate{
		Tier:        record.Tier,
		DailyLimit:  cfg.DailyEventLimit,
		CreationFee: s.creationFee(cfg),
	}

	if record.Tier == models.StakeTierFree {
		gate.Reason = "staking required to create events"
		return gate, nil
	}

	used := record.EventsCreatedToday
	if !s.sameCreationDay(record) {
		used = 0
	}
	gate.RemainingToday = cfg.DailyEventLimit - used
	if gate.RemainingToday < 0 {
		gate.RemainingToday = 0
	}

	if gate.RemainingToday == 0 {
		gate.Reason = "daily event creation limit reached"
		return gate, nil
	}

	gate.Allowed = true
	return gate, nil
}

// Stake adds to the wallet's staked balance. A tier upgrade during top-up
// restarts the lock at the new tier's full duration, not additively.
func (s *StakingService) Stake(ctx context.Context, wallet string, amount decimal.Decimal) (*models.StakeRecord, error) {
	if !amount.IsPositive() {
		return nil, validationErr("amount", "must be positive")
	}

	record, err := s.GetStakeRecord(ctx, wallet)
	if err != nil {
		return nil, err
	}

	record.StakedAmount = record.StakedAmount.Add(amount)
	record.Tier = models.TierOf(record.StakedAmount)

	lockDays := models.ConfigFor(record.Tier).LockDays
	unlocksAt := s.now().AddDate(0, 0, lockDays)
	record.UnlocksAt = &unlocksAt

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save stake record: %w", err)
	}

	log.Printf("[Staking] %s staked %s, now %s (%s, unlocks %s)",
		wallet, amount, record.StakedAmount, record.Tier, unlocksAt.Format(time.RFC3339))

	return record, nil
}

// Unstake withdraws from the staked balance once the lock has expired
func (s *StakingService) Unstake(ctx context.Context, wallet string, amount decimal.Decimal) (*models.StakeRecord, error) {
	if !amount.IsPositive() {
		return nil, validationErr("amount", "must be positive")
	}

	record, err := s.GetStakeRecord(ctx, wallet)
	if err != nil {
		return nil, err
	}

	if record.UnlocksAt != nil && s.now().Before(*record.UnlocksAt) {
		return nil, ErrStakeLocked
	}
	if amount.GreaterThan(record.StakedAmount) {
		return nil, ErrInsufficientStake
	}

	record.StakedAmount = record.StakedAmount.Sub(amount)
	record.Tier = models.TierOf(record.StakedAmount)

	if record.StakedAmount.IsZero() || record.Tier == models.StakeTierFree {
		record.UnlocksAt = nil
	} else {
		unlocksAt := s.now().AddDate(0, 0, models.ConfigFor(record.Tier).LockDays)
		record.UnlocksAt = &unlocksAt
	}

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save stake record: %w", err)
	}

	log.Printf("[Staking] %s unstaked %s, now %s (%s)", wallet, amount, record.StakedAmount, record.Tier)

	return record, nil
}

// ApplyPenalty slashes up to the wallet's full staked balance. Slashing is a
// system-initiated side effect and never fails for business reasons.
func (s *StakingService) ApplyPenalty(ctx context.Context, wallet string, amount decimal.Decimal, reason string) (*models.StakeRecord, error) {
	record, err := s.GetStakeRecord(ctx, wallet)
	if err != nil {
		return nil, err
	}

	slashed := amount
	if slashed.GreaterThan(record.StakedAmount) {
		slashed = record.StakedAmount
	}
	if slashed.IsNegative() {
		slashed = decimal.Zero
	}

	record.StakedAmount = record.StakedAmount.Sub(slashed)
	record.TotalSlashed = record.TotalSlashed.Add(slashed)
	record.Tier = models.TierOf(record.StakedAmount)

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save stake record: %w", err)
	}

	log.Printf("[Staking] Slashed %s from %s (%s), balance now %s (%s)",
		slashed, wallet, reason, record.StakedAmount, record.Tier)

	return record, nil
}

// RecordEventCreation bumps the daily and lifetime creation counters. Called
// exactly once per successfully created event; idempotency sits with the
// caller's creation transaction boundary.
func (s *StakingService) RecordEventCreation(ctx context.Context, wallet string) error {
	record, err := s.GetStakeRecord(ctx, wallet)
	if err != nil {
		return err
	}

	if !s.sameCreationDay(record) {
		record.EventsCreatedToday = 0
	}
	record.EventsCreatedToday++
	record.TotalEventsCreated++
	now := s.now()
	record.LastEventCreatedAt = &now

	return s.db.WithContext(ctx).Save(record).Error
}

// sameCreationDay compares server-local calendar dates. The reset therefore
// happens at server midnight regardless of the creator's timezone; carried
// over from observed upstream behavior.
func (s *StakingService) sameCreationDay(record *models.StakeRecord) bool {
	if record.LastEventCreatedAt == nil {
		return false
	}
	y1, m1, d1 := record.LastEventCreatedAt.Date()
	y2, m2, d2 := s.now().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (s *StakingService) creationFee(cfg models.TierConfig) decimal.Decimal {
	discount := decimal.NewFromInt(int64(100 - cfg.FeeDiscountPercent))
	return s.baseCreationFee.Mul(discount).Div(oneHundred).Round(payoutPrecision)
}
