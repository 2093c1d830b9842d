package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"prediction-events/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reputation score bands: NEWCOMER < 20 <= BRONZE < 40 <= SILVER < 60 <= GOLD < 80 <= DIAMOND
var reputationBands = []struct {
	tier                models.ReputationTier
	minScore            float64
	platformFeeDiscount float64
	creatorFeeBonus     float64
}{
	{models.ReputationTierDiamond, 80, 50, 10},
	{models.ReputationTierGold, 60, 25, 5},
	{models.ReputationTierSilver, 40, 10, 2.5},
	{models.ReputationTierBronze, 20, 5, 1},
	{models.ReputationTierNewcomer, 0, 0, 0},
}

// achievementRule checks a cumulative-counter threshold against the profile
// and the event that just settled.
type achievementRule struct {
	id    string
	check func(p *models.CreatorProfile, ev *settledEvent) bool
}

// settledEvent carries the single-event context achievement rules need
type settledEvent struct {
	participants    int
	maxParticipants int
	deposit         decimal.Decimal
}

var whaleDeposit = decimal.NewFromInt(1_000)

var achievementRules = []achievementRule{
	{"first_event", func(p *models.CreatorProfile, _ *settledEvent) bool {
		return p.EventsCompleted >= 1
	}},
	{"seasoned_host", func(p *models.CreatorProfile, _ *settledEvent) bool {
		return p.EventsCompleted >= 10
	}},
	{"event_master", func(p *models.CreatorProfile, _ *settledEvent) bool {
		return p.EventsCompleted >= 50
	}},
	{"hot_streak", func(p *models.CreatorProfile, _ *settledEvent) bool {
		return p.CurrentStreak >= 5
	}},
	{"unstoppable", func(p *models.CreatorProfile, _ *settledEvent) bool {
		return p.CurrentStreak >= 10
	}},
	{"crowd_favorite", func(p *models.CreatorProfile, _ *settledEvent) bool {
		return p.TotalParticipants >= 250
	}},
	{"full_house", func(_ *models.CreatorProfile, ev *settledEvent) bool {
		return ev != nil && ev.maxParticipants > 0 && ev.participants == ev.maxParticipants
	}},
	{"whale_creator", func(_ *models.CreatorProfile, ev *settledEvent) bool {
		return ev != nil && ev.deposit.GreaterThanOrEqual(whaleDeposit)
	}},
}

// ReputationService maintains CreatorProfile aggregates after each event
// concludes: counters, rates, streaks, score, tier and achievements.
type ReputationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReputationService(db *gorm.DB) *ReputationService {
	return &ReputationService{db: db, now: time.Now}
}

// SetClock overrides the service clock (tests only)
func (s *ReputationService) SetClock(now func() time.Time) {
	s.now = now
}

// GetProfile retrieves a creator profile, creating it lazily
func (s *ReputationService) GetProfile(ctx context.Context, wallet string) (*models.CreatorProfile, error) {
	return s.getProfileTx(s.db.WithContext(ctx), wallet)
}

func (s *ReputationService) getProfileTx(tx *gorm.DB, wallet string) (*models.CreatorProfile, error) {
	var profile models.CreatorProfile
	err := tx.Where("wallet_address = ?", wallet).First(&profile).Error

	if err == gorm.ErrRecordNotFound {
		profile = models.CreatorProfile{
			ID:              uuid.New(),
			WalletAddress:   wallet,
			CompletionRate:  100,
			ReputationTier:  models.ReputationTierNewcomer,
			TotalDeposited:  decimal.Zero,
			TotalFeesEarned: decimal.Zero,
			TotalPrizesPaid: decimal.Zero,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return nil, fmt.Errorf("failed to create creator profile: %w", err)
		}
		return &profile, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfileWithAchievements bundles the profile and its unlocked achievements
func (s *ReputationService) GetProfileWithAchievements(ctx context.Context, wallet string) (*models.CreatorProfileResponse, error) {
	profile, err := s.GetProfile(ctx, wallet)
	if err != nil {
		return nil, err
	}

	var unlocked []models.CreatorAchievement
	if err := s.db.WithContext(ctx).
		Where("wallet_address = ?", wallet).
		Order("unlocked_at ASC").
		Find(&unlocked).Error; err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(unlocked))
	for _, a := range unlocked {
		ids = append(ids, a.AchievementID)
	}

	return &models.CreatorProfileResponse{Profile: profile, Achievements: ids}, nil
}

// RecordEventCreated bumps creation counters when a new event opens
func (s *ReputationService) RecordEventCreated(ctx context.Context, wallet string, deposit decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.getProfileTx(tx, wallet)
		if err != nil {
			return err
		}

		profile.EventsCreated++
		profile.EventsActive++
		profile.TotalDeposited = profile.TotalDeposited.Add(deposit)
		s.recomputeReputation(profile)

		return tx.Save(profile).Error
	})
}

// RecordEventCompleted updates the profile after a successful settlement
func (s *ReputationService) RecordEventCompleted(
	ctx context.Context,
	wallet string,
	participants, predictions, maxParticipants int,
	deposit, feesEarned, prizesPaid decimal.Decimal,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.getProfileTx(tx, wallet)
		if err != nil {
			return err
		}

		profile.EventsCompleted++
		if profile.EventsActive > 0 {
			profile.EventsActive--
		}
		profile.TotalParticipants += int64(participants)
		profile.TotalPredictions += int64(predictions)
		profile.TotalFeesEarned = profile.TotalFeesEarned.Add(feesEarned)
		profile.TotalPrizesPaid = profile.TotalPrizesPaid.Add(prizesPaid)

		profile.CurrentStreak++
		if profile.CurrentStreak > profile.BestStreak {
			profile.BestStreak = profile.CurrentStreak
		}

		// Running mean of fill rate over completed events only
		fill := 0.0
		if maxParticipants > 0 {
			fill = float64(participants) / float64(maxParticipants) * 100
		}
		n := float64(profile.EventsCompleted)
		profile.AverageFillRate += (fill - profile.AverageFillRate) / n

		s.recomputeReputation(profile)
		if err := tx.Save(profile).Error; err != nil {
			return err
		}

		ev := &settledEvent{participants: participants, maxParticipants: maxParticipants, deposit: deposit}
		return s.unlockAchievements(tx, profile, ev)
	})
}

// RecordEventCancelled updates the profile after a cancellation
func (s *ReputationService) RecordEventCancelled(ctx context.Context, wallet string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.getProfileTx(tx, wallet)
		if err != nil {
			return err
		}

		profile.EventsCancelled++
		if profile.EventsActive > 0 {
			profile.EventsActive--
		}
		profile.CurrentStreak = 0

		s.recomputeReputation(profile)
		return tx.Save(profile).Error
	})
}

// recomputeReputation rebuilds the derived fields from the counters.
// Score = 0.5*completionRate + 0.3*averageFillRate + 0.2*volumeTerm, where
// volumeTerm saturates at 100 after 15 created events.
func (s *ReputationService) recomputeReputation(profile *models.CreatorProfile) {
	settled := profile.EventsCompleted + profile.EventsCancelled
	if settled == 0 {
		profile.CompletionRate = 100
	} else {
		profile.CompletionRate = float64(profile.EventsCompleted) / float64(settled) * 100
	}

	volume := 25 * math.Log2(1+float64(profile.EventsCreated))
	if volume > 100 {
		volume = 100
	}

	score := 0.5*profile.CompletionRate + 0.3*profile.AverageFillRate + 0.2*volume
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	profile.ReputationScore = score

	for _, band := range reputationBands {
		if score >= band.minScore {
			profile.ReputationTier = band.tier
			profile.PlatformFeeDiscount = band.platformFeeDiscount
			profile.CreatorFeeBonus = band.creatorFeeBonus
			break
		}
	}
}

func (s *ReputationService) unlockAchievements(tx *gorm.DB, profile *models.CreatorProfile, ev *settledEvent) error {
	for _, rule := range achievementRules {
		if !rule.check(profile, ev) {
			continue
		}

		var count int64
		if err := tx.Model(&models.CreatorAchievement{}).
			Where("wallet_address = ? AND achievement_id = ?", profile.WalletAddress, rule.id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		unlock := models.CreatorAchievement{
			ID:            uuid.New(),
			WalletAddress: profile.WalletAddress,
			AchievementID: rule.id,
			UnlockedAt:    s.now(),
		}
		if err := tx.Create(&unlock).Error; err != nil {
			return err
		}
		log.Printf("[Reputation] %s unlocked achievement %q", profile.WalletAddress, rule.id)
	}
	return nil
}
