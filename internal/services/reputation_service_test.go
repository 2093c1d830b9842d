package services

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"prediction-events/internal/models"
)

func TestNewProfileDefaults(t *testing.T) {
	e := newTestEngine(t)

	profile, err := e.reputation.GetProfile(context.Background(), "fresh-creator")
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}

	// No settled events yet: completion rate defaults to 100
	if profile.CompletionRate != 100 {
		t.Errorf("expected completion rate 100, got %v", profile.CompletionRate)
	}
	if profile.ReputationTier != models.ReputationTierNewcomer {
		t.Errorf("expected NEWCOMER, got %s", profile.ReputationTier)
	}
}

func TestCompletionRateAndStreaks(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := "host"
	deposit := decimal.NewFromInt(10)

	complete := func() {
		if err := e.reputation.RecordEventCreated(ctx, wallet, deposit); err != nil {
			t.Fatalf("record created failed: %v", err)
		}
		if err := e.reputation.RecordEventCompleted(ctx, wallet, 10, 8, 20, deposit,
			decimal.NewFromFloat(0.7), decimal.NewFromInt(10)); err != nil {
			t.Fatalf("record completed failed: %v", err)
		}
	}

	complete()
	complete()
	complete()

	profile, err := e.reputation.GetProfile(ctx, wallet)
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}
	if profile.CompletionRate != 100 {
		t.Errorf("expected completion rate 100, got %v", profile.CompletionRate)
	}
	if profile.CurrentStreak != 3 || profile.BestStreak != 3 {
		t.Errorf("expected streak 3/3, got %d/%d", profile.CurrentStreak, profile.BestStreak)
	}
	// Every event filled 10 of 20 slots
	if math.Abs(profile.AverageFillRate-50) > 0.001 {
		t.Errorf("expected fill rate 50, got %v", profile.AverageFillRate)
	}

	// A cancellation breaks the streak and dents the rate
	if err := e.reputation.RecordEventCreated(ctx, wallet, deposit); err != nil {
		t.Fatalf("record created failed: %v", err)
	}
	if err := e.reputation.RecordEventCancelled(ctx, wallet); err != nil {
		t.Fatalf("record cancelled failed: %v", err)
	}

	profile, err = e.reputation.GetProfile(ctx, wallet)
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}
	if profile.CurrentStreak != 0 {
		t.Errorf("expected streak reset, got %d", profile.CurrentStreak)
	}
	if profile.BestStreak != 3 {
		t.Errorf("expected best streak preserved, got %d", profile.BestStreak)
	}
	if profile.CompletionRate != 75 {
		t.Errorf("expected completion rate 75, got %v", profile.CompletionRate)
	}
}

func TestReputationScoreAndTier(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := "rising-host"
	deposit := decimal.NewFromInt(10)

	// One full event: completion 100, fill 100, volume 25*log2(2) = 25
	if err := e.reputation.RecordEventCreated(ctx, wallet, deposit); err != nil {
		t.Fatalf("record created failed: %v", err)
	}
	if err := e.reputation.RecordEventCompleted(ctx, wallet, 20, 20, 20, deposit,
		decimal.NewFromFloat(1.4), decimal.NewFromInt(10)); err != nil {
		t.Fatalf("record completed failed: %v", err)
	}

	profile, err := e.reputation.GetProfile(ctx, wallet)
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}

	// 0.5*100 + 0.3*100 + 0.2*25 = 85
	if math.Abs(profile.ReputationScore-85) > 0.001 {
		t.Errorf("expected score 85, got %v", profile.ReputationScore)
	}
	if profile.ReputationTier != models.ReputationTierDiamond {
		t.Errorf("expected DIAMOND at score 85, got %s", profile.ReputationTier)
	}
	if profile.PlatformFeeDiscount != 50 {
		t.Errorf("expected 50%% platform discount, got %v", profile.PlatformFeeDiscount)
	}
}

func TestAchievementsUnlockOnce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := "collector"

	// Full house at max capacity with a whale-sized deposit
	whale := decimal.NewFromInt(1_000)
	if err := e.reputation.RecordEventCreated(ctx, wallet, whale); err != nil {
		t.Fatalf("record created failed: %v", err)
	}
	if err := e.reputation.RecordEventCompleted(ctx, wallet, 20, 20, 20, whale,
		decimal.NewFromFloat(1.4), decimal.NewFromInt(500)); err != nil {
		t.Fatalf("record completed failed: %v", err)
	}

	resp, err := e.reputation.GetProfileWithAchievements(ctx, wallet)
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}

	want := map[string]bool{
		"first_event":   false,
		"full_house":    false,
		"whale_creator": false,
	}
	for _, id := range resp.Achievements {
		if _, ok := want[id]; ok {
			want[id] = true
		}
	}
	for id, unlocked := range want {
		if !unlocked {
			t.Errorf("expected achievement %q unlocked", id)
		}
	}

	// A second qualifying event does not duplicate unlocks
	if err := e.reputation.RecordEventCreated(ctx, wallet, whale); err != nil {
		t.Fatalf("record created failed: %v", err)
	}
	if err := e.reputation.RecordEventCompleted(ctx, wallet, 20, 20, 20, whale,
		decimal.NewFromFloat(1.4), decimal.NewFromInt(500)); err != nil {
		t.Fatalf("record completed failed: %v", err)
	}

	var count int64
	e.db.Model(&models.CreatorAchievement{}).
		Where("wallet_address = ? AND achievement_id = ?", wallet, "first_event").
		Count(&count)
	if count != 1 {
		t.Errorf("expected first_event unlocked exactly once, got %d", count)
	}
}

func TestStreakAchievements(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := "streaker"
	deposit := decimal.NewFromInt(10)

	for i := 0; i < 5; i++ {
		if err := e.reputation.RecordEventCreated(ctx, wallet, deposit); err != nil {
			t.Fatalf("record created failed: %v", err)
		}
		if err := e.reputation.RecordEventCompleted(ctx, wallet, 5, 5, 20, deposit,
			decimal.NewFromFloat(0.35), decimal.NewFromInt(10)); err != nil {
			t.Fatalf("record completed failed: %v", err)
		}
	}

	resp, err := e.reputation.GetProfileWithAchievements(ctx, wallet)
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}

	hasHotStreak := false
	hasUnstoppable := false
	for _, id := range resp.Achievements {
		if id == "hot_streak" {
			hasHotStreak = true
		}
		if id == "unstoppable" {
			hasUnstoppable = true
		}
	}
	if !hasHotStreak {
		t.Error("expected hot_streak at 5 consecutive completions")
	}
	if hasUnstoppable {
		t.Error("unstoppable needs 10 consecutive completions")
	}
}
