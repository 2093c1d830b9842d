package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"prediction-events/internal/models"
)

func TestTierOfBoundaries(t *testing.T) {
	cases := []struct {
		amount int64
		want   models.StakeTier
	}{
		{0, models.StakeTierFree},
		{9_999, models.StakeTierFree},
		{10_000, models.StakeTierBronze},
		{99_999, models.StakeTierBronze},
		{100_000, models.StakeTierSilver},
		{999_999, models.StakeTierSilver},
		{1_000_000, models.StakeTierGold},
		{9_999_999, models.StakeTierGold},
		{10_000_000, models.StakeTierDiamond},
	}

	for _, c := range cases {
		if got := models.TierOf(decimal.NewFromInt(c.amount)); got != c.want {
			t.Errorf("TierOf(%d): expected %s, got %s", c.amount, c.want, got)
		}
	}
}

func TestStakeSetsTierAndLock(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	record, err := e.staking.Stake(ctx, "staker", decimal.NewFromInt(100_000))
	if err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	if record.Tier != models.StakeTierSilver {
		t.Errorf("expected SILVER, got %s", record.Tier)
	}
	if record.UnlocksAt == nil {
		t.Fatal("expected lock to be set")
	}
	wantUnlock := e.clock.Now().AddDate(0, 0, 14)
	if !record.UnlocksAt.Equal(wantUnlock) {
		t.Errorf("expected unlock at %v, got %v", wantUnlock, record.UnlocksAt)
	}
}

func TestStakeTopUpRestartsLock(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.staking.Stake(ctx, "upgrader", decimal.NewFromInt(10_000)); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	// 5 days into the BRONZE lock, topping up to GOLD restarts at 30 days
	e.clock.Advance(5 * 24 * time.Hour)
	record, err := e.staking.Stake(ctx, "upgrader", decimal.NewFromInt(990_000))
	if err != nil {
		t.Fatalf("top-up failed: %v", err)
	}

	if record.Tier != models.StakeTierGold {
		t.Errorf("expected GOLD, got %s", record.Tier)
	}
	wantUnlock := e.clock.Now().AddDate(0, 0, 30)
	if !record.UnlocksAt.Equal(wantUnlock) {
		t.Errorf("expected unlock at %v, got %v", wantUnlock, record.UnlocksAt)
	}
}

func TestUnstakeHonorsLock(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.staking.Stake(ctx, "locked", decimal.NewFromInt(10_000)); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	_, err := e.staking.Unstake(ctx, "locked", decimal.NewFromInt(1_000))
	if !errors.Is(err, ErrStakeLocked) {
		t.Errorf("expected ErrStakeLocked, got %v", err)
	}

	// Past the 7 day BRONZE lock
	e.clock.Advance(8 * 24 * time.Hour)

	_, err = e.staking.Unstake(ctx, "locked", decimal.NewFromInt(20_000))
	if !errors.Is(err, ErrInsufficientStake) {
		t.Errorf("expected ErrInsufficientStake, got %v", err)
	}

	record, err := e.staking.Unstake(ctx, "locked", decimal.NewFromInt(10_000))
	if err != nil {
		t.Fatalf("unstake failed: %v", err)
	}
	if !record.StakedAmount.IsZero() {
		t.Errorf("expected zero balance, got %s", record.StakedAmount)
	}
	if record.Tier != models.StakeTierFree {
		t.Errorf("expected FREE after full unstake, got %s", record.Tier)
	}
	if record.UnlocksAt != nil {
		t.Error("expected lock cleared at zero balance")
	}
}

func TestCanCreateDailyLimit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := "silver-host"

	if _, err := e.staking.Stake(ctx, wallet, decimal.NewFromInt(100_000)); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	// SILVER allows 3 events per day
	for i := 0; i < 3; i++ {
		gate, err := e.staking.CanCreate(ctx, wallet)
		if err != nil {
			t.Fatalf("gate check failed: %v", err)
		}
		if !gate.Allowed {
			t.Fatalf("creation %d: expected allowed, denied with %q", i+1, gate.Reason)
		}
		if gate.RemainingToday != 3-i {
			t.Errorf("creation %d: expected %d remaining, got %d", i+1, 3-i, gate.RemainingToday)
		}
		if err := e.staking.RecordEventCreation(ctx, wallet); err != nil {
			t.Fatalf("record creation failed: %v", err)
		}
	}

	gate, err := e.staking.CanCreate(ctx, wallet)
	if err != nil {
		t.Fatalf("gate check failed: %v", err)
	}
	if gate.Allowed {
		t.Error("expected denial after 3 creations")
	}
	if gate.RemainingToday != 0 {
		t.Errorf("expected 0 remaining, got %d", gate.RemainingToday)
	}

	// The counter resets on the next calendar day
	e.clock.Advance(24 * time.Hour)
	gate, err = e.staking.CanCreate(ctx, wallet)
	if err != nil {
		t.Fatalf("gate check failed: %v", err)
	}
	if !gate.Allowed || gate.RemainingToday != 3 {
		t.Errorf("expected full allowance next day, got allowed=%v remaining=%d",
			gate.Allowed, gate.RemainingToday)
	}
}

func TestCanCreateFreeTier(t *testing.T) {
	e := newTestEngine(t)

	gate, err := e.staking.CanCreate(context.Background(), "no-stake")
	if err != nil {
		t.Fatalf("gate check failed: %v", err)
	}
	if gate.Allowed {
		t.Error("FREE tier must never create events")
	}
	if gate.Tier != models.StakeTierFree {
		t.Errorf("expected FREE, got %s", gate.Tier)
	}
}

func TestCreationFeeDiscounts(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// Base fee 0.1; GOLD gets 25% off
	if _, err := e.staking.Stake(ctx, "gold-host", decimal.NewFromInt(1_000_000)); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	gate, err := e.staking.CanCreate(ctx, "gold-host")
	if err != nil {
		t.Fatalf("gate check failed: %v", err)
	}
	if !gate.CreationFee.Equal(decimal.NewFromFloat(0.075)) {
		t.Errorf("expected fee 0.075, got %s", gate.CreationFee)
	}
}

func TestApplyPenaltyCapsAtBalance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.staking.Stake(ctx, "slashed", decimal.NewFromInt(10_000)); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	record, err := e.staking.ApplyPenalty(ctx, "slashed", decimal.NewFromInt(50_000), "abandoned event")
	if err != nil {
		t.Fatalf("penalty failed: %v", err)
	}

	if !record.StakedAmount.IsZero() {
		t.Errorf("expected zero balance after over-slash, got %s", record.StakedAmount)
	}
	if !record.TotalSlashed.Equal(decimal.NewFromInt(10_000)) {
		t.Errorf("expected 10000 slashed, got %s", record.TotalSlashed)
	}
	if record.Tier != models.StakeTierFree {
		t.Errorf("expected FREE after slash, got %s", record.Tier)
	}
}
