package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"prediction-events/internal/models"
	"prediction-events/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Event{},
		&models.Participant{},
		&models.Prediction{},
		&models.Winner{},
		&models.EventTransaction{},
		&models.StakeRecord{},
		&models.CreatorProfile{},
		&models.CreatorAchievement{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// Shared in-memory DB persists across tests in this process
	db.Exec("DELETE FROM events")
	db.Exec("DELETE FROM event_participants")
	db.Exec("DELETE FROM event_predictions")
	db.Exec("DELETE FROM event_winners")
	db.Exec("DELETE FROM event_transactions")
	db.Exec("DELETE FROM stake_records")
	db.Exec("DELETE FROM creator_profiles")
	db.Exec("DELETE FROM creator_achievements")

	return db
}

// The schema must migrate on the SQLite test database too, which rules out
// DB-side UUID defaults: every row gets its ID at construction time.
func TestModelIDsAssignedInGo(t *testing.T) {
	e := newTestEngine(t)

	event := e.seedJoiningEvent(t, nil)
	if event.ID == uuid.Nil {
		t.Fatal("expected event ID assigned at construction")
	}

	var stored models.Event
	if err := e.db.First(&stored, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("event not persisted: %v", err)
	}
	if stored.ID != event.ID {
		t.Errorf("expected stored ID %s, got %s", event.ID, stored.ID)
	}
}

// testClock is a settable clock shared by every service under test
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time {
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type testEngine struct {
	db         *gorm.DB
	repo       *repository.Repository
	events     *EventService
	staking    *StakingService
	reputation *ReputationService
	clock      *testClock
}

func newTestEngine(t *testing.T) *testEngine {
	db := setupTestDB(t)
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	repo := repository.NewRepository(db)
	staking := NewStakingService(db, decimal.NewFromFloat(0.1))
	staking.SetClock(clock.Now)
	reputation := NewReputationService(db)
	reputation.SetClock(clock.Now)
	events := NewEventService(repo, NewPayoutService(), staking, reputation, decimal.NewFromInt(1))
	events.SetClock(clock.Now)

	return &testEngine{
		db:         db,
		repo:       repo,
		events:     events,
		staking:    staking,
		reputation: reputation,
		clock:      clock,
	}
}

func validCreateRequest() *models.CreateEventRequest {
	return &models.CreateEventRequest{
		Token:                        "SOL",
		CreatorDeposit:               10,
		EntryFee:                     0.1,
		CreatorPct:                   70,
		PlatformPct:                  30,
		FirstPct:                     50,
		SecondPct:                    30,
		ThirdPct:                     20,
		MinParticipants:              2,
		MaxParticipants:              20,
		JoiningDurationHours:         24,
		PredictionPhaseDurationHours: 12,
		WaitingPhaseDurationHours:    6,
		DepositTxRef:                 "test-deposit-ref",
	}
}

// seedJoiningEvent inserts an event directly, bypassing the stake gate
func (e *testEngine) seedJoiningEvent(t *testing.T, mutate func(*models.Event)) *models.Event {
	now := e.clock.Now()
	ref := "seed-deposit-ref"
	event := &models.Event{
		ID:                           uuid.New(),
		Token:                        "SOL",
		CreatorWallet:                "creator-wallet",
		CreatorDeposit:               decimal.NewFromInt(10),
		EntryFee:                     decimal.NewFromFloat(0.1),
		CreationFee:                  decimal.NewFromFloat(0.1),
		CreatorPct:                   70,
		PlatformPct:                  30,
		FirstPct:                     50,
		SecondPct:                    30,
		ThirdPct:                     20,
		MinParticipants:              2,
		MaxParticipants:              20,
		JoiningEndsAt:                now.Add(24 * time.Hour),
		PredictionPhaseDurationHours: 12,
		WaitingPhaseDurationHours:    6,
		Status:                       models.EventStatusJoining,
		DepositTxRef:                 &ref,
		CreatedAt:                    now,
	}
	if mutate != nil {
		mutate(event)
	}
	if err := e.repo.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	return event
}

func (e *testEngine) join(t *testing.T, eventID uuid.UUID, wallet string) *models.Participant {
	p, err := e.events.JoinEvent(context.Background(), eventID, wallet, decimal.NewFromFloat(0.1), "")
	if err != nil {
		t.Fatalf("join failed for %s: %v", wallet, err)
	}
	return p
}

func TestCreateEventRequiresStake(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.events.CreateEvent(context.Background(), "unstaked-wallet", validCreateRequest())

	var gateError *GateDeniedError
	if !errors.As(err, &gateError) {
		t.Fatalf("expected GateDeniedError, got %v", err)
	}
}

func TestCreateEventThroughGate(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := "bronze-creator"

	if _, err := e.staking.Stake(ctx, wallet, decimal.NewFromInt(10_000)); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	event, err := e.events.CreateEvent(ctx, wallet, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if event.Status != models.EventStatusJoining {
		t.Errorf("expected status JOINING, got %s", event.Status)
	}
	wantDeadline := e.clock.Now().Add(24 * time.Hour)
	if !event.JoiningEndsAt.Equal(wantDeadline) {
		t.Errorf("expected joining deadline %v, got %v", wantDeadline, event.JoiningEndsAt)
	}

	// The creator's deposit lands in the ledger
	ledger, err := e.repo.GetEventTransactions(ctx, event.ID)
	if err != nil {
		t.Fatalf("failed to load ledger: %v", err)
	}
	if len(ledger) != 1 || ledger[0].TransactionType != models.EventTransactionTypeDeposit {
		t.Fatalf("expected one DEPOSIT entry, got %d entries", len(ledger))
	}
	if !ledger[0].Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected deposit amount 10, got %s", ledger[0].Amount)
	}

	// BRONZE allows one event per day, so the gate now closes
	gate, err := e.staking.CanCreate(ctx, wallet)
	if err != nil {
		t.Fatalf("gate check failed: %v", err)
	}
	if gate.Allowed {
		t.Error("expected gate closed after daily limit consumed")
	}
	if gate.RemainingToday != 0 {
		t.Errorf("expected 0 remaining, got %d", gate.RemainingToday)
	}

	// Next day the allowance returns
	e.clock.Advance(24 * time.Hour)
	gate, err = e.staking.CanCreate(ctx, wallet)
	if err != nil {
		t.Fatalf("gate check failed: %v", err)
	}
	if !gate.Allowed {
		t.Errorf("expected gate open next day: %s", gate.Reason)
	}
}

func TestCreateEventValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := "silver-creator"

	if _, err := e.staking.Stake(ctx, wallet, decimal.NewFromInt(100_000)); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*models.CreateEventRequest)
	}{
		{"empty token", func(r *models.CreateEventRequest) { r.Token = "" }},
		{"deposit below minimum", func(r *models.CreateEventRequest) { r.CreatorDeposit = 0.5 }},
		{"fee split not 100", func(r *models.CreateEventRequest) { r.CreatorPct = 60 }},
		{"prize split not 100", func(r *models.CreateEventRequest) { r.FirstPct = 60 }},
		{"max below min", func(r *models.CreateEventRequest) { r.MaxParticipants = 1 }},
		{"missing deposit ref", func(r *models.CreateEventRequest) { r.DepositTxRef = "" }},
	}

	for _, c := range cases {
		req := validCreateRequest()
		c.mutate(req)
		_, err := e.events.CreateEvent(ctx, wallet, req)
		var validationError *ValidationError
		if !errors.As(err, &validationError) {
			t.Errorf("%s: expected ValidationError, got %v", c.name, err)
		}
	}
}

func TestJoinEvent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	event := e.seedJoiningEvent(t, nil)

	p := e.join(t, event.ID, "player-1")
	if !p.EntryFeePaid.Equal(decimal.NewFromFloat(0.1)) {
		t.Errorf("expected fee 0.1, got %s", p.EntryFeePaid)
	}

	fresh, err := e.repo.GetEventByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("failed to reload event: %v", err)
	}
	if fresh.ParticipantCount != 1 {
		t.Errorf("expected participant count 1, got %d", fresh.ParticipantCount)
	}

	// Same wallet cannot join twice
	_, err = e.events.JoinEvent(ctx, event.ID, "player-1", decimal.NewFromFloat(0.1), "")
	var conflictError *ConflictError
	if !errors.As(err, &conflictError) {
		t.Errorf("expected ConflictError on duplicate join, got %v", err)
	}

	// Fee must match exactly
	_, err = e.events.JoinEvent(ctx, event.ID, "player-2", decimal.NewFromFloat(0.2), "")
	var validationError *ValidationError
	if !errors.As(err, &validationError) {
		t.Errorf("expected ValidationError on wrong fee, got %v", err)
	}
}

func TestJoinEventFull(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	event := e.seedJoiningEvent(t, func(ev *models.Event) {
		ev.MinParticipants = 1
		ev.MaxParticipants = 1
	})

	e.join(t, event.ID, "player-1")

	_, err := e.events.JoinEvent(ctx, event.ID, "player-2", decimal.NewFromFloat(0.1), "")
	var conflictError *ConflictError
	if !errors.As(err, &conflictError) {
		t.Errorf("expected ConflictError when full, got %v", err)
	}
}

func TestJoinEventWrongPhase(t *testing.T) {
	e := newTestEngine(t)
	event := e.seedJoiningEvent(t, func(ev *models.Event) {
		ev.Status = models.EventStatusPredicting
	})

	_, err := e.events.JoinEvent(context.Background(), event.ID, "late-player", decimal.NewFromFloat(0.1), "")
	var stateError *StateError
	if !errors.As(err, &stateError) {
		t.Errorf("expected StateError, got %v", err)
	}
}

func TestEarlyCloseOnFull(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	event := e.seedJoiningEvent(t, func(ev *models.Event) {
		ev.MinParticipants = 1
		ev.MaxParticipants = 2
		ev.EarlyCloseOnFull = true
	})

	e.join(t, event.ID, "player-1")
	e.join(t, event.ID, "player-2")

	fresh, err := e.repo.GetEventByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("failed to reload event: %v", err)
	}
	if fresh.Status != models.EventStatusPredicting {
		t.Fatalf("expected early close into PREDICTING, got %s", fresh.Status)
	}
	if fresh.PredictionStartsAt == nil || fresh.PredictionEndsAt == nil {
		t.Fatal("expected prediction window to be stamped")
	}
	wantEnd := fresh.PredictionStartsAt.Add(12 * time.Hour)
	if !fresh.PredictionEndsAt.Equal(wantEnd) {
		t.Errorf("expected window end %v, got %v", wantEnd, fresh.PredictionEndsAt)
	}
}

func TestSweepAdvancesFilledAndCancelsUnderfilled(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	filled := e.seedJoiningEvent(t, nil)
	e.join(t, filled.ID, "player-1")
	e.join(t, filled.ID, "player-2")

	underfilled := e.seedJoiningEvent(t, nil)
	e.join(t, underfilled.ID, "player-1")

	// Past both deadlines
	e.clock.Advance(25 * time.Hour)

	advanced, err := e.events.AdvancePhases(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if advanced != 2 {
		t.Errorf("expected 2 advanced, got %d", advanced)
	}

	freshFilled, _ := e.repo.GetEventByID(ctx, filled.ID)
	if freshFilled.Status != models.EventStatusPredicting {
		t.Errorf("expected filled event PREDICTING, got %s", freshFilled.Status)
	}
	// The window starts at the deadline, not at sweep time
	if freshFilled.PredictionStartsAt == nil || !freshFilled.PredictionStartsAt.Equal(filled.JoiningEndsAt) {
		t.Errorf("expected window to start at joining deadline %v, got %v",
			filled.JoiningEndsAt, freshFilled.PredictionStartsAt)
	}

	freshUnder, _ := e.repo.GetEventByID(ctx, underfilled.ID)
	if freshUnder.Status != models.EventStatusCancelled {
		t.Fatalf("expected underfilled event CANCELLED, got %s", freshUnder.Status)
	}
	if freshUnder.CancellationReason == nil || *freshUnder.CancellationReason != "insufficient participants" {
		t.Errorf("unexpected cancellation reason: %v", freshUnder.CancellationReason)
	}

	// Refunds: one entry fee plus the creator deposit
	ledger, _ := e.repo.GetEventTransactions(ctx, underfilled.ID)
	refunds := 0
	for _, entry := range ledger {
		if entry.TransactionType == models.EventTransactionTypeRefund {
			refunds++
		}
	}
	if refunds != 2 {
		t.Errorf("expected 2 refund entries, got %d", refunds)
	}

	// Sweeps are idempotent
	advanced, err = e.events.AdvancePhases(ctx)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if advanced != 0 {
		t.Errorf("expected repeated sweep to be a no-op, got %d", advanced)
	}
}

func TestSweepPredictingToWaiting(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	event := e.seedJoiningEvent(t, nil)
	e.join(t, event.ID, "player-1")
	e.join(t, event.ID, "player-2")

	e.clock.Advance(25 * time.Hour)
	if _, err := e.events.AdvancePhases(ctx); err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}

	// Past the 12 hour prediction window
	e.clock.Advance(12 * time.Hour)
	advanced, err := e.events.AdvancePhases(ctx)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if advanced != 1 {
		t.Errorf("expected 1 advanced, got %d", advanced)
	}

	fresh, _ := e.repo.GetEventByID(ctx, event.ID)
	if fresh.Status != models.EventStatusWaiting {
		t.Fatalf("expected WAITING, got %s", fresh.Status)
	}
	if fresh.ResolutionAt == nil {
		t.Fatal("expected resolution time to be stamped")
	}
	wantResolution := fresh.PredictionEndsAt.Add(6 * time.Hour)
	if !fresh.ResolutionAt.Equal(wantResolution) {
		t.Errorf("expected resolution at %v, got %v", wantResolution, fresh.ResolutionAt)
	}
}

func TestCancelEventOnlyCreatorOrAdmin(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	event := e.seedJoiningEvent(t, nil)

	_, err := e.events.CancelEvent(ctx, event.ID, "stranger", "changed my mind", false)
	var validationError *ValidationError
	if !errors.As(err, &validationError) {
		t.Errorf("expected ValidationError for non-creator, got %v", err)
	}

	refunds, err := e.events.CancelEvent(ctx, event.ID, "creator-wallet", "changed my mind", false)
	if err != nil {
		t.Fatalf("creator cancel failed: %v", err)
	}
	// Only the creator deposit to refund; no participants yet
	if len(refunds) != 1 {
		t.Errorf("expected 1 refund, got %d", len(refunds))
	}

	// Cancelling again reports the terminal state
	_, err = e.events.CancelEvent(ctx, event.ID, "creator-wallet", "again", false)
	if !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestGetEventHidesBlindPredictions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	event := e.seedJoiningEvent(t, func(ev *models.Event) {
		ev.MinParticipants = 1
		ev.MaxParticipants = 5
	})
	e.join(t, event.ID, "player-1")

	e.clock.Advance(25 * time.Hour)
	if _, err := e.events.AdvancePhases(ctx); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if _, err := e.events.SubmitPrediction(ctx, event.ID, "player-1", 150.0); err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	resp, err := e.events.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("get event failed: %v", err)
	}
	if len(resp.Predictions) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(resp.Predictions))
	}
	if resp.Predictions[0].PredictedPrice != nil {
		t.Error("predicted price must stay hidden before resolution")
	}
}

func TestGetPayoutPreview(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	event := e.seedJoiningEvent(t, nil)
	e.join(t, event.ID, "player-1")

	preview, err := e.events.GetPayoutPreview(ctx, event.ID)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}

	current, ok := preview["current"]
	if !ok {
		t.Fatal("missing current projection")
	}
	if !current.EntryFeesCollected.Equal(decimal.NewFromFloat(0.1)) {
		t.Errorf("expected current fees 0.1, got %s", current.EntryFeesCollected)
	}

	atCapacity, ok := preview["at_capacity"]
	if !ok {
		t.Fatal("missing at_capacity projection")
	}
	if !atCapacity.EntryFeesCollected.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected capacity fees 2, got %s", atCapacity.EntryFeesCollected)
	}
}
