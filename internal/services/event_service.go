package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"prediction-events/internal/models"
	"prediction-events/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const joinRetryAttempts = 3

// EventService owns the event lifecycle: creation through the stake gate,
// participant joining, and the read paths. Prediction, phase, resolution and
// cancellation operations live in the sibling event_service_*.go files.
type EventService struct {
	repo       *repository.Repository
	payouts    *PayoutService
	staking    *StakingService
	reputation *ReputationService
	minDeposit decimal.Decimal
	now        func() time.Time
}

func NewEventService(
	repo *repository.Repository,
	payouts *PayoutService,
	staking *StakingService,
	reputation *ReputationService,
	minDeposit decimal.Decimal,
) *EventService {
	return &EventService{
		repo:       repo,
		payouts:    payouts,
		staking:    staking,
		reputation: reputation,
		minDeposit: minDeposit,
		now:        time.Now,
	}
}

// SetClock overrides the service clock (tests only)
func (es *EventService) SetClock(now func() time.Time) {
	es.now = now
}

// CreateEvent validates the request, consults the stake gate, and opens a new
// event in the joining phase.
func (es *EventService) CreateEvent(
	ctx context.Context,
	creatorWallet string,
	req *models.CreateEventRequest,
) (*models.Event, error) {
	if err := es.validateCreateRequest(req); err != nil {
		return nil, err
	}

	gate, err := es.staking.CanCreate(ctx, creatorWallet)
	if err != nil {
		return nil, fmt.Errorf("failed to check creation gate: %w", err)
	}
	if !gate.Allowed {
		return nil, &GateDeniedError{Reason: gate.Reason}
	}

	now := es.now()
	txRef := req.DepositTxRef

	event := &models.Event{
		ID:                           uuid.New(),
		Token:                        req.Token,
		CreatorWallet:                creatorWallet,
		CreatorDeposit:               decimal.NewFromFloat(req.CreatorDeposit),
		EntryFee:                     decimal.NewFromFloat(req.EntryFee),
		CreationFee:                  gate.CreationFee,
		CreatorPct:                   req.CreatorPct,
		PlatformPct:                  req.PlatformPct,
		FirstPct:                     req.FirstPct,
		SecondPct:                    req.SecondPct,
		ThirdPct:                     req.ThirdPct,
		MinParticipants:              req.MinParticipants,
		MaxParticipants:              req.MaxParticipants,
		JoiningEndsAt:                now.Add(time.Duration(req.JoiningDurationHours) * time.Hour),
		PredictionPhaseDurationHours: req.PredictionPhaseDurationHours,
		WaitingPhaseDurationHours:    req.WaitingPhaseDurationHours,
		EarlyCloseOnFull:             req.EarlyCloseOnFull,
		Status:                       models.EventStatusJoining,
		DepositTxRef:                 &txRef,
		CreatedAt:                    now,
	}

	if err := es.repo.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	deposit := &models.EventTransaction{
		ID:              uuid.New(),
		EventID:         event.ID,
		WalletAddress:   creatorWallet,
		TransactionType: models.EventTransactionTypeDeposit,
		Amount:          event.CreatorDeposit,
		TxRef:           &txRef,
		Status:          models.EventTransactionStatusConfirmed,
		CreatedAt:       now,
		ConfirmedAt:     &now,
	}
	if err := es.repo.CreateTransaction(ctx, deposit); err != nil {
		log.Printf("[EventService] Warning: failed to record deposit for event %s: %v", event.ID, err)
	}

	if err := es.staking.RecordEventCreation(ctx, creatorWallet); err != nil {
		log.Printf("[EventService] Warning: failed to record creation for %s: %v", creatorWallet, err)
	}
	if err := es.reputation.RecordEventCreated(ctx, creatorWallet, event.CreatorDeposit); err != nil {
		log.Printf("[EventService] Warning: failed to update creator profile for %s: %v", creatorWallet, err)
	}

	log.Printf("[EventService] Event %s created by %s: token=%s deposit=%s entry=%s cap=%d-%d",
		event.ID, creatorWallet, event.Token, event.CreatorDeposit, event.EntryFee,
		event.MinParticipants, event.MaxParticipants)

	return event, nil
}

// JoinEvent appends a participant while the event is in the joining phase.
// The conditional write in the repository resolves races for the last slot;
// a writer that keeps losing surfaces ErrSlotTaken.
func (es *EventService) JoinEvent(
	ctx context.Context,
	eventID uuid.UUID,
	wallet string,
	feePaid decimal.Decimal,
	entryTxRef string,
) (*models.Participant, error) {
	for attempt := 0; attempt < joinRetryAttempts; attempt++ {
		event, err := es.repo.GetEventByID(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("failed to get event: %w", err)
		}

		if event.Status != models.EventStatusJoining {
			return nil, stateErr("join", event.Status)
		}
		if !feePaid.Equal(event.EntryFee) {
			return nil, validationErr("entry_fee_paid",
				fmt.Sprintf("must equal the event entry fee %s", event.EntryFee))
		}

		joined, err := es.repo.HasParticipant(ctx, eventID, wallet)
		if err != nil {
			return nil, err
		}
		if joined {
			return nil, conflictErr("wallet already joined this event")
		}
		if event.ParticipantCount >= event.MaxParticipants {
			return nil, conflictErr("event is full")
		}

		now := es.now()
		participant := &models.Participant{
			ID:            uuid.New(),
			EventID:       eventID,
			WalletAddress: wallet,
			JoinedAt:      now,
			EntryFeePaid:  feePaid,
		}
		var feeTx *models.EventTransaction
		if entryTxRef != "" {
			participant.EntryTxRef = &entryTxRef
		}
		if feePaid.IsPositive() {
			feeTx = &models.EventTransaction{
				ID:              uuid.New(),
				EventID:         eventID,
				WalletAddress:   wallet,
				TransactionType: models.EventTransactionTypeEntryFee,
				Amount:          feePaid,
				TxRef:           participant.EntryTxRef,
				Status:          models.EventTransactionStatusConfirmed,
				CreatedAt:       now,
				ConfirmedAt:     &now,
			}
		}

		won, err := es.repo.AddParticipant(ctx, event, participant, feeTx)
		if err != nil {
			return nil, fmt.Errorf("failed to add participant: %w", err)
		}
		if !won {
			continue // version moved; retry against fresh state
		}

		log.Printf("[EventService] %s joined event %s (%d/%d)",
			wallet, eventID, event.ParticipantCount+1, event.MaxParticipants)

		if event.EarlyCloseOnFull && event.ParticipantCount+1 >= event.MaxParticipants {
			if err := es.closeJoiningEarly(ctx, eventID); err != nil {
				log.Printf("[EventService] Warning: early close failed for event %s: %v", eventID, err)
			}
		}

		return participant, nil
	}

	return nil, ErrSlotTaken
}

// GetEvent returns an event with its ledgers, hiding blind predictions
func (es *EventService) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.EventResponse, error) {
	event, err := es.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	participants, err := es.repo.GetParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	predictions, err := es.repo.GetPredictions(ctx, eventID)
	if err != nil {
		return nil, err
	}

	resp := &models.EventResponse{
		Event:        event,
		Participants: participants,
		Predictions:  make([]*models.PredictionResponse, 0, len(predictions)),
	}
	for _, p := range predictions {
		resp.Predictions = append(resp.Predictions, p.ToResponse(event.PredictionsRevealed))
	}

	if event.Status == models.EventStatusCompleted {
		winners, err := es.repo.GetWinners(ctx, eventID)
		if err != nil {
			return nil, err
		}
		resp.Winners = winners
	}

	return resp, nil
}

// GetEventLedger returns the event's money movements in insertion order
func (es *EventService) GetEventLedger(ctx context.Context, eventID uuid.UUID) ([]*models.EventTransaction, error) {
	if _, err := es.repo.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	return es.repo.GetEventTransactions(ctx, eventID)
}

// ListEvents returns events filtered by status
func (es *EventService) ListEvents(ctx context.Context, status models.EventStatus, limit, offset int) ([]*models.Event, int64, error) {
	return es.repo.ListEvents(ctx, status, limit, offset)
}

// GetPayoutPreview projects the payout at the current fill and at capacity
func (es *EventService) GetPayoutPreview(ctx context.Context, eventID uuid.UUID) (map[string]*PayoutBreakdown, error) {
	event, err := es.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	current, err := es.payouts.PreviewForEvent(event, event.ParticipantCount)
	if err != nil {
		return nil, err
	}
	atCapacity, err := es.payouts.PreviewForEvent(event, event.MaxParticipants)
	if err != nil {
		return nil, err
	}

	return map[string]*PayoutBreakdown{
		"current":     current,
		"at_capacity": atCapacity,
	}, nil
}

func (es *EventService) validateCreateRequest(req *models.CreateEventRequest) error {
	if req.Token == "" {
		return validationErr("token", "must not be empty")
	}
	deposit := decimal.NewFromFloat(req.CreatorDeposit)
	if deposit.LessThan(es.minDeposit) {
		return validationErr("creator_deposit",
			fmt.Sprintf("must be at least %s", es.minDeposit))
	}
	if req.EntryFee < 0 {
		return validationErr("entry_fee", "must not be negative")
	}
	if req.CreatorPct+req.PlatformPct != 100 {
		return validationErr("distribution", "creator_pct + platform_pct must equal 100")
	}
	if req.FirstPct+req.SecondPct+req.ThirdPct != 100 {
		return validationErr("winner_split", "rank percentages must sum to 100")
	}
	if req.MinParticipants <= 0 {
		return validationErr("min_participants", "must be positive")
	}
	if req.MaxParticipants < req.MinParticipants {
		return validationErr("max_participants", "must be >= min_participants")
	}
	if req.JoiningDurationHours <= 0 {
		return validationErr("joining_duration_hours", "must be positive")
	}
	if req.PredictionPhaseDurationHours <= 0 {
		return validationErr("prediction_phase_duration_hours", "must be positive")
	}
	if req.WaitingPhaseDurationHours <= 0 {
		return validationErr("waiting_phase_duration_hours", "must be positive")
	}
	if req.DepositTxRef == "" {
		return validationErr("deposit_tx_ref", "must not be empty")
	}
	return nil
}
