package services

import (
	"context"
	"fmt"
	"log"

	"prediction-events/internal/models"

	"github.com/google/uuid"
)

const cancelReasonInsufficient = "insufficient participants"

// CancelEvent cancels an event from joining or predicting, freezing it and
// emitting the exact refund list: full entry fee per participant plus the
// creator's deposit. Fund movement itself is delegated to settlement; the
// refund rows record what is owed.
func (es *EventService) CancelEvent(
	ctx context.Context,
	eventID uuid.UUID,
	callerWallet string,
	reason string,
	isAdmin bool,
) ([]*models.EventTransaction, error) {
	if reason == "" {
		return nil, validationErr("reason", "must not be empty")
	}

	event, err := es.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if !isAdmin && event.CreatorWallet != callerWallet {
		return nil, validationErr("caller", "only the event creator may cancel")
	}

	return es.cancelEvent(ctx, event, reason)
}

// cancelUnderfilled is the sweep path for joining events that missed their
// minimum at the deadline.
func (es *EventService) cancelUnderfilled(ctx context.Context, event *models.Event) error {
	_, err := es.cancelEvent(ctx, event, cancelReasonInsufficient)
	return err
}

func (es *EventService) cancelEvent(
	ctx context.Context,
	event *models.Event,
	reason string,
) ([]*models.EventTransaction, error) {
	switch event.Status {
	case models.EventStatusCompleted:
		return nil, ErrAlreadyResolved
	case models.EventStatusCancelled:
		return nil, ErrAlreadyCancelled
	case models.EventStatusJoining, models.EventStatusPredicting:
		// cancellable
	default:
		return nil, stateErr("cancel", event.Status)
	}

	now := es.now()
	ok, err := es.repo.AdvanceStatus(ctx, event.ID, event.Status, map[string]interface{}{
		"status":              models.EventStatusCancelled,
		"cancellation_reason": reason,
		"cancelled_at":        now,
		"updated_at":          now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel event: %w", err)
	}
	if !ok {
		// Someone moved the event first; re-read to report the right guard.
		fresh, err := es.repo.GetEventByID(ctx, event.ID)
		if err != nil {
			return nil, err
		}
		switch fresh.Status {
		case models.EventStatusCompleted:
			return nil, ErrAlreadyResolved
		case models.EventStatusCancelled:
			return nil, ErrAlreadyCancelled
		default:
			return nil, stateErr("cancel", fresh.Status)
		}
	}

	refunds, err := es.emitCancellationRefunds(ctx, event)
	if err != nil {
		return nil, err
	}

	if err := es.reputation.RecordEventCancelled(ctx, event.CreatorWallet); err != nil {
		log.Printf("[EventService] Warning: failed to update creator profile for %s: %v",
			event.CreatorWallet, err)
	}

	log.Printf("[EventService] Event %s cancelled (%s), %d refunds emitted",
		event.ID, reason, len(refunds))

	return refunds, nil
}

func (es *EventService) emitCancellationRefunds(ctx context.Context, event *models.Event) ([]*models.EventTransaction, error) {
	participants, err := es.repo.GetParticipants(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for refunds: %w", err)
	}

	now := es.now()
	refunds := make([]*models.EventTransaction, 0, len(participants)+1)

	for _, p := range participants {
		if !p.EntryFeePaid.IsPositive() {
			continue
		}
		refunds = append(refunds, &models.EventTransaction{
			ID:              uuid.New(),
			EventID:         event.ID,
			WalletAddress:   p.WalletAddress,
			TransactionType: models.EventTransactionTypeRefund,
			Amount:          p.EntryFeePaid,
			Status:          models.EventTransactionStatusPending,
			CreatedAt:       now,
		})
	}

	refunds = append(refunds, &models.EventTransaction{
		ID:              uuid.New(),
		EventID:         event.ID,
		WalletAddress:   event.CreatorWallet,
		TransactionType: models.EventTransactionTypeRefund,
		Amount:          event.CreatorDeposit,
		Status:          models.EventTransactionStatusPending,
		CreatedAt:       now,
	})

	for _, refund := range refunds {
		if err := es.repo.CreateTransaction(ctx, refund); err != nil {
			return nil, fmt.Errorf("failed to record refund: %w", err)
		}
	}

	return refunds, nil
}
