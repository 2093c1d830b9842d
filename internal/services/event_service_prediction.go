package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"prediction-events/internal/models"

	"github.com/google/uuid"
)

// Submitting in the first quarter of the prediction window marks the
// prediction as early and earns the top bonus.
const earlyPredictionFraction = 0.25

// timeBonusFor maps the elapsed fraction of the prediction window to the
// score multiplier. The bonus is fixed at submission time and never
// recomputed at resolution.
func timeBonusFor(elapsedFraction float64) float64 {
	switch {
	case elapsedFraction <= 0.25:
		return 1.50
	case elapsedFraction <= 0.50:
		return 1.25
	case elapsedFraction <= 0.75:
		return 1.00
	default:
		return 0.75
	}
}

// SubmitPrediction records a participant's blind price call. One prediction
// per wallet; the price stays hidden until the event resolves.
func (es *EventService) SubmitPrediction(
	ctx context.Context,
	eventID uuid.UUID,
	wallet string,
	predictedPrice float64,
) (*models.Prediction, error) {
	if predictedPrice <= 0 {
		return nil, validationErr("predicted_price", "must be positive")
	}

	event, err := es.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if event.Status != models.EventStatusPredicting {
		return nil, stateErr("predict", event.Status)
	}
	if event.PredictionStartsAt == nil || event.PredictionEndsAt == nil {
		return nil, fmt.Errorf("event %s is predicting but has no prediction window", eventID)
	}

	joined, err := es.repo.HasParticipant(ctx, eventID, wallet)
	if err != nil {
		return nil, err
	}
	if !joined {
		return nil, validationErr("wallet", "not a participant of this event")
	}

	now := es.now()
	fraction := elapsedFraction(*event.PredictionStartsAt, *event.PredictionEndsAt, now)

	prediction := &models.Prediction{
		ID:                uuid.New(),
		EventID:           eventID,
		WalletAddress:     wallet,
		PredictedPrice:    predictedPrice,
		SubmittedAt:       now,
		IsEarlyPrediction: fraction <= earlyPredictionFraction,
		TimeBonus:         timeBonusFor(fraction),
	}

	added, err := es.repo.AddPrediction(ctx, prediction)
	if err != nil {
		return nil, fmt.Errorf("failed to add prediction: %w", err)
	}
	if !added {
		return nil, conflictErr("prediction already submitted for this wallet")
	}

	log.Printf("[EventService] %s predicted on event %s at %.1f%% of window (bonus %.2f)",
		wallet, eventID, fraction*100, prediction.TimeBonus)

	return prediction, nil
}

// elapsedFraction positions t within [start, end], clamped to [0, 1]
func elapsedFraction(start, end, t time.Time) float64 {
	window := end.Sub(start)
	if window <= 0 {
		return 1
	}
	fraction := float64(t.Sub(start)) / float64(window)
	if fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 1
	}
	return fraction
}
