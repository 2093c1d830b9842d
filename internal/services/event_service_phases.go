package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"prediction-events/internal/models"

	"github.com/google/uuid"
)

const sweepBatchSize = 100

// AdvancePhases is the idempotent sweep driving deadline transitions:
// joining events past their deadline move to predicting (or cancel when
// under-filled), predicting events past their window move to waiting.
// Every transition is guarded on the expected prior status, so concurrent
// or repeated sweeps are no-ops for already-advanced events.
func (es *EventService) AdvancePhases(ctx context.Context) (int, error) {
	now := es.now()
	advanced := 0

	dueJoining, err := es.repo.DueJoiningEvents(ctx, now, sweepBatchSize)
	if err != nil {
		return advanced, fmt.Errorf("failed to fetch due joining events: %w", err)
	}
	for _, event := range dueJoining {
		if event.ParticipantCount >= event.MinParticipants {
			ok, err := es.startPredictionPhase(ctx, event, event.JoiningEndsAt)
			if err != nil {
				log.Printf("[EventService] Error advancing event %s to predicting: %v", event.ID, err)
				continue
			}
			if ok {
				advanced++
			}
		} else {
			if err := es.cancelUnderfilled(ctx, event); err != nil {
				log.Printf("[EventService] Error cancelling underfilled event %s: %v", event.ID, err)
				continue
			}
			advanced++
		}
	}

	duePredicting, err := es.repo.DuePredictingEvents(ctx, now, sweepBatchSize)
	if err != nil {
		return advanced, fmt.Errorf("failed to fetch due predicting events: %w", err)
	}
	for _, event := range duePredicting {
		ok, err := es.startWaitingPhase(ctx, event)
		if err != nil {
			log.Printf("[EventService] Error advancing event %s to waiting: %v", event.ID, err)
			continue
		}
		if ok {
			advanced++
		}
	}

	return advanced, nil
}

// DueForResolution lists waiting events whose resolution time has arrived
func (es *EventService) DueForResolution(ctx context.Context) ([]*models.Event, error) {
	return es.repo.DueWaitingEvents(ctx, es.now(), sweepBatchSize)
}

// startPredictionPhase stamps the prediction window once and moves
// joining -> predicting. Returns false when another sweep got there first.
func (es *EventService) startPredictionPhase(ctx context.Context, event *models.Event, startAt time.Time) (bool, error) {
	endsAt := startAt.Add(time.Duration(event.PredictionPhaseDurationHours) * time.Hour)

	ok, err := es.repo.AdvanceStatus(ctx, event.ID, models.EventStatusJoining, map[string]interface{}{
		"status":               models.EventStatusPredicting,
		"prediction_starts_at": startAt,
		"prediction_ends_at":   endsAt,
		"updated_at":           es.now(),
	})
	if err != nil {
		return false, err
	}
	if ok {
		log.Printf("[EventService] Event %s entered predicting (window %s - %s)",
			event.ID, startAt.Format(time.RFC3339), endsAt.Format(time.RFC3339))
	}
	return ok, nil
}

// startWaitingPhase moves predicting -> waiting and stamps the resolution time
func (es *EventService) startWaitingPhase(ctx context.Context, event *models.Event) (bool, error) {
	if event.PredictionEndsAt == nil {
		return false, fmt.Errorf("event %s has no prediction end time", event.ID)
	}
	resolutionAt := event.PredictionEndsAt.Add(time.Duration(event.WaitingPhaseDurationHours) * time.Hour)

	ok, err := es.repo.AdvanceStatus(ctx, event.ID, models.EventStatusPredicting, map[string]interface{}{
		"status":        models.EventStatusWaiting,
		"resolution_at": resolutionAt,
		"updated_at":    es.now(),
	})
	if err != nil {
		return false, err
	}
	if ok {
		log.Printf("[EventService] Event %s entered waiting (resolution at %s)",
			event.ID, resolutionAt.Format(time.RFC3339))
	}
	return ok, nil
}

// closeJoiningEarly advances a full event straight into predicting
func (es *EventService) closeJoiningEarly(ctx context.Context, eventID uuid.UUID) error {
	event, err := es.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.Status != models.EventStatusJoining {
		return nil
	}
	_, err = es.startPredictionPhase(ctx, event, es.now())
	return err
}
