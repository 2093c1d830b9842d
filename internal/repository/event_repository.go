package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"prediction-events/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for services that run their own transactions
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// CreateEvent creates a new event
func (r *Repository) CreateEvent(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// GetEventByID retrieves an event by ID
func (r *Repository) GetEventByID(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents retrieves events filtered by status (all statuses if empty)
func (r *Repository) ListEvents(ctx context.Context, status models.EventStatus, limit, offset int) ([]*models.Event, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []*models.Event
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// ListEventsByCreator retrieves all events created by a wallet
func (r *Repository) ListEventsByCreator(ctx context.Context, wallet string, limit, offset int) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("creator_wallet = ?", wallet).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// AddParticipant appends a participant and bumps the event's counters inside
// one transaction. The update is conditioned on the event's version and
// status, so a concurrent join to the same slot makes exactly one writer win;
// the loser sees ok=false and retries against fresh state.
func (r *Repository) AddParticipant(
	ctx context.Context,
	event *models.Event,
	participant *models.Participant,
	feeTx *models.EventTransaction,
) (bool, error) {
	won := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Event{}).
			Where("id = ? AND version = ? AND status = ? AND participant_count < max_participants",
				event.ID, event.Version, models.EventStatusJoining).
			Updates(map[string]interface{}{
				"participant_count": gorm.Expr("participant_count + 1"),
				"version":           gorm.Expr("version + 1"),
				"updated_at":        gorm.Expr("CURRENT_TIMESTAMP"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // lost the race or state moved; caller re-reads
		}

		if err := tx.Create(participant).Error; err != nil {
			return err
		}
		if feeTx != nil {
			if err := tx.Create(feeTx).Error; err != nil {
				return err
			}
		}
		won = true
		return nil
	})
	return won, err
}

// AddPrediction appends a prediction, enforcing one per wallet inside the
// same transaction as the write. The composite unique index backs the check
// against racing duplicates.
func (r *Repository) AddPrediction(ctx context.Context, prediction *models.Prediction) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Prediction{}).
			Where("event_id = ? AND wallet_address = ?", prediction.EventID, prediction.WalletAddress).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if err := tx.Create(prediction).Error; err != nil {
			if isUniqueViolation(err) {
				return nil // a racing duplicate got there first
			}
			return err
		}

		res := tx.Model(&models.Event{}).
			Where("id = ? AND status = ?", prediction.EventID, models.EventStatusPredicting).
			Update("prediction_count", gorm.Expr("prediction_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		added = true
		return nil
	})
	return added, err
}

// isUniqueViolation matches duplicate-key errors from both Postgres and the
// SQLite test database.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// HasParticipant reports whether a wallet already joined an event
func (r *Repository) HasParticipant(ctx context.Context, eventID uuid.UUID, wallet string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("event_id = ? AND wallet_address = ?", eventID, wallet).
		Count(&count).Error
	return count > 0, err
}

// GetParticipants retrieves all participants for an event in join order
func (r *Repository) GetParticipants(ctx context.Context, eventID uuid.UUID) ([]*models.Participant, error) {
	var participants []*models.Participant
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("joined_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// GetPredictions retrieves all predictions for an event in submission order
func (r *Repository) GetPredictions(ctx context.Context, eventID uuid.UUID) ([]*models.Prediction, error) {
	var predictions []*models.Prediction
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("submitted_at ASC").
		Find(&predictions).Error
	if err != nil {
		return nil, err
	}
	return predictions, nil
}

// GetWinners retrieves the ranked winners for an event
func (r *Repository) GetWinners(ctx context.Context, eventID uuid.UUID) ([]*models.Winner, error) {
	var winners []*models.Winner
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("rank ASC").
		Find(&winners).Error
	if err != nil {
		return nil, err
	}
	return winners, nil
}

// AdvanceStatus performs a guarded status transition. It only applies the
// updates when the event is still in the expected prior status, which makes
// repeated sweep invocations no-ops instead of double transitions.
func (r *Repository) AdvanceStatus(
	ctx context.Context,
	eventID uuid.UUID,
	from models.EventStatus,
	updates map[string]interface{},
) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND status = ?", eventID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DueJoiningEvents retrieves joining events whose deadline has passed
func (r *Repository) DueJoiningEvents(ctx context.Context, now time.Time, limit int) ([]*models.Event, error) {
	return r.dueEvents(ctx, models.EventStatusJoining, "joining_ends_at <= ?", now, limit)
}

// DuePredictingEvents retrieves predicting events whose window has closed
func (r *Repository) DuePredictingEvents(ctx context.Context, now time.Time, limit int) ([]*models.Event, error) {
	return r.dueEvents(ctx, models.EventStatusPredicting, "prediction_ends_at <= ?", now, limit)
}

// DueWaitingEvents retrieves waiting events ready for resolution
func (r *Repository) DueWaitingEvents(ctx context.Context, now time.Time, limit int) ([]*models.Event, error) {
	return r.dueEvents(ctx, models.EventStatusWaiting, "resolution_at <= ?", now, limit)
}

func (r *Repository) dueEvents(ctx context.Context, status models.EventStatus, deadlineCond string, now time.Time, limit int) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Where(deadlineCond, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CreateTransaction records one ledger entry
func (r *Repository) CreateTransaction(ctx context.Context, entry *models.EventTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetEventTransactions retrieves the full ledger for an event
func (r *Repository) GetEventTransactions(ctx context.Context, eventID uuid.UUID) ([]*models.EventTransaction, error) {
	var entries []*models.EventTransaction
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
