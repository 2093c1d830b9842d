package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"prediction-events/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResolutionResult bundles everything settlement produced for an event
type ResolutionResult struct {
	Event     *models.Event              `json:"event"`
	Winners   []*models.Winner           `json:"winners"`
	Breakdown *PayoutBreakdown           `json:"breakdown"`
	Ledger    []*models.EventTransaction `json:"ledger"`
}

// ResolveEvent settles a waiting event against the supplied final price:
// ranks predictions, assigns prizes, reveals predictions, and books the
// full money ledger. Only one resolution can succeed per event; repeats
// fail with ErrAlreadyResolved.
func (es *EventService) ResolveEvent(
	ctx context.Context,
	eventID uuid.UUID,
	finalPrice float64,
	resolutionRef string,
) (*ResolutionResult, error) {
	if finalPrice <= 0 {
		return nil, validationErr("final_price", "must be positive")
	}

	event, err := es.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	switch event.Status {
	case models.EventStatusCompleted:
		return nil, ErrAlreadyResolved
	case models.EventStatusCancelled:
		return nil, ErrAlreadyCancelled
	case models.EventStatusWaiting:
		// resolvable
	default:
		return nil, stateErr("resolve", event.Status)
	}

	predictions, err := es.repo.GetPredictions(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}

	breakdown, err := es.payouts.PreviewForEvent(event, event.ParticipantCount)
	if err != nil {
		return nil, err
	}

	winners := rankPredictions(eventID, predictions, finalPrice, breakdown)

	// The reveal happens exactly once, in the same guarded write as the
	// completed transition.
	now := es.now()
	updates := map[string]interface{}{
		"status":               models.EventStatusCompleted,
		"final_price":          finalPrice,
		"predictions_revealed": true,
		"resolved_at":          now,
		"updated_at":           now,
	}
	if resolutionRef != "" {
		updates["resolution_tx_ref"] = resolutionRef
	}

	ok, err := es.repo.AdvanceStatus(ctx, eventID, models.EventStatusWaiting, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to complete event: %w", err)
	}
	if !ok {
		fresh, err := es.repo.GetEventByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if fresh.Status == models.EventStatusCancelled {
			return nil, ErrAlreadyCancelled
		}
		return nil, ErrAlreadyResolved
	}

	for _, w := range winners {
		if err := es.repo.DB().WithContext(ctx).Create(w).Error; err != nil {
			return nil, fmt.Errorf("failed to record winner: %w", err)
		}
	}

	ledger, err := es.bookSettlement(ctx, event, winners, breakdown, resolutionRef)
	if err != nil {
		return nil, err
	}

	if err := es.reputation.RecordEventCompleted(
		ctx,
		event.CreatorWallet,
		event.ParticipantCount,
		len(predictions),
		event.MaxParticipants,
		event.CreatorDeposit,
		breakdown.CreatorProfit,
		paidPrizes(winners),
	); err != nil {
		log.Printf("[EventService] Warning: failed to update creator profile for %s: %v",
			event.CreatorWallet, err)
	}

	event.Status = models.EventStatusCompleted
	event.FinalPrice = &finalPrice
	event.PredictionsRevealed = true
	event.ResolvedAt = &now

	log.Printf("[EventService] Event %s resolved at price %.6f: %d predictions, %d winners",
		eventID, finalPrice, len(predictions), len(winners))

	return &ResolutionResult{
		Event:     event,
		Winners:   winners,
		Breakdown: breakdown,
		Ledger:    ledger,
	}, nil
}

// rankPredictions scores every prediction against the final price and takes
// the top three. Ties on score break toward the earlier submission.
func rankPredictions(
	eventID uuid.UUID,
	predictions []*models.Prediction,
	finalPrice float64,
	breakdown *PayoutBreakdown,
) []*models.Winner {
	type scored struct {
		prediction *models.Prediction
		accuracy   float64
		score      float64
	}

	ranked := make([]scored, 0, len(predictions))
	for _, p := range predictions {
		accuracy := accuracyOf(p.PredictedPrice, finalPrice)
		ranked = append(ranked, scored{
			prediction: p,
			accuracy:   accuracy,
			score:      scoreOf(accuracy, p.TimeBonus),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].prediction.SubmittedAt.Before(ranked[j].prediction.SubmittedAt)
	})

	limit := 3
	if len(ranked) < limit {
		limit = len(ranked)
	}

	winners := make([]*models.Winner, 0, limit)
	for i := 0; i < limit; i++ {
		rank := i + 1
		winners = append(winners, &models.Winner{
			ID:             uuid.New(),
			EventID:        eventID,
			WalletAddress:  ranked[i].prediction.WalletAddress,
			Rank:           rank,
			Prize:          breakdown.PrizeForRank(rank),
			PredictedPrice: ranked[i].prediction.PredictedPrice,
			Accuracy:       ranked[i].accuracy,
			TimeBonus:      ranked[i].prediction.TimeBonus,
			FinalScore:     ranked[i].score,
		})
	}
	return winners
}

// accuracyOf is the relative price error; 0 is a perfect call
func accuracyOf(predicted, final float64) float64 {
	return math.Abs(predicted-final) / final
}

// scoreOf combines error and timing into the ranking score. Kept as one
// function so the combination strategy can be swapped.
func scoreOf(accuracy, timeBonus float64) float64 {
	return (1 / (1 + accuracy)) * timeBonus
}

// bookSettlement writes the ledger rows for a completed event: prizes to
// winners, the entry-fee split, and a refund of any prize-pool remainder to
// the creator (the whole pool when nobody predicted).
func (es *EventService) bookSettlement(
	ctx context.Context,
	event *models.Event,
	winners []*models.Winner,
	breakdown *PayoutBreakdown,
	resolutionRef string,
) ([]*models.EventTransaction, error) {
	now := es.now()
	var ref *string
	if resolutionRef != "" {
		ref = &resolutionRef
	}

	entries := make([]*models.EventTransaction, 0, len(winners)+3)

	for _, w := range winners {
		if !w.Prize.IsPositive() {
			continue
		}
		entries = append(entries, &models.EventTransaction{
			ID:              uuid.New(),
			EventID:         event.ID,
			WalletAddress:   w.WalletAddress,
			TransactionType: models.EventTransactionTypePrize,
			Amount:          w.Prize,
			TxRef:           ref,
			Status:          models.EventTransactionStatusPending,
			CreatedAt:       now,
		})
	}

	if breakdown.CreatorProfit.IsPositive() {
		entries = append(entries, &models.EventTransaction{
			ID:              uuid.New(),
			EventID:         event.ID,
			WalletAddress:   event.CreatorWallet,
			TransactionType: models.EventTransactionTypeCreatorProfit,
			Amount:          breakdown.CreatorProfit,
			Status:          models.EventTransactionStatusPending,
			CreatedAt:       now,
		})
	}
	if breakdown.PlatformFee.IsPositive() {
		entries = append(entries, &models.EventTransaction{
			ID:              uuid.New(),
			EventID:         event.ID,
			WalletAddress:   "PLATFORM",
			TransactionType: models.EventTransactionTypePlatformFee,
			Amount:          breakdown.PlatformFee,
			Status:          models.EventTransactionStatusPending,
			CreatedAt:       now,
		})
	}

	// Undistributed pool (unfilled ranks, or everything when there were no
	// predictions) goes back to the creator.
	if remainder := breakdown.PrizePool.Sub(paidPrizes(winners)); remainder.IsPositive() {
		entries = append(entries, &models.EventTransaction{
			ID:              uuid.New(),
			EventID:         event.ID,
			WalletAddress:   event.CreatorWallet,
			TransactionType: models.EventTransactionTypeRefund,
			Amount:          remainder,
			Status:          models.EventTransactionStatusPending,
			CreatedAt:       now,
		})
	}

	for _, entry := range entries {
		if err := es.repo.CreateTransaction(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to record settlement entry: %w", err)
		}
	}
	return entries, nil
}

func paidPrizes(winners []*models.Winner) decimal.Decimal {
	total := decimal.Zero
	for _, w := range winners {
		total = total.Add(w.Prize)
	}
	return total
}
