package services

import (
	"github.com/shopspring/decimal"

	"prediction-events/internal/models"
)

// Monetary outputs are rounded to 4 decimal places in the token's unit,
// half away from zero.
const payoutPrecision = 4

var oneHundred = decimal.NewFromInt(100)

// PayoutBreakdown is the complete money picture of an event at settlement.
// Prizes are funded solely by the creator's deposit; entry fees split between
// creator profit and platform fee.
type PayoutBreakdown struct {
	EntryFeesCollected decimal.Decimal `json:"entry_fees_collected"`
	CreatorProfit      decimal.Decimal `json:"creator_profit"`
	PlatformFee        decimal.Decimal `json:"platform_fee"`
	PrizePool          decimal.Decimal `json:"prize_pool"`
	FirstPrize         decimal.Decimal `json:"first_prize"`
	SecondPrize        decimal.Decimal `json:"second_prize"`
	ThirdPrize         decimal.Decimal `json:"third_prize"`
}

// PrizeForRank returns the prize for ranks 1..3, zero otherwise
func (b *PayoutBreakdown) PrizeForRank(rank int) decimal.Decimal {
	switch rank {
	case 1:
		return b.FirstPrize
	case 2:
		return b.SecondPrize
	case 3:
		return b.ThirdPrize
	default:
		return decimal.Zero
	}
}

// TotalPrizes returns the sum of all three rank prizes
func (b *PayoutBreakdown) TotalPrizes() decimal.Decimal {
	return b.FirstPrize.Add(b.SecondPrize).Add(b.ThirdPrize)
}

// PayoutService computes payouts from pool composition and splits. It is
// deterministic and side-effect free, so it is safe to call speculatively
// for previews before an event fills.
type PayoutService struct{}

func NewPayoutService() *PayoutService {
	return &PayoutService{}
}

// Calculate turns deposit, entry fees and percentage splits into concrete
// amounts. After rounding, any surplus over the prize pool is shaved off the
// largest prize so the prizes never exceed the pool.
func (ps *PayoutService) Calculate(
	creatorDeposit decimal.Decimal,
	entryFee decimal.Decimal,
	participantCount int,
	creatorPct, platformPct int,
	firstPct, secondPct, thirdPct int,
) (*PayoutBreakdown, error) {
	if creatorDeposit.IsNegative() {
		return nil, validationErr("creator_deposit", "must not be negative")
	}
	if entryFee.IsNegative() {
		return nil, validationErr("entry_fee", "must not be negative")
	}
	if participantCount < 0 {
		return nil, validationErr("participant_count", "must not be negative")
	}
	if creatorPct+platformPct != 100 {
		return nil, validationErr("distribution", "creator_pct + platform_pct must equal 100")
	}
	if firstPct+secondPct+thirdPct != 100 {
		return nil, validationErr("winner_split", "rank percentages must sum to 100")
	}

	entryFeesCollected := entryFee.Mul(decimal.NewFromInt(int64(participantCount)))
	prizePool := creatorDeposit

	b := &PayoutBreakdown{
		EntryFeesCollected: entryFeesCollected.Round(payoutPrecision),
		CreatorProfit:      pctOf(entryFeesCollected, creatorPct),
		PlatformFee:        pctOf(entryFeesCollected, platformPct),
		PrizePool:          prizePool.Round(payoutPrecision),
		FirstPrize:         pctOf(prizePool, firstPct),
		SecondPrize:        pctOf(prizePool, secondPct),
		ThirdPrize:         pctOf(prizePool, thirdPct),
	}

	// Rounding reconciliation: the prizes must never exceed the pool. The
	// surplus comes off the largest prize, which also keeps a zero-percent
	// rank from going negative.
	if surplus := b.TotalPrizes().Sub(b.PrizePool); surplus.IsPositive() {
		switch {
		case b.FirstPrize.GreaterThanOrEqual(b.SecondPrize) && b.FirstPrize.GreaterThanOrEqual(b.ThirdPrize):
			b.FirstPrize = decimal.Max(b.FirstPrize.Sub(surplus), decimal.Zero)
		case b.SecondPrize.GreaterThanOrEqual(b.ThirdPrize):
			b.SecondPrize = decimal.Max(b.SecondPrize.Sub(surplus), decimal.Zero)
		default:
			b.ThirdPrize = decimal.Max(b.ThirdPrize.Sub(surplus), decimal.Zero)
		}
	}

	return b, nil
}

// PreviewForEvent computes the projected payout for an event at a given
// participant count (e.g. current fill or max capacity).
func (ps *PayoutService) PreviewForEvent(event *models.Event, participantCount int) (*PayoutBreakdown, error) {
	return ps.Calculate(
		event.CreatorDeposit,
		event.EntryFee,
		participantCount,
		event.CreatorPct, event.PlatformPct,
		event.FirstPct, event.SecondPct, event.ThirdPct,
	)
}

func pctOf(amount decimal.Decimal, pct int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(pct))).Div(oneHundred).Round(payoutPrecision)
}
