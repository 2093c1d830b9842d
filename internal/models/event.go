package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventStatus string

const (
	EventStatusJoining    EventStatus = "JOINING"
	EventStatusPredicting EventStatus = "PREDICTING"
	EventStatusWaiting    EventStatus = "WAITING"
	EventStatusCompleted  EventStatus = "COMPLETED"
	EventStatusCancelled  EventStatus = "CANCELLED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCompleted || s == EventStatusCancelled
}

// Event represents one creator-funded price-prediction contest. IDs are
// assigned by the application, not a DB-side default, so the same schema
// migrates on both Postgres and SQLite.
type Event struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Token         string    `gorm:"size:20;not null;index" json:"token"`
	CreatorWallet string    `gorm:"size:64;not null;index" json:"creator_wallet"`

	CreatorDeposit decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"creator_deposit"`
	EntryFee       decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"entry_fee"`
	CreationFee    decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"creation_fee"`

	// Entry-fee distribution; creator_pct + platform_pct == 100
	CreatorPct  int `gorm:"not null" json:"creator_pct"`
	PlatformPct int `gorm:"not null" json:"platform_pct"`

	// Prize-pool split across ranks 1..3; sums to 100
	FirstPct  int `gorm:"not null" json:"first_pct"`
	SecondPct int `gorm:"not null" json:"second_pct"`
	ThirdPct  int `gorm:"not null" json:"third_pct"`

	MinParticipants  int `gorm:"not null" json:"min_participants"`
	MaxParticipants  int `gorm:"not null" json:"max_participants"`
	ParticipantCount int `gorm:"not null;default:0" json:"participant_count"`
	PredictionCount  int `gorm:"not null;default:0" json:"prediction_count"`

	JoiningEndsAt                time.Time  `gorm:"not null;index" json:"joining_ends_at"`
	PredictionPhaseDurationHours int        `gorm:"not null" json:"prediction_phase_duration_hours"`
	PredictionStartsAt           *time.Time `json:"prediction_starts_at"`
	PredictionEndsAt             *time.Time `gorm:"index" json:"prediction_ends_at"`
	WaitingPhaseDurationHours    int        `gorm:"not null" json:"waiting_phase_duration_hours"`
	ResolutionAt                 *time.Time `gorm:"index" json:"resolution_at"`
	EarlyCloseOnFull             bool       `gorm:"not null;default:false" json:"early_close_on_full"`

	Status              EventStatus `gorm:"size:20;not null;default:JOINING;index" json:"status"`
	FinalPrice          *float64    `gorm:"type:decimal(20,8)" json:"final_price"`
	PredictionsRevealed bool        `gorm:"not null;default:false" json:"predictions_revealed"`
	CancellationReason  *string     `gorm:"size:255" json:"cancellation_reason"`

	DepositTxRef    *string `gorm:"size:255" json:"deposit_tx_ref"`
	ResolutionTxRef *string `gorm:"size:255" json:"resolution_tx_ref"`

	// Version guards concurrent joins (optimistic lock)
	Version int `gorm:"not null;default:0" json:"-"`

	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

func (Event) TableName() string {
	return "events"
}

// Participant is one wallet's paid entry into an event
type Participant struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EventID       uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_event_participant" json:"event_id"`
	WalletAddress string          `gorm:"size:64;not null;uniqueIndex:idx_event_participant" json:"wallet_address"`
	JoinedAt      time.Time       `gorm:"not null" json:"joined_at"`
	EntryFeePaid  decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"entry_fee_paid"`
	EntryTxRef    *string         `gorm:"size:255" json:"entry_tx_ref"`
}

func (Participant) TableName() string {
	return "event_participants"
}

// Prediction is a participant's blind price call. PredictedPrice stays out of
// JSON entirely; read paths go through ToResponse, which exposes it only once
// the event's predictions are revealed.
type Prediction struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID           uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_event_prediction" json:"event_id"`
	WalletAddress     string    `gorm:"size:64;not null;uniqueIndex:idx_event_prediction" json:"wallet_address"`
	PredictedPrice    float64   `gorm:"type:decimal(20,8);not null" json:"-"`
	SubmittedAt       time.Time `gorm:"not null" json:"submitted_at"`
	IsEarlyPrediction bool      `gorm:"not null;default:false" json:"is_early_prediction"`
	TimeBonus         float64   `gorm:"type:decimal(5,2);not null" json:"time_bonus"`
}

func (Prediction) TableName() string {
	return "event_predictions"
}

// Winner is a ranked payout entry produced at resolution
type Winner struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EventID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_event_rank" json:"event_id"`
	WalletAddress  string          `gorm:"size:64;not null" json:"wallet_address"`
	Rank           int             `gorm:"not null;uniqueIndex:idx_event_rank" json:"rank"`
	Prize          decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"prize"`
	PredictedPrice float64         `gorm:"type:decimal(20,8);not null" json:"predicted_price"`
	Accuracy       float64         `gorm:"type:decimal(20,8);not null" json:"accuracy"`
	TimeBonus      float64         `gorm:"type:decimal(5,2);not null" json:"time_bonus"`
	FinalScore     float64         `gorm:"type:decimal(20,8);not null" json:"final_score"`
	CreatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Winner) TableName() string {
	return "event_winners"
}

// CreateEventRequest represents a request to create a new event
type CreateEventRequest struct {
	Token                        string  `json:"token" binding:"required"`
	CreatorDeposit               float64 `json:"creator_deposit" binding:"required,gt=0"`
	EntryFee                     float64 `json:"entry_fee" binding:"gte=0"`
	CreatorPct                   int     `json:"creator_pct"`
	PlatformPct                  int     `json:"platform_pct"`
	FirstPct                     int     `json:"first_pct"`
	SecondPct                    int     `json:"second_pct"`
	ThirdPct                     int     `json:"third_pct"`
	MinParticipants              int     `json:"min_participants" binding:"required,gt=0"`
	MaxParticipants              int     `json:"max_participants" binding:"required,gt=0"`
	JoiningDurationHours         int     `json:"joining_duration_hours" binding:"required,gt=0"`
	PredictionPhaseDurationHours int     `json:"prediction_phase_duration_hours" binding:"required,gt=0"`
	WaitingPhaseDurationHours    int     `json:"waiting_phase_duration_hours" binding:"required,gt=0"`
	EarlyCloseOnFull             bool    `json:"early_close_on_full"`
	DepositTxRef                 string  `json:"deposit_tx_ref" binding:"required"`
}

// JoinEventRequest represents a participant entry
type JoinEventRequest struct {
	EntryFeePaid float64 `json:"entry_fee_paid" binding:"gte=0"`
	EntryTxRef   string  `json:"entry_tx_ref"`
}

// PredictRequest represents a blind prediction submission
type PredictRequest struct {
	PredictedPrice float64 `json:"predicted_price" binding:"required,gt=0"`
}

// ResolveEventRequest supplies the oracle settlement price
type ResolveEventRequest struct {
	FinalPrice    float64 `json:"final_price" binding:"required,gt=0"`
	ResolutionRef string  `json:"resolution_ref"`
}

// CancelEventRequest carries the cancellation reason
type CancelEventRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PredictionResponse is the read shape of a prediction; the price is included
// only after the event reveals predictions.
type PredictionResponse struct {
	WalletAddress     string    `json:"wallet_address"`
	PredictedPrice    *float64  `json:"predicted_price,omitempty"`
	SubmittedAt       time.Time `json:"submitted_at"`
	IsEarlyPrediction bool      `json:"is_early_prediction"`
	TimeBonus         float64   `json:"time_bonus"`
}

// ToResponse converts a prediction to its API shape, honoring the reveal flag
func (p *Prediction) ToResponse(revealed bool) *PredictionResponse {
	resp := &PredictionResponse{
		WalletAddress:     p.WalletAddress,
		SubmittedAt:       p.SubmittedAt,
		IsEarlyPrediction: p.IsEarlyPrediction,
		TimeBonus:         p.TimeBonus,
	}
	if revealed {
		price := p.PredictedPrice
		resp.PredictedPrice = &price
	}
	return resp
}

// EventResponse is the public shape of an event with its ledgers
type EventResponse struct {
	Event        *Event                `json:"event"`
	Participants []*Participant        `json:"participants"`
	Predictions  []*PredictionResponse `json:"predictions"`
	Winners      []*Winner             `json:"winners,omitempty"`
}
