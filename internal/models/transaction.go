package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventTransactionType string

const (
	EventTransactionTypeDeposit       EventTransactionType = "DEPOSIT"
	EventTransactionTypeEntryFee      EventTransactionType = "ENTRY_FEE"
	EventTransactionTypePrize         EventTransactionType = "PRIZE"
	EventTransactionTypeRefund        EventTransactionType = "REFUND"
	EventTransactionTypePlatformFee   EventTransactionType = "PLATFORM_FEE"
	EventTransactionTypeCreatorProfit EventTransactionType = "CREATOR_PROFIT"
)

type EventTransactionStatus string

const (
	EventTransactionStatusPending   EventTransactionStatus = "PENDING"
	EventTransactionStatusConfirmed EventTransactionStatus = "CONFIRMED"
	EventTransactionStatusFailed    EventTransactionStatus = "FAILED"
)

// EventTransaction is one ledger entry of money moving into or out of an
// event: deposits and entry fees in, prizes, refunds, fees and profit out.
// Actual fund movement happens off-engine; the row records what is owed.
type EventTransaction struct {
	ID              uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	EventID         uuid.UUID              `gorm:"type:uuid;not null;index" json:"event_id"`
	WalletAddress   string                 `gorm:"size:64;not null;index" json:"wallet_address"`
	TransactionType EventTransactionType   `gorm:"size:30;not null" json:"transaction_type"`
	Amount          decimal.Decimal        `gorm:"type:decimal(20,8);not null" json:"amount"`
	TxRef           *string                `gorm:"size:255" json:"tx_ref"`
	Status          EventTransactionStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	CreatedAt       time.Time              `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	ConfirmedAt     *time.Time             `json:"confirmed_at"`
}

func (EventTransaction) TableName() string {
	return "event_transactions"
}
