package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JSONB for PostgreSQL JSON support
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

type EscrowTransactionType string

const (
	EscrowTransactionTypeHold           EscrowTransactionType = "HOLD"
	EscrowTransactionTypeTopUp          EscrowTransactionType = "TOPUP"
	EscrowTransactionTypeRelease        EscrowTransactionType = "RELEASE"
	EscrowTransactionTypePartialRelease EscrowTransactionType = "PARTIAL_RELEASE"
	EscrowTransactionTypeWithdraw       EscrowTransactionType = "WITHDRAW"
)

type EscrowTransactionStatus string

const (
	EscrowTransactionStatusPending   EscrowTransactionStatus = "PENDING"
	EscrowTransactionStatusConfirmed EscrowTransactionStatus = "CONFIRMED"
	EscrowTransactionStatusFailed    EscrowTransactionStatus = "FAILED"
)

// EscrowHold is the collateral currently held against one project. Forfeited
// holds (canceled listings) stay on record but no longer encumber the pool.
type EscrowHold struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectAddress string          `gorm:"size:64;uniqueIndex;not null" json:"project_address"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
	Forfeited      bool            `gorm:"not null;default:false" json:"forfeited"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (EscrowHold) TableName() string {
	return "escrow_holds"
}

// EscrowTransaction is the audit record of one money movement. Outbound
// transfers are written PENDING inside the state transaction and settled
// after the external transfer attempt.
type EscrowTransaction struct {
	ID             uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectAddress string                  `gorm:"size:64;index" json:"project_address"`
	Type           EscrowTransactionType   `gorm:"size:20;not null" json:"type"`
	Amount         decimal.Decimal         `gorm:"type:decimal(20,8);not null" json:"amount"`
	Recipient      string                  `gorm:"size:64" json:"recipient,omitempty"`
	TxRef          *string                 `gorm:"size:255" json:"tx_ref,omitempty"`
	Status         EscrowTransactionStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	CreatedAt      time.Time               `json:"created_at"`
	SettledAt      *time.Time              `json:"settled_at,omitempty"`
}

func (EscrowTransaction) TableName() string {
	return "escrow_transactions"
}

// WithdrawRequest withdraws unencumbered funds from the pool.
type WithdrawRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Recipient string          `json:"recipient" binding:"required"`
}
