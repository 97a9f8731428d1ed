package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProjectStatus string

const (
	ProjectStatusPending  ProjectStatus = "PENDING"
	ProjectStatusApproved ProjectStatus = "APPROVED"
	ProjectStatusRejected ProjectStatus = "REJECTED"
	ProjectStatusCanceled ProjectStatus = "CANCELED"
)

const (
	TitleMaxLen      = 30
	ShortIntroMaxLen = 50
)

// Project represents a listing in the registry. The project address doubles
// as the submitter's wallet address: one active listing per principal.
type Project struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Address                string          `gorm:"size:64;uniqueIndex;not null" json:"address"`
	Title                  string          `gorm:"size:30;not null" json:"title"`
	ShortIntro             string          `gorm:"size:50;not null" json:"short_intro"`
	PrimaryCategoryIndex   uint64          `gorm:"not null" json:"primary_category_index"`
	SecondaryCategoryIndex uint64          `gorm:"not null" json:"secondary_category_index"`
	Contact                string          `gorm:"size:255" json:"contact"`
	Links                  string          `gorm:"type:text" json:"links"`
	Metadata               JSONB           `gorm:"type:jsonb" json:"metadata,omitempty"`
	MarginAmount           decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"margin_amount"`
	Status                 ProjectStatus   `gorm:"size:20;not null;index" json:"status"`
	CurrentVersion         uint64          `gorm:"not null;default:0" json:"current_version"`
	HasPendingProposal     bool            `gorm:"not null;default:false" json:"has_pending_proposal"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

// SubmitProjectRequest carries a new listing submission. Payment is the
// amount actually deposited; it must equal the declared margin exactly.
type SubmitProjectRequest struct {
	Title                  string          `json:"title" binding:"required"`
	ShortIntro             string          `json:"short_intro" binding:"required"`
	PrimaryCategoryIndex   uint64          `json:"primary_category_index"`
	SecondaryCategoryIndex uint64          `json:"secondary_category_index"`
	Contact                string          `json:"contact"`
	Links                  string          `json:"links"`
	Metadata               JSONB           `json:"metadata"`
	MarginAmount           decimal.Decimal `json:"margin_amount" binding:"required"`
	Payment                decimal.Decimal `json:"payment" binding:"required"`
	DepositRef             string          `json:"deposit_ref"`
}
