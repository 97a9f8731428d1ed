package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UpdateProposal is a pending amendment to an approved project. At most one
// exists per project at a time; the (project, version) pair is unique.
type UpdateProposal struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectAddress         string          `gorm:"size:64;not null;uniqueIndex:idx_proposal_project_version" json:"project_address"`
	Version                uint64          `gorm:"not null;uniqueIndex:idx_proposal_project_version" json:"version"`
	PrimaryCategoryIndex   uint64          `gorm:"not null" json:"primary_category_index"`
	SecondaryCategoryIndex uint64          `gorm:"not null" json:"secondary_category_index"`
	ShortIntro             string          `gorm:"size:50;not null" json:"short_intro"`
	Links                  string          `gorm:"type:text" json:"links"`
	Metadata               JSONB           `gorm:"type:jsonb" json:"metadata,omitempty"`
	AddedMargin            decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"added_margin"`
	CreatedAt              time.Time       `json:"created_at"`
}

func (UpdateProposal) TableName() string {
	return "update_proposals"
}

// ProposeUpdateRequest carries an amendment to an approved listing,
// optionally bundled with a margin top-up.
type ProposeUpdateRequest struct {
	PrimaryCategoryIndex   uint64          `json:"primary_category_index"`
	SecondaryCategoryIndex uint64          `json:"secondary_category_index"`
	ShortIntro             string          `json:"short_intro" binding:"required"`
	Links                  string          `json:"links"`
	Metadata               JSONB           `json:"metadata"`
	Payment                decimal.Decimal `json:"payment"`
	DepositRef             string          `json:"deposit_ref"`
}
