package models

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventProjectSubmitted  EventKind = "PROJECT_SUBMITTED"
	EventProjectApproved   EventKind = "PROJECT_APPROVED"
	EventProjectRejected   EventKind = "PROJECT_REJECTED"
	EventProjectCanceled   EventKind = "PROJECT_CANCELED"
	EventProposalSubmitted EventKind = "PROPOSAL_SUBMITTED"
	EventProposalResolved  EventKind = "PROPOSAL_RESOLVED"
	EventCommentSubmitted  EventKind = "COMMENT_SUBMITTED"
	EventCommentDeleted    EventKind = "COMMENT_DELETED"
	EventVoteRecorded      EventKind = "VOTE_RECORDED"
	EventCategoryAdded     EventKind = "CATEGORY_ADDED"
	EventCategoryRenamed   EventKind = "CATEGORY_RENAMED"
	EventRoleGranted       EventKind = "ROLE_GRANTED"
	EventRoleRevoked       EventKind = "ROLE_REVOKED"
	EventFundsWithdrawn    EventKind = "FUNDS_WITHDRAWN"
)

// DomainEvent is one entry of the append-only event stream. Each successful
// mutation writes exactly one, carrying the full post-state of the affected
// record for off-system indexers.
type DomainEvent struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Kind           EventKind `gorm:"size:40;not null;index" json:"kind"`
	ProjectAddress string    `gorm:"size:64;index" json:"project_address,omitempty"`
	Actor          string    `gorm:"size:64;not null" json:"actor"`
	Payload        JSONB     `gorm:"type:jsonb" json:"payload"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (DomainEvent) TableName() string {
	return "domain_events"
}
