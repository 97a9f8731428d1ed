package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Comment score policy. Zero is the "no comment" sentinel used by the wire
// format, so the valid range starts at 1.
const (
	ScoreMin int16 = 1
	ScoreMax int16 = 5
)

type VoteValue int16

const (
	VoteNone    VoteValue = 0
	VoteLike    VoteValue = 1
	VoteDislike VoteValue = 2
)

// Valid reports whether v is one of the three vote states.
func (v VoteValue) Valid() bool {
	return v == VoteNone || v == VoteLike || v == VoteDislike
}

// Comment is a single review of an approved project. Each reviewer gets
// exactly one comment per project.
type Comment struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectAddress  string    `gorm:"size:64;not null;uniqueIndex:idx_comment_project_reviewer" json:"project_address"`
	ReviewerAddress string    `gorm:"size:64;not null;uniqueIndex:idx_comment_project_reviewer" json:"reviewer_address"`
	CommentKey      string    `gorm:"size:64;not null;uniqueIndex" json:"comment_key"`
	Score           int16     `gorm:"not null" json:"score"`
	Title           string    `gorm:"size:30;not null" json:"title"`
	Body            string    `gorm:"type:text" json:"body"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}

// CommentVote is one voter's slot on a comment; last write wins.
type CommentVote struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CommentKey   string    `gorm:"size:64;not null;uniqueIndex:idx_vote_comment_voter" json:"comment_key"`
	VoterAddress string    `gorm:"size:64;not null;uniqueIndex:idx_vote_comment_voter" json:"voter_address"`
	Value        VoteValue `gorm:"not null" json:"value"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (CommentVote) TableName() string {
	return "comment_votes"
}

// CommentKeyFor derives the vote-lookup key from the (project, reviewer)
// pair. Both halves go into the hash so different reviewers of the same
// project never collide.
func CommentKeyFor(projectAddress, reviewerAddress string) string {
	sum := sha256.Sum256([]byte(projectAddress + "|" + reviewerAddress))
	return hex.EncodeToString(sum[:])
}

// SubmitCommentRequest creates the caller's comment on a project.
type SubmitCommentRequest struct {
	Score int16  `json:"score" binding:"required"`
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

// VoteRequest stores or overwrites the caller's vote on a comment.
type VoteRequest struct {
	Value VoteValue `json:"value"`
}
