package services

import "errors"

// Every rejection surfaces one of these kinds; callers match with errors.Is.
// Operations fail whole: no partial commit ever survives one of these.
var (
	ErrUnauthorized                 = errors.New("caller lacks the required role")
	ErrInvalidCategory              = errors.New("category index is unknown or stale")
	ErrInvalidStateTransition       = errors.New("project is not in the required status")
	ErrDuplicateSubmission          = errors.New("an active submission already exists for this address")
	ErrAmountMismatch               = errors.New("payment does not match the declared margin")
	ErrInsufficientMargin           = errors.New("margin below the configured minimum")
	ErrInsufficientAvailableBalance = errors.New("requested amount exceeds unencumbered funds")
	ErrFieldTooLong                 = errors.New("field exceeds its length limit")
	ErrDuplicateReview              = errors.New("reviewer already commented on this project")
	ErrReviewNotFound               = errors.New("no comment exists for this reviewer and project")
	ErrProposalAlreadyPending       = errors.New("an update proposal is already pending")
	ErrNoPendingProposal            = errors.New("no update proposal is pending")
	ErrDuplicateLabel               = errors.New("label already registered in this taxonomy")
	ErrUnknownLabel                 = errors.New("label is not registered in this taxonomy")
	ErrIndexMismatch                = errors.New("label at index does not match the given label")
	ErrInvalidScore                 = errors.New("score outside the allowed range")
	ErrDepositNotFound              = errors.New("deposit could not be verified")
)
