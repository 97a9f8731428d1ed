package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"listing-registry/internal/models"
)

func commentRequest(score int16) *models.SubmitCommentRequest {
	return &models.SubmitCommentRequest{
		Score: score,
		Title: "Solid team",
		Body:  "Shipped everything they promised so far.",
	}
}

func TestSubmitCommentOnApprovedProject(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi"}, []string{"Ethereum"})
	env.grantRole(t, "verifier-1", models.RoleVerifier)
	approvedProject(t, env, "wallet-1")

	comment, err := env.reviews.SubmitComment(context.Background(), "reviewer-1", "wallet-1", commentRequest(4))
	if err != nil {
		t.Fatalf("SubmitComment failed: %v", err)
	}
	if comment.Score != 4 {
		t.Errorf("expected score 4, got %d", comment.Score)
	}
	if comment.CommentKey != models.CommentKeyFor("wallet-1", "reviewer-1") {
		t.Error("comment key must derive from project and reviewer")
	}
}

func TestSubmitCommentRequiresApproval(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi"}, []string{"Ethereum"})

	if _, err := env.projects.Submit(context.Background(), "wallet-1", submitRequest("0.5")); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	_, err := env.reviews.SubmitComment(context.Background(), "reviewer-1", "wallet-1", commentRequest(3))
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition on pending project, got %v", err)
	}
}

func TestSubmitCommentRejectsBadScore(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi"}, []string{"Ethereum"})
	env.grantRole(t, "verifier-1", models.RoleVerifier)
	approvedProject(t, env, "wallet-1")

	for _, score := range []int16{0, 6, -1} {
		_, err := env.reviews.SubmitComment(context.Background(), "reviewer-1", "wallet-1", commentRequest(score))
		if !errors.Is(err, ErrInvalidScore) {
			t.Errorf("score %d: expected ErrInvalidScore, got %v", score, err)
		}
	}

	for _, score := range []int16{1, 5} {
		addr := "reviewer-ok-1"
		if score == 5 {
			addr = "reviewer-ok-5"
		}
		if _, err := env.reviews.SubmitComment(context.Background(), addr, "wallet-1", commentRequest(score)); err != nil {
			t.Errorf("score %d: expected success, got %v", score, err)
		}
	}
}

func TestSubmitCommentCountsTitleInCharacters(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi"}, []string{"Ethereum"})
	env.grantRole(t, "verifier-1", models.RoleVerifier)
	approvedProject(t, env, "wallet-1")

	req := commentRequest(4)
	req.Title = strings.Repeat("é", 30)
	if _, err := env.reviews.SubmitComment(context.Background(), "reviewer-1", "wallet-1", req); err != nil {
		t.Errorf("30-character multibyte title failed: %v", err)
	}

	req = commentRequest(4)
	req.Title = strings.Repeat("é", 31)
	_, err := env.reviews.SubmitComment(context.Background(), "reviewer-2", "wallet-1", req)
	if !errors.Is(err, ErrFieldTooLong) {
		t.Errorf("expected ErrFieldTooLong at 31 characters, got %v", err)
	}
}

func TestSubmitCommentRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi"}, []string{"Ethereum"})
	env.grantRole(t, "verifier-1", models.RoleVerifier)
	approvedProject(t, env, "wallet-1")

	if _, err := env.reviews.SubmitComment(context.Background(), "reviewer-1", "wallet-1", commentRequest(4)); err != nil {
		t.Fatalf("first SubmitComment failed: %v", err)
	}

	_, err := env.reviews.SubmitComment(context.Background(), "reviewer-1", "wallet-1", commentRequest(2))
	if !errors.Is(err, ErrDuplicateReview) {
		t.Errorf("expected ErrDuplicateReview, got %v", err)
	}

	// A second reviewer still gets their own slot.
	if _, err := env.reviews.SubmitComment(context.Background(), "reviewer-2", "wallet-1", commentRequest(2)); err != nil {
		t.Errorf("second reviewer failed: %v", err)
	}
}

func TestVoteRequiresExistingComment(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi"}, []string{"Ethereum"})
	env.grantRole(t, "verifier-1", models.RoleVerifier)
	approvedProject(t, env, "wallet-1")

	_, err := env.reviews.Vote(context.Background(), "voter-1", "wallet-1", "reviewer-1", models.VoteLike)
	if !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("expected ErrReviewNotFound, got %v", err)
	}
}

func TestVoteOverwritesPreviousValue(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi"}, []string{"Ethereum"})
	env.grantRole(t, "verifier-1", models.RoleVerifier)
	approvedProject(t, env, "wallet-1")

	if _, err := env.reviews.SubmitComment(context.Background(), "reviewer-1", "wallet-1", commentRequest(4)); err != nil {
		t.Fatalf("SubmitComment failed: %v", err)
	}

	vote, err := env.reviews.Vote(context.Background(), "voter-1", "wallet-1", "reviewer-1", models.VoteLike)
	if err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if vote.Value != models.VoteLike {
		t.Errorf("expected LIKE, got %d", vote.Value)
	}

	vote, err = env.reviews.Vote(context.Background(), "voter-1", "wallet-1", "reviewer-1", models.VoteDislike)
	if err != nil {
		t.Fatalf("second Vote failed: %v", err)
	}
	if vote.Value != models.VoteDislike {
		t.Errorf("expected DISLIKE after overwrite, got %d", vote.Value)
	}

	var count int64
	env.db.Model(&models.CommentVote{}).
		Where("voter_address = ?", "voter-1").
		Count(&count)
	if count != 1 {
		t.Errorf("expected one vote row per voter, got %d", count)
	}
}

func TestVotesScopedToOneComment(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi"}, []string{"Ethereum"})
	env.grantRole(t, "verifier-1", models.RoleVerifier)
	approvedProject(t, env, "wallet-1")

	if _, err := env.reviews.SubmitComment(context.Background(), "reviewer-1", "wallet-1", commentRequest(4)); err != nil {
		t.Fatalf("SubmitComment failed: %v", err)
	}
	if _, err := env.reviews.SubmitComment(context.Background(), "reviewer-2", "wallet-1", commentRequest(2)); err != nil {
		t.Fatalf("SubmitComment failed: %v", err)
	}

	// One voter, two different reviewers' comments on the same project:
	// the votes must land in distinct slots.
	if _, err := env.reviews.Vote(context.Background(), "voter-1", "wallet-1", "reviewer-1", models.VoteLike); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if _, err := env.reviews.Vote(context.Background(), "voter-1", "wallet-1", "reviewer-2", models.VoteDislike); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}

	var votes []models.CommentVote
	env.db.Where("voter_address = ?", "voter-1").Find(&votes)
	if len(votes) != 2 {
		t.Fatalf("expected two vote rows, got %d", len(votes))
	}
	if votes[0].CommentKey == votes[1].CommentKey {
		t.Error("votes on different comments must use different keys")
	}
}

func TestDeleteCommentRemovesVotes(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi"}, []string{"Ethereum"})
	env.grantRole(t, "verifier-1", models.RoleVerifier)
	approvedProject(t, env, "wallet-1")

	if _, err := env.reviews.SubmitComment(context.Background(), "reviewer-1", "wallet-1", commentRequest(4)); err != nil {
		t.Fatalf("SubmitComment failed: %v", err)
	}
	if _, err := env.reviews.Vote(context.Background(), "voter-1", "wallet-1", "reviewer-1", models.VoteLike); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}

	if err := env.reviews.DeleteComment(context.Background(), "reviewer-1", "wallet-1"); err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}

	var comments, votes int64
	env.db.Model(&models.Comment{}).Where("project_address = ?", "wallet-1").Count(&comments)
	env.db.Model(&models.CommentVote{}).Count(&votes)
	if comments != 0 || votes != 0 {
		t.Errorf("expected comment and votes gone, got %d comments, %d votes", comments, votes)
	}

	// Deleting again reports not found.
	err := env.reviews.DeleteComment(context.Background(), "reviewer-1", "wallet-1")
	if !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("expected ErrReviewNotFound, got %v", err)
	}
}
