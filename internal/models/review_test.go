package models

import (
	"fmt"
	"testing"
)

func TestCommentKeyForDistinguishesReviewers(t *testing.T) {
	a := CommentKeyFor("project-1", "reviewer-1")
	b := CommentKeyFor("project-1", "reviewer-2")
	if a == b {
		t.Error("different reviewers of one project must get different keys")
	}

	c := CommentKeyFor("project-2", "reviewer-1")
	if a == c {
		t.Error("one reviewer on different projects must get different keys")
	}

	if a != CommentKeyFor("project-1", "reviewer-1") {
		t.Error("key derivation must be deterministic")
	}

	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestCommentKeyForSeparatorAmbiguity(t *testing.T) {
	// The separator keeps ("ab", "c") and ("a", "bc") apart.
	if CommentKeyFor("ab", "c") == CommentKeyFor("a", "bc") {
		t.Error("concatenation boundary must be unambiguous")
	}
}

func BenchmarkCommentKeyFor(b *testing.B) {
	for i := 0; i < b.N; i++ {
		CommentKeyFor(fmt.Sprintf("project-%d", i), "reviewer-1")
	}
}
