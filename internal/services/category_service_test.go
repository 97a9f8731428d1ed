package services

import (
	"context"
	"errors"
	"testing"

	"listing-registry/internal/models"
)

func TestAddAssignsSequentialIndices(t *testing.T) {
	env := newTestEnv(t)
	env.grantRole(t, "verifier-1", models.RoleVerifier)

	first, err := env.categories.Add(context.Background(), "verifier-1", models.TaxonomyPrimary, "DeFi")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if first.Index != 0 {
		t.Errorf("expected index 0, got %d", first.Index)
	}

	second, err := env.categories.Add(context.Background(), "verifier-1", models.TaxonomyPrimary, "Gaming")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if second.Index != 1 {
		t.Errorf("expected index 1, got %d", second.Index)
	}

	// The two taxonomies count independently.
	chain, err := env.categories.Add(context.Background(), "verifier-1", models.TaxonomySecondary, "Ethereum")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if chain.Index != 0 {
		t.Errorf("expected secondary index 0, got %d", chain.Index)
	}
}

func TestAddRejectsDuplicateLabel(t *testing.T) {
	env := newTestEnv(t)
	env.grantRole(t, "verifier-1", models.RoleVerifier)

	if _, err := env.categories.Add(context.Background(), "verifier-1", models.TaxonomyPrimary, "DeFi"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	_, err := env.categories.Add(context.Background(), "verifier-1", models.TaxonomyPrimary, "DeFi")
	if !errors.Is(err, ErrDuplicateLabel) {
		t.Errorf("expected ErrDuplicateLabel, got %v", err)
	}

	// The same label in the other taxonomy is fine.
	if _, err := env.categories.Add(context.Background(), "verifier-1", models.TaxonomySecondary, "DeFi"); err != nil {
		t.Errorf("cross-taxonomy label failed: %v", err)
	}
}

func TestAddRequiresVerifier(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.categories.Add(context.Background(), "nobody", models.TaxonomyPrimary, "DeFi")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRenameKeepsIndexSlot(t *testing.T) {
	env := newTestEnv(t)
	env.grantRole(t, "verifier-1", models.RoleVerifier)
	env.seedCategories(t, []string{"DeFi", "Gaming"}, nil)

	renamed, err := env.categories.Rename(context.Background(), "verifier-1", models.TaxonomyPrimary, 1, "Gaming", "GameFi")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if renamed.Index != 1 {
		t.Errorf("rename must keep the slot, got index %d", renamed.Index)
	}
	if renamed.Label != "GameFi" {
		t.Errorf("expected label GameFi, got %q", renamed.Label)
	}

	// The old label is gone; the new one resolves.
	var count int64
	env.db.Model(&models.Category{}).
		Where("taxonomy = ? AND label = ?", models.TaxonomyPrimary, "Gaming").
		Count(&count)
	if count != 0 {
		t.Error("old label must no longer be registered")
	}

	if err := env.categories.Validate(context.Background(), 1, 0); !errors.Is(err, ErrInvalidCategory) {
		// Secondary taxonomy is empty, so index 0 there must fail; the
		// renamed primary slot itself stays valid.
		t.Errorf("expected ErrInvalidCategory for empty secondary, got %v", err)
	}
}

func TestRenameRejectsStaleIndex(t *testing.T) {
	env := newTestEnv(t)
	env.grantRole(t, "verifier-1", models.RoleVerifier)
	env.seedCategories(t, []string{"DeFi", "Gaming"}, nil)

	// Index 0 holds "DeFi", not "Gaming": the pair must match.
	_, err := env.categories.Rename(context.Background(), "verifier-1", models.TaxonomyPrimary, 0, "Gaming", "GameFi")
	if !errors.Is(err, ErrIndexMismatch) {
		t.Errorf("expected ErrIndexMismatch, got %v", err)
	}

	// Unassigned index.
	_, err = env.categories.Rename(context.Background(), "verifier-1", models.TaxonomyPrimary, 9, "Gaming", "GameFi")
	if !errors.Is(err, ErrIndexMismatch) {
		t.Errorf("expected ErrIndexMismatch for unassigned index, got %v", err)
	}

	// Unknown old label.
	_, err = env.categories.Rename(context.Background(), "verifier-1", models.TaxonomyPrimary, 0, "Music", "Audio")
	if !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("expected ErrUnknownLabel, got %v", err)
	}

	// Renaming onto an existing label.
	_, err = env.categories.Rename(context.Background(), "verifier-1", models.TaxonomyPrimary, 1, "Gaming", "DeFi")
	if !errors.Is(err, ErrDuplicateLabel) {
		t.Errorf("expected ErrDuplicateLabel, got %v", err)
	}
}

func TestValidateResolvesBothTaxonomies(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi"}, []string{"Ethereum"})

	if err := env.categories.Validate(context.Background(), 0, 0); err != nil {
		t.Errorf("expected valid pair, got %v", err)
	}

	if err := env.categories.Validate(context.Background(), 1, 0); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory for primary, got %v", err)
	}
	if err := env.categories.Validate(context.Background(), 0, 1); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory for secondary, got %v", err)
	}
}

func TestGetReturnsSlotByIndex(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi", "Gaming"}, nil)

	category, err := env.categories.Get(context.Background(), models.TaxonomyPrimary, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if category.Label != "Gaming" {
		t.Errorf("expected Gaming at index 1, got %q", category.Label)
	}

	if _, err := env.categories.Get(context.Background(), models.TaxonomyPrimary, 5); err == nil {
		t.Error("expected an error for an unassigned index")
	}
}

func TestListReturnsIndexOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategories(t, []string{"DeFi", "Gaming", "Infra"}, nil)

	categories, err := env.categories.List(context.Background(), models.TaxonomyPrimary)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(categories))
	}
	for i, c := range categories {
		if c.Index != uint64(i) {
			t.Errorf("position %d: expected index %d, got %d", i, i, c.Index)
		}
	}
}
