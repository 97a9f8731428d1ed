package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"listing-registry/internal/assets"
	"listing-registry/internal/models"
	"listing-registry/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// cache=shared keeps the in-memory DB alive across connections, so
	// every test clears its tables before use.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.RoleAssignment{},
		&models.Category{},
		&models.Project{},
		&models.UpdateProposal{},
		&models.EscrowHold{},
		&models.EscrowTransaction{},
		&models.Comment{},
		&models.CommentVote{},
		&models.DomainEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

type testEnv struct {
	db         *gorm.DB
	ledger     *assets.MemoryLedger
	authority  *AuthorityService
	categories *CategoryService
	escrow     *EscrowService
	projects   *ProjectService
	proposals  *ProposalService
	reviews    *ReviewService
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)

	tables := []string{
		"domain_events", "comment_votes", "comments", "update_proposals",
		"escrow_transactions", "escrow_holds", "projects", "categories",
		"role_assignments",
	}
	for _, table := range tables {
		db.Exec("DELETE FROM " + table)
	}

	ledger := assets.NewMemoryLedger()
	events := NewEventService()
	repo := repository.NewRepository(db)
	authority := NewAuthorityService(db, events)
	categories := NewCategoryService(db, repo, authority, events)
	escrow := NewEscrowService(db, ledger, authority, events, decimal.RequireFromString("0.1"))
	projects := NewProjectService(db, repo, categories, escrow, authority, events)
	proposals := NewProposalService(db, repo, categories, escrow, authority, events, projects)
	reviews := NewReviewService(db, repo, events)

	return &testEnv{
		db:         db,
		ledger:     ledger,
		authority:  authority,
		categories: categories,
		escrow:     escrow,
		projects:   projects,
		proposals:  proposals,
		reviews:    reviews,
	}
}

func (e *testEnv) grantRole(t *testing.T, address string, role models.Role) {
	err := e.db.Create(&models.RoleAssignment{
		Address:   address,
		Role:      role,
		GrantedBy: "genesis",
	}).Error
	if err != nil {
		t.Fatalf("failed to grant %s to %s: %v", role, address, err)
	}
}

func (e *testEnv) seedCategories(t *testing.T, primary, secondary []string) {
	for i, label := range primary {
		err := e.db.Create(&models.Category{
			Taxonomy: models.TaxonomyPrimary,
			Index:    uint64(i),
			Label:    label,
		}).Error
		if err != nil {
			t.Fatalf("failed to seed primary category %q: %v", label, err)
		}
	}
	for i, label := range secondary {
		err := e.db.Create(&models.Category{
			Taxonomy: models.TaxonomySecondary,
			Index:    uint64(i),
			Label:    label,
		}).Error
		if err != nil {
			t.Fatalf("failed to seed secondary category %q: %v", label, err)
		}
	}
}

func submitRequest(margin string) *models.SubmitProjectRequest {
	amount := decimal.RequireFromString(margin)
	return &models.SubmitProjectRequest{
		Title:        "Test Project",
		ShortIntro:   "A short introduction",
		Contact:      "team@example.org",
		Links:        "https://example.org",
		MarginAmount: amount,
		Payment:      amount,
		DepositRef:   "deposit-ref-1",
	}
}
