package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"listing-registry/internal/assets"
	"listing-registry/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EscrowService tracks the collateral held against each project and the
// house pool it sits in. The tx-scoped mutators run inside the lifecycle
// services' transactions so balance and status always change as one unit;
// outbound transfers settle strictly after commit.
type EscrowService struct {
	db        *gorm.DB
	ledger    assets.Ledger
	authority *AuthorityService
	events    *EventService
	minMargin decimal.Decimal
	mu        sync.Mutex
}

func NewEscrowService(
	db *gorm.DB,
	ledger assets.Ledger,
	authority *AuthorityService,
	events *EventService,
	minMargin decimal.Decimal,
) *EscrowService {
	return &EscrowService{
		db:        db,
		ledger:    ledger,
		authority: authority,
		events:    events,
		minMargin: minMargin,
	}
}

// MinMargin returns the configured minimum margin threshold
func (s *EscrowService) MinMargin() decimal.Decimal {
	return s.minMargin
}

// Hold records the initial margin against a project. The payment received
// must equal the declared margin exactly and meet the minimum threshold.
func (s *EscrowService) Hold(tx *gorm.DB, projectAddress string, declared, received decimal.Decimal) error {
	if !received.Equal(declared) {
		return fmt.Errorf("%w: declared %s, received %s", ErrAmountMismatch, declared, received)
	}
	if received.LessThan(s.minMargin) {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientMargin, received, s.minMargin)
	}

	var existing models.EscrowHold
	err := tx.Where("project_address = ?", projectAddress).First(&existing).Error
	if err == nil {
		if !existing.Forfeited {
			return fmt.Errorf("%w: hold already exists for %s", ErrDuplicateSubmission, projectAddress)
		}
		// Forfeited hold from a canceled listing: terminal state, the
		// address cannot hold margin again.
		return fmt.Errorf("%w: forfeited hold exists for %s", ErrInvalidStateTransition, projectAddress)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hold := models.EscrowHold{
		ID:             uuid.New(),
		ProjectAddress: projectAddress,
		Amount:         received,
	}
	if err := tx.Create(&hold).Error; err != nil {
		return fmt.Errorf("failed to create hold: %w", err)
	}

	return s.recordInbound(tx, projectAddress, models.EscrowTransactionTypeHold, received)
}

// TopUp adds to an existing hold; the resulting total must still meet the
// minimum margin threshold.
func (s *EscrowService) TopUp(tx *gorm.DB, projectAddress string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative top-up", ErrAmountMismatch)
	}

	var hold models.EscrowHold
	if err := tx.Where("project_address = ? AND forfeited = ?", projectAddress, false).
		First(&hold).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to load hold: %w", err)
	}

	total := hold.Amount.Add(amount)
	if total.LessThan(s.minMargin) {
		return decimal.Zero, fmt.Errorf("%w: %s < %s", ErrInsufficientMargin, total, s.minMargin)
	}

	hold.Amount = total
	if err := tx.Save(&hold).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to top up hold: %w", err)
	}

	if amount.IsPositive() {
		if err := s.recordInbound(tx, projectAddress, models.EscrowTransactionTypeTopUp, amount); err != nil {
			return decimal.Zero, err
		}
	}

	return total, nil
}

// Release clears the hold entirely and records a pending refund of the full
// amount to the recipient. Returns the settlement record for post-commit
// transfer.
func (s *EscrowService) Release(tx *gorm.DB, projectAddress, recipient string) (*models.EscrowTransaction, error) {
	var hold models.EscrowHold
	if err := tx.Where("project_address = ? AND forfeited = ?", projectAddress, false).
		First(&hold).Error; err != nil {
		return nil, fmt.Errorf("failed to load hold: %w", err)
	}

	if err := tx.Delete(&hold).Error; err != nil {
		return nil, fmt.Errorf("failed to clear hold: %w", err)
	}

	return s.recordOutbound(tx, projectAddress, models.EscrowTransactionTypeRelease, hold.Amount, recipient)
}

// PartialRelease refunds only amount, adjusting the hold down by that much.
func (s *EscrowService) PartialRelease(tx *gorm.DB, projectAddress, recipient string, amount decimal.Decimal) (*models.EscrowTransaction, error) {
	var hold models.EscrowHold
	if err := tx.Where("project_address = ? AND forfeited = ?", projectAddress, false).
		First(&hold).Error; err != nil {
		return nil, fmt.Errorf("failed to load hold: %w", err)
	}

	if amount.GreaterThan(hold.Amount) {
		return nil, fmt.Errorf("%w: release %s exceeds hold %s", ErrAmountMismatch, amount, hold.Amount)
	}

	hold.Amount = hold.Amount.Sub(amount)
	if err := tx.Save(&hold).Error; err != nil {
		return nil, fmt.Errorf("failed to adjust hold: %w", err)
	}

	return s.recordOutbound(tx, projectAddress, models.EscrowTransactionTypePartialRelease, amount, recipient)
}

// Forfeit marks the hold as forfeited: the margin stays in the pool but no
// longer encumbers it. Used on cancellation, which does not refund.
func (s *EscrowService) Forfeit(tx *gorm.DB, projectAddress string) error {
	result := tx.Model(&models.EscrowHold{}).
		Where("project_address = ? AND forfeited = ?", projectAddress, false).
		Update("forfeited", true)
	if result.Error != nil {
		return fmt.Errorf("failed to forfeit hold: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no active hold for %s", projectAddress)
	}
	return nil
}

// Balance returns the amount currently held against a project
func (s *EscrowService) Balance(ctx context.Context, projectAddress string) (decimal.Decimal, error) {
	var hold models.EscrowHold
	err := s.db.WithContext(ctx).
		Where("project_address = ? AND forfeited = ?", projectAddress, false).
		First(&hold).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return hold.Amount, nil
}

// AvailableBalance returns the unencumbered part of the pool: everything
// received minus everything sent out minus all active holds.
func (s *EscrowService) AvailableBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.availableBalance(s.db.WithContext(ctx))
}

func (s *EscrowService) availableBalance(tx *gorm.DB) (decimal.Decimal, error) {
	var records []models.EscrowTransaction
	if err := tx.Find(&records).Error; err != nil {
		return decimal.Zero, err
	}

	pool := decimal.Zero
	for _, r := range records {
		switch r.Type {
		case models.EscrowTransactionTypeHold, models.EscrowTransactionTypeTopUp:
			pool = pool.Add(r.Amount)
		default:
			// Outbound rows reduce the pool as soon as they are
			// committed, even before settlement.
			pool = pool.Sub(r.Amount)
		}
	}

	var holds []models.EscrowHold
	if err := tx.Where("forfeited = ?", false).Find(&holds).Error; err != nil {
		return decimal.Zero, err
	}
	for _, h := range holds {
		pool = pool.Sub(h.Amount)
	}

	return pool, nil
}

// Withdraw sends unencumbered funds out of the pool (Admin only)
func (s *EscrowService) Withdraw(ctx context.Context, caller, recipient string, amount decimal.Decimal) (*models.EscrowTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authority.RequireRole(ctx, caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdrawal must be positive", ErrAmountMismatch)
	}

	var record *models.EscrowTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		available, err := s.availableBalance(tx)
		if err != nil {
			return err
		}
		if amount.GreaterThan(available) {
			return fmt.Errorf("%w: %s > %s", ErrInsufficientAvailableBalance, amount, available)
		}

		record, err = s.recordOutbound(tx, "", models.EscrowTransactionTypeWithdraw, amount, recipient)
		if err != nil {
			return err
		}

		return s.events.Emit(tx, models.EventFundsWithdrawn, "", caller, record)
	})
	if err != nil {
		return nil, err
	}

	s.Settle(ctx, record)
	return record, nil
}

// Settle performs the external transfer for a committed outbound record and
// marks it confirmed or failed. Runs after the state transaction commits.
func (s *EscrowService) Settle(ctx context.Context, record *models.EscrowTransaction) {
	if record == nil {
		return
	}

	now := time.Now()
	ref, err := s.ledger.Transfer(ctx, record.Recipient, record.Amount)
	if err != nil {
		log.Printf("Warning: transfer of %s to %s failed: %v", record.Amount, record.Recipient, err)
		record.Status = models.EscrowTransactionStatusFailed
		record.SettledAt = &now
		if err := s.db.Model(&models.EscrowTransaction{}).
			Where("id = ?", record.ID).
			Updates(map[string]interface{}{
				"status":     models.EscrowTransactionStatusFailed,
				"settled_at": now,
			}).Error; err != nil {
			log.Printf("Warning: failed to mark settlement for %s: %v", record.ID, err)
		}
		return
	}

	record.TxRef = &ref
	record.Status = models.EscrowTransactionStatusConfirmed
	record.SettledAt = &now
	if err := s.db.Model(&models.EscrowTransaction{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"tx_ref":     ref,
			"status":     models.EscrowTransactionStatusConfirmed,
			"settled_at": now,
		}).Error; err != nil {
		log.Printf("Warning: failed to mark settlement for %s: %v", record.ID, err)
	}
}

// VerifyDeposit confirms an inbound payment against the external ledger
func (s *EscrowService) VerifyDeposit(ctx context.Context, depositRef string, amount decimal.Decimal) error {
	ok, err := s.ledger.VerifyDeposit(ctx, depositRef, amount)
	if err != nil {
		return fmt.Errorf("failed to verify deposit: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDepositNotFound, depositRef)
	}
	return nil
}

func (s *EscrowService) recordInbound(tx *gorm.DB, projectAddress string, typ models.EscrowTransactionType, amount decimal.Decimal) error {
	now := time.Now()
	record := models.EscrowTransaction{
		ID:             uuid.New(),
		ProjectAddress: projectAddress,
		Type:           typ,
		Amount:         amount,
		Status:         models.EscrowTransactionStatusConfirmed,
		SettledAt:      &now,
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record escrow transaction: %w", err)
	}
	return nil
}

func (s *EscrowService) recordOutbound(tx *gorm.DB, projectAddress string, typ models.EscrowTransactionType, amount decimal.Decimal, recipient string) (*models.EscrowTransaction, error) {
	record := models.EscrowTransaction{
		ID:             uuid.New(),
		ProjectAddress: projectAddress,
		Type:           typ,
		Amount:         amount,
		Recipient:      recipient,
		Status:         models.EscrowTransactionStatusPending,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to record escrow transaction: %w", err)
	}
	return &record, nil
}

// ListTransactions returns escrow movements for a project, newest first
func (s *EscrowService) ListTransactions(ctx context.Context, projectAddress string, limit, offset int) ([]*models.EscrowTransaction, error) {
	var records []*models.EscrowTransaction
	err := s.db.WithContext(ctx).
		Where("project_address = ?", projectAddress).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
