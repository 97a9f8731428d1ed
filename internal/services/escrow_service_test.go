package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"listing-registry/internal/models"
)

func TestHoldEnforcesMinimumMargin(t *testing.T) {
	env := newTestEnv(t)

	// Exactly at the threshold passes.
	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.escrow.Hold(tx, "proj-min", decimal.RequireFromString("0.1"), decimal.RequireFromString("0.1"))
	})
	if err != nil {
		t.Fatalf("Hold at minimum margin failed: %v", err)
	}

	// Just below fails.
	err = env.db.Transaction(func(tx *gorm.DB) error {
		return env.escrow.Hold(tx, "proj-low", decimal.RequireFromString("0.09"), decimal.RequireFromString("0.09"))
	})
	if !errors.Is(err, ErrInsufficientMargin) {
		t.Errorf("expected ErrInsufficientMargin, got %v", err)
	}

	var hold models.EscrowHold
	if err := env.db.Where("project_address = ?", "proj-low").First(&hold).Error; err == nil {
		t.Error("rejected hold must not be persisted")
	}
}

func TestHoldRejectsAmountMismatch(t *testing.T) {
	env := newTestEnv(t)

	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.escrow.Hold(tx, "proj-1", decimal.RequireFromString("1.0"), decimal.RequireFromString("0.5"))
	})
	if !errors.Is(err, ErrAmountMismatch) {
		t.Errorf("expected ErrAmountMismatch, got %v", err)
	}
}

func TestHoldRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)

	amount := decimal.RequireFromString("0.5")
	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.escrow.Hold(tx, "proj-1", amount, amount)
	})
	if err != nil {
		t.Fatalf("first Hold failed: %v", err)
	}

	err = env.db.Transaction(func(tx *gorm.DB) error {
		return env.escrow.Hold(tx, "proj-1", amount, amount)
	})
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Errorf("expected ErrDuplicateSubmission, got %v", err)
	}
}

func TestTopUpKeepsMinimum(t *testing.T) {
	env := newTestEnv(t)

	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.escrow.Hold(tx, "proj-1", decimal.RequireFromString("0.2"), decimal.RequireFromString("0.2"))
	})
	if err != nil {
		t.Fatalf("Hold failed: %v", err)
	}

	var total decimal.Decimal
	err = env.db.Transaction(func(tx *gorm.DB) error {
		var err error
		total, err = env.escrow.TopUp(tx, "proj-1", decimal.RequireFromString("0.3"))
		return err
	})
	if err != nil {
		t.Fatalf("TopUp failed: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("expected total 0.5, got %s", total)
	}

	balance, err := env.escrow.Balance(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("expected balance 0.5, got %s", balance)
	}

	// Zero-amount top-up still passes the threshold check against the
	// existing hold.
	err = env.db.Transaction(func(tx *gorm.DB) error {
		_, err := env.escrow.TopUp(tx, "proj-1", decimal.Zero)
		return err
	})
	if err != nil {
		t.Errorf("zero top-up on sufficient hold failed: %v", err)
	}
}

func TestReleaseRefundsFullAmount(t *testing.T) {
	env := newTestEnv(t)

	amount := decimal.RequireFromString("0.75")
	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.escrow.Hold(tx, "proj-1", amount, amount)
	})
	if err != nil {
		t.Fatalf("Hold failed: %v", err)
	}

	var refund *models.EscrowTransaction
	err = env.db.Transaction(func(tx *gorm.DB) error {
		var err error
		refund, err = env.escrow.Release(tx, "proj-1", "proj-1")
		return err
	})
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !refund.Amount.Equal(amount) {
		t.Errorf("expected refund %s, got %s", amount, refund.Amount)
	}
	if refund.Status != models.EscrowTransactionStatusPending {
		t.Errorf("refund must be pending before settlement, got %s", refund.Status)
	}

	env.escrow.Settle(context.Background(), refund)

	var settled models.EscrowTransaction
	if err := env.db.Where("id = ?", refund.ID).First(&settled).Error; err != nil {
		t.Fatalf("failed to load settled record: %v", err)
	}
	if settled.Status != models.EscrowTransactionStatusConfirmed {
		t.Errorf("expected CONFIRMED after settle, got %s", settled.Status)
	}
	if settled.TxRef == nil || *settled.TxRef == "" {
		t.Error("settled refund must carry a transfer reference")
	}

	if got := env.ledger.TotalTransferredTo("proj-1"); !got.Equal(amount) {
		t.Errorf("expected %s transferred, got %s", amount, got)
	}

	balance, err := env.escrow.Balance(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("expected zero balance after release, got %s", balance)
	}
}

func TestAvailableBalanceAndWithdraw(t *testing.T) {
	env := newTestEnv(t)
	admin := "admin-addr"
	env.grantRole(t, admin, models.RoleAdmin)

	// An active hold fully encumbers its deposit.
	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.escrow.Hold(tx, "proj-1", decimal.RequireFromString("1.0"), decimal.RequireFromString("1.0"))
	})
	if err != nil {
		t.Fatalf("Hold failed: %v", err)
	}

	available, err := env.escrow.AvailableBalance(context.Background())
	if err != nil {
		t.Fatalf("AvailableBalance failed: %v", err)
	}
	if !available.IsZero() {
		t.Errorf("expected zero available with active hold, got %s", available)
	}

	_, err = env.escrow.Withdraw(context.Background(), admin, "treasury-addr", decimal.RequireFromString("0.5"))
	if !errors.Is(err, ErrInsufficientAvailableBalance) {
		t.Errorf("expected ErrInsufficientAvailableBalance, got %v", err)
	}

	// Forfeiting the hold frees the deposit for withdrawal.
	err = env.db.Transaction(func(tx *gorm.DB) error {
		return env.escrow.Forfeit(tx, "proj-1")
	})
	if err != nil {
		t.Fatalf("Forfeit failed: %v", err)
	}

	available, err = env.escrow.AvailableBalance(context.Background())
	if err != nil {
		t.Fatalf("AvailableBalance failed: %v", err)
	}
	if !available.Equal(decimal.RequireFromString("1.0")) {
		t.Errorf("expected 1.0 available after forfeit, got %s", available)
	}

	record, err := env.escrow.Withdraw(context.Background(), admin, "treasury-addr", decimal.RequireFromString("0.4"))
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if !record.Amount.Equal(decimal.RequireFromString("0.4")) {
		t.Errorf("expected withdrawal 0.4, got %s", record.Amount)
	}
	if got := env.ledger.TotalTransferredTo("treasury-addr"); !got.Equal(decimal.RequireFromString("0.4")) {
		t.Errorf("expected 0.4 transferred to treasury, got %s", got)
	}

	available, err = env.escrow.AvailableBalance(context.Background())
	if err != nil {
		t.Fatalf("AvailableBalance failed: %v", err)
	}
	if !available.Equal(decimal.RequireFromString("0.6")) {
		t.Errorf("expected 0.6 available after withdrawal, got %s", available)
	}
}

type failingLedger struct{}

func (failingLedger) VerifyDeposit(ctx context.Context, depositRef string, amount decimal.Decimal) (bool, error) {
	return true, nil
}

func (failingLedger) Transfer(ctx context.Context, recipient string, amount decimal.Decimal) (string, error) {
	return "", errors.New("rail unavailable")
}

func TestSettleMarksFailedTransfer(t *testing.T) {
	env := newTestEnv(t)
	escrow := NewEscrowService(env.db, failingLedger{}, env.authority, NewEventService(), decimal.RequireFromString("0.1"))

	amount := decimal.RequireFromString("0.5")
	var refund *models.EscrowTransaction
	err := env.db.Transaction(func(tx *gorm.DB) error {
		if err := escrow.Hold(tx, "proj-1", amount, amount); err != nil {
			return err
		}
		var err error
		refund, err = escrow.Release(tx, "proj-1", "proj-1")
		return err
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	escrow.Settle(context.Background(), refund)

	var settled models.EscrowTransaction
	if err := env.db.Where("id = ?", refund.ID).First(&settled).Error; err != nil {
		t.Fatalf("failed to load record: %v", err)
	}
	if settled.Status != models.EscrowTransactionStatusFailed {
		t.Errorf("expected FAILED after transfer error, got %s", settled.Status)
	}
	if settled.SettledAt == nil {
		t.Error("failed settlement must record its attempt time")
	}
	if settled.TxRef != nil {
		t.Error("failed settlement must not carry a transfer reference")
	}
}

func TestWithdrawRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.escrow.Withdraw(context.Background(), "nobody", "treasury-addr", decimal.RequireFromString("0.1"))
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
