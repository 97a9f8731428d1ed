package assets

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-process Ledger used in development and tests. It
// accepts every deposit reference and records outbound transfers.
type MemoryLedger struct {
	mu        sync.Mutex
	transfers []MemoryTransfer
}

// MemoryTransfer is one recorded outbound transfer.
type MemoryTransfer struct {
	Recipient string
	Amount    decimal.Decimal
	Ref       string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// VerifyDeposit accepts any non-empty reference.
func (l *MemoryLedger) VerifyDeposit(ctx context.Context, depositRef string, amount decimal.Decimal) (bool, error) {
	return depositRef != "", nil
}

// Transfer records the transfer and returns a synthetic reference.
func (l *MemoryLedger) Transfer(ctx context.Context, recipient string, amount decimal.Decimal) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ref := fmt.Sprintf("memledger-%d", time.Now().UnixNano())
	l.transfers = append(l.transfers, MemoryTransfer{
		Recipient: recipient,
		Amount:    amount,
		Ref:       ref,
	})

	log.Printf("Ledger transfer: %s -> %s (%s)", amount.String(), recipient, ref)
	return ref, nil
}

// Transfers returns a copy of all recorded transfers.
func (l *MemoryLedger) Transfers() []MemoryTransfer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]MemoryTransfer, len(l.transfers))
	copy(out, l.transfers)
	return out
}

// TotalTransferredTo sums everything sent to one recipient.
func (l *MemoryLedger) TotalTransferredTo(recipient string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for _, t := range l.transfers {
		if t.Recipient == recipient {
			total = total.Add(t.Amount)
		}
	}
	return total
}
