package assets

import (
	"context"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// Ledger is the external asset-transfer capability. The registry only ever
// needs to verify that a deposit landed and to push refunds/withdrawals out;
// settlement itself happens on whatever chain or payment rail backs this.
type Ledger interface {
	// VerifyDeposit checks that the referenced inbound transfer exists and
	// carries at least the given amount.
	VerifyDeposit(ctx context.Context, depositRef string, amount decimal.Decimal) (bool, error)

	// Transfer sends amount to recipient and returns an external reference
	// for the settlement record.
	Transfer(ctx context.Context, recipient string, amount decimal.Decimal) (string, error)
}

// ValidAddress reports whether addr looks like a base58-encoded ed25519
// public key (the principal identifier format used throughout).
func ValidAddress(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return len(raw) == 32
}
