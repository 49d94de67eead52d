// Package ledger records per-identity sync outcomes for observability.
package ledger

import "context"

// Ledger accumulates success/failure counters per wallet.
type Ledger interface {
	// RecordSuccess increments the success counter for a wallet.
	RecordSuccess(ctx context.Context, wallet string) error
	// RecordFailure increments the failure counter for a wallet.
	RecordFailure(ctx context.Context, wallet string) error
}
