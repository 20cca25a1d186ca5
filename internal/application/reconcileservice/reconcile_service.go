package reconcileservice

import (
	"context"

	"github.com/tuncanbit/paygate/internal/domain"
)

type IReconcileService interface {
	// CreateSession registers (or idempotently re-reads) a pending payment
	// for memo, allocating a receiving subaddress for it.
	CreateSession(ctx context.Context, memo string) (domain.Payment, error)

	// GenerateMemo produces a fresh memo code with the configured prefix,
	// regenerating until the memo is unused in the ledger.
	GenerateMemo(ctx context.Context) string

	// RequiredAmount is the payment amount in atomic units.
	RequiredAmount() uint64

	// ReconcilePending runs one reconciliation pass: snapshot pending
	// payments, consult the wallet oracle, and promote matches to confirmed.
	ReconcilePending(ctx context.Context) error

	// SweepExpired deletes pending payments older than the pending TTL.
	SweepExpired(ctx context.Context) error

	// PruneConfirmed deletes confirmed payments older than the retention
	// window.
	PruneConfirmed(ctx context.Context) error

	// ConfirmManually force-confirms a payment, minting its token. Used by
	// the administrative surface for out-of-band settlement.
	ConfirmManually(ctx context.Context, memo string) (domain.Payment, error)
}
