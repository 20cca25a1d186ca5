package paymentrepo

import (
	"context"
	"errors"
	"time"

	"github.com/tuncanbit/paygate/internal/domain"
)

var (
	// ErrNotFound is returned when no payment exists for a memo or token.
	ErrNotFound = errors.New("payment not found")

	// ErrAlreadyConfirmed is returned by MarkConfirmed when the payment has
	// already been confirmed. Callers treat it as a benign no-op.
	ErrAlreadyConfirmed = errors.New("payment already confirmed")

	// ErrTokenInUse is returned when a supplied access token already belongs
	// to another payment.
	ErrTokenInUse = errors.New("access token already in use")
)

type IPaymentRepository interface {
	// Create registers a pending payment for memo. It is idempotent: if a
	// payment already exists for memo, the existing record is returned
	// unchanged.
	Create(ctx context.Context, memo, subaddress string, subaddressIndex uint32) (domain.Payment, error)

	Get(ctx context.Context, memo string) (domain.Payment, error)

	// FindByToken resolves an access token; only confirmed payments match.
	FindByToken(ctx context.Context, token string) (domain.Payment, error)

	// ListPending returns a snapshot of pending payments no older than maxAge.
	ListPending(ctx context.Context, maxAge time.Duration) ([]domain.Payment, error)

	// MarkConfirmed transitions memo to confirmed with the given token. The
	// transition is exactly-once: a second call fails with
	// ErrAlreadyConfirmed and leaves the record untouched.
	MarkConfirmed(ctx context.Context, memo, accessToken string) (domain.Payment, error)

	// ConfirmPayments confirms a batch of memos in one critical section,
	// minting each token via mint and regenerating on collision. Already
	// confirmed or absent memos are skipped. The ledger is persisted once for
	// the whole batch.
	ConfirmPayments(ctx context.Context, memos []string, mint func() (string, error)) ([]domain.Payment, error)

	// SweepExpired deletes pending payments older than ttl and reports how
	// many were removed.
	SweepExpired(ctx context.Context, ttl time.Duration) (int, error)

	// PruneConfirmed deletes confirmed payments older than retention.
	PruneConfirmed(ctx context.Context, retention time.Duration) (int, error)

	Count(ctx context.Context) int

	// Save persists the full ledger atomically.
	Save() error
}
