package accessservice

import (
	"context"
	"errors"

	"github.com/tuncanbit/paygate/internal/domain"
)

// ErrInvalidMemo marks a memo that fails the shape check, distinct from one
// that is simply not in the ledger.
var ErrInvalidMemo = errors.New("invalid memo format")

type IAccessService interface {
	// ValidateToken is the structural check only: fixed-length alphanumeric,
	// no ledger lookup.
	ValidateToken(token string) bool

	// CheckAccess reports whether token grants access. Absent, malformed,
	// pending and pruned tokens are all indistinguishably false.
	CheckAccess(ctx context.Context, token string) bool

	// ValidateMemo checks memo shape: configured prefix plus an uppercase
	// alphanumeric suffix.
	ValidateMemo(memo string) bool

	// ResolveMemo resolves a confirmed memo to its payment. Malformed memos
	// fail with ErrInvalidMemo; unknown or still-pending memos with
	// paymentrepo.ErrNotFound.
	ResolveMemo(ctx context.Context, memo string) (domain.Payment, error)
}
