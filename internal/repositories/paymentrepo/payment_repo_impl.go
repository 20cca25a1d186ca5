package paymentrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/internal/domain"
)

type paymentRepositoryImpl struct {
	path     string
	mu       sync.RWMutex
	payments map[string]domain.Payment
	logger   zerolog.Logger
}

// New opens the ledger at path, loading any previously persisted state. A
// missing or unreadable file starts an empty ledger.
func New(path string, logger zerolog.Logger) IPaymentRepository {
	r := &paymentRepositoryImpl{
		path:     path,
		payments: make(map[string]domain.Payment),
		logger:   logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Info().Str("path", path).Msg("Creating new payment ledger")
		return r
	}

	if err := json.Unmarshal(data, &r.payments); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to parse payment ledger, starting empty")
		r.payments = make(map[string]domain.Payment)
		return r
	}

	logger.Info().Str("path", path).Int("count", len(r.payments)).Msg("Loaded payment ledger")
	return r
}

func (r *paymentRepositoryImpl) Create(ctx context.Context, memo, subaddress string, subaddressIndex uint32) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.payments[memo]; ok {
		return existing, nil
	}

	payment := domain.Payment{
		Memo:            memo,
		Subaddress:      subaddress,
		SubaddressIndex: subaddressIndex,
		Status:          domain.PaymentStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	r.payments[memo] = payment
	r.saveLocked()

	r.logger.Info().
		Str("memo", memo).
		Str("subaddress", subaddress).
		Uint32("subaddress_index", subaddressIndex).
		Msg("Created pending payment")
	return payment, nil
}

func (r *paymentRepositoryImpl) Get(ctx context.Context, memo string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[memo]
	if !ok {
		return domain.Payment{}, ErrNotFound
	}
	return payment, nil
}

func (r *paymentRepositoryImpl) FindByToken(ctx context.Context, token string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, payment := range r.payments {
		if payment.IsConfirmed() && payment.AccessToken == token {
			return payment, nil
		}
	}
	return domain.Payment{}, ErrNotFound
}

func (r *paymentRepositoryImpl) ListPending(ctx context.Context, maxAge time.Duration) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var pending []domain.Payment
	for _, payment := range r.payments {
		if payment.Status == domain.PaymentStatusPending && now.Sub(payment.CreatedAt) < maxAge {
			pending = append(pending, payment)
		}
	}
	return pending, nil
}

func (r *paymentRepositoryImpl) MarkConfirmed(ctx context.Context, memo, accessToken string) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, err := r.confirmLocked(memo, accessToken)
	if err != nil {
		return domain.Payment{}, err
	}
	r.saveLocked()
	return payment, nil
}

func (r *paymentRepositoryImpl) ConfirmPayments(ctx context.Context, memos []string, mint func() (string, error)) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var confirmed []domain.Payment
	for _, memo := range memos {
		token, err := r.mintUniqueLocked(mint)
		if err != nil {
			return confirmed, fmt.Errorf("failed to mint access token: %w", err)
		}

		payment, err := r.confirmLocked(memo, token)
		if err != nil {
			// skipped: either gone or a concurrent pass won the transition
			r.logger.Debug().Err(err).Str("memo", memo).Msg("Skipping confirmation")
			continue
		}
		confirmed = append(confirmed, payment)
	}

	if len(confirmed) > 0 {
		r.saveLocked()
	}
	return confirmed, nil
}

// confirmLocked applies the pending -> confirmed transition. Caller holds the
// write lock.
func (r *paymentRepositoryImpl) confirmLocked(memo, accessToken string) (domain.Payment, error) {
	payment, ok := r.payments[memo]
	if !ok {
		return domain.Payment{}, ErrNotFound
	}
	if payment.IsConfirmed() {
		return domain.Payment{}, ErrAlreadyConfirmed
	}
	if r.tokenInUseLocked(accessToken) {
		return domain.Payment{}, ErrTokenInUse
	}

	now := time.Now().UTC()
	payment.Status = domain.PaymentStatusConfirmed
	payment.AccessToken = accessToken
	payment.ConfirmedAt = &now
	r.payments[memo] = payment

	r.logger.Info().Str("memo", memo).Msg("Payment confirmed")
	return payment, nil
}

func (r *paymentRepositoryImpl) mintUniqueLocked(mint func() (string, error)) (string, error) {
	for {
		token, err := mint()
		if err != nil {
			return "", err
		}
		if !r.tokenInUseLocked(token) {
			return token, nil
		}
		r.logger.Warn().Msg("Access token collision, regenerating")
	}
}

func (r *paymentRepositoryImpl) tokenInUseLocked(token string) bool {
	for _, payment := range r.payments {
		if payment.AccessToken == token {
			return true
		}
	}
	return false
}

func (r *paymentRepositoryImpl) SweepExpired(ctx context.Context, ttl time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for memo, payment := range r.payments {
		if payment.Status == domain.PaymentStatusPending && now.Sub(payment.CreatedAt) > ttl {
			delete(r.payments, memo)
			removed++
		}
	}

	if removed > 0 {
		r.saveLocked()
		r.logger.Info().Int("count", removed).Msg("Swept expired pending payments")
	}
	return removed, nil
}

func (r *paymentRepositoryImpl) PruneConfirmed(ctx context.Context, retention time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for memo, payment := range r.payments {
		if payment.IsConfirmed() && payment.ConfirmedAt != nil && now.Sub(*payment.ConfirmedAt) > retention {
			delete(r.payments, memo)
			removed++
		}
	}

	if removed > 0 {
		r.saveLocked()
		r.logger.Info().Int("count", removed).Msg("Pruned old confirmed payments")
	}
	return removed, nil
}

func (r *paymentRepositoryImpl) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.payments)
}

func (r *paymentRepositoryImpl) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked()
}

// saveLocked serializes the whole ledger to a temp file and renames it over
// the previous version, so a crash mid-write never leaves a corrupt store.
// A failed save is logged; in-memory state stays authoritative for the
// process lifetime.
func (r *paymentRepositoryImpl) saveLocked() error {
	data, err := json.MarshalIndent(r.payments, "", "  ")
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to serialize payment ledger")
		return fmt.Errorf("failed to serialize payment ledger: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".payments-*.json")
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to create ledger temp file")
		return fmt.Errorf("failed to create ledger temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		r.logger.Error().Err(err).Msg("Failed to write ledger temp file")
		return fmt.Errorf("failed to write ledger temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		r.logger.Error().Err(err).Msg("Failed to close ledger temp file")
		return fmt.Errorf("failed to close ledger temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		r.logger.Error().Err(err).Str("path", r.path).Msg("Failed to replace payment ledger")
		return fmt.Errorf("failed to replace payment ledger: %w", err)
	}
	return nil
}
