package reconcileservice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/internal/domain"
	"github.com/tuncanbit/paygate/internal/infrastructure/rpc"
	"github.com/tuncanbit/paygate/internal/repositories/paymentrepo"
	"github.com/tuncanbit/paygate/internal/server/websocket"
	"github.com/tuncanbit/paygate/pkg/config"
	"github.com/tuncanbit/paygate/pkg/currency"
	"github.com/tuncanbit/paygate/pkg/token"
)

type reconcileService struct {
	paymentRepo    paymentrepo.IPaymentRepository
	walletClient   rpc.IWalletClient
	config         config.PaymentConfig
	requiredAtomic uint64
	logger         zerolog.Logger
	wsHub          *websocket.WsHub
	newMemo        func() string
}

func New(
	paymentRepo paymentrepo.IPaymentRepository,
	walletClient rpc.IWalletClient,
	cfg config.PaymentConfig,
	logger zerolog.Logger,
	wsHub *websocket.WsHub,
) IReconcileService {
	s := &reconcileService{
		paymentRepo:    paymentRepo,
		walletClient:   walletClient,
		config:         cfg,
		requiredAtomic: currency.XMRToAtomic(cfg.AmountXMR),
		logger:         logger,
		wsHub:          wsHub,
	}
	s.newMemo = s.randomMemo
	return s
}

func (s *reconcileService) randomMemo() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return s.config.MemoPrefix + suffix
}

// GenerateMemo returns a memo not yet present in the ledger. Handing out a
// memo that already belongs to another session would silently share that
// session's payment record, so collisions are regenerated.
func (s *reconcileService) GenerateMemo(ctx context.Context) string {
	for {
		memo := s.newMemo()
		if _, err := s.paymentRepo.Get(ctx, memo); err != nil {
			return memo
		}
		s.logger.Warn().Str("memo", memo).Msg("Generated memo already in use, regenerating")
	}
}

func (s *reconcileService) RequiredAmount() uint64 {
	return s.requiredAtomic
}

func (s *reconcileService) CreateSession(ctx context.Context, memo string) (domain.Payment, error) {
	if existing, err := s.paymentRepo.Get(ctx, memo); err == nil {
		return existing, nil
	}

	// The fallback index is derived from the current record count, so
	// degraded-mode sessions still get distinct indices within this process.
	fallbackIndex := uint32(s.paymentRepo.Count(ctx) + 1)
	subaddress, subaddressIndex, err := s.walletClient.AllocateAddress(ctx, memo, fallbackIndex)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to allocate receiving address: %w", err)
	}

	payment, err := s.paymentRepo.Create(ctx, memo, subaddress, subaddressIndex)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to create payment: %w", err)
	}
	return payment, nil
}

func (s *reconcileService) ReconcilePending(ctx context.Context) error {
	pending, err := s.paymentRepo.ListPending(ctx, s.config.PendingTTL)
	if err != nil {
		return fmt.Errorf("failed to load pending payments: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	s.logger.Debug().Int("pending", len(pending)).Msg("Starting reconciliation pass")

	// Oracle queries run concurrently per payment; the write-back below is a
	// single batched confirmation so two passes never race on a memo.
	var (
		mu        sync.Mutex
		confirmed []string
	)
	semaphore := make(chan struct{}, s.config.ConcurrentWorkers)
	for _, payment := range pending {
		semaphore <- struct{}{}
		go func(payment domain.Payment) {
			defer func() { <-semaphore }()
			if s.hasConfirmedTransfer(ctx, payment) {
				mu.Lock()
				confirmed = append(confirmed, payment.Memo)
				mu.Unlock()
			}
		}(payment)
	}
	for i := 0; i < cap(semaphore); i++ {
		semaphore <- struct{}{}
	}

	if len(confirmed) == 0 {
		return nil
	}

	payments, err := s.paymentRepo.ConfirmPayments(ctx, confirmed, s.mintToken)
	if err != nil {
		return fmt.Errorf("failed to confirm payments: %w", err)
	}

	for _, payment := range payments {
		s.logger.Info().
			Str("memo", payment.Memo).
			Uint32("subaddress_index", payment.SubaddressIndex).
			Msg("Payment confirmed, access token issued")
		if s.wsHub != nil {
			s.wsHub.BroadcastPayment(payment)
		}
	}
	return nil
}

// hasConfirmedTransfer asks the oracle whether a qualifying transfer exists
// for the payment. Oracle failure means "not yet confirmed, try again next
// cycle", never an error.
func (s *reconcileService) hasConfirmedTransfer(ctx context.Context, payment domain.Payment) bool {
	transfers, err := s.walletClient.GetTransfers(ctx, payment.SubaddressIndex)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("memo", payment.Memo).
			Msg("Oracle query failed, deferring to next cycle")
		return false
	}

	for _, transfer := range transfers {
		if transfer.SubaddrIndex.Minor == payment.SubaddressIndex &&
			transfer.Confirmations >= s.config.Confirmations &&
			transfer.Amount >= s.requiredAtomic {
			return true
		}
	}
	return false
}

func (s *reconcileService) mintToken() (string, error) {
	return token.Generate(s.config.TokenLength)
}

func (s *reconcileService) SweepExpired(ctx context.Context) error {
	removed, err := s.paymentRepo.SweepExpired(ctx, s.config.PendingTTL)
	if err != nil {
		return fmt.Errorf("failed to sweep expired payments: %w", err)
	}
	if removed > 0 {
		s.logger.Info().Int("count", removed).Msg("Abandoned payment sessions removed")
	}
	return nil
}

func (s *reconcileService) PruneConfirmed(ctx context.Context) error {
	removed, err := s.paymentRepo.PruneConfirmed(ctx, s.config.RetentionWindow)
	if err != nil {
		return fmt.Errorf("failed to prune confirmed payments: %w", err)
	}
	if removed > 0 {
		s.logger.Info().Int("count", removed).Msg("Confirmed payments past retention removed")
	}
	return nil
}

func (s *reconcileService) ConfirmManually(ctx context.Context, memo string) (domain.Payment, error) {
	payments, err := s.paymentRepo.ConfirmPayments(ctx, []string{memo}, s.mintToken)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to confirm payment: %w", err)
	}
	if len(payments) == 0 {
		// absent or already confirmed; report the current state
		return s.paymentRepo.Get(ctx, memo)
	}

	payment := payments[0]
	s.logger.Info().Str("memo", memo).Msg("Payment confirmed manually")
	if s.wsHub != nil {
		s.wsHub.BroadcastPayment(payment)
	}
	return payment, nil
}
