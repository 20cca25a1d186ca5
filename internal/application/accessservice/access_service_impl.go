package accessservice

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/internal/domain"
	"github.com/tuncanbit/paygate/internal/repositories/paymentrepo"
	"github.com/tuncanbit/paygate/pkg/config"
	"github.com/tuncanbit/paygate/pkg/token"
)

type accessService struct {
	paymentRepo  paymentrepo.IPaymentRepository
	tokenPattern *regexp.Regexp
	memoPattern  *regexp.Regexp
	cache        *gocache.Cache
	logger       zerolog.Logger
}

func New(
	paymentRepo paymentrepo.IPaymentRepository,
	paymentCfg config.PaymentConfig,
	accessCfg config.AccessConfig,
	logger zerolog.Logger,
) IAccessService {
	s := &accessService{
		paymentRepo:  paymentRepo,
		tokenPattern: token.Pattern(paymentCfg.TokenLength),
		memoPattern: regexp.MustCompile(
			fmt.Sprintf(`^%s[A-Z0-9]+$`, regexp.QuoteMeta(paymentCfg.MemoPrefix)),
		),
		logger: logger,
	}

	// Positive lookups only; confirmation is terminal so a cached grant can
	// only go stale through retention pruning, bounded by the TTL.
	if accessCfg.CacheEnabled {
		s.cache = gocache.New(accessCfg.CacheTTL, 2*accessCfg.CacheTTL)
	}
	return s
}

func (s *accessService) ValidateToken(t string) bool {
	return s.tokenPattern.MatchString(t)
}

func (s *accessService) CheckAccess(ctx context.Context, t string) bool {
	if !s.ValidateToken(t) {
		return false
	}

	key := strings.ToLower(t)
	if s.cache != nil {
		if _, ok := s.cache.Get(key); ok {
			return true
		}
	}

	payment, err := s.paymentRepo.FindByToken(ctx, key)
	if err != nil || !payment.IsConfirmed() {
		return false
	}

	if s.cache != nil {
		s.cache.SetDefault(key, payment.Memo)
	}
	return true
}

func (s *accessService) ValidateMemo(memo string) bool {
	return s.memoPattern.MatchString(memo)
}

func (s *accessService) ResolveMemo(ctx context.Context, memo string) (domain.Payment, error) {
	if !s.ValidateMemo(memo) {
		return domain.Payment{}, ErrInvalidMemo
	}

	payment, err := s.paymentRepo.Get(ctx, memo)
	if err != nil {
		return domain.Payment{}, err
	}
	if !payment.IsConfirmed() {
		return domain.Payment{}, paymentrepo.ErrNotFound
	}
	return payment, nil
}
