package reconcileservice

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuncanbit/paygate/internal/domain"
	"github.com/tuncanbit/paygate/internal/repositories/paymentrepo"
	"github.com/tuncanbit/paygate/pkg/config"
	"github.com/tuncanbit/paygate/pkg/currency"
)

// fakeWallet implements rpc.IWalletClient against an in-memory transfer table.
type fakeWallet struct {
	transfers map[uint32][]domain.Transfer
	nextIndex uint32
	failAll   bool
}

func (f *fakeWallet) GetTransfers(ctx context.Context, subaddrIndex uint32) ([]domain.Transfer, error) {
	if f.failAll {
		return nil, errors.New("wallet unreachable")
	}
	return f.transfers[subaddrIndex], nil
}

func (f *fakeWallet) AllocateAddress(ctx context.Context, label string, fallbackIndex uint32) (string, uint32, error) {
	if f.failAll {
		return "4MainAddress", fallbackIndex, nil
	}
	f.nextIndex++
	return "8SubAddr" + label, f.nextIndex, nil
}

func testPaymentConfig() config.PaymentConfig {
	return config.PaymentConfig{
		AmountXMR:         0.1,
		Confirmations:     2,
		PendingTTL:        30 * time.Minute,
		RetentionWindow:   30 * 24 * time.Hour,
		MemoPrefix:        "BLOG-ACCESS-",
		TokenLength:       10,
		ConcurrentWorkers: 4,
	}
}

func newTestService(t *testing.T, wallet *fakeWallet) (IReconcileService, paymentrepo.IPaymentRepository) {
	t.Helper()
	repo := paymentrepo.New(filepath.Join(t.TempDir(), "payments.json"), zerolog.Nop())
	svc := New(repo, wallet, testPaymentConfig(), zerolog.Nop(), nil)
	return svc, repo
}

func TestCreateSessionAllocatesSubaddress(t *testing.T) {
	svc, _ := newTestService(t, &fakeWallet{})
	ctx := context.Background()

	payment, err := svc.CreateSession(ctx, "BLOG-ACCESS-ABC123")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.Equal(t, uint32(1), payment.SubaddressIndex)
	assert.Empty(t, payment.AccessToken)
}

func TestCreateSessionIsIdempotent(t *testing.T) {
	wallet := &fakeWallet{}
	svc, _ := newTestService(t, wallet)
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, "BLOG-ACCESS-ABC123")
	require.NoError(t, err)
	second, err := svc.CreateSession(ctx, "BLOG-ACCESS-ABC123")
	require.NoError(t, err)

	assert.Equal(t, first.Subaddress, second.Subaddress)
	assert.Equal(t, first.SubaddressIndex, second.SubaddressIndex)
	// no second allocation happened
	assert.Equal(t, uint32(1), wallet.nextIndex)
}

func TestCreateSessionDegradedFallback(t *testing.T) {
	svc, repo := newTestService(t, &fakeWallet{failAll: true})
	ctx := context.Background()

	payment, err := svc.CreateSession(ctx, "BLOG-ACCESS-DEGRAD")
	require.NoError(t, err)
	assert.Equal(t, "4MainAddress", payment.Subaddress)
	assert.Equal(t, uint32(1), payment.SubaddressIndex)

	// index keeps increasing with the record count
	second, err := svc.CreateSession(ctx, "BLOG-ACCESS-DEGRA2")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), second.SubaddressIndex)
	assert.Equal(t, 2, repo.Count(ctx))
}

func TestReconcilePromotesQualifyingTransfer(t *testing.T) {
	required := currency.XMRToAtomic(0.1)
	wallet := &fakeWallet{transfers: map[uint32][]domain.Transfer{}}
	svc, repo := newTestService(t, wallet)
	ctx := context.Background()

	payment, err := svc.CreateSession(ctx, "BLOG-ACCESS-PAYME1")
	require.NoError(t, err)

	wallet.transfers[payment.SubaddressIndex] = []domain.Transfer{{
		TxID:          "tx1",
		Amount:        required + required/5,
		Confirmations: 2,
		SubaddrIndex:  domain.SubaddressRef{Minor: payment.SubaddressIndex},
	}}

	require.NoError(t, svc.ReconcilePending(ctx))

	confirmed, err := repo.Get(ctx, "BLOG-ACCESS-PAYME1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, confirmed.Status)
	assert.Len(t, confirmed.AccessToken, 10)
	require.NotNil(t, confirmed.ConfirmedAt)
}

func TestReconcileLeavesUnderconfirmedPending(t *testing.T) {
	required := currency.XMRToAtomic(0.1)
	wallet := &fakeWallet{transfers: map[uint32][]domain.Transfer{}}
	svc, repo := newTestService(t, wallet)
	ctx := context.Background()

	payment, err := svc.CreateSession(ctx, "BLOG-ACCESS-WAIT01")
	require.NoError(t, err)

	wallet.transfers[payment.SubaddressIndex] = []domain.Transfer{{
		TxID:          "tx1",
		Amount:        required * 2,
		Confirmations: 1,
		SubaddrIndex:  domain.SubaddressRef{Minor: payment.SubaddressIndex},
	}}

	require.NoError(t, svc.ReconcilePending(ctx))

	got, err := repo.Get(ctx, "BLOG-ACCESS-WAIT01")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, got.Status)
	assert.Empty(t, got.AccessToken)
}

func TestReconcileChecksAmountAndDestination(t *testing.T) {
	required := currency.XMRToAtomic(0.1)
	wallet := &fakeWallet{transfers: map[uint32][]domain.Transfer{}}
	svc, repo := newTestService(t, wallet)
	ctx := context.Background()

	payment, err := svc.CreateSession(ctx, "BLOG-ACCESS-WRONG1")
	require.NoError(t, err)

	wallet.transfers[payment.SubaddressIndex] = []domain.Transfer{
		// underpaid
		{Amount: required / 2, Confirmations: 5, SubaddrIndex: domain.SubaddressRef{Minor: payment.SubaddressIndex}},
		// destined for another subaddress
		{Amount: required * 2, Confirmations: 5, SubaddrIndex: domain.SubaddressRef{Minor: payment.SubaddressIndex + 7}},
	}

	require.NoError(t, svc.ReconcilePending(ctx))

	got, err := repo.Get(ctx, "BLOG-ACCESS-WRONG1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, got.Status)
}

func TestReconcileOracleFailureDefers(t *testing.T) {
	wallet := &fakeWallet{}
	svc, repo := newTestService(t, wallet)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "BLOG-ACCESS-ORACLE")
	require.NoError(t, err)

	wallet.failAll = true
	require.NoError(t, svc.ReconcilePending(ctx))

	got, err := repo.Get(ctx, "BLOG-ACCESS-ORACLE")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, got.Status)
}

func TestTokensAreUniqueAcrossConfirmations(t *testing.T) {
	required := currency.XMRToAtomic(0.1)
	wallet := &fakeWallet{transfers: map[uint32][]domain.Transfer{}}
	svc, repo := newTestService(t, wallet)
	ctx := context.Background()

	memos := []string{"BLOG-ACCESS-U1", "BLOG-ACCESS-U2", "BLOG-ACCESS-U3", "BLOG-ACCESS-U4"}
	for _, memo := range memos {
		payment, err := svc.CreateSession(ctx, memo)
		require.NoError(t, err)
		wallet.transfers[payment.SubaddressIndex] = []domain.Transfer{{
			Amount:        required,
			Confirmations: 3,
			SubaddrIndex:  domain.SubaddressRef{Minor: payment.SubaddressIndex},
		}}
	}

	require.NoError(t, svc.ReconcilePending(ctx))

	tokens := make(map[string]bool)
	for _, memo := range memos {
		payment, err := repo.Get(ctx, memo)
		require.NoError(t, err)
		require.True(t, payment.IsConfirmed())
		assert.False(t, tokens[payment.AccessToken], "duplicate token %s", payment.AccessToken)
		tokens[payment.AccessToken] = true
	}
}

func TestSweepExpired(t *testing.T) {
	wallet := &fakeWallet{}
	repo := paymentrepo.New(filepath.Join(t.TempDir(), "payments.json"), zerolog.Nop())
	cfg := testPaymentConfig()
	cfg.PendingTTL = time.Millisecond
	svc := New(repo, wallet, cfg, zerolog.Nop(), nil)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "BLOG-ACCESS-STUCK1")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, svc.SweepExpired(ctx))

	_, err = repo.Get(ctx, "BLOG-ACCESS-STUCK1")
	assert.ErrorIs(t, err, paymentrepo.ErrNotFound)
}

func TestConfirmManually(t *testing.T) {
	svc, repo := newTestService(t, &fakeWallet{})
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "BLOG-ACCESS-MANUAL")
	require.NoError(t, err)

	payment, err := svc.ConfirmManually(ctx, "BLOG-ACCESS-MANUAL")
	require.NoError(t, err)
	assert.True(t, payment.IsConfirmed())
	assert.Len(t, payment.AccessToken, 10)

	// a second manual confirmation is a no-op returning the same record
	again, err := svc.ConfirmManually(ctx, "BLOG-ACCESS-MANUAL")
	require.NoError(t, err)
	assert.Equal(t, payment.AccessToken, again.AccessToken)

	stored, err := repo.Get(ctx, "BLOG-ACCESS-MANUAL")
	require.NoError(t, err)
	assert.Equal(t, payment.AccessToken, stored.AccessToken)
}

func TestGenerateMemo(t *testing.T) {
	svc, _ := newTestService(t, &fakeWallet{})
	ctx := context.Background()

	memo := svc.GenerateMemo(ctx)
	assert.True(t, strings.HasPrefix(memo, "BLOG-ACCESS-"))
	assert.Len(t, memo, len("BLOG-ACCESS-")+6)
	assert.NotEqual(t, memo, svc.GenerateMemo(ctx))
}

func TestGenerateMemoSkipsExistingMemo(t *testing.T) {
	svc, _ := newTestService(t, &fakeWallet{})
	ctx := context.Background()

	taken, err := svc.CreateSession(ctx, "BLOG-ACCESS-TAKEN1")
	require.NoError(t, err)

	// force the first candidate to collide with the existing session
	impl := svc.(*reconcileService)
	calls := 0
	impl.newMemo = func() string {
		calls++
		if calls == 1 {
			return taken.Memo
		}
		return "BLOG-ACCESS-FRESH1"
	}

	memo := svc.GenerateMemo(ctx)
	assert.Equal(t, "BLOG-ACCESS-FRESH1", memo)
	assert.Equal(t, 2, calls)
}
