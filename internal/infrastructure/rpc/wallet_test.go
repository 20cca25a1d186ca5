package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuncanbit/paygate/internal/domain"
	"github.com/tuncanbit/paygate/pkg/config"
)

func testWalletConfig(url string) config.WalletConfig {
	return config.WalletConfig{
		RPCURL:       url,
		AccountIndex: 0,
		MainAddress:  "4MainAddressXXXX",
		Timeout:      2 * time.Second,
		MaxRetries:   3,
		RetryDelay:   time.Millisecond,
	}
}

func rpcResult(t *testing.T, w http.ResponseWriter, result interface{}) {
	t.Helper()
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	resp := domain.WalletRPCResponse{JSONRPC: "2.0", ID: "0", Result: raw}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestGetTransfers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.WalletRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "get_transfers", req.Method)

		rpcResult(t, w, domain.GetTransfersResult{In: []domain.Transfer{
			{TxID: "aa11", Amount: 120_000_000_000, Confirmations: 2, SubaddrIndex: domain.SubaddressRef{Minor: 3}},
		}})
	}))
	defer srv.Close()

	client := NewWalletClient(testWalletConfig(srv.URL), zerolog.Nop())
	transfers, err := client.GetTransfers(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, uint64(2), transfers[0].Confirmations)
	assert.Equal(t, uint32(3), transfers[0].SubaddrIndex.Minor)
}

func TestGetTransfersRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "wallet busy", http.StatusInternalServerError)
			return
		}
		rpcResult(t, w, domain.GetTransfersResult{})
	}))
	defer srv.Close()

	client := NewWalletClient(testWalletConfig(srv.URL), zerolog.Nop())
	transfers, err := client.GetTransfers(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, transfers)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetTransfersReportsFailureAfterRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "wallet down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewWalletClient(testWalletConfig(srv.URL), zerolog.Nop())
	_, err := client.GetTransfers(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetTransfersSurfacesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := domain.WalletRPCResponse{
			JSONRPC: "2.0",
			ID:      "0",
			Error:   &domain.WalletRPCError{Code: -8, Message: "wrong account"},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewWalletClient(testWalletConfig(srv.URL), zerolog.Nop())
	_, err := client.GetTransfers(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong account")
}

func TestAllocateAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.WalletRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "create_address", req.Method)

		rpcResult(t, w, domain.CreateAddressResult{Address: "8SubAddrYYYY", AddressIndex: 42})
	}))
	defer srv.Close()

	client := NewWalletClient(testWalletConfig(srv.URL), zerolog.Nop())
	address, index, err := client.AllocateAddress(context.Background(), "BLOG-ACCESS-XYZ", 5)
	require.NoError(t, err)
	assert.Equal(t, "8SubAddrYYYY", address)
	assert.Equal(t, uint32(42), index)
}

func TestAllocateAddressFallsBackWhenWalletUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "wallet down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewWalletClient(testWalletConfig(srv.URL), zerolog.Nop())
	address, index, err := client.AllocateAddress(context.Background(), "BLOG-ACCESS-XYZ", 5)
	require.NoError(t, err)
	assert.Equal(t, "4MainAddressXXXX", address)
	assert.Equal(t, uint32(5), index)
}

func TestBasicAuthIsSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rpcuser", user)
		assert.Equal(t, "rpcpass", pass)
		rpcResult(t, w, domain.GetTransfersResult{})
	}))
	defer srv.Close()

	cfg := testWalletConfig(srv.URL)
	cfg.Username = "rpcuser"
	cfg.Password = "rpcpass"

	client := NewWalletClient(cfg, zerolog.Nop())
	_, err := client.GetTransfers(context.Background(), 1)
	require.NoError(t, err)
}
