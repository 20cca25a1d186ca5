package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/internal/domain"
	"github.com/tuncanbit/paygate/pkg/config"
)

type IWalletClient interface {
	// GetTransfers lists incoming transfers observed for a subaddress index.
	GetTransfers(ctx context.Context, subaddrIndex uint32) ([]domain.Transfer, error)

	// AllocateAddress requests a fresh receiving subaddress from the wallet.
	// If the wallet is unreachable after retries it falls back to the
	// account's main address and the caller-supplied fallback index; the
	// degraded mode is logged, not surfaced as an error.
	AllocateAddress(ctx context.Context, label string, fallbackIndex uint32) (string, uint32, error)
}

type WalletClient struct {
	rpcURL       string
	username     string
	password     string
	accountIndex uint32
	mainAddress  string
	maxRetries   int
	retryDelay   time.Duration
	httpClient   *http.Client
	logger       zerolog.Logger
}

func NewWalletClient(cfg config.WalletConfig, logger zerolog.Logger) *WalletClient {
	return &WalletClient{
		rpcURL:       cfg.RPCURL,
		username:     cfg.Username,
		password:     cfg.Password,
		accountIndex: cfg.AccountIndex,
		mainAddress:  cfg.MainAddress,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

func (c *WalletClient) GetTransfers(ctx context.Context, subaddrIndex uint32) ([]domain.Transfer, error) {
	params := domain.GetTransfersParams{
		In:             true,
		AccountIndex:   c.accountIndex,
		SubaddrIndices: []uint32{subaddrIndex},
	}

	var result domain.GetTransfersResult
	if err := c.call(ctx, "get_transfers", params, &result); err != nil {
		return nil, fmt.Errorf("get_transfers failed for subaddress %d: %w", subaddrIndex, err)
	}
	return result.In, nil
}

func (c *WalletClient) AllocateAddress(ctx context.Context, label string, fallbackIndex uint32) (string, uint32, error) {
	params := domain.CreateAddressParams{
		AccountIndex: c.accountIndex,
		Label:        label,
	}

	var result domain.CreateAddressResult
	if err := c.call(ctx, "create_address", params, &result); err != nil {
		c.logger.Warn().
			Err(err).
			Str("label", label).
			Uint32("fallback_index", fallbackIndex).
			Msg("Wallet unreachable, falling back to shared main address")
		return c.mainAddress, fallbackIndex, nil
	}

	c.logger.Info().
		Str("label", label).
		Uint32("address_index", result.AddressIndex).
		Msg("Allocated receiving subaddress")
	return result.Address, result.AddressIndex, nil
}

// call performs one JSON-RPC method call with bounded exponential retry.
func (c *WalletClient) call(ctx context.Context, method string, params, result interface{}) error {
	if c.rpcURL == "" {
		return fmt.Errorf("wallet RPC URL not configured")
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(1<<(attempt-1))):
			}
		}

		if err := c.doCall(ctx, method, params, result); err != nil {
			lastErr = err
			c.logger.Debug().
				Err(err).
				Str("method", method).
				Int("attempt", attempt+1).
				Msg("Wallet RPC call failed")
			continue
		}
		return nil
	}

	return fmt.Errorf("wallet RPC %s failed after %d attempts: %w", method, c.maxRetries, lastErr)
}

func (c *WalletClient) doCall(ctx context.Context, method string, params, result interface{}) error {
	reqBody, err := json.Marshal(domain.WalletRPCRequest{
		JSONRPC: "2.0",
		ID:      "0",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("wallet RPC returned status %s: %s", resp.Status, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope domain.WalletRPCResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("wallet RPC error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to parse result: %w", err)
		}
	}
	return nil
}
