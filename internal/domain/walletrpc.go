package domain

import "encoding/json"

// Wallet RPC wire types for the monero-wallet-rpc JSON-RPC 2.0 endpoint.
// Only the two calls the engine consumes are modeled: get_transfers and
// create_address.

type WalletRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type WalletRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type WalletRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WalletRPCError `json:"error,omitempty"`
}

type GetTransfersParams struct {
	In             bool     `json:"in"`
	AccountIndex   uint32   `json:"account_index"`
	SubaddrIndices []uint32 `json:"subaddr_indices,omitempty"`
}

type GetTransfersResult struct {
	In []Transfer `json:"in"`
}

type CreateAddressParams struct {
	AccountIndex uint32 `json:"account_index"`
	Label        string `json:"label,omitempty"`
}

type CreateAddressResult struct {
	Address      string `json:"address"`
	AddressIndex uint32 `json:"address_index"`
}
