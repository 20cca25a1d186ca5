package domain

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
)

// Payment is the ledger record for a single paywall session, keyed by memo.
// Status only ever moves pending -> confirmed; AccessToken is set exactly
// once, at confirmation.
type Payment struct {
	Memo            string        `json:"memo"`
	Subaddress      string        `json:"subaddress"`
	SubaddressIndex uint32        `json:"subaddress_index"`
	Status          PaymentStatus `json:"status"`
	AccessToken     string        `json:"access_token,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	ConfirmedAt     *time.Time    `json:"confirmed_at,omitempty"`
}

func (p Payment) IsConfirmed() bool {
	return p.Status == PaymentStatusConfirmed
}

// SubaddressRef identifies a wallet subaddress as reported by the wallet RPC.
type SubaddressRef struct {
	Major uint32 `json:"major"`
	Minor uint32 `json:"minor"`
}

// Transfer is a single incoming transfer observed by the wallet oracle.
// Amount is in atomic units (piconero).
type Transfer struct {
	TxID          string        `json:"txid"`
	Amount        uint64        `json:"amount"`
	Confirmations uint64        `json:"confirmations"`
	PaymentID     string        `json:"payment_id"`
	SubaddrIndex  SubaddressRef `json:"subaddr_index"`
	Address       string        `json:"address"`
	Height        uint64        `json:"height"`
	Timestamp     uint64        `json:"timestamp"`
}
