// Package ledger provides the XRP Ledger client interface for fetching
// account state and submitting transactions.
// This package is read-only for private keys - all signing happens in the wallet package.
package ledger

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrNotConnected    = errors.New("ledger client not connected")
	ErrAccountNotFound = errors.New("account not found")
	ErrNoAMMPool       = errors.New("amm pool does not exist")
	ErrSubmitTimeout   = errors.New("transaction submission timed out")
	ErrSubmitFailed    = errors.New("transaction submission failed")
)

// AccountInfo contains account balance and sequence state.
type AccountInfo struct {
	Address      string `json:"address"`
	BalanceDrops uint64 `json:"balance_drops"`
	Sequence     uint32 `json:"sequence"`
	OwnerCount   uint32 `json:"owner_count"`
}

// TrustlineInfo describes one entry from account_lines.
type TrustlineInfo struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Balance  string `json:"balance"`
	Limit    string `json:"limit"`
}

// AMMPoolInfo contains the state of an AMM pool.
type AMMPoolInfo struct {
	Account    string  `json:"account"`
	Amount     *Amount `json:"amount"`
	Amount2    *Amount `json:"amount2"`
	LPCurrency string  `json:"lp_currency"`
	LPIssuer   string  `json:"lp_issuer"`
	TradingFee uint16  `json:"trading_fee"`
}

// ReserveInfo contains the network reserve requirements in drops.
type ReserveInfo struct {
	BaseDrops  uint64 `json:"base_drops"`
	OwnerDrops uint64 `json:"owner_drops"`
}

// SubmitResult is the outcome of SubmitAndWait.
type SubmitResult struct {
	Hash                string `json:"hash"`
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message,omitempty"`
	Validated           bool   `json:"validated"`
}

// Succeeded reports whether the transaction made it into a validated ledger
// with the one engine result that counts as success.
func (r *SubmitResult) Succeeded() bool {
	return r != nil && r.EngineResult == "tesSUCCESS"
}

// Client defines the interface to an XRP Ledger node.
// All methods are read-only for secrets - signed blobs come in, state comes out.
type Client interface {
	// Connect establishes the connection. Safe to call when already connected.
	Connect(ctx context.Context) error

	// Close closes the connection.
	Close() error

	// IsConnected returns true if connected.
	IsConnected() bool

	// Account state
	AccountInfo(ctx context.Context, address string) (*AccountInfo, error)
	AccountLines(ctx context.Context, address string) ([]TrustlineInfo, error)

	// AMM state
	AMMInfo(ctx context.Context, asset, asset2 Issue) (*AMMPoolInfo, error)

	// Network state
	Reserves(ctx context.Context) (*ReserveInfo, error)

	// Transaction pipeline
	Autofill(ctx context.Context, tx *Transaction) error
	SubmitAndWait(ctx context.Context, blob, hash string) (*SubmitResult, error)
}
