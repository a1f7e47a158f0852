// Package batch orchestrates ledger operations across many wallets: one
// password, a target address list, and an operation descriptor go in; a
// per-address result breakdown comes out. Wallets are processed
// sequentially and failures never abort the rest of the batch.
package batch

import (
	"errors"
	"fmt"

	"github.com/lawas-exchange/xrpfleet/internal/config"
)

// Kind selects the batch operation.
type Kind string

const (
	KindSetTrustline Kind = "set_trustline"
	KindAMMDeposit   Kind = "amm_deposit"
	KindSwap         Kind = "swap"
	KindBroadcast    Kind = "broadcast"
	KindCollect      Kind = "collect"
)

// State tracks one wallet through the batch pipeline.
type State string

const (
	StatePending             State = "pending"
	StateResolved            State = "resolved"
	StateBuilt               State = "built"
	StateSubmitted           State = "submitted"
	StateConfirmed           State = "confirmed"
	StateRejected            State = "rejected"
	StateTimedOut            State = "timed_out"
	StateSkippedPrecondition State = "skipped_precondition"
)

var (
	ErrNoAddresses     = errors.New("no target addresses")
	ErrMissingParams   = errors.New("missing operation parameters")
	ErrNoDepositSide   = errors.New("amm deposit needs at least one side")
	ErrInvalidPair     = errors.New("unsupported currency pair")
	ErrZeroAmount      = errors.New("amount must be positive")
)

// TrustlineParams configures a SetTrustline batch.
type TrustlineParams struct {
	Token config.Token `json:"token"`
	Limit string       `json:"limit"` // default config.DefaultTrustlineLimit
}

// AMMDepositParams configures an AMMDeposit batch. Empty sides are omitted
// from the transaction, never zeroed; at least one must be set.
type AMMDepositParams struct {
	Token      config.Token `json:"token"`
	TokenValue string       `json:"token_value"` // token units, "" for none
	XRPValue   string       `json:"xrp_value"`   // XRP units, "" for none
}

// SwapParams configures a Swap batch: each wallet converts Amount source
// units into the destination currency via a self-payment.
type SwapParams struct {
	Source      config.Token `json:"source"`
	Destination config.Token `json:"destination"`
	Amount      float64      `json:"amount"`
}

// BroadcastParams configures a Broadcast batch: the master wallet pays a
// fixed XRP amount to every target address.
type BroadcastParams struct {
	DropsPerWallet uint64 `json:"drops_per_wallet"`
	Memo           string `json:"memo,omitempty"`
	MasterPassword string `json:"-"`
}

// CollectParams configures a Collect batch: each wallet sweeps its
// reserve-safe spendable balance back to the master wallet.
type CollectParams struct {
	Memo string `json:"memo,omitempty"`
}

// Descriptor is one batch request: the operation kind, the target
// addresses, and the kind-specific parameters.
type Descriptor struct {
	Kind       Kind              `json:"kind"`
	Addresses  []string          `json:"addresses"`
	Trustline  *TrustlineParams  `json:"trustline,omitempty"`
	AMMDeposit *AMMDepositParams `json:"amm_deposit,omitempty"`
	Swap       *SwapParams       `json:"swap,omitempty"`
	Broadcast  *BroadcastParams  `json:"broadcast,omitempty"`
	Collect    *CollectParams    `json:"collect,omitempty"`
}

// Validate checks the descriptor before any wallet is touched. Failures
// here abort the whole batch; everything later is per-wallet.
func (d *Descriptor) Validate() error {
	if len(d.Addresses) == 0 {
		return ErrNoAddresses
	}

	switch d.Kind {
	case KindSetTrustline:
		if d.Trustline == nil || d.Trustline.Token.Issuer == "" {
			return fmt.Errorf("%w: trustline token", ErrMissingParams)
		}
	case KindAMMDeposit:
		if d.AMMDeposit == nil || d.AMMDeposit.Token.Issuer == "" {
			return fmt.Errorf("%w: deposit token", ErrMissingParams)
		}
		if d.AMMDeposit.TokenValue == "" && d.AMMDeposit.XRPValue == "" {
			return ErrNoDepositSide
		}
	case KindSwap:
		if d.Swap == nil {
			return fmt.Errorf("%w: swap", ErrMissingParams)
		}
		if d.Swap.Source.Code == d.Swap.Destination.Code {
			return ErrInvalidPair
		}
		if d.Swap.Amount <= 0 {
			return ErrZeroAmount
		}
	case KindBroadcast:
		if d.Broadcast == nil {
			return fmt.Errorf("%w: broadcast", ErrMissingParams)
		}
		if d.Broadcast.DropsPerWallet == 0 {
			return ErrZeroAmount
		}
	case KindCollect:
		// No parameters.
	default:
		return fmt.Errorf("unknown operation kind %q", d.Kind)
	}
	return nil
}

// WalletResult is the outcome for one address.
type WalletResult struct {
	Success bool   `json:"success"`
	State   State  `json:"state"`
	Message string `json:"message"`
	TxHash  string `json:"tx_hash,omitempty"`
}

// Result is the immutable aggregate of one batch. Attempted counts the
// addresses the caller asked for; TotalWallets only those that resolved and
// were processed. successful + failed == TotalWallets always holds.
type Result struct {
	Kind         Kind                    `json:"kind"`
	Attempted    int                     `json:"attempted"`
	TotalWallets int                     `json:"total_wallets"`
	Successful   int                     `json:"successful"`
	Failed       int                     `json:"failed"`
	Message      string                  `json:"message"`
	PerAddress   map[string]WalletResult `json:"results"`
}

// outcome is the per-wallet fold input.
type outcome struct {
	address string
	result  WalletResult
}

// foldResult builds the final aggregate from per-wallet outcomes.
func foldResult(kind Kind, attempted int, outcomes []outcome) *Result {
	result := &Result{
		Kind:       kind,
		Attempted:  attempted,
		PerAddress: make(map[string]WalletResult, len(outcomes)),
	}
	for _, o := range outcomes {
		result.PerAddress[o.address] = o.result
		result.TotalWallets++
		if o.result.Success {
			result.Successful++
		} else {
			result.Failed++
		}
	}
	result.Message = fmt.Sprintf("Batch %s completed: %d successful, %d failed",
		kind, result.Successful, result.Failed)
	return result
}

// Progress is emitted as each wallet moves through the pipeline, for live
// observers such as the RPC event stream.
type Progress struct {
	Kind    Kind   `json:"kind"`
	Address string `json:"address"`
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
}

// ProgressFunc observes batch progress. Implementations must not block.
type ProgressFunc func(Progress)
