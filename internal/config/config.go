// Package config provides centralized configuration for the xrpfleet daemon.
// ALL fleet parameters (tokens, issuers, reserves, fees, timeouts) MUST be
// defined here. No hardcoded values should exist elsewhere in the codebase.
package config

import (
	"time"

	"github.com/lawas-exchange/xrpfleet/pkg/helpers"
)

// =============================================================================
// Network Types
// =============================================================================

// NetworkType represents mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// =============================================================================
// Token Definitions
// =============================================================================

// Token represents a currency the fleet can hold, trade, and provide
// liquidity for. XRP is the native token and carries no issuer.
type Token struct {
	Code    string // Ticker, e.g. "XRP", "LAWAS"
	HexCode string // 40-hex padded ledger currency code ("" for XRP)
	Issuer  string // Issuing account ("" for XRP)
	Name    string // Display name
	Native  bool   // True only for XRP
}

// Well-known token symbols.
const (
	TokenXRP   = "XRP"
	TokenLAWAS = "LAWAS"
	TokenRLUSD = "RLUSD"
)

// SupportedTokens defines all tokens the fleet operates on.
var SupportedTokens = map[string]Token{
	TokenXRP: {
		Code:   "XRP",
		Name:   "XRP",
		Native: true,
	},
	TokenLAWAS: {
		Code:    "LAWAS",
		HexCode: "4C41574153000000000000000000000000000000",
		Issuer:  "rfAWYnEAkQGAhbESWAMdNccWJvdcrgugMC",
		Name:    "Lawas",
	},
	TokenRLUSD: {
		Code:    "RLUSD",
		HexCode: "524C555344000000000000000000000000000000",
		Issuer:  "rMxCKbEDwqr76QuheSUMdEGf4B9xJ8m5De",
		Name:    "Ripple USD",
	},
}

// GetToken returns the token configuration for a given code.
func GetToken(code string) (Token, bool) {
	token, ok := SupportedTokens[code]
	return token, ok
}

// IsTokenSupported returns true if the token is supported.
func IsTokenSupported(code string) bool {
	_, ok := SupportedTokens[code]
	return ok
}

// ListSupportedTokens returns a list of all supported token codes.
func ListSupportedTokens() []string {
	tokens := make([]string, 0, len(SupportedTokens))
	for code := range SupportedTokens {
		tokens = append(tokens, code)
	}
	return tokens
}

// LedgerCurrency returns the currency code as it appears on the ledger:
// "XRP" for the native token, the padded hex form otherwise.
func (t Token) LedgerCurrency() string {
	if t.Native {
		return t.Code
	}
	if t.HexCode != "" {
		return t.HexCode
	}
	return helpers.CurrencyToHex(t.Code)
}

// =============================================================================
// Network Parameters
// =============================================================================

// NetworkParams holds network-specific ledger endpoints.
type NetworkParams struct {
	WebsocketEndpoint string // XRPL websocket endpoint
	ExplorerURL       string // Transaction explorer URL
}

// MainnetParams contains mainnet ledger parameters.
var MainnetParams = NetworkParams{
	WebsocketEndpoint: "wss://xrplcluster.com",
	ExplorerURL:       "https://livenet.xrpl.org",
}

// TestnetParams contains testnet ledger parameters.
var TestnetParams = NetworkParams{
	WebsocketEndpoint: "wss://s.altnet.rippletest.net:51233",
	ExplorerURL:       "https://testnet.xrpl.org",
}

// =============================================================================
// Reserve Configuration
// =============================================================================

// Fallback reserve constants in drops, used when the validated ledger state
// cannot be fetched. These mirror the current mainnet settings.
const (
	FallbackBaseReserveDrops  uint64 = 1000000 // 1 XRP
	FallbackOwnerReserveDrops uint64 = 200000  // 0.2 XRP per owned object
)

// =============================================================================
// Transaction Configuration
// =============================================================================

const (
	// SubmitTimeout bounds how long a single submission waits for validation.
	SubmitTimeout = 60 * time.Second

	// RequestTimeout bounds a single ledger read request.
	RequestTimeout = 30 * time.Second

	// FeeBufferDrops is retained on top of the reserve when sweeping a
	// wallet, so the sweep payment itself can always pay its fee.
	FeeBufferDrops uint64 = 10000

	// DefaultTrustlineLimit is the limit set on newly created trustlines,
	// effectively "unlimited".
	DefaultTrustlineLimit = "100000000000000000000000000000000000000"

	// SwapSlippageBPS is the slippage tolerance in basis points applied to
	// the expected receive amount of a swap (100 = 1%).
	SwapSlippageBPS uint16 = 100

	// SwapPaymentFlags marks a self-payment swap as a partial payment with
	// canonical signature enforcement (tfFullyCanonicalSig|tfPartialPayment).
	SwapPaymentFlags uint32 = 2147614720
)

// ApplySlippage reduces an expected receive amount by the given basis points.
func ApplySlippage(amount float64, bps uint16) float64 {
	return amount * float64(10000-bps) / 10000
}

// =============================================================================
// Rate Oracle Configuration
// =============================================================================

const (
	// XPMarketImpactURL is the price-impact quote endpoint.
	XPMarketImpactURL = "https://api.xpmarket.com/api/swap/impact"

	// OnTheDEXTickerURL is the last-traded-price ticker endpoint; the pair
	// is appended as /{BASE:QUOTE}.
	OnTheDEXTickerURL = "https://api.onthedex.live/public/v1/ticker"

	// OracleTimeout bounds a single quote request.
	OracleTimeout = 10 * time.Second
)

// =============================================================================
// Fleet Configuration
// =============================================================================

// FleetConfig holds the resolved configuration for one network.
type FleetConfig struct {
	Network NetworkType
	Params  NetworkParams
}

// NewFleetConfig creates a fleet configuration for the given network.
func NewFleetConfig(network NetworkType) *FleetConfig {
	cfg := &FleetConfig{Network: network}
	if network == Testnet {
		cfg.Params = TestnetParams
	} else {
		cfg.Params = MainnetParams
	}
	return cfg
}

// ExplorerTxURL returns the explorer URL for a transaction hash.
func (c *FleetConfig) ExplorerTxURL(hash string) string {
	return c.Params.ExplorerURL + "/transactions/" + hash
}
