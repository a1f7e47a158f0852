package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lawas-exchange/xrpfleet/internal/batch"
	"github.com/lawas-exchange/xrpfleet/internal/config"
	"github.com/lawas-exchange/xrpfleet/internal/ledger"
	"github.com/lawas-exchange/xrpfleet/pkg/helpers"
)

// WalletBalancesParams is the parameters for wallet_balances.
type WalletBalancesParams struct {
	Addresses []string `json:"addresses,omitempty"`
	Token     string   `json:"token,omitempty"`
}

func (s *Server) walletBalances(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p WalletBalancesParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	token, err := tokenParam(p.Token)
	if err != nil {
		return nil, err
	}
	addresses, err := s.targetAddresses(p.Addresses)
	if err != nil {
		return nil, err
	}

	balances := make([]interface{}, 0, len(addresses))
	for _, address := range addresses {
		balances = append(balances, s.reserves.AggregateBalances(ctx, address, token))
	}

	return map[string]interface{}{
		"token":    token.Code,
		"balances": balances,
	}, nil
}

// TrustlineViewParams is the parameters for trustline_view.
type TrustlineViewParams struct {
	Address string `json:"address"`
}

// TrustlineViewResult is the response for trustline_view.
type TrustlineViewResult struct {
	Address    string                 `json:"address"`
	Exists     bool                   `json:"exists"`
	Trustlines []ledger.TrustlineInfo `json:"trustlines"`
}

func (s *Server) trustlineView(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p TrustlineViewParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	return s.viewTrustlines(ctx, p.Address)
}

func (s *Server) trustlineViewAll(ctx context.Context, params json.RawMessage) (interface{}, error) {
	addresses, err := s.targetAddresses(nil)
	if err != nil {
		return nil, err
	}

	views := make([]*TrustlineViewResult, 0, len(addresses))
	for _, address := range addresses {
		view, err := s.viewTrustlines(ctx, address)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Server) viewTrustlines(ctx context.Context, address string) (*TrustlineViewResult, error) {
	lines, err := s.client.AccountLines(ctx, address)
	if err != nil {
		// Unfunded accounts hold no trustlines
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return &TrustlineViewResult{Address: address, Trustlines: []ledger.TrustlineInfo{}}, nil
		}
		return nil, fmt.Errorf("failed to fetch trustlines for %s: %w", address, err)
	}
	if lines == nil {
		lines = []ledger.TrustlineInfo{}
	}
	return &TrustlineViewResult{Address: address, Exists: true, Trustlines: lines}, nil
}

// AMMSetLpTrustlineParams is the parameters for amm_setLpTrustline.
type AMMSetLpTrustlineParams struct {
	Addresses []string `json:"addresses,omitempty"`
	Token     string   `json:"token,omitempty"`
	Password  string   `json:"password"`
}

// ammSetLpTrustline sets trustlines for the LP token of the token/XRP pool,
// a prerequisite for receiving LP shares from deposits.
func (s *Server) ammSetLpTrustline(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AMMSetLpTrustlineParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	token, err := tokenParam(p.Token)
	if err != nil {
		return nil, err
	}
	addresses, err := s.targetAddresses(p.Addresses)
	if err != nil {
		return nil, err
	}

	pool, err := s.client.AMMInfo(ctx, ledger.TokenIssue(token.LedgerCurrency(), token.Issuer), ledger.XRPIssue())
	if err != nil {
		if errors.Is(err, ledger.ErrNoAMMPool) {
			return nil, fmt.Errorf("no AMM pool exists for %s/XRP", token.Code)
		}
		return nil, fmt.Errorf("failed to fetch AMM pool: %w", err)
	}

	lpToken := config.Token{
		Code:    pool.LPCurrency,
		HexCode: pool.LPCurrency,
		Issuer:  pool.LPIssuer,
		Name:    token.Code + "/XRP LP",
	}

	desc := &batch.Descriptor{
		Kind:      batch.KindSetTrustline,
		Addresses: addresses,
		Trustline: &batch.TrustlineParams{Token: lpToken},
	}
	return s.runBatch(ctx, desc, p.Password)
}

// AMMPoolRatioParams is the parameters for amm_poolRatio.
type AMMPoolRatioParams struct {
	Token string `json:"token,omitempty"`
}

// AMMPoolRatioResult is the response for amm_poolRatio: how many tokens one
// XRP buys at the current pool price.
type AMMPoolRatioResult struct {
	Token      string  `json:"token"`
	Ratio      float64 `json:"ratio"`
	PoolExists bool    `json:"pool_exists"`
}

func (s *Server) ammPoolRatio(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AMMPoolRatioParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	token, err := tokenParam(p.Token)
	if err != nil {
		return nil, err
	}
	xrp, _ := config.GetToken(config.TokenXRP)

	quote := s.rates.GetRate(ctx, xrp, token)
	return &AMMPoolRatioResult{
		Token:      token.Code,
		Ratio:      quote.Rate,
		PoolExists: quote.PoolExists,
	}, nil
}

// SwapRateParams is the parameters for swap_rate.
type SwapRateParams struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// SwapRateResult is the response for swap_rate.
type SwapRateResult struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	Rate        float64 `json:"rate"`
	PoolExists  bool    `json:"pool_exists"`
}

func (s *Server) swapRate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SwapRateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	source, err := tokenParam(p.Source)
	if err != nil {
		return nil, err
	}
	destination, err := tokenParam(p.Destination)
	if err != nil {
		return nil, err
	}

	quote := s.rates.GetRate(ctx, source, destination)
	return &SwapRateResult{
		Source:      source.Code,
		Destination: destination.Code,
		Rate:        quote.Rate,
		PoolExists:  quote.PoolExists,
	}, nil
}

// SupportedTokenInfo is one entry of swap_supportedTokens.
type SupportedTokenInfo struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Native bool   `json:"native"`
}

func (s *Server) swapSupportedTokens(ctx context.Context, params json.RawMessage) (interface{}, error) {
	tokens := make([]SupportedTokenInfo, 0, len(config.SupportedTokens))
	for _, code := range []string{config.TokenXRP, config.TokenLAWAS, config.TokenRLUSD} {
		token, ok := config.GetToken(code)
		if !ok {
			continue
		}
		tokens = append(tokens, SupportedTokenInfo{
			Code:   token.Code,
			Name:   token.Name,
			Issuer: token.Issuer,
			Native: token.Native,
		})
	}
	return tokens, nil
}

// ReserveRequirementsParams is the parameters for reserve_requirements.
type ReserveRequirementsParams struct {
	OwnedObjects uint32 `json:"owned_objects"`
}

// ReserveRequirementsResult is the response for reserve_requirements.
type ReserveRequirementsResult struct {
	BaseDrops  uint64 `json:"base_drops"`
	OwnerDrops uint64 `json:"owner_drops"`
	TotalDrops uint64 `json:"total_drops"`
	TotalXRP   string `json:"total_xrp"`
}

func (s *Server) reserveRequirements(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p ReserveRequirementsParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}

	requirement := s.reserves.Requirement(ctx, p.OwnedObjects)
	return &ReserveRequirementsResult{
		BaseDrops:  requirement.BaseDrops,
		OwnerDrops: requirement.OwnerDrops,
		TotalDrops: requirement.TotalDrops,
		TotalXRP:   helpers.DropsToXRP(requirement.TotalDrops),
	}, nil
}
