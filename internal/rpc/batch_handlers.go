package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lawas-exchange/xrpfleet/internal/batch"
	"github.com/lawas-exchange/xrpfleet/internal/config"
	"github.com/lawas-exchange/xrpfleet/pkg/helpers"
)

// tokenParam resolves a token symbol, defaulting to LAWAS.
func tokenParam(symbol string) (config.Token, error) {
	if symbol == "" {
		symbol = config.TokenLAWAS
	}
	token, ok := config.GetToken(strings.ToUpper(symbol))
	if !ok {
		return config.Token{}, fmt.Errorf("unsupported token %q", symbol)
	}
	return token, nil
}

// targetAddresses falls back to every stored wallet when the request names
// none.
func (s *Server) targetAddresses(addresses []string) ([]string, error) {
	if len(addresses) > 0 {
		return addresses, nil
	}
	all, err := s.store.Addresses()
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet addresses: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no wallets in the store")
	}
	return all, nil
}

// runBatch executes one batch and announces completion on the hub.
func (s *Server) runBatch(ctx context.Context, desc *batch.Descriptor, password string) (interface{}, error) {
	result, err := s.orchestrator.Execute(ctx, desc, password)
	if err != nil {
		return nil, err
	}
	if s.wsHub != nil {
		s.wsHub.Broadcast(EventBatchCompleted, result)
	}
	return result, nil
}

// TrustlineCreateParams is the parameters for the trustline_create family.
type TrustlineCreateParams struct {
	Address   string   `json:"address,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
	Token     string   `json:"token,omitempty"`
	Limit     string   `json:"limit,omitempty"`
	Password  string   `json:"password"`
}

func (s *Server) trustlineCreate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p TrustlineCreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	return s.trustlineBatch(ctx, []string{p.Address}, p.Token, p.Limit, p.Password)
}

func (s *Server) trustlineCreateBatch(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p TrustlineCreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if len(p.Addresses) == 0 {
		return nil, fmt.Errorf("addresses are required")
	}
	return s.trustlineBatch(ctx, p.Addresses, p.Token, p.Limit, p.Password)
}

func (s *Server) trustlineCreateAll(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p TrustlineCreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	addresses, err := s.targetAddresses(nil)
	if err != nil {
		return nil, err
	}
	return s.trustlineBatch(ctx, addresses, p.Token, p.Limit, p.Password)
}

// trustlineSetLawas sets the LAWAS trustline on every stored wallet.
func (s *Server) trustlineSetLawas(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p TrustlineCreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	addresses, err := s.targetAddresses(nil)
	if err != nil {
		return nil, err
	}
	return s.trustlineBatch(ctx, addresses, config.TokenLAWAS, "", p.Password)
}

func (s *Server) trustlineBatch(ctx context.Context, addresses []string, tokenSymbol, limit, password string) (interface{}, error) {
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	token, err := tokenParam(tokenSymbol)
	if err != nil {
		return nil, err
	}
	if token.Native {
		return nil, fmt.Errorf("%s needs no trustline", token.Code)
	}

	desc := &batch.Descriptor{
		Kind:      batch.KindSetTrustline,
		Addresses: addresses,
		Trustline: &batch.TrustlineParams{Token: token, Limit: limit},
	}
	return s.runBatch(ctx, desc, password)
}

// AMMDepositRPCParams is the parameters for amm_deposit and
// amm_depositBatch.
type AMMDepositRPCParams struct {
	Address    string   `json:"address,omitempty"`
	Addresses  []string `json:"addresses,omitempty"`
	Token      string   `json:"token,omitempty"`
	TokenValue string   `json:"token_value,omitempty"`
	XRPValue   string   `json:"xrp_value,omitempty"`
	Password   string   `json:"password"`
}

func (s *Server) ammDeposit(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AMMDepositRPCParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	p.Addresses = []string{p.Address}
	return s.ammDepositRun(ctx, &p)
}

func (s *Server) ammDepositBatch(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AMMDepositRPCParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	var err error
	p.Addresses, err = s.targetAddresses(p.Addresses)
	if err != nil {
		return nil, err
	}
	return s.ammDepositRun(ctx, &p)
}

func (s *Server) ammDepositRun(ctx context.Context, p *AMMDepositRPCParams) (interface{}, error) {
	if p.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	token, err := tokenParam(p.Token)
	if err != nil {
		return nil, err
	}

	desc := &batch.Descriptor{
		Kind:      batch.KindAMMDeposit,
		Addresses: p.Addresses,
		AMMDeposit: &batch.AMMDepositParams{
			Token:      token,
			TokenValue: p.TokenValue,
			XRPValue:   p.XRPValue,
		},
	}
	return s.runBatch(ctx, desc, p.Password)
}

// SwapExecuteParams is the parameters for swap_execute.
type SwapExecuteParams struct {
	Addresses   []string `json:"addresses,omitempty"`
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Amount      float64  `json:"amount"`
	Password    string   `json:"password"`
}

func (s *Server) swapExecute(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SwapExecuteParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	source, err := tokenParam(p.Source)
	if err != nil {
		return nil, err
	}
	destination, err := tokenParam(p.Destination)
	if err != nil {
		return nil, err
	}
	addresses, err := s.targetAddresses(p.Addresses)
	if err != nil {
		return nil, err
	}

	desc := &batch.Descriptor{
		Kind:      batch.KindSwap,
		Addresses: addresses,
		Swap: &batch.SwapParams{
			Source:      source,
			Destination: destination,
			Amount:      p.Amount,
		},
	}
	return s.runBatch(ctx, desc, p.Password)
}

// MasterBroadcastParams is the parameters for master_broadcast. The amount
// is given in XRP units and paid to each target from the master wallet.
type MasterBroadcastParams struct {
	Addresses []string `json:"addresses,omitempty"`
	AmountXRP string   `json:"amount_xrp"`
	Memo      string   `json:"memo,omitempty"`
	Password  string   `json:"password"`
}

func (s *Server) masterBroadcast(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p MasterBroadcastParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	drops, err := helpers.XRPToDrops(p.AmountXRP)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	addresses, err := s.targetAddresses(p.Addresses)
	if err != nil {
		return nil, err
	}

	desc := &batch.Descriptor{
		Kind:      batch.KindBroadcast,
		Addresses: addresses,
		Broadcast: &batch.BroadcastParams{
			DropsPerWallet: drops,
			Memo:           p.Memo,
			MasterPassword: p.Password,
		},
	}
	return s.runBatch(ctx, desc, "")
}

// MasterCollectParams is the parameters for master_collect.
type MasterCollectParams struct {
	Addresses []string `json:"addresses,omitempty"`
	Memo      string   `json:"memo,omitempty"`
	Password  string   `json:"password"`
}

func (s *Server) masterCollect(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p MasterCollectParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	addresses, err := s.targetAddresses(p.Addresses)
	if err != nil {
		return nil, err
	}

	desc := &batch.Descriptor{
		Kind:      batch.KindCollect,
		Addresses: addresses,
		Collect:   &batch.CollectParams{Memo: p.Memo},
	}
	return s.runBatch(ctx, desc, p.Password)
}
