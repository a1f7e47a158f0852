package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lawas-exchange/xrpfleet/internal/ledger"
	"github.com/lawas-exchange/xrpfleet/internal/wallet"
	"github.com/lawas-exchange/xrpfleet/pkg/helpers"
)

// WalletGenerateParams is the parameters for wallet_generate.
type WalletGenerateParams struct {
	Count    int    `json:"count"`
	Password string `json:"password"`
}

// WalletGenerateResult is the response for wallet_generate. Mnemonics are
// returned once at creation and never stored in plain form.
type WalletGenerateResult struct {
	Wallets []*wallet.GeneratedWallet `json:"wallets"`
}

func (s *Server) walletGenerate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p WalletGenerateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}
	if p.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	generated, err := s.store.Generate(p.Count, p.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallets: %w", err)
	}

	return &WalletGenerateResult{Wallets: generated}, nil
}

// WalletImportParams is the parameters for wallet_import and
// wallet_importMnemonic.
type WalletImportParams struct {
	Seed     string `json:"seed,omitempty"`
	Mnemonic string `json:"mnemonic,omitempty"`
	Password string `json:"password"`
}

// WalletImportResult is the response for the wallet import methods.
type WalletImportResult struct {
	Address string `json:"address"`
}

func (s *Server) walletImport(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p WalletImportParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Seed == "" {
		return nil, fmt.Errorf("seed is required")
	}
	if p.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	address, err := s.store.ImportSeed(p.Seed, p.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to import wallet: %w", err)
	}

	return &WalletImportResult{Address: address}, nil
}

func (s *Server) walletImportMnemonic(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p WalletImportParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Mnemonic == "" {
		return nil, fmt.Errorf("mnemonic is required")
	}
	if p.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	address, err := s.store.ImportMnemonic(p.Mnemonic, p.Password)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidMnemonic) {
			return nil, fmt.Errorf("invalid mnemonic phrase")
		}
		return nil, fmt.Errorf("failed to import wallet: %w", err)
	}

	return &WalletImportResult{Address: address}, nil
}

// WalletInfo is one stored wallet in wallet_list.
type WalletInfo struct {
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// WalletListResult is the response for wallet_list.
type WalletListResult struct {
	Wallets []WalletInfo `json:"wallets"`
	Count   int          `json:"count"`
}

func (s *Server) walletList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	records, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	wallets := make([]WalletInfo, 0, len(records))
	for _, r := range records {
		wallets = append(wallets, WalletInfo{Address: r.Address, CreatedAt: r.CreatedAt})
	}

	return &WalletListResult{Wallets: wallets, Count: len(wallets)}, nil
}

// WalletDeleteParams is the parameters for wallet_delete.
type WalletDeleteParams struct {
	Address string `json:"address"`
}

func (s *Server) walletDelete(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p WalletDeleteParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	if err := s.store.Delete(p.Address); err != nil {
		return nil, fmt.Errorf("failed to delete wallet: %w", err)
	}

	return map[string]interface{}{
		"success": true,
		"message": "Wallet deleted",
	}, nil
}

// MasterCreateParams is the parameters for master_create.
type MasterCreateParams struct {
	Password string `json:"password"`
}

func (s *Server) masterCreate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p MasterCreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	generated, err := s.store.CreateMaster(p.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to create master wallet: %w", err)
	}

	return generated, nil
}

// MasterSetParams is the parameters for master_set / master_importSeed.
type MasterSetParams struct {
	Seed     string `json:"seed"`
	Password string `json:"password"`
}

func (s *Server) masterSet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p MasterSetParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Seed == "" {
		return nil, fmt.Errorf("seed is required")
	}
	if p.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	address, err := s.store.SetMasterFromSeed(p.Seed, p.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to set master wallet: %w", err)
	}

	return &WalletImportResult{Address: address}, nil
}

// MasterInfoResult is the response for master_info.
type MasterInfoResult struct {
	Address      string    `json:"address"`
	CreatedAt    time.Time `json:"created_at"`
	BalanceDrops uint64    `json:"balance_drops"`
	BalanceXRP   string    `json:"balance_xrp"`
	Funded       bool      `json:"funded"`
}

func (s *Server) masterInfo(ctx context.Context, params json.RawMessage) (interface{}, error) {
	address, createdAt, err := s.store.MasterInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to load master wallet: %w", err)
	}

	result := &MasterInfoResult{
		Address:    address,
		CreatedAt:  createdAt,
		BalanceXRP: helpers.DropsToXRP(0),
	}

	info, err := s.client.AccountInfo(ctx, address)
	if err != nil {
		if !errors.Is(err, ledger.ErrAccountNotFound) {
			s.log.Warn("master balance lookup failed", "error", err)
		}
		return result, nil
	}

	result.BalanceDrops = info.BalanceDrops
	result.BalanceXRP = helpers.DropsToXRP(info.BalanceDrops)
	result.Funded = true
	return result, nil
}
