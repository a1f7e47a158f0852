package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/lawas-exchange/xrpfleet/internal/config"
	"github.com/lawas-exchange/xrpfleet/internal/ledger"
	"github.com/lawas-exchange/xrpfleet/internal/oracle"
	"github.com/lawas-exchange/xrpfleet/internal/reserve"
	"github.com/lawas-exchange/xrpfleet/internal/wallet"
	"github.com/lawas-exchange/xrpfleet/pkg/helpers"
	"github.com/lawas-exchange/xrpfleet/pkg/logging"
)

// Orchestrator runs batch operations over the wallet fleet. One instance is
// shared by all callers; per-batch state lives on the stack.
type Orchestrator struct {
	store    *wallet.Store
	client   ledger.Client
	oracle   *oracle.Oracle
	reserves *reserve.Calculator
	progress ProgressFunc
	log      *logging.Logger
}

// New creates an orchestrator over the given collaborators.
func New(store *wallet.Store, client ledger.Client, rates *oracle.Oracle, reserves *reserve.Calculator, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.GetDefault()
	}
	return &Orchestrator{
		store:    store,
		client:   client,
		oracle:   rates,
		reserves: reserves,
		log:      log.Component("batch"),
	}
}

// OnProgress registers a progress observer. Must be called before Execute.
func (o *Orchestrator) OnProgress(fn ProgressFunc) {
	o.progress = fn
}

func (o *Orchestrator) emit(p Progress) {
	if o.progress != nil {
		o.progress(p)
	}
}

// Execute runs one batch. Per-wallet failures land in the result; only
// setup failures (bad descriptor, unreachable master wallet) return an
// error with no result.
func (o *Orchestrator) Execute(ctx context.Context, desc *Descriptor, password string) (*Result, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	o.log.Info("batch started", "kind", desc.Kind, "addresses", len(desc.Addresses))

	switch desc.Kind {
	case KindBroadcast:
		return o.executeBroadcast(ctx, desc)
	case KindCollect:
		return o.executeCollect(ctx, desc, password)
	default:
		return o.executeResolved(ctx, desc, password)
	}
}

// executeResolved covers the operations that act as each target wallet:
// trustlines, AMM deposits and swaps.
func (o *Orchestrator) executeResolved(ctx context.Context, desc *Descriptor, password string) (*Result, error) {
	wallets, err := o.store.Resolve(desc.Addresses, password)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve wallets: %w", err)
	}
	o.log.Info("wallets resolved", "kind", desc.Kind, "resolved", len(wallets), "requested", len(desc.Addresses))

	outcomes := make([]outcome, 0, len(wallets))
	for i, w := range wallets {
		o.emit(Progress{Kind: desc.Kind, Address: w.Address, State: StateResolved, Index: i + 1, Total: len(wallets)})

		var result WalletResult
		switch desc.Kind {
		case KindSetTrustline:
			result = o.runTrustline(ctx, w, desc.Trustline)
		case KindAMMDeposit:
			result = o.runAMMDeposit(ctx, w, desc.AMMDeposit)
		case KindSwap:
			result = o.runSwap(ctx, w, desc.Swap)
		}

		o.emit(Progress{Kind: desc.Kind, Address: w.Address, State: result.State, Message: result.Message, Index: i + 1, Total: len(wallets)})
		outcomes = append(outcomes, outcome{address: w.Address, result: result})
	}

	return foldResult(desc.Kind, len(desc.Addresses), outcomes), nil
}

// executeBroadcast pays a fixed amount from the master wallet to each
// target. Targets are not resolved against the store; any funded address
// can receive.
func (o *Orchestrator) executeBroadcast(ctx context.Context, desc *Descriptor) (*Result, error) {
	master, err := o.store.ResolveMaster(desc.Broadcast.MasterPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load master wallet: %w", err)
	}

	outcomes := make([]outcome, 0, len(desc.Addresses))
	for i, address := range desc.Addresses {
		o.emit(Progress{Kind: desc.Kind, Address: address, State: StateBuilt, Index: i + 1, Total: len(desc.Addresses)})

		tx := ledger.NewPayment(master.Address, address, ledger.XRPAmount(desc.Broadcast.DropsPerWallet))
		tx.Memos = ledger.TextMemo(desc.Broadcast.Memo)
		result := o.submit(ctx, tx, master.Keys(), "Broadcast payment")

		o.emit(Progress{Kind: desc.Kind, Address: address, State: result.State, Message: result.Message, Index: i + 1, Total: len(desc.Addresses)})
		outcomes = append(outcomes, outcome{address: address, result: result})
	}

	return foldResult(desc.Kind, len(desc.Addresses), outcomes), nil
}

// executeCollect sweeps each wallet's spendable balance to the master
// wallet address.
func (o *Orchestrator) executeCollect(ctx context.Context, desc *Descriptor, password string) (*Result, error) {
	masterAddress, _, err := o.store.MasterInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to load master wallet: %w", err)
	}

	wallets, err := o.store.Resolve(desc.Addresses, password)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve wallets: %w", err)
	}

	var memo string
	if desc.Collect != nil {
		memo = desc.Collect.Memo
	}

	outcomes := make([]outcome, 0, len(wallets))
	for i, w := range wallets {
		o.emit(Progress{Kind: desc.Kind, Address: w.Address, State: StateResolved, Index: i + 1, Total: len(wallets)})

		result := o.runCollect(ctx, w, masterAddress, memo)

		o.emit(Progress{Kind: desc.Kind, Address: w.Address, State: result.State, Message: result.Message, Index: i + 1, Total: len(wallets)})
		outcomes = append(outcomes, outcome{address: w.Address, result: result})
	}

	return foldResult(desc.Kind, len(desc.Addresses), outcomes), nil
}

// runTrustline sets one trustline, skipping wallets that already hold it.
func (o *Orchestrator) runTrustline(ctx context.Context, w *wallet.Wallet, params *TrustlineParams) WalletResult {
	existing, err := o.hasTrustline(ctx, w.Address, params.Token)
	if err != nil {
		return WalletResult{State: StateRejected, Message: fmt.Sprintf("Trustline check failed: %v", err)}
	}
	if existing {
		// Success-equivalent: the desired state already holds, nothing is
		// submitted.
		return WalletResult{
			Success: true,
			State:   StateSkippedPrecondition,
			Message: "Trustline already exists",
		}
	}

	limit := params.Limit
	if limit == "" {
		limit = config.DefaultTrustlineLimit
	}

	tx := ledger.NewTrustSet(w.Address, ledger.IssuedAmount(params.Token.LedgerCurrency(), params.Token.Issuer, limit))
	return o.submit(ctx, tx, w.Keys(), "Trustline set")
}

func (o *Orchestrator) hasTrustline(ctx context.Context, address string, token config.Token) (bool, error) {
	lines, err := o.client.AccountLines(ctx, address)
	if err != nil {
		// An unfunded account holds no trustlines; the submission will
		// surface the real funding problem.
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	currency := token.LedgerCurrency()
	for _, line := range lines {
		if line.Issuer == token.Issuer && (line.Currency == currency || line.Currency == token.Code) {
			return true, nil
		}
	}
	return false, nil
}

// runAMMDeposit deposits one or both sides into the token/XRP pool. The
// account must already exist on the ledger.
func (o *Orchestrator) runAMMDeposit(ctx context.Context, w *wallet.Wallet, params *AMMDepositParams) WalletResult {
	if _, err := o.client.AccountInfo(ctx, w.Address); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return WalletResult{
				State:   StateSkippedPrecondition,
				Message: "Account does not exist on the ledger",
			}
		}
		return WalletResult{State: StateRejected, Message: fmt.Sprintf("Account check failed: %v", err)}
	}

	var tokenSide, xrpSide *ledger.Amount
	if params.TokenValue != "" {
		tokenSide = ledger.IssuedAmount(params.Token.LedgerCurrency(), params.Token.Issuer, params.TokenValue)
	}
	if params.XRPValue != "" {
		drops, err := helpers.XRPToDrops(params.XRPValue)
		if err != nil {
			return WalletResult{State: StateRejected, Message: fmt.Sprintf("Invalid XRP amount: %v", err)}
		}
		xrpSide = ledger.XRPAmount(drops)
	}

	asset := ledger.TokenIssue(params.Token.LedgerCurrency(), params.Token.Issuer)
	tx := ledger.NewAMMDeposit(w.Address, asset, ledger.XRPIssue(), tokenSide, xrpSide)
	return o.submit(ctx, tx, w.Keys(), "AMM deposit")
}

// runSwap converts Amount source units into the destination currency with a
// partial-payment self-payment, pricing off the oracle with the standard
// slippage haircut.
func (o *Orchestrator) runSwap(ctx context.Context, w *wallet.Wallet, params *SwapParams) WalletResult {
	quote := o.oracle.GetRate(ctx, params.Source, params.Destination)
	if !quote.PoolExists {
		o.log.Warn("no pool confirmed for pair, proceeding with best-effort rate",
			"pair", params.Source.Code+"/"+params.Destination.Code)
	}

	expected := params.Amount * quote.Rate
	receive := config.ApplySlippage(expected, config.SwapSlippageBPS)

	amount, err := swapAmount(params.Destination, receive)
	if err != nil {
		return WalletResult{State: StateRejected, Message: fmt.Sprintf("Invalid receive amount: %v", err)}
	}
	sendMax, err := swapAmount(params.Source, params.Amount)
	if err != nil {
		return WalletResult{State: StateRejected, Message: fmt.Sprintf("Invalid send amount: %v", err)}
	}

	// Token-to-token pairs have no direct order book; bridge through XRP.
	var paths [][]ledger.PathStep
	if !params.Source.Native && !params.Destination.Native {
		paths = ledger.XRPBridgePath()
	}

	tx := ledger.NewSwapPayment(w.Address, amount, sendMax, paths, config.SwapPaymentFlags)
	return o.submit(ctx, tx, w.Keys(), "Swap")
}

// swapAmount renders a float amount as the given token's ledger amount.
func swapAmount(token config.Token, value float64) (*ledger.Amount, error) {
	if value <= 0 {
		return nil, fmt.Errorf("amount %v is not positive", value)
	}
	formatted := strconv.FormatFloat(value, 'f', 6, 64)
	if token.Native {
		drops, err := helpers.XRPToDrops(formatted)
		if err != nil {
			return nil, err
		}
		return ledger.XRPAmount(drops), nil
	}
	return ledger.IssuedAmount(token.LedgerCurrency(), token.Issuer, formatted), nil
}

// runCollect sweeps the wallet's spendable balance to the master address.
func (o *Orchestrator) runCollect(ctx context.Context, w *wallet.Wallet, masterAddress, memo string) WalletResult {
	info, err := o.client.AccountInfo(ctx, w.Address)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return WalletResult{State: StateSkippedPrecondition, Message: "Account does not exist on the ledger"}
		}
		return WalletResult{State: StateRejected, Message: fmt.Sprintf("Balance check failed: %v", err)}
	}

	requirement := o.reserves.Requirement(ctx, info.OwnerCount)
	sweep := reserve.SweepableDrops(info.BalanceDrops, requirement.TotalDrops, config.FeeBufferDrops)
	if sweep == 0 {
		return WalletResult{
			State: StateSkippedPrecondition,
			Message: fmt.Sprintf("Nothing to collect: balance %s XRP is within reserve",
				helpers.DropsToXRP(info.BalanceDrops)),
		}
	}

	tx := ledger.NewPayment(w.Address, masterAddress, ledger.XRPAmount(sweep))
	tx.Memos = ledger.TextMemo(memo)
	result := o.submit(ctx, tx, w.Keys(), "Collect")
	if result.Success {
		result.Message = fmt.Sprintf("Collected %s XRP", helpers.DropsToXRP(sweep))
	}
	return result
}

// submit runs the shared autofill/sign/submit/wait pipeline and maps the
// outcome onto a wallet result. operation names the action in messages.
func (o *Orchestrator) submit(ctx context.Context, tx *ledger.Transaction, keys *wallet.KeyPair, operation string) WalletResult {
	if err := o.client.Autofill(ctx, tx); err != nil {
		return WalletResult{State: StateRejected, Message: fmt.Sprintf("%s failed to prepare: %v", operation, err)}
	}

	blob, hash, err := ledger.Sign(tx, keys)
	if err != nil {
		return WalletResult{State: StateRejected, Message: fmt.Sprintf("%s failed to sign: %v", operation, err)}
	}

	result, err := o.client.SubmitAndWait(ctx, blob, hash)
	if err != nil {
		if errors.Is(err, ledger.ErrSubmitTimeout) {
			// True fate unknown: the transaction may still validate. The
			// hash is surfaced so the operator can reconcile later.
			return WalletResult{
				State:   StateTimedOut,
				Message: fmt.Sprintf("%s timed out waiting for validation", operation),
				TxHash:  hash,
			}
		}
		return WalletResult{State: StateRejected, Message: fmt.Sprintf("%s failed: %v", operation, err)}
	}

	if !result.Succeeded() {
		reason := result.EngineResult
		if result.EngineResultMessage != "" {
			reason = fmt.Sprintf("%s - %s", result.EngineResult, result.EngineResultMessage)
		}
		return WalletResult{
			State:   StateRejected,
			Message: fmt.Sprintf("%s failed: %s", operation, reason),
			TxHash:  result.Hash,
		}
	}

	return WalletResult{
		Success: true,
		State:   StateConfirmed,
		Message: fmt.Sprintf("%s successful", operation),
		TxHash:  result.Hash,
	}
}
