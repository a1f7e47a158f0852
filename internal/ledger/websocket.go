package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawas-exchange/xrpfleet/internal/config"
	"github.com/lawas-exchange/xrpfleet/pkg/logging"
)

// WSClient implements Client over the rippled websocket API. Requests are
// serialized on one connection; the connection is re-established on demand
// after a transport failure.
type WSClient struct {
	endpoint  string
	conn      *websocket.Conn
	mu        sync.Mutex
	connected bool
	requestID atomic.Uint64
	timeout   time.Duration
	log       *logging.Logger
}

// NewWSClient creates a client for the given websocket endpoint.
func NewWSClient(endpoint string, log *logging.Logger) *WSClient {
	if log == nil {
		log = logging.GetDefault()
	}
	return &WSClient{
		endpoint: endpoint,
		timeout:  config.RequestTimeout,
		log:      log.Component("ledger"),
	}
}

// Connect establishes the websocket connection. Safe to call when already
// connected.
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *WSClient) connectLocked(ctx context.Context) error {
	if c.connected {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	c.conn = conn
	c.connected = true
	c.log.Info("connected to ledger", "endpoint", c.endpoint)
	return nil
}

// Close closes the connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	return nil
}

// IsConnected returns true if connected.
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// apiError is a rippled error response.
type apiError struct {
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("ledger error %s", e.Code)
}

// call sends one request and waits for the matching response. The
// connection is dropped on transport errors so the next call redials.
func (c *WSClient) call(ctx context.Context, command string, params map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	id := c.requestID.Add(1)
	request := map[string]any{
		"id":      id,
		"command": command,
	}
	for k, v := range params {
		request[k] = v
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)

	if err := c.conn.WriteJSON(request); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("write failed: %w", err)
	}

	type apiResponse struct {
		ID           uint64          `json:"id"`
		Type         string          `json:"type"`
		Status       string          `json:"status"`
		Result       json.RawMessage `json:"result"`
		Error        string          `json:"error"`
		ErrorMessage string          `json:"error_message"`
	}

	var response apiResponse
	for {
		response = apiResponse{}
		if err := c.conn.ReadJSON(&response); err != nil {
			c.dropLocked()
			return nil, fmt.Errorf("read failed: %w", err)
		}
		// Skip unsolicited stream messages.
		if response.Type != "" && response.Type != "response" {
			continue
		}
		if response.ID != id {
			continue
		}
		break
	}

	if response.Status != "success" {
		return nil, &apiError{Code: response.Error, Message: response.ErrorMessage}
	}
	return response.Result, nil
}

func (c *WSClient) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// AccountInfo returns the validated balance and sequence for an address.
// Unfunded accounts map to ErrAccountNotFound.
func (c *WSClient) AccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	result, err := c.call(ctx, "account_info", map[string]any{
		"account":      address,
		"ledger_index": "validated",
	})
	if err != nil {
		if apiErr, ok := err.(*apiError); ok && apiErr.Code == "actNotFound" {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	var parsed struct {
		AccountData struct {
			Balance    string `json:"Balance"`
			Sequence   uint32 `json:"Sequence"`
			OwnerCount uint32 `json:"OwnerCount"`
		} `json:"account_data"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected account_info response: %w", err)
	}

	balance, err := strconv.ParseUint(parsed.AccountData.Balance, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q", parsed.AccountData.Balance)
	}

	return &AccountInfo{
		Address:      address,
		BalanceDrops: balance,
		Sequence:     parsed.AccountData.Sequence,
		OwnerCount:   parsed.AccountData.OwnerCount,
	}, nil
}

// AccountLines returns the trustlines held by an address.
func (c *WSClient) AccountLines(ctx context.Context, address string) ([]TrustlineInfo, error) {
	result, err := c.call(ctx, "account_lines", map[string]any{
		"account":      address,
		"ledger_index": "validated",
	})
	if err != nil {
		if apiErr, ok := err.(*apiError); ok && apiErr.Code == "actNotFound" {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	var parsed struct {
		Lines []struct {
			Account  string `json:"account"`
			Currency string `json:"currency"`
			Balance  string `json:"balance"`
			Limit    string `json:"limit"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected account_lines response: %w", err)
	}

	lines := make([]TrustlineInfo, 0, len(parsed.Lines))
	for _, l := range parsed.Lines {
		lines = append(lines, TrustlineInfo{
			Currency: l.Currency,
			Issuer:   l.Account,
			Balance:  l.Balance,
			Limit:    l.Limit,
		})
	}
	return lines, nil
}

// AMMInfo returns the pool state for an asset pair. A missing pool maps to
// ErrNoAMMPool.
func (c *WSClient) AMMInfo(ctx context.Context, asset, asset2 Issue) (*AMMPoolInfo, error) {
	result, err := c.call(ctx, "amm_info", map[string]any{
		"asset":  asset,
		"asset2": asset2,
	})
	if err != nil {
		if apiErr, ok := err.(*apiError); ok && apiErr.Code == "actNotFound" {
			return nil, ErrNoAMMPool
		}
		return nil, err
	}

	var parsed struct {
		AMM struct {
			Account string  `json:"account"`
			Amount  *Amount `json:"amount"`
			Amount2 *Amount `json:"amount2"`
			LPToken struct {
				Currency string `json:"currency"`
				Issuer   string `json:"issuer"`
			} `json:"lp_token"`
			TradingFee uint16 `json:"trading_fee"`
		} `json:"amm"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected amm_info response: %w", err)
	}

	return &AMMPoolInfo{
		Account:    parsed.AMM.Account,
		Amount:     parsed.AMM.Amount,
		Amount2:    parsed.AMM.Amount2,
		LPCurrency: parsed.AMM.LPToken.Currency,
		LPIssuer:   parsed.AMM.LPToken.Issuer,
		TradingFee: parsed.AMM.TradingFee,
	}, nil
}

// Reserves returns the network reserve requirements from server_info.
func (c *WSClient) Reserves(ctx context.Context) (*ReserveInfo, error) {
	result, err := c.call(ctx, "server_info", nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Info struct {
			ValidatedLedger struct {
				ReserveBaseXRP float64 `json:"reserve_base_xrp"`
				ReserveIncXRP  float64 `json:"reserve_inc_xrp"`
			} `json:"validated_ledger"`
		} `json:"info"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected server_info response: %w", err)
	}

	vl := parsed.Info.ValidatedLedger
	if vl.ReserveBaseXRP == 0 {
		return nil, fmt.Errorf("server_info carried no validated ledger")
	}
	return &ReserveInfo{
		BaseDrops:  uint64(vl.ReserveBaseXRP * 1_000_000),
		OwnerDrops: uint64(vl.ReserveIncXRP * 1_000_000),
	}, nil
}

// ledgerIndex returns the latest validated ledger index.
func (c *WSClient) ledgerIndex(ctx context.Context) (uint32, error) {
	result, err := c.call(ctx, "ledger", map[string]any{
		"ledger_index": "validated",
	})
	if err != nil {
		return 0, err
	}

	var parsed struct {
		LedgerIndex uint32 `json:"ledger_index"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return 0, fmt.Errorf("unexpected ledger response: %w", err)
	}
	return parsed.LedgerIndex, nil
}

// openLedgerFee returns the current open-ledger fee in drops.
func (c *WSClient) openLedgerFee(ctx context.Context) (string, error) {
	result, err := c.call(ctx, "fee", nil)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Drops struct {
			OpenLedgerFee string `json:"open_ledger_fee"`
		} `json:"drops"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return "", fmt.Errorf("unexpected fee response: %w", err)
	}
	if parsed.Drops.OpenLedgerFee == "" {
		return "", fmt.Errorf("fee response carried no open ledger fee")
	}
	return parsed.Drops.OpenLedgerFee, nil
}

// expirationWindow is how many ledgers past the current one a transaction
// stays valid before it expires instead of staying stuck in limbo.
const expirationWindow = 20

// submitPollInterval is how often a pending submission is re-checked.
var submitPollInterval = 2 * time.Second

// fallbackFeeDrops is used when the fee command is unavailable.
const fallbackFeeDrops = "12"

// Autofill fills in Sequence, Fee and LastLedgerSequence for fields the
// caller left unset.
func (c *WSClient) Autofill(ctx context.Context, tx *Transaction) error {
	if tx.Sequence == 0 {
		info, err := c.AccountInfo(ctx, tx.Account)
		if err != nil {
			return err
		}
		tx.Sequence = info.Sequence
	}

	if tx.Fee == "" {
		fee, err := c.openLedgerFee(ctx)
		if err != nil {
			c.log.Debug("fee lookup failed, using fallback", "error", err)
			fee = fallbackFeeDrops
		}
		tx.Fee = fee
	}

	if tx.LastLedgerSequence == 0 {
		index, err := c.ledgerIndex(ctx)
		if err != nil {
			return err
		}
		tx.LastLedgerSequence = index + expirationWindow
	}

	return nil
}

// SubmitAndWait submits a signed blob and polls until the transaction is in
// a validated ledger or the submission window expires.
func (c *WSClient) SubmitAndWait(ctx context.Context, blob, hash string) (*SubmitResult, error) {
	result, err := c.call(ctx, "submit", map[string]any{
		"tx_blob": blob,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	var submitted struct {
		EngineResult        string `json:"engine_result"`
		EngineResultMessage string `json:"engine_result_message"`
	}
	if err := json.Unmarshal(result, &submitted); err != nil {
		return nil, fmt.Errorf("unexpected submit response: %w", err)
	}

	// tem/tef class results never make it into a ledger; report them now.
	if submitted.EngineResult != "" && !retriableEngineResult(submitted.EngineResult) {
		c.log.Debug("submission rejected", "hash", hash, "engine_result", submitted.EngineResult)
		return &SubmitResult{
			Hash:                hash,
			EngineResult:        submitted.EngineResult,
			EngineResultMessage: submitted.EngineResultMessage,
		}, nil
	}

	deadline := time.Now().Add(config.SubmitTimeout)
	ticker := time.NewTicker(submitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrSubmitTimeout, hash)
		}

		final, err := c.transactionOutcome(ctx, hash)
		if err != nil {
			return nil, err
		}
		if final != nil {
			return final, nil
		}
	}
}

// retriableEngineResult reports whether a preliminary engine result can
// still end in a validated ledger.
func retriableEngineResult(code string) bool {
	switch {
	case code == "tesSUCCESS":
		return true
	case len(code) >= 3 && (code[:3] == "ter" || code[:3] == "tec"):
		return true
	default:
		return false
	}
}

// transactionOutcome looks up a submitted transaction; nil result means it
// has not been validated yet.
func (c *WSClient) transactionOutcome(ctx context.Context, hash string) (*SubmitResult, error) {
	result, err := c.call(ctx, "tx", map[string]any{
		"transaction": hash,
	})
	if err != nil {
		if apiErr, ok := err.(*apiError); ok && apiErr.Code == "txnNotFound" {
			return nil, nil
		}
		return nil, err
	}

	var parsed struct {
		Validated bool `json:"validated"`
		Meta      struct {
			TransactionResult string `json:"TransactionResult"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected tx response: %w", err)
	}
	if !parsed.Validated {
		return nil, nil
	}

	return &SubmitResult{
		Hash:         hash,
		EngineResult: parsed.Meta.TransactionResult,
		Validated:    true,
	}, nil
}

// Ensure WSClient implements Client
var _ Client = (*WSClient)(nil)
