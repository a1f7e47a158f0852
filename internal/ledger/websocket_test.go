package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeLedger is an in-process rippled websocket endpoint. Handlers are keyed
// by command and return the result object for a successful response, or an
// error code prefixed with "error:".
type fakeLedger struct {
	server   *httptest.Server
	handlers map[string]func(request map[string]any) any
}

func newFakeLedger(t *testing.T) *fakeLedger {
	t.Helper()

	f := &fakeLedger{handlers: make(map[string]func(map[string]any) any)}
	upgrader := websocket.Upgrader{}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var request map[string]any
			if err := conn.ReadJSON(&request); err != nil {
				return
			}

			command, _ := request["command"].(string)
			response := map[string]any{
				"id":   request["id"],
				"type": "response",
			}

			handler, ok := f.handlers[command]
			if !ok {
				response["status"] = "error"
				response["error"] = "unknownCmd"
			} else if result := handler(request); isErrorResult(result) {
				response["status"] = "error"
				response["error"] = strings.TrimPrefix(result.(string), "error:")
			} else {
				response["status"] = "success"
				response["result"] = result
			}

			if err := conn.WriteJSON(response); err != nil {
				return
			}
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func isErrorResult(result any) bool {
	s, ok := result.(string)
	return ok && strings.HasPrefix(s, "error:")
}

func (f *fakeLedger) endpoint() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func (f *fakeLedger) handle(command string, fn func(map[string]any) any) {
	f.handlers[command] = fn
}

func newTestClient(t *testing.T, f *fakeLedger) *WSClient {
	t.Helper()

	previous := submitPollInterval
	submitPollInterval = 10 * time.Millisecond
	t.Cleanup(func() { submitPollInterval = previous })

	client := NewWSClient(f.endpoint(), nil)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestWSClientConnect(t *testing.T) {
	f := newFakeLedger(t)
	client := newTestClient(t, f)

	if client.IsConnected() {
		t.Error("should not be connected initially")
	}
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !client.IsConnected() {
		t.Error("should be connected after Connect")
	}
	// Connect is idempotent.
	if err := client.Connect(context.Background()); err != nil {
		t.Errorf("second Connect() error = %v", err)
	}
}

func TestAccountInfo(t *testing.T) {
	f := newFakeLedger(t)
	f.handle("account_info", func(request map[string]any) any {
		if request["account"] != testAccount {
			return "error:actNotFound"
		}
		return map[string]any{
			"account_data": map[string]any{
				"Balance":    "25000000",
				"Sequence":   42,
				"OwnerCount": 3,
			},
		}
	})
	client := newTestClient(t, f)

	info, err := client.AccountInfo(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("AccountInfo() error = %v", err)
	}
	if info.BalanceDrops != 25000000 {
		t.Errorf("BalanceDrops = %d, want 25000000", info.BalanceDrops)
	}
	if info.Sequence != 42 {
		t.Errorf("Sequence = %d, want 42", info.Sequence)
	}
	if info.OwnerCount != 3 {
		t.Errorf("OwnerCount = %d, want 3", info.OwnerCount)
	}

	if _, err := client.AccountInfo(context.Background(), "rUnfundedAccount"); err != ErrAccountNotFound {
		t.Errorf("unfunded account error = %v, want ErrAccountNotFound", err)
	}
}

func TestAccountLines(t *testing.T) {
	f := newFakeLedger(t)
	f.handle("account_lines", func(request map[string]any) any {
		return map[string]any{
			"lines": []map[string]any{
				{
					"account":  lawasToken.Issuer,
					"currency": lawasToken.HexCode,
					"balance":  "150.5",
					"limit":    "100000000000000000000000000000000000000",
				},
			},
		}
	})
	client := newTestClient(t, f)

	lines, err := client.AccountLines(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("AccountLines() error = %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Issuer != lawasToken.Issuer {
		t.Errorf("Issuer = %s, want %s", lines[0].Issuer, lawasToken.Issuer)
	}
	if lines[0].Currency != lawasToken.HexCode {
		t.Errorf("Currency = %s", lines[0].Currency)
	}
}

func TestAMMInfo(t *testing.T) {
	f := newFakeLedger(t)
	f.handle("amm_info", func(request map[string]any) any {
		return map[string]any{
			"amm": map[string]any{
				"account": "rAMMPoolAccount1111111111111111111",
				"amount": map[string]any{
					"currency": lawasToken.HexCode,
					"issuer":   lawasToken.Issuer,
					"value":    "1000",
				},
				"amount2": "5000000",
				"lp_token": map[string]any{
					"currency": "03A1B2C3000000000000000000000000000000FF",
					"issuer":   "rAMMPoolAccount1111111111111111111",
				},
				"trading_fee": 500,
			},
		}
	})
	client := newTestClient(t, f)

	pool, err := client.AMMInfo(context.Background(), TokenIssue("LAWAS", lawasToken.Issuer), XRPIssue())
	if err != nil {
		t.Fatalf("AMMInfo() error = %v", err)
	}
	if pool.Amount == nil || pool.Amount.Value != "1000" {
		t.Errorf("Amount = %+v", pool.Amount)
	}
	if pool.Amount2 == nil || !pool.Amount2.IsNative() || pool.Amount2.Value != "5000000" {
		t.Errorf("Amount2 = %+v", pool.Amount2)
	}
	if pool.LPCurrency == "" || pool.LPIssuer == "" {
		t.Error("LP token identity missing")
	}
	if pool.TradingFee != 500 {
		t.Errorf("TradingFee = %d, want 500", pool.TradingFee)
	}
}

func TestAMMInfoMissingPool(t *testing.T) {
	f := newFakeLedger(t)
	f.handle("amm_info", func(request map[string]any) any {
		return "error:actNotFound"
	})
	client := newTestClient(t, f)

	if _, err := client.AMMInfo(context.Background(), TokenIssue("LAWAS", lawasToken.Issuer), XRPIssue()); err != ErrNoAMMPool {
		t.Errorf("missing pool error = %v, want ErrNoAMMPool", err)
	}
}

func TestReserves(t *testing.T) {
	f := newFakeLedger(t)
	f.handle("server_info", func(request map[string]any) any {
		return map[string]any{
			"info": map[string]any{
				"validated_ledger": map[string]any{
					"reserve_base_xrp": 1.0,
					"reserve_inc_xrp":  0.2,
				},
			},
		}
	})
	client := newTestClient(t, f)

	reserves, err := client.Reserves(context.Background())
	if err != nil {
		t.Fatalf("Reserves() error = %v", err)
	}
	if reserves.BaseDrops != 1000000 {
		t.Errorf("BaseDrops = %d, want 1000000", reserves.BaseDrops)
	}
	if reserves.OwnerDrops != 200000 {
		t.Errorf("OwnerDrops = %d, want 200000", reserves.OwnerDrops)
	}
}

func TestAutofill(t *testing.T) {
	f := newFakeLedger(t)
	f.handle("account_info", func(request map[string]any) any {
		return map[string]any{
			"account_data": map[string]any{
				"Balance":  "10000000",
				"Sequence": 17,
			},
		}
	})
	f.handle("fee", func(request map[string]any) any {
		return map[string]any{
			"drops": map[string]any{"open_ledger_fee": "15"},
		}
	})
	f.handle("ledger", func(request map[string]any) any {
		return map[string]any{"ledger_index": 90000}
	})
	client := newTestClient(t, f)

	tx := NewPayment(testAccount, testAccount, XRPAmount(1))
	if err := client.Autofill(context.Background(), tx); err != nil {
		t.Fatalf("Autofill() error = %v", err)
	}
	if tx.Sequence != 17 {
		t.Errorf("Sequence = %d, want 17", tx.Sequence)
	}
	if tx.Fee != "15" {
		t.Errorf("Fee = %s, want 15", tx.Fee)
	}
	if tx.LastLedgerSequence != 90000+expirationWindow {
		t.Errorf("LastLedgerSequence = %d, want %d", tx.LastLedgerSequence, 90000+expirationWindow)
	}
}

func TestAutofillKeepsExplicitFields(t *testing.T) {
	f := newFakeLedger(t)
	client := newTestClient(t, f)

	tx := NewPayment(testAccount, testAccount, XRPAmount(1))
	tx.Sequence = 9
	tx.Fee = "12"
	tx.LastLedgerSequence = 100
	// No handlers registered: Autofill must not need the network.
	if err := client.Autofill(context.Background(), tx); err != nil {
		t.Fatalf("Autofill() error = %v", err)
	}
	if tx.Sequence != 9 || tx.Fee != "12" || tx.LastLedgerSequence != 100 {
		t.Errorf("explicit fields were overwritten: %+v", tx)
	}
}

func TestSubmitAndWaitRejected(t *testing.T) {
	f := newFakeLedger(t)
	f.handle("submit", func(request map[string]any) any {
		return map[string]any{
			"engine_result":         "temBAD_FEE",
			"engine_result_message": "Invalid fee, negative or not XRP.",
		}
	})
	client := newTestClient(t, f)

	result, err := client.SubmitAndWait(context.Background(), "DEADBEEF", "HASH1")
	if err != nil {
		t.Fatalf("SubmitAndWait() error = %v", err)
	}
	if result.Succeeded() {
		t.Error("tem result must not count as success")
	}
	if result.EngineResult != "temBAD_FEE" {
		t.Errorf("EngineResult = %s", result.EngineResult)
	}
	if result.EngineResultMessage != "Invalid fee, negative or not XRP." {
		t.Errorf("EngineResultMessage = %q", result.EngineResultMessage)
	}
}

func TestSubmitAndWaitValidated(t *testing.T) {
	f := newFakeLedger(t)
	f.handle("submit", func(request map[string]any) any {
		return map[string]any{"engine_result": "tesSUCCESS"}
	})
	f.handle("tx", func(request map[string]any) any {
		return map[string]any{
			"validated": true,
			"meta":      map[string]any{"TransactionResult": "tesSUCCESS"},
		}
	})
	client := newTestClient(t, f)

	result, err := client.SubmitAndWait(context.Background(), "DEADBEEF", "HASH2")
	if err != nil {
		t.Fatalf("SubmitAndWait() error = %v", err)
	}
	if !result.Succeeded() {
		t.Errorf("expected validated success, got %+v", result)
	}
	if !result.Validated {
		t.Error("Validated should be true")
	}
}

func TestSubmitAndWaitFailedOnLedger(t *testing.T) {
	f := newFakeLedger(t)
	f.handle("submit", func(request map[string]any) any {
		return map[string]any{"engine_result": "terQUEUED"}
	})
	f.handle("tx", func(request map[string]any) any {
		return map[string]any{
			"validated": true,
			"meta":      map[string]any{"TransactionResult": "tecPATH_DRY"},
		}
	})
	client := newTestClient(t, f)

	result, err := client.SubmitAndWait(context.Background(), "DEADBEEF", "HASH3")
	if err != nil {
		t.Fatalf("SubmitAndWait() error = %v", err)
	}
	if result.Succeeded() {
		t.Error("tecPATH_DRY must not count as success")
	}
}

func TestRetriableEngineResult(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"tesSUCCESS", true},
		{"terQUEUED", true},
		{"tecPATH_DRY", true},
		{"temBAD_FEE", false},
		{"tefPAST_SEQ", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := retriableEngineResult(tc.code); got != tc.want {
			t.Errorf("retriableEngineResult(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestAmountJSONRoundtrip(t *testing.T) {
	native := XRPAmount(1500000)
	data, err := json.Marshal(native)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"1500000"` {
		t.Errorf("native amount JSON = %s", data)
	}

	issued := IssuedAmount("LAWAS", lawasToken.Issuer, "42.5")
	data, err = json.Marshal(issued)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded Amount
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Currency != lawasToken.HexCode || decoded.Value != "42.5" {
		t.Errorf("issued amount roundtrip = %+v", decoded)
	}
}
