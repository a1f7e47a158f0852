package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lawas-exchange/xrpfleet/internal/config"
)

var (
	xrpToken, _   = config.GetToken(config.TokenXRP)
	lawasToken, _ = config.GetToken(config.TokenLAWAS)
)

func TestXPMarketRate(t *testing.T) {
	var gotRequest xpmarketRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"amount2": "245.7",
			"pool":    map[string]any{"hasPool": true},
		})
	}))
	defer server.Close()

	client := NewXPMarketClient(server.URL, nil)
	quote, err := client.Rate(context.Background(), xrpToken, lawasToken)
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if quote.Rate != 245.7 {
		t.Errorf("Rate = %v, want 245.7", quote.Rate)
	}
	if !quote.PoolExists {
		t.Error("PoolExists should be true")
	}

	if gotRequest.Code1 != "XRP" || gotRequest.Code2 != "LAWAS" {
		t.Errorf("request pair = %s/%s", gotRequest.Code1, gotRequest.Code2)
	}
	if gotRequest.Issuer1 != "" {
		t.Errorf("native source must carry no issuer, got %s", gotRequest.Issuer1)
	}
	if gotRequest.Issuer2 != lawasToken.Issuer {
		t.Errorf("Issuer2 = %s, want %s", gotRequest.Issuer2, lawasToken.Issuer)
	}
	if gotRequest.Amount != 1 {
		t.Errorf("Amount = %v, want 1", gotRequest.Amount)
	}
}

func TestXPMarketNumericAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// amount2 arrives as a JSON number rather than a string.
		json.NewEncoder(w).Encode(map[string]any{
			"amount2": 0.0041,
			"pool":    map[string]any{"hasPool": false},
		})
	}))
	defer server.Close()

	client := NewXPMarketClient(server.URL, nil)
	quote, err := client.Rate(context.Background(), lawasToken, xrpToken)
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if quote.Rate != 0.0041 {
		t.Errorf("Rate = %v, want 0.0041", quote.Rate)
	}
	if quote.PoolExists {
		t.Error("PoolExists should be false")
	}
}

func TestXPMarketErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewXPMarketClient(server.URL, nil)
	if _, err := client.Rate(context.Background(), xrpToken, lawasToken); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestOnTheDEXRate(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"pairs": []map[string]any{{"last": 243.1}},
		})
	}))
	defer server.Close()

	client := NewOnTheDEXClient(server.URL, nil)
	quote, err := client.Rate(context.Background(), xrpToken, lawasToken)
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if quote.Rate != 243.1 {
		t.Errorf("Rate = %v, want 243.1", quote.Rate)
	}
	if quote.PoolExists {
		t.Error("ticker quotes must not claim a pool")
	}

	want := "/XRP:LAWAS." + lawasToken.Issuer
	if gotPath != want {
		t.Errorf("request path = %s, want %s", gotPath, want)
	}
}

func TestOnTheDEXNoPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"pairs": []any{}})
	}))
	defer server.Close()

	client := NewOnTheDEXClient(server.URL, nil)
	if _, err := client.Rate(context.Background(), lawasToken, xrpToken); err == nil {
		t.Error("expected error for empty pairs")
	}
}

// stubProvider returns a fixed quote or error.
type stubProvider struct {
	name  string
	quote *Quote
	err   error
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Rate(ctx context.Context, source, destination config.Token) (*Quote, error) {
	return s.quote, s.err
}

func TestOracleFirstProviderWins(t *testing.T) {
	o := New(nil,
		&stubProvider{name: "primary", quote: &Quote{Rate: 2.5, PoolExists: true}},
		&stubProvider{name: "secondary", quote: &Quote{Rate: 9.9}},
	)

	quote := o.GetRate(context.Background(), xrpToken, lawasToken)
	if quote.Rate != 2.5 || !quote.PoolExists {
		t.Errorf("quote = %+v, want primary's", quote)
	}
}

func TestOracleFallsThroughFailures(t *testing.T) {
	o := New(nil,
		&stubProvider{name: "down", err: errors.New("timeout")},
		&stubProvider{name: "zero", quote: &Quote{Rate: 0}},
		&stubProvider{name: "working", quote: &Quote{Rate: 0.004}},
	)

	quote := o.GetRate(context.Background(), lawasToken, xrpToken)
	if quote.Rate != 0.004 {
		t.Errorf("Rate = %v, want 0.004", quote.Rate)
	}
}

func TestOracleNeutralFallback(t *testing.T) {
	o := New(nil,
		&stubProvider{name: "down", err: errors.New("timeout")},
	)

	quote := o.GetRate(context.Background(), xrpToken, lawasToken)
	if quote.Rate != 1 || quote.PoolExists {
		t.Errorf("quote = %+v, want neutral fallback", quote)
	}
}
