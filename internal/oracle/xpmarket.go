package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lawas-exchange/xrpfleet/internal/config"
	"github.com/lawas-exchange/xrpfleet/pkg/logging"
)

// XPMarketClient quotes a pair through the XPMarket swap impact endpoint.
// The impact of swapping one source unit doubles as the exchange rate, and
// the response says whether an AMM pool backs the pair.
type XPMarketClient struct {
	url        string
	httpClient *http.Client
	log        *logging.Logger
}

// NewXPMarketClient creates a client for the given impact endpoint.
func NewXPMarketClient(url string, log *logging.Logger) *XPMarketClient {
	if log == nil {
		log = logging.GetDefault()
	}
	return &XPMarketClient{
		url: strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{
			Timeout: config.OracleTimeout,
		},
		log: log.Component("xpmarket"),
	}
}

// Name identifies the provider in logs.
func (x *XPMarketClient) Name() string {
	return "xpmarket"
}

type xpmarketRequest struct {
	Code1   string  `json:"code1"`
	Issuer1 string  `json:"issuer1,omitempty"`
	Code2   string  `json:"code2"`
	Issuer2 string  `json:"issuer2,omitempty"`
	Amount  float64 `json:"amount"`
}

type xpmarketResponse struct {
	Amount2 json.Number `json:"amount2"`
	Pool    struct {
		HasPool bool `json:"hasPool"`
	} `json:"pool"`
}

// Rate quotes how much destination one source unit buys.
func (x *XPMarketClient) Rate(ctx context.Context, source, destination config.Token) (*Quote, error) {
	payload := xpmarketRequest{
		Code1:   source.Code,
		Issuer1: source.Issuer,
		Code2:   destination.Code,
		Issuer2: destination.Issuer,
		Amount:  1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("xpmarket status %d", resp.StatusCode)
	}

	var parsed xpmarketResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("unexpected xpmarket response: %w", err)
	}

	rate, err := strconv.ParseFloat(parsed.Amount2.String(), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q", parsed.Amount2.String())
	}

	return &Quote{Rate: rate, PoolExists: parsed.Pool.HasPool}, nil
}

// Ensure XPMarketClient implements Provider
var _ Provider = (*XPMarketClient)(nil)
