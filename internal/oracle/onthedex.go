package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lawas-exchange/xrpfleet/internal/config"
	"github.com/lawas-exchange/xrpfleet/pkg/logging"
)

// OnTheDEXClient quotes a pair from the OnTheDEX public ticker. The last
// traded DEX price stands in for the rate; this source carries no AMM pool
// information, so quotes never claim a pool.
type OnTheDEXClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

// NewOnTheDEXClient creates a client for the given ticker endpoint.
func NewOnTheDEXClient(baseURL string, log *logging.Logger) *OnTheDEXClient {
	if log == nil {
		log = logging.GetDefault()
	}
	return &OnTheDEXClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.OracleTimeout,
		},
		log: log.Component("onthedex"),
	}
}

// Name identifies the provider in logs.
func (o *OnTheDEXClient) Name() string {
	return "onthedex"
}

// tickerSymbol renders a token in the CODE.ISSUER form the ticker expects.
func tickerSymbol(token config.Token) string {
	if token.Native {
		return token.Code
	}
	return token.Code + "." + token.Issuer
}

type onthedexResponse struct {
	Pairs []struct {
		Last float64 `json:"last"`
	} `json:"pairs"`
}

// Rate returns the last traded price for source quoted in destination.
func (o *OnTheDEXClient) Rate(ctx context.Context, source, destination config.Token) (*Quote, error) {
	pair := tickerSymbol(source) + ":" + tickerSymbol(destination)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/"+pair, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("onthedex status %d", resp.StatusCode)
	}

	var parsed onthedexResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("unexpected onthedex response: %w", err)
	}

	if len(parsed.Pairs) == 0 {
		return nil, fmt.Errorf("no ticker data for %s", pair)
	}

	return &Quote{Rate: parsed.Pairs[0].Last, PoolExists: false}, nil
}

// Ensure OnTheDEXClient implements Provider
var _ Provider = (*OnTheDEXClient)(nil)
