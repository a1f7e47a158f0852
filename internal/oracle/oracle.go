// Package oracle provides best-effort exchange rate discovery from external
// quote services. Rates are advisory: callers that need a hard guarantee
// must check PoolExists before acting on the rate.
package oracle

import (
	"context"

	"github.com/lawas-exchange/xrpfleet/internal/config"
	"github.com/lawas-exchange/xrpfleet/pkg/logging"
)

// Quote is an exchange rate for a currency pair: destination units received
// per one source unit.
type Quote struct {
	Rate       float64 `json:"rate"`
	PoolExists bool    `json:"pool_exists"`
}

// NeutralQuote is the fallback when no service can supply a rate. The rate
// is usable as a multiplier but PoolExists marks it as a guess.
func NeutralQuote() *Quote {
	return &Quote{Rate: 1, PoolExists: false}
}

// Provider supplies a quote for one currency pair.
type Provider interface {
	Name() string
	Rate(ctx context.Context, source, destination config.Token) (*Quote, error)
}

// Oracle queries providers in order and returns the first usable quote.
// Every failure path degrades to the neutral fallback; Rate never errors.
type Oracle struct {
	providers []Provider
	log       *logging.Logger
}

// New creates an oracle over the given providers, tried in order.
func New(log *logging.Logger, providers ...Provider) *Oracle {
	if log == nil {
		log = logging.GetDefault()
	}
	return &Oracle{
		providers: providers,
		log:       log.Component("oracle"),
	}
}

// NewDefault creates the standard oracle: XPMarket for impact-aware quotes
// with the pool flag, OnTheDEX last-traded price as the fallback.
func NewDefault(xpmarketURL, onthedexURL string, log *logging.Logger) *Oracle {
	return New(log,
		NewXPMarketClient(xpmarketURL, log),
		NewOnTheDEXClient(onthedexURL, log),
	)
}

// GetRate returns the exchange rate for one source unit. Provider failures
// are logged and absorbed; the worst case is the neutral fallback.
func (o *Oracle) GetRate(ctx context.Context, source, destination config.Token) *Quote {
	for _, p := range o.providers {
		quote, err := p.Rate(ctx, source, destination)
		if err != nil {
			o.log.Warn("rate lookup failed",
				"provider", p.Name(),
				"pair", source.Code+"/"+destination.Code,
				"error", err)
			continue
		}
		if quote == nil || quote.Rate <= 0 {
			o.log.Debug("provider returned no rate",
				"provider", p.Name(),
				"pair", source.Code+"/"+destination.Code)
			continue
		}
		o.log.Debug("rate resolved",
			"provider", p.Name(),
			"pair", source.Code+"/"+destination.Code,
			"rate", quote.Rate,
			"pool", quote.PoolExists)
		return quote
	}
	return NeutralQuote()
}
