// Package reserve computes XRP reserve requirements and per-wallet balance
// aggregates used for reporting and pre-flight checks.
package reserve

import (
	"context"

	"github.com/lawas-exchange/xrpfleet/internal/config"
	"github.com/lawas-exchange/xrpfleet/internal/ledger"
	"github.com/lawas-exchange/xrpfleet/pkg/logging"
)

// Requirement is the XRP locked by the network for an account: the base
// reserve plus one owner reserve per owned object (trustlines, offers,
// AMM LP positions).
type Requirement struct {
	BaseDrops  uint64 `json:"base_drops"`
	OwnerDrops uint64 `json:"owner_drops"`
	TotalDrops uint64 `json:"total_drops"`
}

// Compute derives the requirement for an account owning the given number of
// ledger objects.
func Compute(info *ledger.ReserveInfo, ownedObjects uint32) Requirement {
	return Requirement{
		BaseDrops:  info.BaseDrops,
		OwnerDrops: info.OwnerDrops,
		TotalDrops: info.BaseDrops + uint64(ownedObjects)*info.OwnerDrops,
	}
}

// FallbackReserves is used when the network cannot be asked.
func FallbackReserves() *ledger.ReserveInfo {
	return &ledger.ReserveInfo{
		BaseDrops:  config.FallbackBaseReserveDrops,
		OwnerDrops: config.FallbackOwnerReserveDrops,
	}
}

// SweepableDrops is how much an account can pay away while staying above
// its reserve and keeping a fee buffer. Zero when the balance does not
// cover both.
func SweepableDrops(balanceDrops, reservedDrops, feeBufferDrops uint64) uint64 {
	floor := reservedDrops + feeBufferDrops
	if balanceDrops <= floor {
		return 0
	}
	return balanceDrops - floor
}

// Balances is the aggregate view of one wallet: native balance, the tracked
// token balance, and how much of the XRP is locked as reserve. Sub-query
// failures degrade individual fields to zero instead of failing the whole
// aggregate.
type Balances struct {
	Address        string `json:"address"`
	Exists         bool   `json:"exists"`
	XRPDrops       uint64 `json:"xrp_drops"`
	TokenBalance   string `json:"token_balance"`
	OwnerCount     uint32 `json:"owner_count"`
	ReservedDrops  uint64 `json:"reserved_drops"`
	SpendableDrops uint64 `json:"spendable_drops"`
}

// Calculator performs reserve and balance reads against the ledger.
type Calculator struct {
	client ledger.Client
	log    *logging.Logger
}

// NewCalculator creates a calculator over the given ledger client.
func NewCalculator(client ledger.Client, log *logging.Logger) *Calculator {
	if log == nil {
		log = logging.GetDefault()
	}
	return &Calculator{
		client: client,
		log:    log.Component("reserve"),
	}
}

// Requirement returns the reserve requirement for an account owning the
// given number of ledger objects, using network values when reachable and
// the fallback constants otherwise.
func (c *Calculator) Requirement(ctx context.Context, ownedObjects uint32) Requirement {
	info, err := c.client.Reserves(ctx)
	if err != nil {
		c.log.Warn("reserve lookup failed, using fallback constants", "error", err)
		info = FallbackReserves()
	}
	return Compute(info, ownedObjects)
}

// AggregateBalances combines the XRP balance, one token trustline balance
// and the reserve requirement for an address. An unfunded account comes
// back with Exists false and everything zeroed.
func (c *Calculator) AggregateBalances(ctx context.Context, address string, token config.Token) *Balances {
	balances := &Balances{Address: address, TokenBalance: "0"}

	info, err := c.client.AccountInfo(ctx, address)
	if err != nil {
		if err != ledger.ErrAccountNotFound {
			c.log.Warn("balance lookup failed", "address", address, "error", err)
		}
		return balances
	}
	balances.Exists = true
	balances.XRPDrops = info.BalanceDrops
	balances.OwnerCount = info.OwnerCount

	requirement := c.Requirement(ctx, info.OwnerCount)
	balances.ReservedDrops = requirement.TotalDrops
	balances.SpendableDrops = SweepableDrops(info.BalanceDrops, requirement.TotalDrops, 0)

	if !token.Native {
		lines, err := c.client.AccountLines(ctx, address)
		if err != nil {
			c.log.Warn("trustline lookup failed", "address", address, "error", err)
			return balances
		}
		currency := token.LedgerCurrency()
		for _, line := range lines {
			if line.Issuer == token.Issuer && (line.Currency == currency || line.Currency == token.Code) {
				balances.TokenBalance = line.Balance
				break
			}
		}
	}

	return balances
}
