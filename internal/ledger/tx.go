package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/lawas-exchange/xrpfleet/pkg/helpers"
)

// Transaction type names as they appear on the wire.
const (
	TypePayment    = "Payment"
	TypeTrustSet   = "TrustSet"
	TypeAMMDeposit = "AMMDeposit"
)

// AMMDeposit mode flags. Exactly one mode must be set.
const (
	AMMDepositSingleAsset uint32 = 0x00080000
	AMMDepositTwoAsset    uint32 = 0x00100000
)

// Amount is an XRPL amount: either native XRP (drops, serialized as a JSON
// string) or an issued token (serialized as a currency/issuer/value object).
// Currency is empty for XRP.
type Amount struct {
	Currency string
	Issuer   string
	Value    string
}

// XRPAmount builds a native amount from drops.
func XRPAmount(drops uint64) *Amount {
	return &Amount{Value: fmt.Sprintf("%d", drops)}
}

// IssuedAmount builds a token amount. The currency is normalized to its
// 40-character hex form.
func IssuedAmount(currency, issuer, value string) *Amount {
	return &Amount{
		Currency: helpers.CurrencyToHex(currency),
		Issuer:   issuer,
		Value:    value,
	}
}

// IsNative returns true for XRP amounts.
func (a *Amount) IsNative() bool {
	return a.Currency == ""
}

type issuedAmountJSON struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Value    string `json:"value"`
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.IsNative() {
		return json.Marshal(a.Value)
	}
	return json.Marshal(issuedAmountJSON{
		Currency: a.Currency,
		Issuer:   a.Issuer,
		Value:    a.Value,
	})
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var drops string
	if err := json.Unmarshal(data, &drops); err == nil {
		*a = Amount{Value: drops}
		return nil
	}
	var issued issuedAmountJSON
	if err := json.Unmarshal(data, &issued); err != nil {
		return fmt.Errorf("invalid amount: %s", string(data))
	}
	*a = Amount{Currency: issued.Currency, Issuer: issued.Issuer, Value: issued.Value}
	return nil
}

// Issue identifies one side of an AMM pool. XRP is {currency: "XRP"} with no
// issuer, matching the amm_info request format.
type Issue struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer,omitempty"`
}

// XRPIssue is the native side of a pool.
func XRPIssue() Issue {
	return Issue{Currency: "XRP"}
}

// TokenIssue builds the issued side of a pool.
func TokenIssue(currency, issuer string) Issue {
	return Issue{Currency: helpers.CurrencyToHex(currency), Issuer: issuer}
}

// IsNative returns true for the XRP side.
func (i Issue) IsNative() bool {
	return i.Currency == "XRP" || i.Currency == ""
}

// PathStep is one hop of a payment path. A currency-only step instructs the
// pathfinder to bridge through that currency.
type PathStep struct {
	Account  string `json:"account,omitempty"`
	Currency string `json:"currency,omitempty"`
	Issuer   string `json:"issuer,omitempty"`
}

// XRPBridgePath routes a token-to-token payment through XRP.
func XRPBridgePath() [][]PathStep {
	return [][]PathStep{{{Currency: "XRP"}}}
}

// Memo is an arbitrary payload attached to a transaction. All fields are
// hex-encoded on the wire.
type Memo struct {
	MemoType   string `json:"MemoType,omitempty"`
	MemoData   string `json:"MemoData,omitempty"`
	MemoFormat string `json:"MemoFormat,omitempty"`
}

// MemoWrapper matches the nesting of memo entries in the wire form.
type MemoWrapper struct {
	Memo Memo `json:"Memo"`
}

// TextMemo hex-encodes text as a single memo entry. Empty text yields no
// memos.
func TextMemo(text string) []MemoWrapper {
	if text == "" {
		return nil
	}
	return []MemoWrapper{{Memo: Memo{MemoData: helpers.BytesToHex([]byte(text))}}}
}

// Transaction is a flat XRPL transaction. Optional fields are omitted from
// the wire form when unset, never sent as zero values.
type Transaction struct {
	TransactionType    string     `json:"TransactionType"`
	Account            string     `json:"Account"`
	Flags              uint32     `json:"Flags,omitempty"`
	Sequence           uint32     `json:"Sequence,omitempty"`
	Fee                string     `json:"Fee,omitempty"`
	LastLedgerSequence uint32     `json:"LastLedgerSequence,omitempty"`
	SigningPubKey      string     `json:"SigningPubKey,omitempty"`
	TxnSignature       string     `json:"TxnSignature,omitempty"`
	Destination        string     `json:"Destination,omitempty"`
	Amount             *Amount    `json:"Amount,omitempty"`
	Amount2            *Amount    `json:"Amount2,omitempty"`
	SendMax            *Amount    `json:"SendMax,omitempty"`
	LimitAmount        *Amount    `json:"LimitAmount,omitempty"`
	Memos              []MemoWrapper `json:"Memos,omitempty"`
	Paths              [][]PathStep `json:"Paths,omitempty"`
	Asset              *Issue     `json:"Asset,omitempty"`
	Asset2             *Issue     `json:"Asset2,omitempty"`
}

// NewTrustSet builds a trustline transaction for the given limit.
func NewTrustSet(account string, limit *Amount) *Transaction {
	return &Transaction{
		TransactionType: TypeTrustSet,
		Account:         account,
		LimitAmount:     limit,
	}
}

// NewPayment builds a payment of amount to destination.
func NewPayment(account, destination string, amount *Amount) *Transaction {
	return &Transaction{
		TransactionType: TypePayment,
		Account:         account,
		Destination:     destination,
		Amount:          amount,
	}
}

// NewSwapPayment builds the self-payment that executes a swap against the
// DEX and AMM pools: Amount is what the account wants to receive, SendMax
// what it is willing to spend. flags should enable partial payments so the
// swap fills as far as liquidity allows.
func NewSwapPayment(account string, amount, sendMax *Amount, paths [][]PathStep, flags uint32) *Transaction {
	return &Transaction{
		TransactionType: TypePayment,
		Account:         account,
		Destination:     account,
		Amount:          amount,
		SendMax:         sendMax,
		Paths:           paths,
		Flags:           flags,
	}
}

// NewAMMDeposit builds a pool deposit. Exactly one of amount and amount2
// must be set; the deposit mode flag follows from which sides are present.
func NewAMMDeposit(account string, asset, asset2 Issue, amount, amount2 *Amount) *Transaction {
	flags := AMMDepositSingleAsset
	if amount != nil && amount2 != nil {
		flags = AMMDepositTwoAsset
	}
	return &Transaction{
		TransactionType: TypeAMMDeposit,
		Account:         account,
		Flags:           flags,
		Asset:           &asset,
		Asset2:          &asset2,
		Amount:          amount,
		Amount2:         amount2,
	}
}
