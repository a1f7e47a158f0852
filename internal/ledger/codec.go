package ledger

import (
	"bytes"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/lawas-exchange/xrpfleet/internal/wallet"
	"github.com/lawas-exchange/xrpfleet/pkg/helpers"
)

// Hash prefixes from the XRPL canonical binary format.
var (
	prefixTxSign = []byte{0x53, 0x54, 0x58, 0x00} // "STX\0" single-signer signing data
	prefixTxID   = []byte{0x54, 0x58, 0x4E, 0x00} // "TXN\0" transaction hash
)

// Serialization field type codes.
const (
	stUInt16    = 1
	stUInt32    = 2
	stAmount    = 6
	stBlob      = 7
	stAccountID = 8
	stObject    = 14
	stArray     = 15
	stPathSet   = 18
	stIssue     = 24
)

var txTypeCodes = map[string]uint16{
	TypePayment:    0,
	TypeTrustSet:   20,
	TypeAMMDeposit: 36,
}

// Sign serializes tx, signs it with the wallet's key and returns the hex
// transaction blob together with its hash. The transaction's SigningPubKey
// and TxnSignature fields are filled in.
func Sign(tx *Transaction, keys *wallet.KeyPair) (blob, hash string, err error) {
	tx.SigningPubKey = keys.PublicKeyHex()
	tx.TxnSignature = ""

	signingData, err := serialize(tx, true)
	if err != nil {
		return "", "", err
	}

	sig, err := keys.Sign(append(prefixTxSign, signingData...))
	if err != nil {
		return "", "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	tx.TxnSignature = helpers.BytesToHex(sig)

	signed, err := serialize(tx, false)
	if err != nil {
		return "", "", err
	}

	digest := sha512.Sum512(append(prefixTxID, signed...))
	return helpers.BytesToHex(signed), helpers.BytesToHex(digest[:32]), nil
}

// serialize writes the transaction fields in canonical order, sorted by
// type code then field code. Signing data excludes the signature itself.
func serialize(tx *Transaction, forSigning bool) ([]byte, error) {
	typeCode, ok := txTypeCodes[tx.TransactionType]
	if !ok {
		return nil, fmt.Errorf("unsupported transaction type %q", tx.TransactionType)
	}

	var buf bytes.Buffer

	writeFieldHeader(&buf, stUInt16, 2) // TransactionType
	binary.Write(&buf, binary.BigEndian, typeCode)

	if tx.Flags != 0 {
		writeFieldHeader(&buf, stUInt32, 2) // Flags
		binary.Write(&buf, binary.BigEndian, tx.Flags)
	}

	writeFieldHeader(&buf, stUInt32, 4) // Sequence
	binary.Write(&buf, binary.BigEndian, tx.Sequence)

	if tx.LastLedgerSequence != 0 {
		writeFieldHeader(&buf, stUInt32, 27) // LastLedgerSequence
		binary.Write(&buf, binary.BigEndian, tx.LastLedgerSequence)
	}

	if tx.Amount != nil {
		writeFieldHeader(&buf, stAmount, 1) // Amount
		if err := writeAmount(&buf, tx.Amount); err != nil {
			return nil, err
		}
	}

	if tx.LimitAmount != nil {
		writeFieldHeader(&buf, stAmount, 3) // LimitAmount
		if err := writeAmount(&buf, tx.LimitAmount); err != nil {
			return nil, err
		}
	}

	writeFieldHeader(&buf, stAmount, 8) // Fee
	fee := tx.Fee
	if fee == "" {
		fee = "0"
	}
	if err := writeAmount(&buf, &Amount{Value: fee}); err != nil {
		return nil, fmt.Errorf("invalid fee: %w", err)
	}

	if tx.SendMax != nil {
		writeFieldHeader(&buf, stAmount, 9) // SendMax
		if err := writeAmount(&buf, tx.SendMax); err != nil {
			return nil, err
		}
	}

	if tx.Amount2 != nil {
		writeFieldHeader(&buf, stAmount, 11) // Amount2
		if err := writeAmount(&buf, tx.Amount2); err != nil {
			return nil, err
		}
	}

	pubKey, err := helpers.HexToBytes(tx.SigningPubKey)
	if err != nil {
		return nil, fmt.Errorf("invalid signing public key: %w", err)
	}
	writeFieldHeader(&buf, stBlob, 3) // SigningPubKey
	writeVL(&buf, pubKey)

	if !forSigning && tx.TxnSignature != "" {
		sig, err := helpers.HexToBytes(tx.TxnSignature)
		if err != nil {
			return nil, fmt.Errorf("invalid signature: %w", err)
		}
		writeFieldHeader(&buf, stBlob, 4) // TxnSignature
		writeVL(&buf, sig)
	}

	account, err := wallet.DecodeAccountID(tx.Account)
	if err != nil {
		return nil, fmt.Errorf("invalid account %q: %w", tx.Account, err)
	}
	writeFieldHeader(&buf, stAccountID, 1) // Account
	writeVL(&buf, account)

	if tx.Destination != "" {
		destination, err := wallet.DecodeAccountID(tx.Destination)
		if err != nil {
			return nil, fmt.Errorf("invalid destination %q: %w", tx.Destination, err)
		}
		writeFieldHeader(&buf, stAccountID, 3) // Destination
		writeVL(&buf, destination)
	}

	if len(tx.Memos) > 0 {
		writeFieldHeader(&buf, stArray, 9) // Memos
		for _, m := range tx.Memos {
			writeFieldHeader(&buf, stObject, 10) // Memo
			if err := writeMemo(&buf, m.Memo); err != nil {
				return nil, err
			}
			writeFieldHeader(&buf, stObject, 1) // end of object
		}
		writeFieldHeader(&buf, stArray, 1) // end of array
	}

	if len(tx.Paths) > 0 {
		writeFieldHeader(&buf, stPathSet, 1) // Paths
		if err := writePathSet(&buf, tx.Paths); err != nil {
			return nil, err
		}
	}

	if tx.Asset != nil {
		writeFieldHeader(&buf, stIssue, 3) // Asset
		if err := writeIssue(&buf, *tx.Asset); err != nil {
			return nil, err
		}
	}

	if tx.Asset2 != nil {
		writeFieldHeader(&buf, stIssue, 4) // Asset2
		if err := writeIssue(&buf, *tx.Asset2); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// writeMemo emits the hex-encoded memo fields in canonical order.
func writeMemo(buf *bytes.Buffer, m Memo) error {
	fields := []struct {
		code  int
		value string
	}{
		{12, m.MemoType},
		{13, m.MemoData},
		{14, m.MemoFormat},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		data, err := helpers.HexToBytes(f.value)
		if err != nil {
			return fmt.Errorf("invalid memo field: %w", err)
		}
		writeFieldHeader(buf, stBlob, f.code)
		writeVL(buf, data)
	}
	return nil
}

// writeFieldHeader emits the field ID for a type/field code pair. Codes
// below 16 pack into a single byte.
func writeFieldHeader(buf *bytes.Buffer, typeCode, fieldCode int) {
	switch {
	case typeCode < 16 && fieldCode < 16:
		buf.WriteByte(byte(typeCode<<4 | fieldCode))
	case typeCode < 16:
		buf.WriteByte(byte(typeCode << 4))
		buf.WriteByte(byte(fieldCode))
	case fieldCode < 16:
		buf.WriteByte(byte(fieldCode))
		buf.WriteByte(byte(typeCode))
	default:
		buf.WriteByte(0)
		buf.WriteByte(byte(typeCode))
		buf.WriteByte(byte(fieldCode))
	}
}

// writeVL emits a variable-length prefix followed by the data.
func writeVL(buf *bytes.Buffer, data []byte) {
	n := len(data)
	switch {
	case n <= 192:
		buf.WriteByte(byte(n))
	case n <= 12480:
		n -= 193
		buf.WriteByte(byte(193 + n>>8))
		buf.WriteByte(byte(n & 0xFF))
	default:
		n -= 12481
		buf.WriteByte(byte(241 + n>>16))
		buf.WriteByte(byte(n >> 8 & 0xFF))
		buf.WriteByte(byte(n & 0xFF))
	}
	buf.Write(data)
}

const (
	amountIssuedBit   = uint64(1) << 63
	amountPositiveBit = uint64(1) << 62
	maxDrops          = uint64(100_000_000_000) * 1_000_000
)

// writeAmount emits the 64-bit native form or the 384-bit issued form.
func writeAmount(buf *bytes.Buffer, a *Amount) error {
	if a.IsNative() {
		var drops uint64
		if _, err := fmt.Sscanf(a.Value, "%d", &drops); err != nil {
			return fmt.Errorf("invalid drops value %q", a.Value)
		}
		if drops > maxDrops {
			return fmt.Errorf("drops value %d exceeds maximum", drops)
		}
		return binary.Write(buf, binary.BigEndian, drops|amountPositiveBit)
	}

	word, err := issuedValueBits(a.Value)
	if err != nil {
		return err
	}
	if err := binary.Write(buf, binary.BigEndian, word); err != nil {
		return err
	}

	currency, err := currencyBytes(a.Currency)
	if err != nil {
		return err
	}
	buf.Write(currency)

	issuer, err := wallet.DecodeAccountID(a.Issuer)
	if err != nil {
		return fmt.Errorf("invalid issuer %q: %w", a.Issuer, err)
	}
	buf.Write(issuer)
	return nil
}

// issuedValueBits encodes a decimal token value into the XRPL 64-bit issued
// amount format: issued bit, sign bit, biased exponent, 54-bit mantissa
// normalized to [1e15, 1e16).
func issuedValueBits(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	negative := strings.HasPrefix(value, "-")
	value = strings.TrimPrefix(value, "-")
	if negative {
		return 0, fmt.Errorf("negative amounts are not supported")
	}

	intPart, fracPart, _ := strings.Cut(value, ".")
	digits := intPart + fracPart
	mantissa, ok := new(big.Int).SetString(strings.TrimLeft(digits, "0"), 10)
	if digits == "" || (!ok && strings.Trim(digits, "0") != "") {
		return 0, fmt.Errorf("invalid token value %q", value)
	}
	if mantissa == nil || mantissa.Sign() == 0 {
		// Canonical zero.
		return amountIssuedBit, nil
	}

	exponent := -len(fracPart)
	lo := big.NewInt(1_000_000_000_000_000)  // 1e15
	hi := big.NewInt(10_000_000_000_000_000) // 1e16
	ten := big.NewInt(10)
	for mantissa.Cmp(lo) < 0 {
		mantissa.Mul(mantissa, ten)
		exponent--
	}
	for mantissa.Cmp(hi) >= 0 {
		rem := new(big.Int)
		mantissa.QuoRem(mantissa, ten, rem)
		if rem.Sign() != 0 {
			return 0, fmt.Errorf("token value %q has too much precision", value)
		}
		exponent++
	}
	if exponent < -96 || exponent > 80 {
		return 0, fmt.Errorf("token value %q out of range", value)
	}

	word := amountIssuedBit | amountPositiveBit
	word |= uint64(exponent+97) << 54
	word |= mantissa.Uint64()
	return word, nil
}

// currencyBytes produces the 160-bit currency field. Three-letter codes use
// the standard placement at bytes 12-14; 40-hex codes map directly; the
// native currency is all zeroes.
func currencyBytes(currency string) ([]byte, error) {
	out := make([]byte, 20)
	switch {
	case currency == "" || currency == "XRP":
		return out, nil
	case len(currency) == 40 && helpers.IsHex(currency):
		return helpers.HexToBytes(currency)
	case len(currency) == 3:
		copy(out[12:], currency)
		return out, nil
	default:
		return nil, fmt.Errorf("invalid currency code %q", currency)
	}
}

// Path step type bits.
const (
	pathStepAccount  = 0x01
	pathStepCurrency = 0x10
	pathStepIssuer   = 0x20
)

func writePathSet(buf *bytes.Buffer, paths [][]PathStep) error {
	for i, path := range paths {
		if i > 0 {
			buf.WriteByte(0xFF)
		}
		for _, step := range path {
			var stepType byte
			if step.Account != "" {
				stepType |= pathStepAccount
			}
			if step.Currency != "" {
				stepType |= pathStepCurrency
			}
			if step.Issuer != "" {
				stepType |= pathStepIssuer
			}
			if stepType == 0 {
				return fmt.Errorf("empty path step")
			}
			buf.WriteByte(stepType)
			if step.Account != "" {
				account, err := wallet.DecodeAccountID(step.Account)
				if err != nil {
					return fmt.Errorf("invalid path account %q: %w", step.Account, err)
				}
				buf.Write(account)
			}
			if step.Currency != "" {
				currency, err := currencyBytes(step.Currency)
				if err != nil {
					return err
				}
				buf.Write(currency)
			}
			if step.Issuer != "" {
				issuer, err := wallet.DecodeAccountID(step.Issuer)
				if err != nil {
					return fmt.Errorf("invalid path issuer %q: %w", step.Issuer, err)
				}
				buf.Write(issuer)
			}
		}
	}
	buf.WriteByte(0x00)
	return nil
}

// writeIssue emits an Issue field: the currency, followed by the issuer for
// non-native assets.
func writeIssue(buf *bytes.Buffer, issue Issue) error {
	if issue.IsNative() {
		buf.Write(make([]byte, 20))
		return nil
	}
	currency, err := currencyBytes(issue.Currency)
	if err != nil {
		return err
	}
	buf.Write(currency)
	issuer, err := wallet.DecodeAccountID(issue.Issuer)
	if err != nil {
		return fmt.Errorf("invalid issuer %q: %w", issue.Issuer, err)
	}
	buf.Write(issuer)
	return nil
}
