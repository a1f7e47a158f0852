package ledger

import (
	"bytes"
	"crypto/sha512"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/lawas-exchange/xrpfleet/internal/config"
	"github.com/lawas-exchange/xrpfleet/internal/wallet"
	"github.com/lawas-exchange/xrpfleet/pkg/helpers"
)

const (
	testAccount = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	testSeed    = "snoPBrXtMeMyMHUVTgbuqAfg1SUTb"
)

var (
	lawasToken, _ = config.GetToken(config.TokenLAWAS)
	rlusdToken, _ = config.GetToken(config.TokenRLUSD)
)

func TestIssuedValueBits(t *testing.T) {
	tests := []struct {
		value string
		want  uint64
	}{
		// Reference encoding of value 1: mantissa 1e15, exponent -15.
		{"1", 0xD4838D7EA4C68000},
		{"1.0", 0xD4838D7EA4C68000},
		{"0", amountIssuedBit},
		{"0.00", amountIssuedBit},
	}

	for _, tc := range tests {
		got, err := issuedValueBits(tc.value)
		if err != nil {
			t.Errorf("issuedValueBits(%q) error = %v", tc.value, err)
			continue
		}
		if got != tc.want {
			t.Errorf("issuedValueBits(%q) = %016X, want %016X", tc.value, got, tc.want)
		}
	}
}

func TestIssuedValueBitsInvalid(t *testing.T) {
	for _, value := range []string{"", "abc", "-1", "1.2.3"} {
		if _, err := issuedValueBits(value); err == nil {
			t.Errorf("issuedValueBits(%q) expected error", value)
		}
	}
}

func TestWriteAmountNative(t *testing.T) {
	var buf bytes.Buffer
	if err := writeAmount(&buf, XRPAmount(1)); err != nil {
		t.Fatalf("writeAmount() error = %v", err)
	}

	got := binary.BigEndian.Uint64(buf.Bytes())
	if got != 0x4000000000000001 {
		t.Errorf("native amount bits = %016X, want 4000000000000001", got)
	}
}

func TestWriteAmountIssued(t *testing.T) {
	var buf bytes.Buffer
	amount := IssuedAmount("LAWAS", lawasToken.Issuer, "1")
	if err := writeAmount(&buf, amount); err != nil {
		t.Fatalf("writeAmount() error = %v", err)
	}

	// 8 bytes value, 20 bytes currency, 20 bytes issuer.
	if buf.Len() != 48 {
		t.Fatalf("issued amount length = %d, want 48", buf.Len())
	}

	currency := helpers.BytesToHex(buf.Bytes()[8:28])
	if currency != lawasToken.HexCode {
		t.Errorf("currency field = %s, want %s", currency, lawasToken.HexCode)
	}
}

func TestCurrencyBytes(t *testing.T) {
	usd, err := currencyBytes("USD")
	if err != nil {
		t.Fatalf("currencyBytes(USD) error = %v", err)
	}
	if !bytes.Equal(usd[12:15], []byte("USD")) {
		t.Errorf("standard code not placed at bytes 12-14: %X", usd)
	}
	if !helpers.IsZeroBytes(usd[:12]) || !helpers.IsZeroBytes(usd[15:]) {
		t.Errorf("standard code padding not zero: %X", usd)
	}

	xrp, err := currencyBytes("XRP")
	if err != nil {
		t.Fatalf("currencyBytes(XRP) error = %v", err)
	}
	if !helpers.IsZeroBytes(xrp) {
		t.Errorf("native currency should be all zero: %X", xrp)
	}

	lawas, err := currencyBytes(lawasToken.HexCode)
	if err != nil {
		t.Fatalf("currencyBytes(hex) error = %v", err)
	}
	if helpers.BytesToHex(lawas) != lawasToken.HexCode {
		t.Errorf("hex code roundtrip = %X", lawas)
	}
}

func TestFieldHeaderEncoding(t *testing.T) {
	tests := []struct {
		typeCode  int
		fieldCode int
		want      []byte
	}{
		{stUInt16, 2, []byte{0x12}},              // TransactionType
		{stUInt32, 27, []byte{0x20, 0x1B}},       // LastLedgerSequence
		{stPathSet, 1, []byte{0x01, 0x12}},       // Paths
		{stIssue, 3, []byte{0x03, 0x18}},         // Asset
		{stAccountID, 1, []byte{0x81}},           // Account
	}

	for _, tc := range tests {
		var buf bytes.Buffer
		writeFieldHeader(&buf, tc.typeCode, tc.fieldCode)
		if !bytes.Equal(buf.Bytes(), tc.want) {
			t.Errorf("header(%d, %d) = %X, want %X", tc.typeCode, tc.fieldCode, buf.Bytes(), tc.want)
		}
	}
}

func TestSignTrustSet(t *testing.T) {
	keys, err := wallet.DeriveKeyPair(testSeed)
	if err != nil {
		t.Fatalf("DeriveKeyPair() error = %v", err)
	}

	tx := NewTrustSet(testAccount, IssuedAmount("LAWAS", lawasToken.Issuer, config.DefaultTrustlineLimit))
	tx.Sequence = 5
	tx.Fee = "12"
	tx.LastLedgerSequence = 1000

	blob, hash, err := Sign(tx, keys)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if tx.SigningPubKey == "" || tx.TxnSignature == "" {
		t.Error("Sign() should fill SigningPubKey and TxnSignature")
	}
	if !helpers.IsHex(blob) {
		t.Errorf("blob is not hex: %s", blob)
	}
	if len(hash) != 64 || !helpers.IsHex(hash) {
		t.Errorf("hash = %s, want 64 hex chars", hash)
	}

	// The hash commits to the signed blob.
	raw, err := helpers.HexToBytes(blob)
	if err != nil {
		t.Fatalf("blob decode error = %v", err)
	}
	digest := sha512.Sum512(append([]byte{0x54, 0x58, 0x4E, 0x00}, raw...))
	if want := helpers.BytesToHex(digest[:32]); hash != want {
		t.Errorf("hash = %s, want %s", hash, want)
	}

	// The signature covers the payload without itself.
	signingData, err := serialize(tx, true)
	if err != nil {
		t.Fatalf("serialize() error = %v", err)
	}
	if bytes.Contains(signingData, mustHex(t, tx.TxnSignature)) {
		t.Error("signing data must not contain the signature")
	}
}

func TestSignDeterministicPayload(t *testing.T) {
	keys, err := wallet.DeriveKeyPair(testSeed)
	if err != nil {
		t.Fatalf("DeriveKeyPair() error = %v", err)
	}

	build := func() *Transaction {
		tx := NewPayment(testAccount, testAccount, XRPAmount(1000000))
		tx.Sequence = 7
		tx.Fee = "10"
		tx.LastLedgerSequence = 500
		return tx
	}

	_, hash1, err := Sign(build(), keys)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	_, hash2, err := Sign(build(), keys)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if hash1 != hash2 {
		t.Errorf("same payload produced different hashes: %s vs %s", hash1, hash2)
	}
}

func TestSerializeSwapPayment(t *testing.T) {
	amount := IssuedAmount("LAWAS", lawasToken.Issuer, "50")
	sendMax := IssuedAmount("RLUSD", rlusdToken.Issuer, "10")
	tx := NewSwapPayment(testAccount, amount, sendMax, XRPBridgePath(), config.SwapPaymentFlags)
	tx.Sequence = 1
	tx.Fee = "12"
	tx.SigningPubKey = strings.Repeat("00", 33)

	data, err := serialize(tx, true)
	if err != nil {
		t.Fatalf("serialize() error = %v", err)
	}

	// One currency-only path step through XRP: type byte 0x10, 20 zero
	// bytes, end-of-pathset marker.
	pathField := append([]byte{0x01, 0x12, 0x10}, make([]byte, 20)...)
	pathField = append(pathField, 0x00)
	if !bytes.Contains(data, pathField) {
		t.Error("serialized payment missing XRP bridge path")
	}

	var flags [4]byte
	binary.BigEndian.PutUint32(flags[:], config.SwapPaymentFlags)
	if !bytes.Contains(data, append([]byte{0x22}, flags[:]...)) {
		t.Error("serialized payment missing partial payment flags")
	}
}

func TestSerializeAMMDepositOmitsAbsentSide(t *testing.T) {
	asset := TokenIssue("LAWAS", lawasToken.Issuer)
	tx := NewAMMDeposit(testAccount, asset, XRPIssue(), nil, XRPAmount(2000000))
	tx.Sequence = 3
	tx.Fee = "12"
	tx.SigningPubKey = strings.Repeat("00", 33)

	if tx.Flags != AMMDepositSingleAsset {
		t.Errorf("Flags = %08X, want single asset mode", tx.Flags)
	}

	data, err := serialize(tx, true)
	if err != nil {
		t.Fatalf("serialize() error = %v", err)
	}

	// Amount (field 0x61) must be absent, Amount2 (0x6B) present.
	if bytes.Contains(data, []byte{0x61, 0x40}) {
		t.Error("absent Amount side must not be serialized")
	}
	var amount2 [9]byte
	amount2[0] = 0x6B
	binary.BigEndian.PutUint64(amount2[1:], 2000000|amountPositiveBit)
	if !bytes.Contains(data, amount2[:]) {
		t.Error("Amount2 side missing from serialization")
	}

	// Asset is the token side, Asset2 the native all-zero issue.
	issuerID, err := wallet.DecodeAccountID(lawasToken.Issuer)
	if err != nil {
		t.Fatalf("DecodeAccountID() error = %v", err)
	}
	assetField := append([]byte{0x03, 0x18}, mustHex(t, lawasToken.HexCode)...)
	assetField = append(assetField, issuerID...)
	if !bytes.Contains(data, assetField) {
		t.Error("Asset side missing from serialization")
	}
	asset2Field := append([]byte{0x04, 0x18}, make([]byte, 20)...)
	if !bytes.Contains(data, asset2Field) {
		t.Error("native Asset2 side missing from serialization")
	}
}

func TestSerializeRejectsUnknownType(t *testing.T) {
	tx := &Transaction{TransactionType: "AccountSet", Account: testAccount}
	if _, err := serialize(tx, true); err == nil {
		t.Error("expected error for unsupported transaction type")
	}
}

func TestWriteVL(t *testing.T) {
	tests := []struct {
		length     int
		wantPrefix []byte
	}{
		{33, []byte{33}},
		{192, []byte{192}},
		{193, []byte{193, 0}},
		{300, []byte{193, 107}},
	}

	for _, tc := range tests {
		var buf bytes.Buffer
		writeVL(&buf, make([]byte, tc.length))
		got := buf.Bytes()[:len(tc.wantPrefix)]
		if !bytes.Equal(got, tc.wantPrefix) {
			t.Errorf("writeVL(len %d) prefix = %v, want %v", tc.length, got, tc.wantPrefix)
		}
		if buf.Len() != len(tc.wantPrefix)+tc.length {
			t.Errorf("writeVL(len %d) total = %d", tc.length, buf.Len())
		}
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := helpers.HexToBytes(s)
	if err != nil {
		t.Fatalf("invalid hex %q: %v", s, err)
	}
	return b
}

func TestSerializeMemos(t *testing.T) {
	tx := NewPayment(testAccount, testAccount, XRPAmount(1))
	tx.Memos = TextMemo("fleet sweep")

	data, err := serialize(tx, true)
	if err != nil {
		t.Fatalf("serialize() error = %v", err)
	}

	payload := []byte("fleet sweep")
	var want bytes.Buffer
	want.WriteByte(0xF9) // Memos array
	want.WriteByte(0xEA) // Memo object
	want.WriteByte(0x7D) // MemoData
	want.WriteByte(byte(len(payload)))
	want.Write(payload)
	want.WriteByte(0xE1) // end of object
	want.WriteByte(0xF1) // end of array

	if !bytes.Contains(data, want.Bytes()) {
		t.Errorf("serialized transaction missing memo encoding %X", want.Bytes())
	}
}

func TestTextMemoEmpty(t *testing.T) {
	if memos := TextMemo(""); memos != nil {
		t.Errorf("TextMemo(\"\") = %v, want nil", memos)
	}
}
