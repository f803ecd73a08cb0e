// Package sqlfn is the Custom Function Registry (spec.md §4.3): domain
// scalar and aggregate SQL functions backed by an external decimal-float
// library (github.com/shopspring/decimal), registered into a fresh
// go-sqlite3 driver/connection on every Open (storage.Adapter.Open).
package sqlfn

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"go.sqlitecoord.dev/core/dberrors"
)

// FloatHex is the canonical 32-byte decimal-float encoding spec.md's
// GLOSSARY defines: sign (1 byte) + base-10 exponent (4 bytes, big-endian
// two's complement) + unsigned coefficient magnitude (27 bytes,
// big-endian), rendered as a lowercase 0x-prefixed 66-character string.
type FloatHex [32]byte

const floatHexCoeffBytes = 27

// ZeroHex is the canonical encoding of zero.
var ZeroHex = FloatHex{}

// String renders the canonical lowercase 0x-prefixed hex form.
func (h FloatHex) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// EncodeDecimal converts a decimal.Decimal to its canonical FloatHex
// encoding. The coefficient must fit in floatHexCoeffBytes bytes, true
// for any value arising from parsing a FloatHex and performing a bounded
// number of Add/Neg operations on it, which is the registry's only use.
func EncodeDecimal(d decimal.Decimal) (FloatHex, error) {
	var out FloatHex
	var coeff = d.Coefficient() // *big.Int, may be negative
	var sign byte
	if coeff.Sign() < 0 {
		sign = 1
		coeff = new(big.Int).Neg(coeff)
	}
	out[0] = sign
	binary.BigEndian.PutUint32(out[1:5], uint32(d.Exponent()))

	var mag = coeff.Bytes()
	if len(mag) > floatHexCoeffBytes {
		return FloatHex{}, dberrors.New(dberrors.FailedToParseHex, "decimal coefficient overflows the 27-byte Float hex payload")
	}
	copy(out[32-len(mag):], mag)
	return out, nil
}

// Decimal decodes the FloatHex back to a decimal.Decimal.
func (h FloatHex) Decimal() decimal.Decimal {
	var exp = int32(binary.BigEndian.Uint32(h[1:5]))
	var mag = new(big.Int).SetBytes(h[5:32])
	if h[0] != 0 {
		mag = new(big.Int).Neg(mag)
	}
	return decimal.NewFromBigInt(mag, exp)
}

// ParseFloatHex parses a caller-supplied Float hex string per spec.md
// §4.3: surrounding whitespace trimmed, mixed-case hex digits accepted,
// the uppercase "0X" prefix explicitly rejected, empty input rejected.
func ParseFloatHex(s string) (FloatHex, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FloatHex{}, dberrors.New(dberrors.EmptyStringNotHex, "Float hex input is empty")
	}
	if strings.HasPrefix(s, "0X") {
		return FloatHex{}, dberrors.New(dberrors.FailedToParseHex, "uppercase 0X prefix is not accepted")
	}
	if !strings.HasPrefix(s, "0x") {
		return FloatHex{}, dberrors.Newf(dberrors.FailedToParseHex, "missing 0x prefix: %q", s)
	}
	var body = s[2:]
	if len(body) != 64 {
		return FloatHex{}, dberrors.Newf(dberrors.FailedToParseHex, "expected 64 hex digits after 0x, got %d", len(body))
	}
	var raw, err = hex.DecodeString(body)
	if err != nil {
		return FloatHex{}, dberrors.Newf(dberrors.FailedToParseHex, "invalid hex digits: %v", err)
	}
	var out FloatHex
	copy(out[:], raw)
	return out, nil
}

// Negate returns the additive inverse of x, as a hex string.
// FLOAT_NEGATE(FLOAT_NEGATE(x)) == x byte-for-byte (spec.md P2).
func Negate(hexStr string) (string, error) {
	var h, err = ParseFloatHex(hexStr)
	if err != nil {
		return "", err
	}
	var enc, eerr = EncodeDecimal(h.Decimal().Neg())
	if eerr != nil {
		return "", eerr
	}
	return enc.String(), nil
}

// IsZero reports (as 0/1) whether x parses to zero.
func IsZero(hexStr string) (int64, error) {
	var h, err = ParseFloatHex(hexStr)
	if err != nil {
		return 0, err
	}
	if h.Decimal().IsZero() {
		return 1, nil
	}
	return 0, nil
}

// floatSumAgg accumulates FLOAT_SUM. Empty/all-NULL input yields ZeroHex
// (spec.md P4).
type floatSumAgg struct {
	sum decimal.Decimal
	err error
}

func newFloatSumAgg() *floatSumAgg { return &floatSumAgg{} }

func (a *floatSumAgg) Step(x any) {
	if a.err != nil || x == nil {
		return
	}
	s, ok := x.(string)
	if !ok {
		a.err = dberrors.Newf(dberrors.FailedToParseHex, "FLOAT_SUM expects hex text, got %T", x)
		return
	}
	h, err := ParseFloatHex(s)
	if err != nil {
		a.err = err
		return
	}
	a.sum = a.sum.Add(h.Decimal())
}

func (a *floatSumAgg) Done() (string, error) {
	if a.err != nil {
		return "", a.err
	}
	var enc, err = EncodeDecimal(a.sum)
	if err != nil {
		return "", err
	}
	return enc.String(), nil
}
