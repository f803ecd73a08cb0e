package sqlfn

import (
	"math/big"
	"strings"

	"go.sqlitecoord.dev/core/dberrors"
)

// i256Min and i256Max bound BIGINT_SUM's result (spec.md §4.3): a signed
// 256-bit integer, [-(2^255), 2^255 - 1].
var (
	i256Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	i256Min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// parseBigInt accepts either a base-10 signed decimal string or a
// lowercase 0x-prefixed hex string (magnitude only; sign lives outside
// the hex digits, e.g. "-0x10"). The uppercase "0X" prefix is rejected.
func parseBigInt(s string) (*big.Int, error) {
	var trimmed = strings.TrimSpace(s)
	if trimmed == "" {
		return nil, dberrors.New(dberrors.ParseError, "BIGINT_SUM input is empty")
	}

	var neg bool
	var body = trimmed
	if strings.HasPrefix(body, "-") {
		neg = true
		body = body[1:]
	} else if strings.HasPrefix(body, "+") {
		body = body[1:]
	}

	if strings.HasPrefix(body, "0X") {
		return nil, dberrors.Newf(dberrors.ParseError, "uppercase 0X prefix is not accepted: %q", s)
	}

	var n = new(big.Int)
	var base = 10
	if strings.HasPrefix(body, "0x") {
		body = body[2:]
		base = 16
	}
	if _, ok := n.SetString(body, base); !ok {
		return nil, dberrors.Newf(dberrors.ParseError, "cannot parse integer literal %q", s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

// bigintSumAgg accumulates BIGINT_SUM. Empty/all-NULL input yields "0".
type bigintSumAgg struct {
	sum *big.Int
	err error
}

func newBigintSumAgg() *bigintSumAgg { return &bigintSumAgg{sum: new(big.Int)} }

func (a *bigintSumAgg) Step(x any) {
	if a.err != nil || x == nil {
		return
	}
	s, ok := x.(string)
	if !ok {
		a.err = dberrors.Newf(dberrors.ParseError, "BIGINT_SUM expects text, got %T", x)
		return
	}
	n, err := parseBigInt(s)
	if err != nil {
		a.err = err
		return
	}
	a.sum.Add(a.sum, n)
}

func (a *bigintSumAgg) Done() (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if a.sum.Cmp(i256Max) > 0 || a.sum.Cmp(i256Min) < 0 {
		return "", dberrors.Newf(dberrors.IntegerOverflow, "BIGINT_SUM result %s exceeds signed i256 range", a.sum.String())
	}
	return a.sum.String(), nil
}
