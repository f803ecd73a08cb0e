package sqlfn

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBigIntDecimalAndHex(t *testing.T) {
	n, err := parseBigInt("12345")
	require.NoError(t, err)
	require.Equal(t, "12345", n.String())

	n, err = parseBigInt("-0x10")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(-16).String(), n.String())
}

func TestParseBigIntRejectsUppercaseHexPrefix(t *testing.T) {
	_, err := parseBigInt("0X10")
	require.Error(t, err)
}

func TestParseBigIntRejectsGarbage(t *testing.T) {
	_, err := parseBigInt("not-a-number")
	require.Error(t, err)
}

func TestBigintSumAggEmptyIsZero(t *testing.T) {
	var agg = newBigintSumAgg()
	out, err := agg.Done()
	require.NoError(t, err)
	require.Equal(t, "0", out)
}

func TestBigintSumAgg(t *testing.T) {
	var agg = newBigintSumAgg()
	agg.Step("100")
	agg.Step("-30")
	agg.Step("0x10")
	agg.Step(nil)

	out, err := agg.Done()
	require.NoError(t, err)
	require.Equal(t, "86", out)
}

func TestBigintSumAggOverflow(t *testing.T) {
	var agg = newBigintSumAgg()
	agg.Step(i256Max.String())
	agg.Step("1")

	_, err := agg.Done()
	require.Error(t, err)
}
