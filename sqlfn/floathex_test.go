package sqlfn

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFloatHexRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "-1", "3.14159", "-2.5", "100000000000000000000"} {
		d, err := decimal.NewFromString(s)
		require.NoError(t, err)

		enc, err := EncodeDecimal(d)
		require.NoError(t, err)
		require.True(t, enc.Decimal().Equal(d), "round trip of %s", s)
	}
}

func TestNegateIsInvolution(t *testing.T) {
	d, err := decimal.NewFromString("42.5")
	require.NoError(t, err)
	h, err := EncodeDecimal(d)
	require.NoError(t, err)

	once, err := Negate(h.String())
	require.NoError(t, err)
	twice, err := Negate(once)
	require.NoError(t, err)
	require.Equal(t, h.String(), twice)
}

func TestIsZero(t *testing.T) {
	z, err := IsZero(ZeroHex.String())
	require.NoError(t, err)
	require.EqualValues(t, 1, z)

	d, _ := decimal.NewFromString("0.0001")
	h, err := EncodeDecimal(d)
	require.NoError(t, err)
	nz, err := IsZero(h.String())
	require.NoError(t, err)
	require.EqualValues(t, 0, nz)
}

func TestParseFloatHexRejectsUppercasePrefix(t *testing.T) {
	_, err := ParseFloatHex("0X" + ZeroHex.String()[2:])
	require.Error(t, err)
}

func TestParseFloatHexRejectsEmpty(t *testing.T) {
	_, err := ParseFloatHex("")
	require.Error(t, err)
}

func TestFloatSumAggEmptyIsZeroHex(t *testing.T) {
	var agg = newFloatSumAgg()
	out, err := agg.Done()
	require.NoError(t, err)
	require.Equal(t, ZeroHex.String(), out)
}

func TestFloatSumAgg(t *testing.T) {
	var agg = newFloatSumAgg()
	for _, s := range []string{"1", "2", "3.5"} {
		d, _ := decimal.NewFromString(s)
		h, err := EncodeDecimal(d)
		require.NoError(t, err)
		agg.Step(h.String())
	}
	agg.Step(nil)

	out, err := agg.Done()
	require.NoError(t, err)

	h, err := ParseFloatHex(out)
	require.NoError(t, err)
	want, _ := decimal.NewFromString("6.5")
	require.True(t, h.Decimal().Equal(want))
}
