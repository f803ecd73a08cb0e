package sqlstmt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.sqlitecoord.dev/core/dberrors"
	"go.sqlitecoord.dev/core/storage"
)

func TestNormalizeParamsBasicTypes(t *testing.T) {
	out, err := NormalizeParams([]any{nil, true, false, 7, int32(8), int64(9), "hi", []byte("blob")})
	require.NoError(t, err)
	require.Equal(t, []storage.Value{
		storage.Null(),
		storage.Int64(1),
		storage.Int64(0),
		storage.Int64(7),
		storage.Int64(8),
		storage.Int64(9),
		storage.Text("hi"),
		storage.Blob([]byte("blob")),
	}, out)
}

func TestNormalizeParamsSafeIntegerRoundTrips(t *testing.T) {
	out, err := NormalizeParams([]any{uint64(9007199254740991)})
	require.NoError(t, err)
	require.Equal(t, []storage.Value{storage.Int64(9007199254740991)}, out)
}

func TestNormalizeParamsIntegerOutOfRange(t *testing.T) {
	_, err := NormalizeParams([]any{uint64(9223372036854775808)})
	require.True(t, dberrors.As(err, dberrors.IntegerOutOfRange))
}

func TestNormalizeParamsNonFiniteFloat(t *testing.T) {
	_, err := NormalizeParams([]any{1.0 / zero()})
	require.True(t, dberrors.As(err, dberrors.NumericNotFinite))
}

func TestNormalizeParamsUnsupportedType(t *testing.T) {
	_, err := NormalizeParams([]any{struct{}{}})
	require.True(t, dberrors.As(err, dberrors.UnsupportedParamType))
}

func TestCheckParamCount(t *testing.T) {
	require.NoError(t, CheckParamCount(2, 2))
	require.True(t, dberrors.As(CheckParamCount(0, 1), dberrors.NoParametersExpected))
	require.True(t, dberrors.As(CheckParamCount(2, 1), dberrors.ParameterCountMismatch))
}

func zero() float64 { return 0 }
