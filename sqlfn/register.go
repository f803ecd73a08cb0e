package sqlfn

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"

	"go.sqlitecoord.dev/core/dberrors"
)

func dberrorsUnsupported(fn string, x any) error {
	return dberrors.Newf(dberrors.UnsupportedParamType, "%s expects hex text, got %T", fn, x)
}

// Register installs a go-sqlite3 driver under driverName whose every
// connection carries the full custom function registry spec.md §4.3 names:
// FLOAT_NEGATE, FLOAT_IS_ZERO, FLOAT_ZERO_HEX, FLOAT_SUM, BIGINT_SUM, and
// RAIN_MATH_PROCESS. storage.Adapter.Open calls this once per Adapter with
// a unique driverName, since sql.Register panics on a duplicate name.
func Register(driverName string) error {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("FLOAT_NEGATE", negateSQL, true); err != nil {
				return err
			}
			if err := conn.RegisterFunc("FLOAT_IS_ZERO", isZeroSQL, true); err != nil {
				return err
			}
			if err := conn.RegisterFunc("FLOAT_ZERO_HEX", zeroHexSQL, true); err != nil {
				return err
			}
			if err := conn.RegisterFunc("RAIN_MATH_PROCESS", rainMathProcess, true); err != nil {
				return err
			}
			if err := conn.RegisterAggregator("FLOAT_SUM", newFloatSumAgg, true); err != nil {
				return err
			}
			if err := conn.RegisterAggregator("BIGINT_SUM", newBigintSumAgg, true); err != nil {
				return err
			}
			return nil
		},
	})
	return nil
}

func negateSQL(x any) (any, error) {
	if x == nil {
		return nil, nil
	}
	s, ok := x.(string)
	if !ok {
		return nil, dberrorsUnsupported("FLOAT_NEGATE", x)
	}
	return Negate(s)
}

func isZeroSQL(x any) (any, error) {
	if x == nil {
		return nil, nil
	}
	s, ok := x.(string)
	if !ok {
		return nil, dberrorsUnsupported("FLOAT_IS_ZERO", x)
	}
	return IsZero(s)
}

func zeroHexSQL() (string, error) {
	return ZeroHex.String(), nil
}

// rainMathProcess is a two-argument decimal combinator exercising the
// Float hex codec end to end: the sum of a and b, re-encoded canonically.
func rainMathProcess(a, b any) (any, error) {
	if a == nil || b == nil {
		return nil, nil
	}
	as, ok := a.(string)
	if !ok {
		return nil, dberrorsUnsupported("RAIN_MATH_PROCESS", a)
	}
	bs, ok := b.(string)
	if !ok {
		return nil, dberrorsUnsupported("RAIN_MATH_PROCESS", b)
	}
	ah, err := ParseFloatHex(as)
	if err != nil {
		return nil, err
	}
	bh, err := ParseFloatHex(bs)
	if err != nil {
		return nil, err
	}
	enc, err := EncodeDecimal(ah.Decimal().Add(bh.Decimal()))
	if err != nil {
		return nil, err
	}
	return enc.String(), nil
}
