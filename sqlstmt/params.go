package sqlstmt

import (
	"math"

	"go.sqlitecoord.dev/core/dberrors"
	"go.sqlitecoord.dev/core/storage"
)

// NormalizeParams converts caller-supplied values into storage.Value per
// spec.md §4.2's normalization table.
func NormalizeParams(args []any) ([]storage.Value, error) {
	var out = make([]storage.Value, len(args))
	for i, a := range args {
		v, err := normalizeOne(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func normalizeOne(a any) (storage.Value, error) {
	switch t := a.(type) {
	case nil:
		return storage.Null(), nil
	case bool:
		if t {
			return storage.Int64(1), nil
		}
		return storage.Int64(0), nil
	case int:
		return storage.Int64(int64(t)), nil
	case int32:
		return storage.Int64(int64(t)), nil
	case int64:
		return storage.Int64(t), nil
	case uint64:
		if t > uint64(math.MaxInt64) {
			return storage.Value{}, dberrors.Newf(dberrors.IntegerOutOfRange, "integer %d is outside i64 range", t)
		}
		return storage.Int64(int64(t)), nil
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case string:
		return storage.Text(t), nil
	case []byte:
		return storage.Blob(t), nil
	default:
		return storage.Value{}, dberrors.Newf(dberrors.UnsupportedParamType, "unsupported parameter type %T", a)
	}
}

func normalizeFloat(f float64) (storage.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return storage.Value{}, dberrors.New(dberrors.NumericNotFinite, "float parameter is NaN or infinite")
	}
	return storage.Real(f), nil
}

// CheckParamCount enforces spec.md §4.2's parameter count policy given the
// number of distinct placeholder slots a statement declares.
func CheckParamCount(placeholderCount, paramCount int) error {
	if placeholderCount == 0 && paramCount > 0 {
		return dberrors.New(dberrors.NoParametersExpected, "parameters supplied but statement has no placeholders")
	}
	if placeholderCount != paramCount {
		return dberrors.Newf(dberrors.ParameterCountMismatch, "expected %d parameters, got %d", placeholderCount, paramCount).
			WithDetail(map[string]any{"expected": placeholderCount, "got": paramCount})
	}
	return nil
}
