package storage

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
)

// ValueKind discriminates the five cell types spec.md §4.1 enumerates.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt64
	KindReal
	KindText
	KindBlob
)

// Value is a single cell's typed content, produced by column conversion
// (spec.md §4.1 table) and consumed by parameter binding (spec.md §4.2
// table). The same type serves both directions.
type Value struct {
	Kind ValueKind
	I    int64
	R    float64
	S    string
	B    []byte
}

func Null() Value           { return Value{Kind: KindNull} }
func Int64(i int64) Value   { return Value{Kind: KindInt64, I: i} }
func Real(r float64) Value  { return Value{Kind: KindReal, R: r} }
func Text(s string) Value   { return Value{Kind: KindText, S: s} }
func Blob(b []byte) Value   { return Value{Kind: KindBlob, B: b} }

// driverValue converts Value to the form accepted by database/sql's args.
func (v Value) driverValue() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindInt64:
		return v.I
	case KindReal:
		return v.R
	case KindText:
		return v.S
	case KindBlob:
		return v.B
	default:
		panic("unreachable ValueKind")
	}
}

// FromScanned converts a value scanned out of database/sql (already
// normalized by go-sqlite3 to int64/float64/string/[]byte/nil) into Value.
func FromScanned(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case int64:
		return Int64(t)
	case float64:
		return Real(t)
	case string:
		return Text(t)
	case []byte:
		return Blob(t)
	case bool:
		if t {
			return Int64(1)
		}
		return Int64(0)
	default:
		return Text(fmt.Sprintf("%v", t))
	}
}

// maxSafeJSONInt is the largest magnitude integer the spec allows to be
// emitted as a literal JSON number rather than a string (2^53 - 1).
const maxSafeJSONInt = 1<<53 - 1

// MarshalJSON renders the cell per spec.md §4.1: INTEGER as a loss-free
// JSON number when safe, else a string; REAL as a finite JSON number;
// TEXT as a JSON string; BLOB as base64 text (opaque byte sequence);
// NULL as JSON null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt64:
		if v.I > maxSafeJSONInt || v.I < -maxSafeJSONInt {
			return json.Marshal(fmt.Sprintf("%d", v.I))
		}
		return json.Marshal(v.I)
	case KindReal:
		if math.IsNaN(v.R) || math.IsInf(v.R, 0) {
			return nil, fmt.Errorf("storage: cannot marshal non-finite REAL to JSON")
		}
		return json.Marshal(v.R)
	case KindText:
		return json.Marshal(v.S)
	case KindBlob:
		return json.Marshal(base64.StdEncoding.EncodeToString(v.B))
	default:
		panic("unreachable ValueKind")
	}
}

// Row is one ordered record of (column, value) pairs: a plain map would
// lose the declared result-set column ordering spec.md §4.1 requires be
// preserved.
type Row []Cell

// Cell is a single named value within a Row.
type Cell struct {
	Column string
	Value  Value
}

// MarshalJSON writes the row as a JSON object, preserving column order.
// encoding/json sorts map keys, so Row hand-writes the object instead of
// delegating to a map[string]Value.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cell := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		var key, err = json.Marshal(cell.Column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := cell.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RowSet is the ordered array of records spec.md §4.1 describes for
// row-producing statements.
type RowSet []Row

// Result is the outcome of executing one or more statements: either a
// materialized RowSet, or a human-readable affected-row summary.
type Result struct {
	Rows     RowSet // nil for non-row-producing statements
	HasRows  bool
	Summary  string // e.g. "Rows affected: 3"
}

// MarshalJSON renders a row-producing Result as its RowSet; a non-row
// Result as the literal affected-row summary string (spec.md §6).
func (r Result) MarshalJSON() ([]byte, error) {
	if r.HasRows {
		if r.Rows == nil {
			r.Rows = RowSet{}
		}
		return json.Marshal(r.Rows)
	}
	return json.Marshal(r.Summary)
}
