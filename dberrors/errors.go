// Package dberrors defines the structured error taxonomy shared by every
// layer of the coordination core. Errors of this package cross the
// Inter-Context Bus unchanged, so a follower's observed error is
// indistinguishable in shape from one raised locally.
package dberrors

import (
	"errors"
	"fmt"
)

// Kind is a stable identifier for a class of failure. Kinds are never
// renamed or removed once released, since they are part of the wire
// contract carried over the bus.
type Kind string

const (
	SqlEngine                       Kind = "SqlEngine"
	StorageUnavailable               Kind = "StorageUnavailable"
	NamedParametersUnsupported      Kind = "NamedParametersUnsupported"
	MixedPlaceholderForms           Kind = "MixedPlaceholderForms"
	InvalidParameterIndex           Kind = "InvalidParameterIndex"
	MissingParameterIndex           Kind = "MissingParameterIndex"
	ParameterCountMismatch          Kind = "ParameterCountMismatch"
	NoParametersExpected            Kind = "NoParametersExpected"
	MultiStatementNotAllowedWithParams Kind = "MultiStatementNotAllowedWithParams"
	NumericNotFinite                Kind = "NumericNotFinite"
	IntegerOutOfRange               Kind = "IntegerOutOfRange"
	UnsupportedParamType            Kind = "UnsupportedParamType"
	FailedToParseHex                Kind = "FailedToParseHex"
	EmptyStringNotHex               Kind = "EmptyStringNotHex"
	IntegerOverflow                 Kind = "IntegerOverflow"
	ParseError                      Kind = "ParseError"
	LeaderTimeout                   Kind = "LeaderTimeout"
	BusUnavailable                  Kind = "BusUnavailable"
)

// Error is the structured payload carried by the Handle Facade and across
// the Inter-Context Bus. It deliberately does not implement the stdlib
// wrapping interfaces (Unwrap), Kind is the stable contract, not the Go
// error chain, which wouldn't survive a bus hop anyway.
type Error struct {
	Kind   Kind           `json:"kind"`
	Msg    string         `json:"msg"`
	Detail map[string]any `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil dberrors.Error>"
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds an Error of the given Kind with no detail.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an Error of the given Kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithDetail returns a copy of e with |detail| merged into Detail.
func (e *Error) WithDetail(detail map[string]any) *Error {
	var out = &Error{Kind: e.Kind, Msg: e.Msg, Detail: make(map[string]any, len(e.Detail)+len(detail))}
	for k, v := range e.Detail {
		out.Detail[k] = v
	}
	for k, v := range detail {
		out.Detail[k] = v
	}
	return out
}

// As reports whether err is (or wraps) a *dberrors.Error of the given Kind.
func As(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de != nil && de.Kind == kind
}
