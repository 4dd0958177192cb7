// Package errkind declares a small error taxonomy so callers can branch
// on error category (e.g. to decide whether a failure is locally
// recoverable) without string matching, using the standard
// wrap-with-%w discipline throughout.
package errkind

import "fmt"

// Kind is one of the eight error categories this pipeline distinguishes.
type Kind string

const (
	Config        Kind = "config"
	Network       Kind = "network"
	RPC           Kind = "rpc_error"
	Decode        Kind = "decode"
	Profitability Kind = "profitability"
	Submission    Kind = "submission"
	Signing       Kind = "signing"
	Fatal         Kind = "fatal"
)

// Error wraps a cause with a Kind, letting callers use errors.As to branch
// on category while errors.Unwrap still reaches the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Is reports whether err (or something it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			if e.Kind == k {
				return true
			}
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return false
}
