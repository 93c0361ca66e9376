// Package apperr holds the error taxonomy shared by the gateways, the checkout
// orchestrator and the HTTP layer.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotAuthenticated
	KindNotFound
	KindRemoteUnavailable
	KindDomainRejected
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindNotFound:
		return "not_found"
	case KindRemoteUnavailable:
		return "remote_unavailable"
	case KindDomainRejected:
		return "domain_rejected"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error attaches a Kind and the failing operation to an underlying error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Err: errors.New(msg)}
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// Kinder is implemented by transport errors that know their own kind.
type Kinder interface {
	Kind() Kind
}

// KindOf reports the outermost Kind found in err's chain. Deadline expiry is
// always a timeout.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
