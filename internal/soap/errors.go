package soap

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
)

// Fault is a SOAP fault returned by the backend. Text carries faultstring,
// which callers classify by substring.
type Fault struct {
	Service   string
	Operation string
	Code      string
	Text      string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s.%s fault: %s", f.Service, f.Operation, f.Text)
}

func (f *Fault) Kind() apperr.Kind { return apperr.KindDomainRejected }

// TransportError covers everything between us and a well-formed envelope:
// dial failures, non-2xx statuses without a fault, unreadable bodies.
type TransportError struct {
	Service   string
	Operation string
	Status    int
	Err       error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s.%s: http %d: %v", e.Service, e.Operation, e.Status, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Service, e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Kind() apperr.Kind {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return apperr.KindTimeout
	}
	var ne net.Error
	if errors.As(e.Err, &ne) && ne.Timeout() {
		return apperr.KindTimeout
	}
	return apperr.KindRemoteUnavailable
}

// FaultText returns the fault string when err wraps a *Fault.
func FaultText(err error) (string, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Text, true
	}
	return "", false
}
