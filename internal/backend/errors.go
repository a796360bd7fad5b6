package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a failed backend call.
type Kind int

const (
	KindRequest Kind = iota + 1 // request could not be built
	KindNetwork                 // connection refused, DNS failure, reset
	KindTimeout                 // connect or read deadline exceeded
	KindStatus                  // non-2xx response
	KindDecode                  // body was not the expected JSON envelope
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every Client call that fails.
type Error struct {
	Kind   Kind
	Op     string
	Status int // set when Kind == KindStatus
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("backend %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("backend %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or 0 when err is not a backend Error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

// transportError classifies an error returned by http.Client.Do.
func transportError(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}
