package chirp

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed API call.
type ErrorKind int

const (
	// KindUnreachable means no response was received at all: timeout, DNS
	// failure, connection refused.
	KindUnreachable ErrorKind = iota
	// KindRejected means the server answered with a non-success status.
	KindRejected
)

// ErrUnavailable is returned when the availability prober spends its whole
// attempt budget without the service reporting ready.
var ErrUnavailable = errors.New("service unavailable")

// RequestError is the uniform failure shape every API call returns.
type RequestError struct {
	Kind    ErrorKind
	Status  int    // HTTP status, set for KindRejected only
	Message string // message extracted from the response body, when present
	Err     error  // underlying transport error, for KindUnreachable
}

func (e *RequestError) Error() string {
	if e.Kind == KindUnreachable {
		return fmt.Sprintf("server unreachable: %v", e.Err)
	}
	return fmt.Sprintf("request rejected (%d): %s", e.Status, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Unreachable reports whether err means no response was received.
func Unreachable(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == KindUnreachable
}

// Rejected reports whether the server answered err with a non-success status.
func Rejected(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == KindRejected
}
