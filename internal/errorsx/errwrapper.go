// Package errorsx maps the errors occurring while loading key material,
// attaching TLS to a stream, handshaking, and detaching into stable failure
// strings and into a small taxonomy of error kinds.
package errorsx

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the kind of an error. Each kind tells the caller what they can
// do about the failure (see the documentation of each constant).
type Kind int

const (
	// KindUnknown is the kind of errors we did not classify.
	KindUnknown = Kind(iota)

	// KindConfig is a malformed or contradictory configuration or key
	// material, detected before any I/O. Fix the input and try again.
	KindConfig

	// KindIO is a transport or file-system failure.
	KindIO

	// KindDecrypt means that the passphrase of an encrypted key is
	// missing or wrong.
	KindDecrypt

	// KindState means the operation is invalid for the session's current
	// state. This is a programmer error.
	KindState

	// KindTimeout means the deadline elapsed during a handshake or a detach.
	KindTimeout

	// KindProtocol means the TLS engine rejected the handshake (e.g., bad
	// certificate, no shared cipher or version).
	KindProtocol
)

// These sentinels allow callers to check the kind using errors.Is.
var (
	ErrConfig   = errors.New("config_error")
	ErrIO       = errors.New("io_error")
	ErrDecrypt  = errors.New("decrypt_error")
	ErrState    = errors.New("state_error")
	ErrTimeout  = errors.New("timeout_error")
	ErrProtocol = errors.New("protocol_error")
)

var kindSentinels = map[Kind]error{
	KindConfig:   ErrConfig,
	KindIO:       ErrIO,
	KindDecrypt:  ErrDecrypt,
	KindState:    ErrState,
	KindTimeout:  ErrTimeout,
	KindProtocol: ErrProtocol,
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if sentinel, found := kindSentinels[k]; found {
		return sentinel.Error()
	}
	return "unknown_error"
}

// Sentinel returns the sentinel error for this kind or nil.
func (k Kind) Sentinel() error {
	return kindSentinels[k]
}

// ErrWrapper is our error wrapper for Go errors. The key objective of
// this structure is to properly set Failure, which is also returned by
// the Error() method, to be one of the stable failure strings.
type ErrWrapper struct {
	// Kind is the kind of error.
	Kind Kind

	// Failure is the failure string. This is either one of the FailureXXX
	// strings or any other string like `unknown_failure: ...`. The latter
	// represents an error that we have not yet mapped to a failure.
	Failure string

	// Operation is the operation that failed (e.g., TLSHandshakeOperation).
	Operation string

	// WrappedErr is the error that we're wrapping.
	WrappedErr error
}

// Error returns the failure string for this error.
func (e *ErrWrapper) Error() string {
	return e.Failure
}

// Unwrap allows to access the underlying error.
func (e *ErrWrapper) Unwrap() error {
	return e.WrappedErr
}

// Is makes errors.Is(err, ErrTimeout) and friends work.
func (e *ErrWrapper) Is(target error) bool {
	sentinel := e.Kind.Sentinel()
	return sentinel != nil && sentinel == target
}

// MarshalJSON converts an ErrWrapper to a JSON value.
func (e *ErrWrapper) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Failure)
}

// classifier is the type of the function that maps a Go error
// to a failure string.
type classifier func(err error) string

// NewErrWrapper creates a new ErrWrapper using the given kind, classifier,
// operation name, and underlying error.
//
// This function panics if classifier is nil, or operation
// is the empty string or error is nil.
//
// If the err argument has already been wrapped, the returned error
// wrapper will use the same classification string and the same kind
// unless kind is not KindUnknown, in which case kind wins. The
// innermost operation is kept, because it's the one that failed.
func NewErrWrapper(kind Kind, c classifier, op string, err error) *ErrWrapper {
	var wrapper *ErrWrapper
	if errors.As(err, &wrapper) {
		if kind == KindUnknown {
			kind = wrapper.Kind
		}
		return &ErrWrapper{
			Kind:       kind,
			Failure:    wrapper.Failure,
			Operation:  wrapper.Operation,
			WrappedErr: err,
		}
	}
	if c == nil {
		panic("nil classifier")
	}
	if op == "" {
		panic("empty op")
	}
	if err == nil {
		panic("nil err")
	}
	return &ErrWrapper{
		Kind:       kind,
		Failure:    c(err),
		Operation:  op,
		WrappedErr: err,
	}
}

// MaybeNewErrWrapper is like NewErrWrapper except that this
// function won't panic if passed a nil error.
func MaybeNewErrWrapper(kind Kind, c classifier, op string, err error) error {
	if err != nil {
		return NewErrWrapper(kind, c, op, err)
	}
	return nil
}

// NewStateError returns a KindState error for the given operation.
func NewStateError(op string, format string, v ...interface{}) *ErrWrapper {
	return &ErrWrapper{
		Kind:       KindState,
		Failure:    FailureInvalidState,
		Operation:  op,
		WrappedErr: fmt.Errorf(format, v...),
	}
}

// NewConfigError returns a KindConfig error for the given operation.
func NewConfigError(op string, format string, v ...interface{}) *ErrWrapper {
	return &ErrWrapper{
		Kind:       KindConfig,
		Failure:    FailureInvalidConfiguration,
		Operation:  op,
		WrappedErr: fmt.Errorf(format, v...),
	}
}

// NewDecryptError returns a KindDecrypt error for the given operation.
func NewDecryptError(op string, err error) *ErrWrapper {
	return &ErrWrapper{
		Kind:       KindDecrypt,
		Failure:    FailureDecryptError,
		Operation:  op,
		WrappedErr: err,
	}
}

// NewIOError wraps an error occurred while performing I/O on a socket. The
// kind is KindTimeout when a deadline expired and KindIO otherwise.
func NewIOError(op string, err error) *ErrWrapper {
	wrapper := NewErrWrapper(KindUnknown, ClassifyGenericError, op, err)
	if wrapper.Kind == KindUnknown {
		wrapper.Kind = KindOfIOFailure(wrapper.Failure)
	}
	return wrapper
}

// KindOfIOFailure returns the kind of an I/O failure string.
func KindOfIOFailure(failure string) Kind {
	switch failure {
	case FailureGenericTimeoutError, FailureTimedOut:
		return KindTimeout
	default:
		return KindIO
	}
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var wrapper *ErrWrapper
	if errors.As(err, &wrapper) {
		return wrapper.Kind
	}
	return KindUnknown
}

// ErrorString returns the stable failure string of err. The return value is
// never empty: nil maps to "ok" and errors we cannot classify map to
// `unknown_failure: ...` with IP addresses scrubbed.
func ErrorString(err error) string {
	if err == nil {
		return "ok"
	}
	return ClassifyGenericError(err)
}
