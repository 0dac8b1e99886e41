// Package runtimex contains runtime extensions. This package is inspired to
// https://pkg.go.dev/github.com/m-lab/go/rtx, except that it's simpler.
package runtimex

import (
	"errors"
	"fmt"

	"github.com/ooni/btls/internal/model"
)

// PanicOnError calls panic() if err is not nil.
func PanicOnError(err error, message string) {
	if err != nil {
		panic(fmt.Errorf("%s: %w", message, err))
	}
}

// Assert calls panic if assertion is false.
func Assert(assertion bool, message string) {
	if !assertion {
		panic(message)
	}
}

// PanicIfFalse calls panic if assertion is false.
func PanicIfFalse(assertion bool, message string) {
	Assert(assertion, message)
}

// PanicIfTrue calls panic if assertion is true.
func PanicIfTrue(assertion bool, message string) {
	Assert(!assertion, message)
}

// PanicIfNil calls panic if the given interface is nil.
func PanicIfNil(v interface{}, message string) {
	PanicIfTrue(v == nil, message)
}

// ErrPanic is the error wrapped by CatchPanic.
var ErrPanic = errors.New("runtimex: recovered panic")

// Try0 panics if err is not nil.
func Try0(err error) {
	PanicOnError(err, "Try0")
}

// Try1 panics if err is not nil, otherwise returns v1.
func Try1[T1 any](v1 T1, err error) T1 {
	PanicOnError(err, "Try1")
	return v1
}

// CatchLogAndIgnorePanic is a function that catches and ignores panics. You
// can invoke this function as follows:
//
//	defer runtimex.CatchLogAndIgnorePanic(logger, "prefix")
//
// and rest assured that any panic will not propagate further. This function
// will log the panic using the given logger and prefix.
func CatchLogAndIgnorePanic(logger model.Logger, prefix string) {
	if r := recover(); r != nil {
		logger.Warnf("%s: caught and ignored panic: %+v", prefix, r)
	}
}

// CatchPanic is like CatchLogAndIgnorePanic but turns the panic into
// an error wrapping ErrPanic and stores it into errp.
//
//	defer runtimex.CatchPanic(&err)
func CatchPanic(errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("%w: %+v", ErrPanic, r)
	}
}
