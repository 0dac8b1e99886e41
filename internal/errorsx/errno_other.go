//go:build !unix

package errorsx

import (
	"errors"
	"syscall"
)

// classifySyscallError converts a syscall error to the
// proper failure string, or returns "" if not found.
func classifySyscallError(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ""
	}
	switch errno {
	case syscall.ECONNREFUSED:
		return FailureConnectionRefused
	case syscall.ECONNRESET:
		return FailureConnectionReset
	case syscall.ETIMEDOUT:
		return FailureTimedOut
	default:
		return ""
	}
}
