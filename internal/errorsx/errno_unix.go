//go:build unix

package errorsx

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// classifySyscallError converts a syscall error to the
// proper failure string, or returns "" if not found.
func classifySyscallError(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ""
	}
	switch errno {
	case unix.EADDRINUSE:
		return FailureAddressInUse
	case unix.EBADF:
		return FailureBadFileDescriptor
	case unix.ECONNABORTED:
		return FailureConnectionAborted
	case unix.ECONNREFUSED:
		return FailureConnectionRefused
	case unix.ECONNRESET, unix.EPIPE:
		return FailureConnectionReset
	case unix.EHOSTUNREACH:
		return FailureHostUnreachable
	case unix.ENETDOWN:
		return FailureNetworkDown
	case unix.ENETUNREACH:
		return FailureNetworkUnreachable
	case unix.ENOTCONN:
		return FailureNotConnected
	case unix.EACCES, unix.EPERM:
		return FailurePermissionDenied
	case unix.ETIMEDOUT:
		return FailureTimedOut
	default:
		return ""
	}
}
