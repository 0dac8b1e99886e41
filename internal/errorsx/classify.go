package errorsx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ooni/btls/internal/scrubber"
)

// ClassifyGenericError maps an error occurred during an operation
// to a failure string. This specific classifier is the most generic
// one. You usually use it when mapping I/O errors. You should check
// whether there is a specific classifier for more specific operations
// (e.g., the TLS handshake).
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// If everything else fails, this classifier returns a string
// like "unknown_failure: XXX" where XXX has been scrubbed
// so to remove any network endpoints from the original error string.
func ClassifyGenericError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	// Classify system errors first. We could use strings for many
	// of them on Unix, but this would fail on Windows.
	if failure := classifySyscallError(err); failure != "" {
		return failure
	}

	if errors.Is(err, context.Canceled) {
		return FailureInterrupted
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return FailureGenericTimeoutError
	}
	if errors.Is(err, fs.ErrNotExist) {
		return FailureFileNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		return FailurePermissionDenied
	}

	if failure := classifyWithStringSuffix(err); failure != "" {
		return failure
	}

	formatted := fmt.Sprintf("unknown_failure: %s", err.Error())
	return scrubber.Scrub(formatted) // scrub IP addresses in the error
}

// classifyWithStringSuffix is a subset of ClassifyGenericError that
// performs classification by looking at error suffixes. This function
// will return an empty string if it cannot classify the error.
func classifyWithStringSuffix(err error) string {
	s := err.Error()
	if strings.HasSuffix(s, "operation was canceled") {
		return FailureInterrupted
	}
	if strings.HasSuffix(s, "EOF") {
		return FailureEOFError
	}
	if strings.HasSuffix(s, "context deadline exceeded") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "i/o timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "use of closed network connection") {
		return FailureConnectionAlreadyClosed
	}
	return "" // not found
}

// These are the messages of the errors crypto/tls returns when it sends
// or receives an alert. The stdlib does not export the alert type for
// TCP connections, so we need to resort to string matching here. Some
// messages carry details after the text (e.g., the offered versions), so
// we match the first entry contained in the error string.
var tlsAlertMessages = []struct {
	message string
	failure string
}{
	{"tls: bad certificate", FailureSSLInvalidCertificate},
	{"tls: unsupported certificate", FailureSSLInvalidCertificate},
	{"tls: revoked certificate", FailureSSLInvalidCertificate},
	{"tls: expired certificate", FailureSSLInvalidCertificate},
	{"tls: unknown certificate authority", FailureSSLUnknownAuthority},
	{"tls: unknown certificate", FailureSSLInvalidCertificate},
	{"tls: certificate required", FailureSSLInvalidCertificate},
	{"tls: unrecognized name", FailureSSLInvalidHostname},
	{"tls: handshake failure", FailureSSLFailedHandshake},
	{"tls: error decrypting message", FailureSSLFailedHandshake},
	{"tls: insufficient security level", FailureSSLFailedHandshake},
	{"tls: no application protocol", FailureSSLFailedHandshake},
	{"tls: protocol version not supported", FailureSSLUnsupportedVersion},
	{"tls: client offered only unsupported versions", FailureSSLUnsupportedVersion},
	{"tls: no cipher suite supported by both client and server", FailureSSLFailedHandshake},
	{"tls: no ECDHE curve supported by both client and server", FailureSSLFailedHandshake},
	{"tls: client didn't provide a certificate", FailureSSLInvalidCertificate},
	{"tls: server didn't provide a certificate", FailureSSLInvalidCertificate},
}

// ClassifyTLSHandshakeError maps an error occurred during the TLS
// handshake to a failure string.
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// If this classifier fails, it calls ClassifyGenericError and
// returns to the caller its return value.
func ClassifyTLSHandshakeError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	var x509HostnameError x509.HostnameError
	if errors.As(err, &x509HostnameError) {
		return FailureSSLInvalidHostname
	}
	var x509UnknownAuthorityError x509.UnknownAuthorityError
	if errors.As(err, &x509UnknownAuthorityError) {
		return FailureSSLUnknownAuthority
	}
	var x509CertificateInvalidError x509.CertificateInvalidError
	if errors.As(err, &x509CertificateInvalidError) {
		return FailureSSLInvalidCertificate
	}
	var recordHeaderError tls.RecordHeaderError
	if errors.As(err, &recordHeaderError) {
		return FailureSSLInvalidRecord
	}
	switch {
	case errors.Is(err, ErrVerifyDepth):
		return FailureSSLInvalidCertificate
	case errors.Is(err, ErrNoServerName):
		return FailureSSLInvalidHostname
	case errors.Is(err, ErrVersionNotEnabled):
		return FailureSSLUnsupportedVersion
	case errors.Is(err, ErrCipherNotEnabled):
		return FailureSSLFailedHandshake
	}
	s := err.Error()
	for _, entry := range tlsAlertMessages {
		if strings.Contains(s, entry.message) {
			return entry.failure
		}
	}
	failure := ClassifyGenericError(err)
	if strings.HasPrefix(failure, "unknown_failure") && strings.Contains(s, "tls: ") {
		return FailureSSLFailedHandshake // other engine-detected protocol errors
	}
	return failure
}

// ErrVerifyDepth indicates that the peer's certificate chain is longer
// than the configured verification depth allows.
var ErrVerifyDepth = errors.New("x509: certificate chain exceeds the verify depth")

// ErrNoServerName indicates that name verification is enabled but
// there is no server name to verify.
var ErrNoServerName = errors.New("tls: name verification required but no server name specified")

// ErrVersionNotEnabled indicates we negotiated a version that is
// not part of the configured set of versions.
var ErrVersionNotEnabled = errors.New("tls: negotiated protocol version not enabled")

// ErrCipherNotEnabled indicates we negotiated a cipher suite that
// is not part of the configured cipher suites.
var ErrCipherNotEnabled = errors.New("tls: negotiated cipher suite not enabled")

// KindOfHandshakeFailure returns the kind of a handshake failure
// given its failure string.
func KindOfHandshakeFailure(failure string) Kind {
	switch {
	case failure == FailureGenericTimeoutError || failure == FailureTimedOut:
		return KindTimeout
	case strings.HasPrefix(failure, "ssl_"):
		return KindProtocol
	default:
		return KindIO
	}
}
