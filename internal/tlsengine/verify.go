package tlsengine

//
// Peer verification
//

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"slices"
	"time"

	"github.com/ooni/btls/internal/engineconfig"
	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/model"
)

// ErrNoServerCertificate indicates that the server did not present a certificate.
var ErrNoServerCertificate = errors.New("tls: server didn't provide a certificate")

// verifier implements the verification policy of [engineconfig.Config]. We
// disable the verification built into the TLS library and run this policy
// from the VerifyConnection callback, so the same code serves both roles and
// emulates knobs the library does not have (no time check, verify depth).
type verifier struct {
	config     engineconfig.Config
	role       model.Role
	roots      *x509.CertPool
	serverName string
}

// VerifyConnection is the tls.Config.VerifyConnection callback.
func (v *verifier) VerifyConnection(state tls.ConnectionState) error {
	certs := state.PeerCertificates
	if len(certs) <= 0 {
		if v.role == model.RoleServer {
			return nil // the library already enforces required client auth
		}
		return ErrNoServerCertificate
	}
	leaf := certs[0]
	if v.config.VerifyName && v.role == model.RoleClient {
		if v.serverName == "" {
			return errorsx.ErrNoServerName
		}
		if err := leaf.VerifyHostname(v.serverName); err != nil {
			return err
		}
	}
	if !v.config.VerifyCert {
		return nil
	}
	opts := x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: x509.NewCertPool(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if v.role == model.RoleServer {
		opts.KeyUsages = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	}
	for _, cert := range certs[1:] {
		opts.Intermediates.AddCert(cert)
	}
	if !v.config.VerifyTime {
		opts.CurrentTime = latestNotBefore(certs)
	}
	chains, err := leaf.Verify(opts)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(chains, v.withinDepth) {
		return errorsx.ErrVerifyDepth
	}
	return nil
}

// withinDepth returns whether the chain has at most VerifyDepth certificates
// between the leaf and the trust anchor.
func (v *verifier) withinDepth(chain []*x509.Certificate) bool {
	return len(chain) <= v.config.VerifyDepth+2
}

// latestNotBefore returns a time at which all the certificates are valid,
// if such a time exists, which allows us to ignore the current time.
func latestNotBefore(certs []*x509.Certificate) (out time.Time) {
	for _, cert := range certs {
		if cert.NotBefore.After(out) {
			out = cert.NotBefore
		}
	}
	return
}

// These errors are returned by [CheckNegotiated].
var (
	ErrVersionNotEnabled = errorsx.ErrVersionNotEnabled
	ErrCipherNotEnabled  = errorsx.ErrCipherNotEnabled
)

// CheckNegotiated checks the negotiated parameters against the configuration
// after a successful handshake. This catches the cases the TLS library cannot
// prevent: versions in the middle of a non contiguous range and parroted
// ClientHellos offering versions and cipher suites of their own.
func CheckNegotiated(state tls.ConnectionState, config *tls.Config, versions engineconfig.VersionSet) error {
	if !versionEnabled(versions, state.Version) {
		return ErrVersionNotEnabled
	}
	if len(config.CipherSuites) > 0 && !slices.Contains(config.CipherSuites, state.CipherSuite) {
		return ErrCipherNotEnabled
	}
	return nil
}
