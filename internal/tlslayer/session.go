package tlslayer

//
// TLS sessions
//

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ooni/btls/internal/engineconfig"
	"github.com/ooni/btls/internal/keymaterial"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/optional"
	"github.com/ooni/btls/internal/tlsengine"
)

// State is the state of a [*Session].
type State int

const (
	// StateUnattached is the state of a session we have bound to a
	// handle but that has not started handshaking yet.
	StateUnattached = State(iota)

	// StateHandshaking means the handshake is running.
	StateHandshaking

	// StateEstablished means the handshake succeeded.
	StateEstablished

	// StateFailed means the handshake or the detach failed. The only
	// valid operations are detaching (without protocol close) and resetting.
	StateFailed

	// StateDetached is the terminal state of a discarded session.
	StateDetached
)

var stateString = map[State]string{
	StateUnattached:  "unattached",
	StateHandshaking: "handshaking",
	StateEstablished: "established",
	StateFailed:      "failed",
	StateDetached:    "detached",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if value, found := stateString[s]; found {
		return value
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// CertificateInfo contains the fields of a peer certificate.
type CertificateInfo struct {
	// Subject is the subject distinguished name.
	Subject string

	// Issuer is the issuer distinguished name.
	Issuer string

	// Hash is the SHA256 of the DER certificate formatted
	// as "SHA256:" followed by lowercase hex digits.
	Hash string

	// NotBefore is the beginning of the validity period.
	NotBefore time.Time

	// NotAfter is the end of the validity period.
	NotAfter time.Time

	// Leaf is the parsed certificate.
	Leaf *x509.Certificate
}

// NewCertificateInfo creates a [*CertificateInfo] from a leaf certificate.
func NewCertificateInfo(leaf *x509.Certificate) *CertificateInfo {
	sum := sha256.Sum256(leaf.Raw)
	return &CertificateInfo{
		Subject:   leaf.Subject.String(),
		Issuer:    leaf.Issuer.String(),
		Hash:      "SHA256:" + hex.EncodeToString(sum[:]),
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
		Leaf:      leaf,
	}
}

// template is the part of a session that we can share between all the
// sessions accepted by a listener. It is read-only once created, except
// that an unshared template may drop its private keys.
type template struct {
	// ca is the OPTIONAL trust anchor.
	ca *keymaterial.CertificateAuthority

	// config is the decoded configuration.
	config engineconfig.Config

	// certs contains the parsed key pairs. The engine configuration
	// references this slice, which we own.
	certs []tls.Certificate

	// role is the role.
	role model.Role

	// shared indicates a listener template.
	shared bool

	// tlsConfig is the engine configuration.
	tlsConfig *tls.Config
}

// clearKeys drops the parsed private keys. The caller's key pairs
// are untouched, so they remain usable for further attaches.
func (t *template) clearKeys() {
	for idx := range t.certs {
		t.certs[idx].PrivateKey = nil
	}
}

// keysCleared returns whether the template holds no private keys.
func (t *template) keysCleared() bool {
	for _, cert := range t.certs {
		if cert.PrivateKey != nil {
			return false
		}
	}
	return true
}

// Session is a TLS session bound to a handle.
type Session struct {
	// ID is the unique ID of this session, which we use for logging.
	ID string

	// Handle is the handle to which the session is bound.
	Handle model.Handle

	// framed is the conn the engine uses.
	framed *framedConn

	// mu protects state and the results of the handshake.
	mu sync.Mutex

	// negotiated contains the negotiated parameters.
	negotiated tls.ConnectionState

	// peer is the peer certificate, if any.
	peer optional.Value[*CertificateInfo]

	// raw is the raw conn.
	raw net.Conn

	// state is the state.
	state State

	// template contains the shared configuration.
	template *template

	// tlsConn is the TLS conn.
	tlsConn model.TLSConn
}

// Role returns the session role.
func (s *Session) Role() model.Role {
	return s.template.role
}

// Config returns the decoded configuration.
func (s *Session) Config() engineconfig.Config {
	return s.template.config
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// establish records the results of a successful handshake.
func (s *Session) establish(state tls.ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateEstablished
	s.negotiated = state
	if len(state.PeerCertificates) > 0 {
		s.peer = optional.Some(NewCertificateInfo(state.PeerCertificates[0]))
	}
}

// PeerCertificate returns the peer certificate, if any.
func (s *Session) PeerCertificate() optional.Value[*CertificateInfo] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// ALPN returns the negotiated ALPN protocol, if any.
func (s *Session) ALPN() optional.Value[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return someIfNotEmpty(s.negotiated.NegotiatedProtocol)
}

// Cipher returns the negotiated cipher suite, if any.
func (s *Session) Cipher() optional.Value[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return someIfNotEmpty(tlsengine.TLSCipherSuiteString(s.negotiated.CipherSuite))
}

// Version returns the negotiated protocol version, if any.
func (s *Session) Version() optional.Value[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return someIfNotEmpty(tlsengine.TLSVersionString(s.negotiated.Version))
}

// ConnectionState returns the state negotiated by the handshake. The
// zero value means the handshake did not complete.
func (s *Session) ConnectionState() tls.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.negotiated
}

// ServerName returns the server name: the SNI we sent for clients and the
// one we received for servers.
func (s *Session) ServerName() optional.Value[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return someIfNotEmpty(s.negotiated.ServerName)
}

func someIfNotEmpty(value string) optional.Value[string] {
	if value == "" {
		return optional.None[string]()
	}
	return optional.Some(value)
}
