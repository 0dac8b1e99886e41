// Package btls layers TLS on top of connected stream handles.
//
// You register a connected stream (or dial one) to obtain a [Handle]. Then you
// attach a client or server session to the handle, perform the handshake, and
// exchange application data using [Send] and [Recv]. When you are done with
// TLS, [Detach] performs the protocol close and turns the handle back into a
// raw stream carrying cleartext, while [Reset] discards the session without
// any protocol exchange. The handle number never changes.
//
// All functions operate on a process-wide registry created on first use.
// Different goroutines may operate on different handles concurrently, but
// each handle must only be used by a single goroutine at a time.
//
// The zero deadline means no deadline.
package btls

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/keymaterial"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/optional"
	"github.com/ooni/btls/internal/scrubber"
	"github.com/ooni/btls/internal/sockets"
	"github.com/ooni/btls/internal/tlslayer"
)

// Handle is the opaque identifier of a registered stream or listener.
type Handle = model.Handle

// InvalidHandle is the handle returned alongside errors.
const InvalidHandle = model.InvalidHandle

// KeyPair is a certificate chain and the matching private key.
type KeyPair = keymaterial.KeyPair

// CertificateAuthority is a source of trust anchors.
type CertificateAuthority = keymaterial.CertificateAuthority

// State is the state of a TLS session.
type State = tlslayer.State

// These are the possible session states.
const (
	StateUnattached  = tlslayer.StateUnattached
	StateHandshaking = tlslayer.StateHandshaking
	StateEstablished = tlslayer.StateEstablished
	StateFailed      = tlslayer.StateFailed
	StateDetached    = tlslayer.StateDetached
)

// Error kinds. Use errors.Is to check the kind of an error.
var (
	ErrConfig   = errorsx.ErrConfig
	ErrIO       = errorsx.ErrIO
	ErrDecrypt  = errorsx.ErrDecrypt
	ErrState    = errorsx.ErrState
	ErrTimeout  = errorsx.ErrTimeout
	ErrProtocol = errorsx.ErrProtocol
)

var (
	defaultOnce     sync.Once
	defaultRegistry *tlslayer.Registry
)

// registry returns the process-wide registry.
func registry() *tlslayer.Registry {
	defaultOnce.Do(func() {
		logger := &scrubber.Logger{Logger: log.Log}
		defaultRegistry = tlslayer.NewRegistry(sockets.NewTable(logger), nil, logger)
	})
	return defaultRegistry
}

// Register takes ownership of a connected stream and returns its handle.
func Register(conn net.Conn) Handle {
	return registry().Table().Register(conn)
}

// RegisterListener takes ownership of a listener and returns its handle.
func RegisterListener(listener net.Listener) Handle {
	return registry().Table().RegisterListener(listener)
}

// Dial connects to address and registers the resulting stream.
func Dial(ctx context.Context, network, address string) (Handle, error) {
	return registry().Table().Dial(ctx, network, address)
}

// Listen creates and registers a listener.
func Listen(network, address string) (Handle, error) {
	return registry().Table().Listen(network, address)
}

// Accept accepts a stream from the listener l and registers it. The stream
// does not inherit the TLS template of l: use [AttachAccept] for that.
func Accept(l Handle, deadline time.Time) (Handle, error) {
	return registry().Table().Accept(l, deadline)
}

// Close discards the session of h, if any, and closes h.
func Close(h Handle) error {
	return registry().Close(h)
}

// Send writes data to h, using TLS if a session is established.
func Send(h Handle, data []byte, deadline time.Time) (int, error) {
	return registry().Send(h, data, deadline)
}

// Recv reads from h, using TLS if a session is established.
func Recv(h Handle, buffer []byte, deadline time.Time) (int, error) {
	return registry().Recv(h, buffer, deadline)
}

// LoadFile reads a PEM, PKCS#12, or age-encrypted file and returns PEM.
func LoadFile(path string, password []byte) ([]byte, error) {
	return keymaterial.LoadFile(path, password)
}

// NewCA returns a source of trust anchors. Set exactly one of file, dir, and mem.
func NewCA(file, dir string, mem []byte) (*CertificateAuthority, error) {
	return keymaterial.NewCA(file, dir, mem)
}

// NewKeyPair returns a key pair owning copies of cert and key.
func NewKeyPair(cert, key []byte) (*KeyPair, error) {
	return keymaterial.NewKeyPair(cert, key)
}

// NewKeyPairBorrowed returns a key pair using cert and key without copying.
func NewKeyPairBorrowed(cert, key []byte) (*KeyPair, error) {
	return keymaterial.NewKeyPairBorrowed(cert, key)
}

// ErrorString returns the stable failure string of err, or "ok" when err is nil.
func ErrorString(err error) string {
	return errorsx.ErrorString(err)
}

// AttachServer attaches a server session to the stream h or, when h is a
// listener, stores a template for [AttachAccept].
func AttachServer(h Handle, flags, ciphers uint64, kps []*KeyPair,
	ca *CertificateAuthority, alpn []string) error {
	return registry().AttachServer(h, flags, ciphers, kps, ca, alpn)
}

// AttachAccept attaches to h a server session using the template of l.
func AttachAccept(h, l Handle) error {
	return registry().AttachAccept(h, l)
}

// AttachClient attaches a client session to the stream h.
func AttachClient(h Handle, flags, ciphers uint64, ca *CertificateAuthority,
	alpn []string, serverName string) error {
	return registry().AttachClient(h, flags, ciphers, ca, alpn, serverName)
}

// AttachClientKP is like [AttachClient] with a client certificate.
func AttachClientKP(h Handle, flags, ciphers uint64, kps []*KeyPair,
	ca *CertificateAuthority, alpn []string, serverName string) error {
	return registry().AttachClientKP(h, flags, ciphers, kps, ca, alpn, serverName)
}

// Handshake performs the handshake of the session attached to h.
func Handshake(h Handle, deadline time.Time) error {
	return registry().Handshake(h, deadline)
}

// Detach performs the protocol close and detaches the session of h.
func Detach(h Handle, deadline time.Time) error {
	return registry().Detach(h, deadline)
}

// Reset discards the session of h without any protocol exchange.
func Reset(h Handle) {
	registry().Reset(h)
}

// SessionState returns the state of the session of h.
func SessionState(h Handle) optional.Value[State] {
	return registry().SessionState(h)
}

// PeerCertProvided returns whether the peer presented a certificate.
func PeerCertProvided(h Handle) bool {
	return registry().PeerCertProvided(h)
}

// PeerCertContainsName returns whether the peer certificate is valid for name.
func PeerCertContainsName(h Handle, name string) bool {
	return registry().PeerCertContainsName(h, name)
}

// PeerCertHash returns the SHA256 hash of the peer certificate.
func PeerCertHash(h Handle) optional.Value[string] {
	return registry().PeerCertHash(h)
}

// PeerCertIssuer returns the issuer of the peer certificate.
func PeerCertIssuer(h Handle) optional.Value[string] {
	return registry().PeerCertIssuer(h)
}

// PeerCertSubject returns the subject of the peer certificate.
func PeerCertSubject(h Handle) optional.Value[string] {
	return registry().PeerCertSubject(h)
}

// PeerCertNotBefore returns the beginning of the peer certificate validity.
func PeerCertNotBefore(h Handle) optional.Value[time.Time] {
	return registry().PeerCertNotBefore(h)
}

// PeerCertNotAfter returns the end of the peer certificate validity.
func PeerCertNotAfter(h Handle) optional.Value[time.Time] {
	return registry().PeerCertNotAfter(h)
}

// ConnALPNSelected returns the negotiated ALPN protocol.
func ConnALPNSelected(h Handle) optional.Value[string] {
	return registry().ConnALPNSelected(h)
}

// ConnCipher returns the negotiated cipher suite.
func ConnCipher(h Handle) optional.Value[string] {
	return registry().ConnCipher(h)
}

// ConnServerName returns the server name indication.
func ConnServerName(h Handle) optional.Value[string] {
	return registry().ConnServerName(h)
}

// ConnVersion returns the negotiated protocol version.
func ConnVersion(h Handle) optional.Value[string] {
	return registry().ConnVersion(h)
}
