package tlsengine

//
// Client-side parroting using gitlab.com/yawning/utls.git
//

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/ooni/btls/internal/model"
	utls "gitlab.com/yawning/utls.git"
)

// UTLS is a [model.TLSEngine] using gitlab.com/yawning/utls.git to parrot
// the ClientHello of a browser. It only supports the client role.
//
// The parroted ClientHello decides the offered cipher suites and curves. We
// drop the offered versions outside of the configured range, and the layering
// code checks the negotiated version and cipher suite against the configured
// policy after the handshake.
type UTLS struct {
	// ClientHelloID is the MANDATORY ClientHello to parrot.
	ClientHelloID *utls.ClientHelloID

	// Parrot is the OPTIONAL name of what we're parroting.
	Parrot string
}

var _ model.TLSEngine = &UTLS{}

// ErrUTLSServerUnsupported indicates that UTLS cannot act as a server.
var ErrUTLSServerUnsupported = errors.New("utls: server role not supported")

// ErrUTLSHandshakePanic indicates that there was panic handshaking
// when we were using the yawning/utls library for parroting.
var ErrUTLSHandshakePanic = errors.New("utls: handshake panic")

// utlsClientHelloIDs maps the names accepted by NewUTLS to ClientHelloIDs.
var utlsClientHelloIDs = map[string]*utls.ClientHelloID{
	"chrome":  &utls.HelloChrome_Auto,
	"firefox": &utls.HelloFirefox_Auto,
	"golang":  &utls.HelloGolang,
}

// NewUTLS returns the UTLS engine parroting the named ClientHello. The
// name is one of "chrome", "firefox", and "golang".
func NewUTLS(name string) (*UTLS, error) {
	name = strings.ToLower(name)
	id, found := utlsClientHelloIDs[name]
	if !found {
		return nil, fmt.Errorf("utls: unknown parrot: %s", name)
	}
	return &UTLS{ClientHelloID: id, Parrot: name}, nil
}

// Name implements model.TLSEngine.
func (e *UTLS) Name() string {
	if e.Parrot == "" {
		return "utls"
	}
	return "utls/" + e.Parrot
}

// Client implements model.TLSEngine.
func (e *UTLS) Client(conn net.Conn, config *tls.Config) (model.TLSConn, error) {
	return NewUTLSConn(conn, config, e.ClientHelloID)
}

// Server implements model.TLSEngine.
func (e *UTLS) Server(conn net.Conn, config *tls.Config) (model.TLSConn, error) {
	return nil, ErrUTLSServerUnsupported
}

// UTLSConn implements [model.TLSConn] and uses a utls UConn as
// its underlying connection.
type UTLSConn struct {
	// We include the real UConn
	*utls.UConn

	// This field helps with writing tests
	testableHandshake func() error

	// Required by NetConn
	nc net.Conn
}

var _ model.TLSConn = &UTLSConn{}

// NewUTLSConn creates a new connection with the given client hello ID. We
// only translate the fields of config that [NewTLSConfig] sets for clients.
func NewUTLSConn(conn net.Conn, config *tls.Config, cid *utls.ClientHelloID) (*UTLSConn, error) {
	uConfig := &utls.Config{
		InsecureSkipVerify: config.InsecureSkipVerify,
		KeyLogWriter:       config.KeyLogWriter,
		MaxVersion:         config.MaxVersion,
		MinVersion:         config.MinVersion,
		NextProtos:         config.NextProtos,
		RootCAs:            config.RootCAs,
		ServerName:         config.ServerName,
	}
	for _, cert := range config.Certificates {
		uConfig.Certificates = append(uConfig.Certificates, utls.Certificate{
			Certificate: cert.Certificate,
			PrivateKey:  cert.PrivateKey,
			Leaf:        cert.Leaf,
		})
	}
	if verify := config.VerifyConnection; verify != nil {
		// utls does not know about VerifyConnection, so we emulate it
		// using the peer certificates. Our verifier does not need the
		// other fields of the connection state.
		uConfig.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			state := tls.ConnectionState{ServerName: config.ServerName}
			for _, raw := range rawCerts {
				cert, err := x509.ParseCertificate(raw)
				if err != nil {
					return err
				}
				state.PeerCertificates = append(state.PeerCertificates, cert)
			}
			return verify(state)
		}
	}
	tlsConn := utls.UClient(conn, uConfig, *cid)
	if err := restrictVersions(tlsConn, config.MinVersion, config.MaxVersion); err != nil {
		return nil, err
	}
	oconn := &UTLSConn{
		UConn:             tlsConn,
		testableHandshake: nil,
		nc:                conn,
	}
	return oconn, nil
}

// restrictVersions builds the parroted ClientHello and removes from its
// supported_versions extension the versions outside [minVersion, maxVersion]. Presets
// otherwise offer TLS 1.3 and reset the versions range of the config.
func restrictVersions(uconn *utls.UConn, minVersion, maxVersion uint16) error {
	if err := uconn.BuildHandshakeState(); err != nil {
		return err
	}
	if uconn.ClientHelloID == utls.HelloGolang || minVersion == 0 || maxVersion == 0 {
		return nil // the hello already honours the config
	}
	for _, ext := range uconn.Extensions {
		sv, ok := ext.(*utls.SupportedVersionsExtension)
		if !ok {
			continue
		}
		var versions []uint16
		for _, version := range sv.Versions {
			if isGREASE(version) || (version >= minVersion && version <= maxVersion) {
				versions = append(versions, version)
			}
		}
		sv.Versions = versions
	}
	// the next BuildHandshakeState rewrites the hello from the extensions
	return uconn.SetTLSVers(minVersion, maxVersion, uconn.Extensions)
}

// isGREASE returns whether version is a GREASE value (RFC 8701).
func isGREASE(version uint16) bool {
	return version>>8 == version&0xff && version&0x0f == 0x0a
}

// HandshakeContext implements model.TLSConn.
func (c *UTLSConn) HandshakeContext(ctx context.Context) (err error) {
	errch := make(chan error, 1)
	go func() {
		defer func() {
			if recover() != nil {
				errch <- ErrUTLSHandshakePanic
			}
		}()
		errch <- c.handshakefn()()
	}()
	select {
	case err = <-errch:
	case <-ctx.Done():
		err = ctx.Err()
	}
	return
}

func (c *UTLSConn) handshakefn() func() error {
	if c.testableHandshake != nil {
		return c.testableHandshake
	}
	return c.UConn.Handshake
}

// ConnectionState implements model.TLSConn.
func (c *UTLSConn) ConnectionState() tls.ConnectionState {
	uState := c.Conn.ConnectionState()
	return tls.ConnectionState{
		Version:                     uState.Version,
		HandshakeComplete:           uState.HandshakeComplete,
		DidResume:                   uState.DidResume,
		CipherSuite:                 uState.CipherSuite,
		NegotiatedProtocol:          uState.NegotiatedProtocol,
		ServerName:                  uState.ServerName,
		PeerCertificates:            uState.PeerCertificates,
		VerifiedChains:              uState.VerifiedChains,
		SignedCertificateTimestamps: uState.SignedCertificateTimestamps,
		OCSPResponse:                uState.OCSPResponse,
	}
}

// NetConn implements model.TLSConn.
func (c *UTLSConn) NetConn() net.Conn {
	return c.nc
}
