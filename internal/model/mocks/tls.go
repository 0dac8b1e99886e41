package mocks

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/ooni/btls/internal/model"
)

// TLSConn allows mocking a model.TLSConn.
type TLSConn struct {
	// Conn is the embedded mockable Conn.
	Conn

	MockConnectionState  func() tls.ConnectionState
	MockHandshakeContext func(ctx context.Context) error
	MockNetConn          func() net.Conn
	MockCloseWrite       func() error
}

var _ model.TLSConn = &TLSConn{}

// ConnectionState calls MockConnectionState.
func (c *TLSConn) ConnectionState() tls.ConnectionState {
	return c.MockConnectionState()
}

// HandshakeContext calls MockHandshakeContext.
func (c *TLSConn) HandshakeContext(ctx context.Context) error {
	return c.MockHandshakeContext(ctx)
}

// NetConn calls MockNetConn.
func (c *TLSConn) NetConn() net.Conn {
	return c.MockNetConn()
}

// CloseWrite calls MockCloseWrite.
func (c *TLSConn) CloseWrite() error {
	return c.MockCloseWrite()
}

// TLSEngine allows mocking a model.TLSEngine.
type TLSEngine struct {
	MockName   func() string
	MockClient func(conn net.Conn, config *tls.Config) (model.TLSConn, error)
	MockServer func(conn net.Conn, config *tls.Config) (model.TLSConn, error)
}

var _ model.TLSEngine = &TLSEngine{}

// Name calls MockName.
func (e *TLSEngine) Name() string {
	return e.MockName()
}

// Client calls MockClient.
func (e *TLSEngine) Client(conn net.Conn, config *tls.Config) (model.TLSConn, error) {
	return e.MockClient(conn, config)
}

// Server calls MockServer.
func (e *TLSEngine) Server(conn net.Conn, config *tls.Config) (model.TLSConn, error) {
	return e.MockServer(conn, config)
}

// TLSHandshaker allows mocking a model.TLSHandshaker.
type TLSHandshaker struct {
	MockHandshake func(ctx context.Context, conn model.TLSConn, config *tls.Config) (tls.ConnectionState, error)
}

var _ model.TLSHandshaker = &TLSHandshaker{}

// Handshake calls MockHandshake.
func (th *TLSHandshaker) Handshake(
	ctx context.Context, conn model.TLSConn, config *tls.Config) (tls.ConnectionState, error) {
	return th.MockHandshake(ctx, conn, config)
}
