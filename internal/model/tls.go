package model

//
// TLS engine
//

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	oohttp "github.com/ooni/oohttp"
)

// Role is the role of a TLS endpoint.
type Role int

const (
	// RoleClient is the TLS client role.
	RoleClient = Role(iota)

	// RoleServer is the TLS server role.
	RoleServer
)

// String implements fmt.Stringer.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// TLSConn is the TLS connection returned by a [TLSEngine]. The stdlib's
// *tls.Conn implements this interface, and so does the adapter we use for
// gitlab.com/yawning/utls.git connections.
type TLSConn interface {
	// A TLSConn is the kind of TLS connection oohttp expects.
	oohttp.TLSConn

	// CloseWrite sends close_notify without closing the underlying conn.
	CloseWrite() error
}

var _ TLSConn = &tls.Conn{}

// TLSEngine is the cryptographic engine performing the TLS handshake and
// the record protection on top of an existing stream. Engines are
// stateless: all the state lives inside the returned TLSConn.
//
// The engine MUST NOT take ownership of conn: closing the returned
// TLSConn is never done by the layering code, which instead detaches
// from conn using TLSConn.CloseWrite.
type TLSEngine interface {
	// Name returns the engine name (used for logging).
	Name() string

	// Client wraps conn with a client-side TLS connection.
	Client(conn net.Conn, config *tls.Config) (TLSConn, error)

	// Server wraps conn with a server-side TLS connection.
	Server(conn net.Conn, config *tls.Config) (TLSConn, error)
}

// TLSHandshaker performs the handshake of a [TLSConn] created by a [TLSEngine].
type TLSHandshaker interface {
	// Handshake runs the handshake until completion or until ctx is done. The
	// config argument is the one used to create conn; handshakers only use it
	// for logging. This function DOES NOT manage the deadline of conn.
	Handshake(ctx context.Context, conn TLSConn, config *tls.Config) (tls.ConnectionState, error)
}
