// Package tlsengine adapts TLS libraries to [model.TLSEngine] and translates
// an [engineconfig.Config] into the configuration those libraries understand.
package tlsengine

import (
	"crypto/tls"
	"net"

	"github.com/ooni/btls/internal/model"
)

// Stdlib is the [model.TLSEngine] using crypto/tls. It supports both roles.
type Stdlib struct{}

var _ model.TLSEngine = &Stdlib{}

// Name implements model.TLSEngine.
func (*Stdlib) Name() string {
	return "stdlib"
}

// Client implements model.TLSEngine.
func (*Stdlib) Client(conn net.Conn, config *tls.Config) (model.TLSConn, error) {
	return tls.Client(conn, config), nil
}

// Server implements model.TLSEngine.
func (*Stdlib) Server(conn net.Conn, config *tls.Config) (model.TLSConn, error) {
	return tls.Server(conn, config), nil
}

// Default returns the default engine.
func Default() model.TLSEngine {
	return &Stdlib{}
}
