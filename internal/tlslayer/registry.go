// Package tlslayer layers TLS sessions on top of the streams of a
// [*sockets.Table] without changing their handles.
//
// The lifecycle of a session is: attach (client, server, or accepted from
// a listener template), handshake, then detach or reset. While attached, a
// session has exclusive control of the stream. Operations on a given
// handle must not be invoked concurrently.
package tlslayer

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/ooni/btls/internal/engineconfig"
	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/idnax"
	"github.com/ooni/btls/internal/keymaterial"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/sockets"
	"github.com/ooni/btls/internal/tlsengine"
)

// Registry binds TLS sessions to handles. The zero value is invalid; use
// [NewRegistry] to construct.
type Registry struct {
	// engine is the TLS engine.
	engine model.TLSEngine

	// handshaker drives the handshakes.
	handshaker model.TLSHandshaker

	// logger is the logger.
	logger model.Logger

	// mu protects previous.
	mu sync.Mutex

	// previous contains the last discarded session of each handle, which
	// remains available for introspection until the next attach.
	previous map[model.Handle]*Session

	// table is the handle table.
	table *sockets.Table
}

// NewRegistry creates a new [*Registry] using the given table. A nil engine
// means using [tlsengine.Default] and a nil logger means discarding logs.
func NewRegistry(table *sockets.Table, engine model.TLSEngine, logger model.Logger) *Registry {
	if engine == nil {
		engine = tlsengine.Default()
	}
	logger = model.ValidLoggerOrDefault(logger)
	return &Registry{
		engine:     engine,
		handshaker: tlsengine.NewHandshaker(logger),
		logger:     logger,
		mu:         sync.Mutex{},
		previous:   make(map[model.Handle]*Session),
		table:      table,
	}
}

// Table returns the underlying handle table.
func (r *Registry) Table() *sockets.Table {
	return r.table
}

// Engine returns the TLS engine.
func (r *Registry) Engine() model.TLSEngine {
	return r.engine
}

// AttachServer attaches a server session to h. When h is a listener, we store
// a listener template instead, which [*Registry.AttachAccept] uses to attach
// the accepted streams. The ca is OPTIONAL and only used to verify clients.
func (r *Registry) AttachServer(h model.Handle, flags, ciphers uint64,
	kps []*keymaterial.KeyPair, ca *keymaterial.CertificateAuthority, alpn []string) error {
	entry, err := r.lookupUnattached(h)
	if err != nil {
		return r.attachFailed(model.RoleServer, err)
	}
	tmpl, err := r.newTemplate(model.RoleServer, flags, ciphers, kps, ca, alpn, "")
	if err != nil {
		return r.attachFailed(model.RoleServer, err)
	}
	if !entry.IsConn() {
		tmpl.shared = true // accepted sessions need the keys
		if err := r.table.AttachLayer(h, tmpl); err != nil {
			return r.attachFailed(model.RoleServer, err)
		}
		r.logger.Debugf("tlslayer: %s is a listener template {%s}", h, tmpl.config)
		return nil
	}
	return r.attachSession(h, entry.Conn, tmpl)
}

// AttachAccept attaches to h a server session using the template of the
// listener l. The error is a state error when l has no template.
func (r *Registry) AttachAccept(h, l model.Handle) error {
	entry, err := r.table.Lookup(l)
	if err != nil {
		return r.attachFailed(model.RoleServer, err)
	}
	tmpl, ok := entry.Layer.(*template)
	if !ok {
		return r.attachFailed(model.RoleServer, errorsx.NewStateError(
			errorsx.AttachOperation, "tlslayer: %s is not a listener template", l))
	}
	target, err := r.lookupUnattached(h)
	if err != nil {
		return r.attachFailed(model.RoleServer, err)
	}
	if !target.IsConn() {
		return r.attachFailed(model.RoleServer, errorsx.NewStateError(
			errorsx.AttachOperation, "tlslayer: %s is not a stream", h))
	}
	return r.attachSession(h, target.Conn, tmpl)
}

// AttachClient attaches to h a client session without key pairs. The ca and
// alpn and serverName are OPTIONAL. A nil ca means using the system's roots.
func (r *Registry) AttachClient(h model.Handle, flags, ciphers uint64,
	ca *keymaterial.CertificateAuthority, alpn []string, serverName string) error {
	return r.AttachClientKP(h, flags, ciphers, nil, ca, alpn, serverName)
}

// AttachClientKP is like [*Registry.AttachClient] but allows specifying the
// key pairs for client authentication. We only use the first key pair.
func (r *Registry) AttachClientKP(h model.Handle, flags, ciphers uint64, kps []*keymaterial.KeyPair,
	ca *keymaterial.CertificateAuthority, alpn []string, serverName string) error {
	entry, err := r.lookupUnattached(h)
	if err != nil {
		return r.attachFailed(model.RoleClient, err)
	}
	if !entry.IsConn() {
		return r.attachFailed(model.RoleClient, errorsx.NewStateError(
			errorsx.AttachOperation, "tlslayer: %s is not a stream", h))
	}
	tmpl, err := r.newTemplate(model.RoleClient, flags, ciphers, kps, ca, alpn, serverName)
	if err != nil {
		return r.attachFailed(model.RoleClient, err)
	}
	return r.attachSession(h, entry.Conn, tmpl)
}

// lookupUnattached returns the entry of h or a state error when h
// does not exist or is already attached.
func (r *Registry) lookupUnattached(h model.Handle) (sockets.Entry, error) {
	entry, err := r.table.Lookup(h)
	if err != nil {
		return sockets.Entry{}, err
	}
	if entry.Layer != nil {
		return sockets.Entry{}, errorsx.NewStateError(
			errorsx.AttachOperation, "tlslayer: %s is already attached", h)
	}
	return entry, nil
}

// newTemplate decodes the configuration and prepares the engine configuration.
func (r *Registry) newTemplate(role model.Role, flags, ciphers uint64, kps []*keymaterial.KeyPair,
	ca *keymaterial.CertificateAuthority, alpn []string, serverName string) (*template, error) {
	tlsengine.Init(r.logger)
	config := engineconfig.Decode(flags, ciphers)
	var certs []tls.Certificate
	for _, kp := range kps {
		cert, err := kp.Certificate()
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	var roots *x509.CertPool
	if ca != nil {
		pool, err := ca.CertPool()
		if err != nil {
			return nil, err
		}
		roots = pool
	}
	if role == model.RoleClient && config.VerifyName && serverName == "" {
		return nil, errorsx.NewConfigError(errorsx.AttachOperation,
			"tlslayer: name verification requires a server name")
	}
	if serverName != "" && net.ParseIP(serverName) == nil {
		name, err := idnax.ToASCII(serverName)
		if err != nil {
			return nil, errorsx.NewConfigError(errorsx.AttachOperation,
				"tlslayer: invalid server name %q: %s", serverName, err.Error())
		}
		serverName = name
	}
	tlsConfig, err := tlsengine.NewTLSConfig(&tlsengine.Options{
		Role:         role,
		Config:       config,
		Certificates: certs,
		RootCAs:      roots,
		NextProtos:   alpn,
		ServerName:   serverName,
		Logger:       r.logger,
	})
	if err != nil {
		return nil, err
	}
	tmpl := &template{
		ca:        ca,
		config:    config,
		certs:     certs,
		role:      role,
		tlsConfig: tlsConfig,
	}
	return tmpl, nil
}

// attachSession creates a session using the template and binds it to h.
func (r *Registry) attachSession(h model.Handle, conn net.Conn, tmpl *template) error {
	framed := newFramedConn(conn)
	var (
		tlsConn model.TLSConn
		err     error
	)
	switch tmpl.role {
	case model.RoleServer:
		tlsConn, err = r.engine.Server(framed, tmpl.tlsConfig)
	default:
		tlsConn, err = r.engine.Client(framed, tmpl.tlsConfig)
	}
	if err != nil {
		return r.attachFailed(tmpl.role, errorsx.NewConfigError(errorsx.AttachOperation,
			"tlslayer: engine %s: %s", r.engine.Name(), err.Error()))
	}
	session := &Session{
		ID:       uuid.NewString(),
		Handle:   h,
		framed:   framed,
		mu:       sync.Mutex{},
		raw:      conn,
		state:    StateUnattached,
		template: tmpl,
		tlsConn:  tlsConn,
	}
	if err := r.table.AttachLayer(h, session); err != nil {
		return r.attachFailed(tmpl.role, err)
	}
	r.forgetPrevious(h)
	metricAttachCount.WithLabelValues(tmpl.role.String(), "").Inc()
	metricSessionsAttached.Inc()
	r.logger.Debugf("tlslayer: %s attached {session=%s role=%s engine=%s %s}",
		h, session.ID, tmpl.role, r.engine.Name(), tmpl.config)
	return nil
}

// attachFailed is the common code path for attach failures.
func (r *Registry) attachFailed(role model.Role, err error) error {
	metricAttachCount.WithLabelValues(role.String(), metricFailure(err)).Inc()
	return err
}

// session returns the session bound to h or a state error.
func (r *Registry) session(h model.Handle, op string) (*Session, error) {
	entry, err := r.table.Lookup(h)
	if err != nil {
		return nil, err
	}
	session, ok := entry.Layer.(*Session)
	if !ok {
		return nil, errorsx.NewStateError(op, "tlslayer: no session bound to %s", h)
	}
	return session, nil
}

// forgetPrevious forgets the last discarded session of h.
func (r *Registry) forgetPrevious(h model.Handle) {
	r.mu.Lock()
	delete(r.previous, h)
	r.mu.Unlock()
}

// remember marks the session as detached and remembers it for introspection.
func (r *Registry) remember(h model.Handle, session *Session) {
	session.setState(StateDetached)
	metricSessionsAttached.Dec()
	r.mu.Lock()
	r.previous[h] = session
	r.mu.Unlock()
}
