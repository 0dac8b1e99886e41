package tlsengine

//
// Translating engineconfig.Config into tls.Config
//

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/ooni/btls/internal/engineconfig"
	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/model"
)

// Options contains the options for [NewTLSConfig].
type Options struct {
	// Role is the MANDATORY role.
	Role model.Role

	// Config is the MANDATORY decoded configuration.
	Config engineconfig.Config

	// Certificates contains the key pairs. MANDATORY for servers, OPTIONAL
	// for clients, which use the first one.
	Certificates []tls.Certificate

	// RootCAs is the OPTIONAL trust anchor. When nil, we use the system's.
	RootCAs *x509.CertPool

	// NextProtos contains the OPTIONAL ALPN protocols.
	NextProtos []string

	// ServerName is the OPTIONAL SNI (client only).
	ServerName string

	// Logger is the MANDATORY logger.
	Logger model.DebugLogger
}

// NewTLSConfig creates a new [*tls.Config] for the given role implementing
// the given configuration. The error is a KindConfig error when the
// configuration requires features we do not support or is contradictory.
//
// Each config is meant for a single session or for the sessions accepted
// by a single listener, so callbacks never share state across listeners.
func NewTLSConfig(o *Options) (*tls.Config, error) {
	cfg := o.Config
	suites, err := CipherSuites(cfg)
	if err != nil {
		return nil, err
	}
	curves, err := CurvePreferences(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.DHE != engineconfig.DHENone {
		o.Logger.Debugf("tlsengine: ignoring dhe=%s: no DHE suites available", cfg.DHE)
	}
	minVersion, maxVersion := VersionRange(cfg.Versions)
	verifier := &verifier{
		config:     cfg,
		role:       o.Role,
		roots:      o.RootCAs,
		serverName: o.ServerName,
	}
	config := &tls.Config{
		CipherSuites:       suites,
		CurvePreferences:   curves,
		InsecureSkipVerify: true, // see verifier
		KeyLogWriter:       KeyLogWriter(),
		MaxVersion:         maxVersion,
		MinVersion:         minVersion,
		NextProtos:         o.NextProtos,
		RootCAs:            o.RootCAs,
		VerifyConnection:   verifier.VerifyConnection,
	}

	switch o.Role {
	case model.RoleServer:
		if len(o.Certificates) <= 0 {
			return nil, errorsx.NewConfigError(errorsx.AttachOperation, "tlsengine: server without key pairs")
		}
		selector := &certificateSelector{certs: o.Certificates, logger: o.Logger}
		config.GetCertificate = selector.GetCertificate
		// We do not advertise acceptable CAs, so clients send their
		// certificate anyway and the verifier sees it.
		switch cfg.ClientAuth {
		case engineconfig.ClientAuthRequired:
			config.ClientAuth = tls.RequireAnyClientCert
		case engineconfig.ClientAuthOptional:
			config.ClientAuth = tls.RequestClientCert
		default:
			config.ClientAuth = tls.NoClientCert
		}

	default:
		if cfg.ClientAuth != engineconfig.ClientAuthNone && len(o.Certificates) <= 0 {
			return nil, errorsx.NewConfigError(
				errorsx.AttachOperation, "tlsengine: client auth requested without key pairs")
		}
		config.ServerName = o.ServerName
		if len(o.Certificates) > 0 {
			config.Certificates = o.Certificates[:1]
		}
	}
	return config, nil
}

// certificateSelector selects the server certificate for a ClientHello.
type certificateSelector struct {
	certs  []tls.Certificate
	logger model.DebugLogger
}

// GetCertificate is the tls.Config.GetCertificate callback. We return the
// first key pair compatible with the ClientHello (e.g., ECDSA or RSA given the
// client's signature algorithms and cipher suites) or the first key pair.
func (cs *certificateSelector) GetCertificate(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	for idx := range cs.certs {
		if err := chi.SupportsCertificate(&cs.certs[idx]); err == nil {
			cs.logger.Debugf("tlsengine: sni=%s selected certificate #%d", chi.ServerName, idx)
			return &cs.certs[idx], nil
		}
	}
	cs.logger.Debugf("tlsengine: sni=%s no compatible certificate, using #0", chi.ServerName)
	return &cs.certs[0], nil
}
