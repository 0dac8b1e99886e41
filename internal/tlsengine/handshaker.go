package tlsengine

//
// TLS handshakers
//

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/model"
)

// NewHandshaker creates a new [model.TLSHandshaker].
//
// The handshaker guarantees:
//
// 1. logging
//
// 2. error wrapping
func NewHandshaker(logger model.DebugLogger) model.TLSHandshaker {
	return newHandshaker(&handshakerCore{}, logger)
}

// newHandshaker is the common factory for creating a new TLSHandshaker
func newHandshaker(th model.TLSHandshaker, logger model.DebugLogger) model.TLSHandshaker {
	return &handshakerLogger{
		TLSHandshaker: &handshakerErrWrapper{
			TLSHandshaker: th,
		},
		DebugLogger: logger,
	}
}

// handshakerCore drives the handshake of a model.TLSConn.
type handshakerCore struct{}

var _ model.TLSHandshaker = &handshakerCore{}

// Handshake implements model.TLSHandshaker.
func (h *handshakerCore) Handshake(
	ctx context.Context, conn model.TLSConn, config *tls.Config) (tls.ConnectionState, error) {
	if err := conn.HandshakeContext(ctx); err != nil {
		return tls.ConnectionState{}, err
	}
	return conn.ConnectionState(), nil
}

// handshakerLogger is a TLSHandshaker with logging.
type handshakerLogger struct {
	TLSHandshaker model.TLSHandshaker
	DebugLogger   model.DebugLogger
}

var _ model.TLSHandshaker = &handshakerLogger{}

// Handshake implements model.TLSHandshaker.
func (h *handshakerLogger) Handshake(
	ctx context.Context, conn model.TLSConn, config *tls.Config) (tls.ConnectionState, error) {
	h.DebugLogger.Debugf(
		"tls {sni=%s next=%+v}...", config.ServerName, config.NextProtos)
	start := time.Now()
	state, err := h.TLSHandshaker.Handshake(ctx, conn, config)
	elapsed := time.Since(start)
	if err != nil {
		h.DebugLogger.Debugf(
			"tls {sni=%s next=%+v}... %s in %s", config.ServerName,
			config.NextProtos, err, elapsed)
		return tls.ConnectionState{}, err
	}
	h.DebugLogger.Debugf(
		"tls {sni=%s next=%+v}... ok in %s {next=%s cipher=%s v=%s}",
		config.ServerName, config.NextProtos, elapsed, state.NegotiatedProtocol,
		TLSCipherSuiteString(state.CipherSuite),
		TLSVersionString(state.Version))
	return state, nil
}

// handshakerErrWrapper wraps the returned error to be an ErrWrapper whose
// kind depends on the failure.
type handshakerErrWrapper struct {
	TLSHandshaker model.TLSHandshaker
}

var _ model.TLSHandshaker = &handshakerErrWrapper{}

// Handshake implements model.TLSHandshaker.
func (h *handshakerErrWrapper) Handshake(
	ctx context.Context, conn model.TLSConn, config *tls.Config) (tls.ConnectionState, error) {
	state, err := h.TLSHandshaker.Handshake(ctx, conn, config)
	if err != nil {
		return tls.ConnectionState{}, NewHandshakeError(err)
	}
	return state, nil
}

// NewHandshakeError wraps an error occurred during the handshake and
// assigns the proper kind (timeout, protocol, or I/O) to it.
func NewHandshakeError(err error) *errorsx.ErrWrapper {
	failure := errorsx.ClassifyTLSHandshakeError(err)
	return &errorsx.ErrWrapper{
		Kind:       errorsx.KindOfHandshakeFailure(failure),
		Failure:    failure,
		Operation:  errorsx.TLSHandshakeOperation,
		WrappedErr: err,
	}
}
