package tlslayer

//
// Handshake state machine
//

import (
	"context"
	"time"

	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/tlsengine"
)

// Handshake performs the handshake of the session bound to h before the
// deadline. The zero deadline means no deadline.
//
// When the session is already established, this function returns nil. When
// there is no session, or the session failed, it returns a state error. On
// failure, the session moves to [StateFailed] and the error kind is timeout,
// protocol (the engine rejected the peer), or I/O. A failed session can only
// be detached (without protocol close) or reset.
func (r *Registry) Handshake(h model.Handle, deadline time.Time) error {
	session, err := r.session(h, errorsx.TLSHandshakeOperation)
	if err != nil {
		return err
	}
	state := session.State()
	if state == StateEstablished {
		return nil
	}
	if state != StateUnattached {
		return errorsx.NewStateError(errorsx.TLSHandshakeOperation,
			"tlslayer: cannot handshake %s in state %s", h, state)
	}
	session.setState(StateHandshaking)

	session.raw.SetDeadline(deadline)
	defer session.raw.SetDeadline(time.Time{})
	ctx := context.Background()
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	role := session.Role().String()
	start := time.Now()
	negotiated, err := r.handshaker.Handshake(ctx, session.tlsConn, session.template.tlsConfig)
	if err == nil {
		err = tlsengine.CheckNegotiated(negotiated, session.template.tlsConfig, session.Config().Versions)
		if err != nil {
			err = tlsengine.NewHandshakeError(err)
		}
	}
	metricHandshakeDurationSeconds.WithLabelValues(role).Observe(time.Since(start).Seconds())
	metricHandshakeCount.WithLabelValues(role, metricFailure(err)).Inc()

	if err != nil {
		// The engine may still be using the conn (e.g., when the context
		// expired), so we interrupt it before clearing the deadline.
		session.framed.Close()
		session.setState(StateFailed)
		r.logger.Debugf("tlslayer: %s handshake failed {session=%s}: %s", h, session.ID, err.Error())
		return err
	}
	session.establish(negotiated)
	if session.Config().ClearKeys && !session.template.shared {
		session.template.clearKeys()
	}
	r.logger.Debugf("tlslayer: %s established {session=%s}", h, session.ID)
	return nil
}
