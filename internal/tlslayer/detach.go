package tlslayer

//
// Detach and reset
//

import (
	"errors"
	"io"
	"time"

	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/model"
)

// Detach removes the session bound to h, which then becomes a raw stream
// again. The zero deadline means no deadline.
//
// For established sessions, we send close_notify and we wait for the peer's
// close_notify until the deadline, discarding any application data. Since
// we never read past the peer's close_notify, the bytes following it are
// available for raw I/O after detaching. If the deadline expires, we return
// a timeout error and the session moves to [StateFailed].
//
// For failed sessions, we discard the session without any protocol close. In
// any other state, this function returns a state error.
func (r *Registry) Detach(h model.Handle, deadline time.Time) error {
	session, err := r.session(h, errorsx.DetachOperation)
	if err != nil {
		return err
	}
	switch state := session.State(); state {
	case StateEstablished:
		if err := r.closeNotify(session, deadline); err != nil {
			session.setState(StateFailed)
			metricDetachCount.WithLabelValues("detach", metricFailure(err)).Inc()
			r.logger.Debugf("tlslayer: %s detach failed {session=%s}: %s", h, session.ID, err.Error())
			return err
		}
	case StateFailed:
		r.logger.Debugf("tlslayer: %s discarding failed session {session=%s}", h, session.ID)
	default:
		return errorsx.NewStateError(errorsx.DetachOperation,
			"tlslayer: cannot detach %s in state %s", h, state)
	}
	r.table.DetachLayer(h)
	r.remember(h, session)
	metricDetachCount.WithLabelValues("detach", "").Inc()
	r.logger.Debugf("tlslayer: %s detached {session=%s}", h, session.ID)
	return nil
}

// closeNotify performs the protocol close of an established session.
func (r *Registry) closeNotify(session *Session, deadline time.Time) error {
	session.raw.SetDeadline(deadline)
	defer session.raw.SetDeadline(time.Time{})
	if err := session.tlsConn.CloseWrite(); err != nil {
		return errorsx.NewIOError(errorsx.DetachOperation, err)
	}
	buffer := make([]byte, 1<<14)
	for {
		_, err := session.tlsConn.Read(buffer)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errorsx.NewIOError(errorsx.DetachOperation, err)
		}
	}
}

// Reset discards the session bound to h, if any, in any state. Reset also
// discards the template of a listener. The stream remains registered with
// cleared deadlines, but it may be unusable for TLS, e.g., because we
// abandoned a partially written record. This function never fails.
func (r *Registry) Reset(h model.Handle) {
	switch layer := r.table.DetachLayer(h).(type) {
	case *Session:
		layer.framed.Close() // interrupt the engine, if needed
		layer.raw.SetDeadline(time.Time{})
		r.remember(h, layer)
		metricDetachCount.WithLabelValues("reset", "").Inc()
		r.logger.Debugf("tlslayer: %s reset {session=%s}", h, layer.ID)
	case *template:
		r.logger.Debugf("tlslayer: %s listener template discarded", h)
	}
}

// Close resets h and closes it.
func (r *Registry) Close(h model.Handle) error {
	r.Reset(h)
	r.forgetPrevious(h)
	return r.table.Close(h)
}
