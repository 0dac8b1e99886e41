package tlslayer

//
// Application data
//

import (
	"time"

	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/sockets"
)

// Send writes data to h before the deadline. We use the session bound to h if
// any, and the raw stream otherwise. The error is a state error when the
// session exists but it is not established.
func (r *Registry) Send(h model.Handle, data []byte, deadline time.Time) (int, error) {
	entry, err := r.table.Lookup(h)
	if err != nil {
		return 0, err
	}
	if entry.Layer == nil {
		return r.table.Send(h, data, deadline)
	}
	session, err := r.established(h, entry, errorsx.WriteOperation)
	if err != nil {
		return 0, err
	}
	return sockets.Write(session.tlsConn, data, deadline)
}

// Recv reads at most len(buffer) bytes from h before the deadline. We use the
// session bound to h if any, and the raw stream otherwise. The error is a state
// error when the session exists but it is not established.
func (r *Registry) Recv(h model.Handle, buffer []byte, deadline time.Time) (int, error) {
	entry, err := r.table.Lookup(h)
	if err != nil {
		return 0, err
	}
	if entry.Layer == nil {
		return r.table.Recv(h, buffer, deadline)
	}
	session, err := r.established(h, entry, errorsx.ReadOperation)
	if err != nil {
		return 0, err
	}
	return sockets.Read(session.tlsConn, buffer, deadline)
}

// established returns the established session of an entry.
func (r *Registry) established(h model.Handle, entry sockets.Entry, op string) (*Session, error) {
	session, ok := entry.Layer.(*Session)
	if !ok {
		return nil, errorsx.NewStateError(op, "tlslayer: %s is a listener", h)
	}
	if state := session.State(); state != StateEstablished {
		return nil, errorsx.NewStateError(op, "tlslayer: %s is in state %s", h, state)
	}
	return session, nil
}
