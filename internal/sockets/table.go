// Package sockets contains the handle table mapping opaque handles to the
// streams and listeners they name.
//
// A handle may carry a layer (e.g., a TLS session) on top of its socket. The
// table only stores the layer: the package owning the layer implements it.
// While a layer is present, raw I/O through the table fails with a state
// error, since the layer has exclusive control of the socket.
package sockets

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/runtimex"
)

// Entry is a snapshot of a table entry.
type Entry struct {
	// Conn is the stream, or nil for listeners.
	Conn net.Conn

	// Listener is the listener, or nil for streams.
	Listener net.Listener

	// Layer is the OPTIONAL layer attached to the handle.
	Layer any
}

// IsConn returns whether the entry is a stream.
func (e *Entry) IsConn() bool {
	return e.Conn != nil
}

// Table maps handles to sockets. The zero value is invalid; use [NewTable].
//
// Distinct goroutines may use distinct handles concurrently. Using the same
// handle from distinct goroutines is not supported.
type Table struct {
	// dialer is the dialer used by Dial.
	dialer *net.Dialer

	// entries contains the entries.
	entries map[model.Handle]*Entry

	// logger is the logger.
	logger model.Logger

	// mu provides mutual exclusion.
	mu sync.Mutex

	// next is the next handle number.
	next model.Handle
}

// NewTable creates a new [*Table].
func NewTable(logger model.Logger) *Table {
	return &Table{
		dialer: &net.Dialer{
			Timeout:   15 * time.Second,
			KeepAlive: 15 * time.Second,
		},
		entries: make(map[model.Handle]*Entry),
		logger:  model.ValidLoggerOrDefault(logger),
		mu:      sync.Mutex{},
		next:    1,
	}
}

func (t *Table) insert(entry *Entry) model.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.next
	t.next++
	t.entries[h] = entry
	return h
}

// Register adds conn to the table and returns its handle. The table owns
// conn from now on.
func (t *Table) Register(conn net.Conn) model.Handle {
	h := t.insert(&Entry{Conn: conn})
	t.logger.Debugf("sockets: %s is %s <-> %s", h, conn.LocalAddr(), conn.RemoteAddr())
	return h
}

// RegisterListener adds listener to the table and returns its handle. The
// table owns listener from now on.
func (t *Table) RegisterListener(listener net.Listener) model.Handle {
	h := t.insert(&Entry{Listener: listener})
	t.logger.Debugf("sockets: %s is listening at %s", h, listener.Addr())
	return h
}

// Dial connects to address and registers the conn.
func (t *Table) Dial(ctx context.Context, network, address string) (model.Handle, error) {
	t.logger.Debugf("dial %s/%s...", address, network)
	start := time.Now()
	conn, err := t.dialer.DialContext(ctx, network, address)
	elapsed := time.Since(start)
	if err != nil {
		t.logger.Debugf("dial %s/%s... %s in %s", address, network, err, elapsed)
		return model.InvalidHandle, errorsx.NewIOError(errorsx.ConnectOperation, err)
	}
	t.logger.Debugf("dial %s/%s... ok in %s", address, network, elapsed)
	return t.Register(conn), nil
}

// Listen creates a listener and registers it.
func (t *Table) Listen(network, address string) (model.Handle, error) {
	listener, err := net.Listen(network, address)
	if err != nil {
		return model.InvalidHandle, errorsx.NewIOError(errorsx.ListenOperation, err)
	}
	return t.RegisterListener(listener), nil
}

// deadlineSetter is a listener with deadlines (e.g., *net.TCPListener).
type deadlineSetter interface {
	SetDeadline(t time.Time) error
}

// Accept accepts a conn from the listener named by h before the deadline and
// registers it. The zero deadline means no deadline.
func (t *Table) Accept(h model.Handle, deadline time.Time) (model.Handle, error) {
	entry, err := t.Lookup(h)
	if err != nil {
		return model.InvalidHandle, err
	}
	if entry.Listener == nil {
		return model.InvalidHandle, errorsx.NewStateError(
			errorsx.AcceptOperation, "sockets: %s is not a listener", h)
	}
	if setter, ok := entry.Listener.(deadlineSetter); ok {
		setter.SetDeadline(deadline)
		defer setter.SetDeadline(time.Time{})
	}
	conn, err := entry.Listener.Accept()
	if err != nil {
		return model.InvalidHandle, errorsx.NewIOError(errorsx.AcceptOperation, err)
	}
	return t.Register(conn), nil
}

// Lookup returns a snapshot of the entry named by h. The error is a state
// error when there is no such handle.
func (t *Table) Lookup(h model.Handle) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, found := t.entries[h]
	if !found {
		return Entry{}, errorsx.NewStateError(errorsx.LookupOperation, "sockets: no such handle: %s", h)
	}
	return *entry, nil
}

// Conn returns the stream named by h. The error is a state error when h
// does not exist or is a listener.
func (t *Table) Conn(h model.Handle) (net.Conn, error) {
	entry, err := t.Lookup(h)
	if err != nil {
		return nil, err
	}
	if !entry.IsConn() {
		return nil, errorsx.NewStateError(errorsx.LookupOperation, "sockets: %s is not a stream", h)
	}
	return entry.Conn, nil
}

// AttachLayer sets the layer of h. The error is a state error when h does
// not exist or already has a layer.
func (t *Table) AttachLayer(h model.Handle, layer any) error {
	runtimex.Assert(layer != nil, "sockets: nil layer")
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, found := t.entries[h]
	if !found {
		return errorsx.NewStateError(errorsx.AttachOperation, "sockets: no such handle: %s", h)
	}
	if entry.Layer != nil {
		return errorsx.NewStateError(errorsx.AttachOperation, "sockets: %s is already attached", h)
	}
	entry.Layer = layer
	return nil
}

// DetachLayer removes and returns the layer of h, if any. Removing the
// layer of a nonexistent handle is a no-op.
func (t *Table) DetachLayer(h model.Handle) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, found := t.entries[h]
	if !found {
		return nil
	}
	layer := entry.Layer
	entry.Layer = nil
	return layer
}

// Close closes the socket named by h and removes it from the table, along
// with its layer, if any.
func (t *Table) Close(h model.Handle) error {
	t.mu.Lock()
	entry, found := t.entries[h]
	delete(t.entries, h)
	t.mu.Unlock()
	if !found {
		return errorsx.NewStateError(errorsx.CloseOperation, "sockets: no such handle: %s", h)
	}
	var err error
	if entry.IsConn() {
		err = entry.Conn.Close()
	} else {
		err = entry.Listener.Close()
	}
	t.logger.Debugf("sockets: %s closed", h)
	return errorsx.MaybeNewErrWrapper(errorsx.KindIO, errorsx.ClassifyGenericError, errorsx.CloseOperation, err)
}

// rawConn returns the stream named by h if it has no layer.
func (t *Table) rawConn(h model.Handle, op string) (net.Conn, error) {
	entry, err := t.Lookup(h)
	if err != nil {
		return nil, err
	}
	if !entry.IsConn() {
		return nil, errorsx.NewStateError(op, "sockets: %s is not a stream", h)
	}
	if entry.Layer != nil {
		return nil, errorsx.NewStateError(op, "sockets: %s is attached", h)
	}
	return entry.Conn, nil
}

// Send writes all of data to the stream named by h before the deadline. The
// zero deadline means no deadline.
func (t *Table) Send(h model.Handle, data []byte, deadline time.Time) (int, error) {
	conn, err := t.rawConn(h, errorsx.WriteOperation)
	if err != nil {
		return 0, err
	}
	return Write(conn, data, deadline)
}

// Recv reads at most len(buffer) bytes from the stream named by h before the
// deadline. The zero deadline means no deadline.
func (t *Table) Recv(h model.Handle, buffer []byte, deadline time.Time) (int, error) {
	conn, err := t.rawConn(h, errorsx.ReadOperation)
	if err != nil {
		return 0, err
	}
	return Read(conn, buffer, deadline)
}

// Write writes data to conn before the deadline.
func Write(conn net.Conn, data []byte, deadline time.Time) (int, error) {
	conn.SetWriteDeadline(deadline)
	defer conn.SetWriteDeadline(time.Time{})
	count, err := conn.Write(data)
	if err != nil {
		return count, errorsx.NewIOError(errorsx.WriteOperation, err)
	}
	return count, nil
}

// Read reads at most len(buffer) bytes from conn before the deadline.
func Read(conn net.Conn, buffer []byte, deadline time.Time) (int, error) {
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})
	count, err := conn.Read(buffer)
	if err != nil {
		return count, errorsx.NewIOError(errorsx.ReadOperation, err)
	}
	return count, nil
}
