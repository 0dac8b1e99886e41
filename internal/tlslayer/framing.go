package tlslayer

//
// TLS record framing
//

import (
	"net"
	"sync/atomic"
	"time"
)

// recordHeaderLen is the length of a TLS record header.
const recordHeaderLen = 5

// framedConn is the net.Conn we give to TLS engines. It never reads past the
// end of the current TLS record, so whatever the peer sends after its
// close_notify alert stays inside the raw conn, ready for non-TLS I/O
// after detaching. We only inspect the length field of the record header.
//
// Closing a framedConn does not close the raw conn, which belongs to the
// handle table. It interrupts pending I/O and fails any further I/O instead.
type framedConn struct {
	net.Conn

	// closed is set by Close.
	closed atomic.Bool

	// header contains the header of the current record.
	header [recordHeaderLen]byte

	// headerLen is the number of header bytes read so far.
	headerLen int

	// remaining is the number of body bytes left in the current record.
	remaining int
}

var _ net.Conn = &framedConn{}

func newFramedConn(conn net.Conn) *framedConn {
	return &framedConn{Conn: conn}
}

// Read implements net.Conn.
func (c *framedConn) Read(b []byte) (int, error) {
	if c.closed.Load() {
		return 0, net.ErrClosed
	}
	if len(b) <= 0 {
		return 0, nil
	}
	if c.remaining > 0 {
		if len(b) > c.remaining {
			b = b[:c.remaining]
		}
		count, err := c.Conn.Read(b)
		c.remaining -= count
		return count, err
	}
	if want := recordHeaderLen - c.headerLen; len(b) > want {
		b = b[:want]
	}
	count, err := c.Conn.Read(b)
	copy(c.header[c.headerLen:], b[:count])
	c.headerLen += count
	if c.headerLen == recordHeaderLen {
		c.remaining = int(c.header[3])<<8 | int(c.header[4])
		c.headerLen = 0
	}
	return count, err
}

// Write implements net.Conn.
func (c *framedConn) Write(b []byte) (int, error) {
	if c.closed.Load() {
		return 0, net.ErrClosed
	}
	return c.Conn.Write(b)
}

// Close implements net.Conn.
func (c *framedConn) Close() error {
	if !c.closed.Swap(true) {
		c.Conn.SetDeadline(time.Now()) // unblock pending I/O
	}
	return nil
}

// interrupted returns whether Close was called.
func (c *framedConn) interrupted() bool {
	return c.closed.Load()
}
