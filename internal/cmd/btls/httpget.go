package main

//
// HTTP GET over an established session
//

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/tlslayer"
	oohttp "github.com/ooni/oohttp"
)

// handleConn adapts the established session of a handle to [oohttp.TLSConn]
// so that oohttp can speak HTTP/1.1 over it. Each read and write uses its own
// timeout, so the deadline setters do nothing. Close does nothing either,
// because the caller owns the handle and decides whether to detach it.
type handleConn struct {
	h       model.Handle
	raw     net.Conn
	r       *tlslayer.Registry
	timeout time.Duration
}

var _ oohttp.TLSConn = &handleConn{}

// Read implements net.Conn.
func (c *handleConn) Read(b []byte) (int, error) {
	count, err := c.r.Recv(c.h, b, time.Now().Add(c.timeout))
	if errors.Is(err, io.EOF) {
		err = io.EOF // net/http compares with io.EOF
	}
	return count, err
}

// Write implements net.Conn.
func (c *handleConn) Write(b []byte) (int, error) {
	return c.r.Send(c.h, b, time.Now().Add(c.timeout))
}

// Close implements net.Conn.
func (c *handleConn) Close() error {
	return nil
}

// LocalAddr implements net.Conn.
func (c *handleConn) LocalAddr() net.Addr {
	return c.raw.LocalAddr()
}

// RemoteAddr implements net.Conn.
func (c *handleConn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// SetDeadline implements net.Conn.
func (c *handleConn) SetDeadline(t time.Time) error {
	return nil
}

// SetReadDeadline implements net.Conn.
func (c *handleConn) SetReadDeadline(t time.Time) error {
	return nil
}

// SetWriteDeadline implements net.Conn.
func (c *handleConn) SetWriteDeadline(t time.Time) error {
	return nil
}

// ConnectionState implements oohttp.TLSConn.
func (c *handleConn) ConnectionState() tls.ConnectionState {
	return c.r.ConnectionState(c.h).UnwrapOr(tls.ConnectionState{})
}

// HandshakeContext implements oohttp.TLSConn. The session is already established.
func (c *handleConn) HandshakeContext(ctx context.Context) error {
	return nil
}

// NetConn implements oohttp.TLSConn.
func (c *handleConn) NetConn() net.Conn {
	return c.raw
}

// errConnUsed indicates that oohttp attempted to dial twice.
var errConnUsed = errors.New("btls: the session was already used")

// httpGet sends a GET request for path over the established session of h
// and copies the response body to w. The request asks the server to close
// the connection, so oohttp never reuses the session.
func (o *connectOptions) httpGet(ctx context.Context, r *tlslayer.Registry,
	h model.Handle, serverName string, w io.Writer) error {
	entry, err := r.Table().Lookup(h)
	if err != nil {
		return err
	}
	conn := &handleConn{h: h, raw: entry.Conn, r: r, timeout: o.timeout}
	dialed := false
	txp := oohttp.DefaultTransport.(*oohttp.Transport).Clone()
	txp.DialTLSContext = func(ctx context.Context, network, address string) (net.Conn, error) {
		if dialed {
			return nil, errConnUsed
		}
		dialed = true
		return conn, nil
	}
	txp.DisableCompression = true
	txp.ForceAttemptHTTP2 = false
	txp.Proxy = nil
	txp.TLSNextProto = map[string]func(string, oohttp.TLSConn) oohttp.RoundTripper{}
	defer txp.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	host := serverName
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	URL, err := url.Parse("https://" + host + o.get)
	if err != nil {
		return err
	}
	req, err := oohttp.NewRequestWithContext(ctx, oohttp.MethodGet, URL.String(), nil)
	if err != nil {
		return err
	}
	req.Close = true
	resp, err := txp.RoundTrip(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	log.Infof("GET %s: %s", o.get, resp.Status)
	_, err = io.Copy(w, resp.Body)
	return err
}
