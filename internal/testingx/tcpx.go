package testingx

import (
	"net"

	"github.com/ooni/btls/internal/runtimex"
)

// TCPListener creates TCP listeners. This type should work both
// with the standard library and with netem as its backend.
type TCPListener interface {
	ListenTCP(network string, addr *net.TCPAddr) (net.Listener, error)
}

// TCPListenerStdlib implements [TCPListener] for the stdlib.
type TCPListenerStdlib struct{}

var _ TCPListener = &TCPListenerStdlib{}

// ListenTCP implements TCPListener.
func (*TCPListenerStdlib) ListenTCP(network string, addr *net.TCPAddr) (net.Listener, error) {
	return net.ListenTCP(network, addr)
}

// MustNewTCPConnPair returns two connected loopback TCP conns. Unlike
// [net.Pipe], the kernel buffers writes, so a peer can write an alert
// while the other peer is still writing its own flight.
func MustNewTCPConnPair() (client, server net.Conn) {
	listener := runtimex.Try1(net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}))
	defer listener.Close()
	acceptch := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			close(acceptch)
			return
		}
		acceptch <- conn
	}()
	client = runtimex.Try1(net.Dial("tcp", listener.Addr().String()))
	server, good := <-acceptch
	runtimex.Assert(good, "listener.Accept failed")
	return client, server
}

// tcpMaybeResetNetConn is a portable mechanism to reset a net.Conn that takes into account
// both TLS wrapping with any library and stdlib vs. netem concerns.
//
// Bug: netem is not WAI because there's no *gonet.TCPConn.SetLinger method.
func tcpMaybeResetNetConn(conn net.Conn) {
	// first, let's try to get the underlying conn, when we're using TLS
	type connUnwrapper interface {
		NetConn() net.Conn
	}
	if unwrapper, good := conn.(connUnwrapper); good {
		conn = unwrapper.NetConn()
	}

	// then, let's try to get the controller for disabling linger
	type connLingerSetter interface {
		SetLinger(sec int) error
	}
	if setter, good := conn.(connLingerSetter); good {
		setter.SetLinger(0)
	}

	// close the conn to trigger the reset
	conn.Close()
}
