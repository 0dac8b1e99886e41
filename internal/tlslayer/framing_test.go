package tlslayer

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/btls/internal/model/mocks"
)

// newReaderConn returns a conn reading from data.
func newReaderConn(data []byte) (*mocks.Conn, *[]time.Time) {
	reader := bytes.NewReader(data)
	deadlines := &[]time.Time{}
	conn := &mocks.Conn{
		MockRead: reader.Read,
		MockWrite: func(b []byte) (int, error) {
			return len(b), nil
		},
		MockSetDeadline: func(t time.Time) error {
			*deadlines = append(*deadlines, t)
			return nil
		},
	}
	return conn, deadlines
}

func TestFramedConnRead(t *testing.T) {
	var stream []byte
	stream = append(stream, 23, 3, 3, 0, 3, 'a', 'b', 'c') // application data
	stream = append(stream, 22, 3, 3, 0, 0)                // empty record
	stream = append(stream, 21, 3, 3, 0, 2, 1, 0)          // close_notify
	stream = append(stream, []byte("cleartext")...)

	conn, _ := newReaderConn(stream)
	framed := newFramedConn(conn)

	var reads [][]byte
	for idx := 0; idx < 6; idx++ {
		buffer := make([]byte, 1024)
		count, err := framed.Read(buffer)
		if err != nil {
			t.Fatal(err)
		}
		reads = append(reads, buffer[:count])
	}

	expect := [][]byte{
		{23, 3, 3, 0, 3},
		[]byte("abc"),
		{22, 3, 3, 0, 0},
		{21, 3, 3, 0, 2},
		{1, 0},
		[]byte("clear"), // what follows is not a record but we do not care
	}
	if diff := cmp.Diff(expect, reads); diff != "" {
		t.Fatal(diff)
	}
}

func TestFramedConnShortReads(t *testing.T) {
	stream := []byte{23, 3, 3, 0, 4, 'a', 'b', 'c', 'd', 'x'}
	conn, _ := newReaderConn(stream)
	framed := newFramedConn(conn)
	var out []byte
	for len(out) < 9 {
		buffer := make([]byte, 2)
		count, err := framed.Read(buffer)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, buffer[:count]...)
	}
	if diff := cmp.Diff(stream[:9], out); diff != "" {
		t.Fatal(diff)
	}
	if framed.remaining != 0 || framed.headerLen != 0 {
		t.Fatal("we should be at a record boundary")
	}
}

func TestFramedConnClose(t *testing.T) {
	conn, deadlines := newReaderConn([]byte{23, 3, 3, 0, 0})
	var closed bool
	conn.MockClose = func() error {
		closed = true
		return nil
	}
	framed := newFramedConn(conn)
	if framed.interrupted() {
		t.Fatal("should not be interrupted")
	}
	if err := framed.Close(); err != nil {
		t.Fatal(err)
	}
	if err := framed.Close(); err != nil {
		t.Fatal(err)
	}
	if closed {
		t.Fatal("should not have closed the raw conn")
	}
	if len(*deadlines) != 1 {
		t.Fatal("expected a single deadline")
	}
	if !framed.interrupted() {
		t.Fatal("should be interrupted")
	}
	if _, err := framed.Read(make([]byte, 4)); !errors.Is(err, net.ErrClosed) {
		t.Fatal("unexpected error", err)
	}
	if _, err := framed.Write([]byte("abc")); !errors.Is(err, net.ErrClosed) {
		t.Fatal("unexpected error", err)
	}
}
