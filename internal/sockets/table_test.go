package sockets

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/model/mocks"
)

func TestTableDialListenAccept(t *testing.T) {
	table := NewTable(log.Log)
	lh, err := table.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer table.Close(lh)
	entry, err := table.Lookup(lh)
	if err != nil {
		t.Fatal(err)
	}
	if entry.IsConn() || entry.Listener == nil {
		t.Fatal("expected a listener")
	}

	type acceptResult struct {
		h   model.Handle
		err error
	}
	acceptch := make(chan acceptResult, 1)
	go func() {
		h, err := table.Accept(lh, time.Now().Add(10*time.Second))
		acceptch <- acceptResult{h, err}
	}()

	ch, err := table.Dial(context.Background(), "tcp", entry.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer table.Close(ch)
	accepted := <-acceptch
	if accepted.err != nil {
		t.Fatal(accepted.err)
	}
	defer table.Close(accepted.h)
	if ch == accepted.h || ch == lh {
		t.Fatal("handles should be distinct")
	}

	if _, err := table.Send(ch, []byte("antani"), time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	buffer := make([]byte, 128)
	count, err := table.Recv(accepted.h, buffer, time.Now().Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if string(buffer[:count]) != "antani" {
		t.Fatal("unexpected data", string(buffer[:count]))
	}

	t.Run("Recv honours the deadline", func(t *testing.T) {
		_, err := table.Recv(accepted.h, buffer, time.Now().Add(50*time.Millisecond))
		if !errors.Is(err, errorsx.ErrTimeout) {
			t.Fatal("unexpected error", err)
		}
		if errorsx.ErrorString(err) != errorsx.FailureGenericTimeoutError {
			t.Fatal("unexpected failure", err)
		}
	})

	t.Run("Accept honours the deadline", func(t *testing.T) {
		_, err := table.Accept(lh, time.Now().Add(50*time.Millisecond))
		if !errors.Is(err, errorsx.ErrTimeout) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("Accept fails for streams", func(t *testing.T) {
		_, err := table.Accept(ch, time.Time{})
		if !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("Send and Recv fail for listeners", func(t *testing.T) {
		if _, err := table.Send(lh, []byte("x"), time.Time{}); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
		if _, err := table.Recv(lh, buffer, time.Time{}); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestTableDialFailure(t *testing.T) {
	table := NewTable(model.DiscardLogger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // fail immediately
	h, err := table.Dial(ctx, "tcp", "127.0.0.1:1")
	if err == nil || h != model.InvalidHandle {
		t.Fatal("expected an error")
	}
	if errorsx.KindOf(err) != errorsx.KindIO {
		t.Fatal("unexpected kind", errorsx.KindOf(err))
	}
}

func TestTableLayers(t *testing.T) {
	newConn := func() *mocks.Conn {
		return &mocks.Conn{
			MockLocalAddr: func() net.Addr {
				return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1234}
			},
			MockRemoteAddr: func() net.Addr {
				return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4321}
			},
			MockClose: func() error {
				return nil
			},
		}
	}

	t.Run("we cannot attach twice", func(t *testing.T) {
		table := NewTable(model.DiscardLogger)
		h := table.Register(newConn())
		if err := table.AttachLayer(h, "first"); err != nil {
			t.Fatal(err)
		}
		if err := table.AttachLayer(h, "second"); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
		entry, err := table.Lookup(h)
		if err != nil {
			t.Fatal(err)
		}
		if entry.Layer != "first" {
			t.Fatal("unexpected layer", entry.Layer)
		}
	})

	t.Run("raw I/O is not possible while attached", func(t *testing.T) {
		table := NewTable(model.DiscardLogger)
		h := table.Register(newConn())
		if err := table.AttachLayer(h, "layer"); err != nil {
			t.Fatal(err)
		}
		if _, err := table.Send(h, []byte("x"), time.Time{}); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
		if _, err := table.Recv(h, make([]byte, 1), time.Time{}); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("DetachLayer allows attaching again", func(t *testing.T) {
		table := NewTable(model.DiscardLogger)
		h := table.Register(newConn())
		if err := table.AttachLayer(h, "first"); err != nil {
			t.Fatal(err)
		}
		if layer := table.DetachLayer(h); layer != "first" {
			t.Fatal("unexpected layer", layer)
		}
		if layer := table.DetachLayer(h); layer != nil {
			t.Fatal("unexpected layer", layer)
		}
		if err := table.AttachLayer(h, "second"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("with nonexistent handles", func(t *testing.T) {
		table := NewTable(model.DiscardLogger)
		if err := table.AttachLayer(17, "layer"); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
		if layer := table.DetachLayer(17); layer != nil {
			t.Fatal("unexpected layer", layer)
		}
		if _, err := table.Conn(17); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
		if err := table.Close(17); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("Close removes the entry and closes the conn", func(t *testing.T) {
		table := NewTable(model.DiscardLogger)
		var closed bool
		conn := newConn()
		conn.MockClose = func() error {
			closed = true
			return nil
		}
		h := table.Register(conn)
		if err := table.Close(h); err != nil {
			t.Fatal(err)
		}
		if !closed {
			t.Fatal("did not close the conn")
		}
		if _, err := table.Lookup(h); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestReadWriteClearDeadlines(t *testing.T) {
	var deadlines []time.Time
	conn := &mocks.Conn{
		MockSetReadDeadline: func(t time.Time) error {
			deadlines = append(deadlines, t)
			return nil
		},
		MockSetWriteDeadline: func(t time.Time) error {
			deadlines = append(deadlines, t)
			return nil
		},
		MockRead: func(b []byte) (int, error) {
			return 0, net.ErrClosed
		},
		MockWrite: func(b []byte) (int, error) {
			return len(b), nil
		},
	}
	deadline := time.Now().Add(time.Hour)
	if _, err := Read(conn, make([]byte, 4), deadline); errorsx.ErrorString(err) != errorsx.FailureConnectionAlreadyClosed {
		t.Fatal("unexpected error", err)
	}
	if _, err := Write(conn, []byte("abc"), deadline); err != nil {
		t.Fatal(err)
	}
	expect := []time.Time{deadline, {}, deadline, {}}
	if len(deadlines) != len(expect) {
		t.Fatal("unexpected number of deadlines", len(deadlines))
	}
	for idx := range expect {
		if !deadlines[idx].Equal(expect[idx]) {
			t.Fatal("unexpected deadline at", idx)
		}
	}
}
