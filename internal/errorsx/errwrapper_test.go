package errorsx

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestErrWrapper(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &ErrWrapper{Failure: FailureSSLUnknownAuthority}
		if err.Error() != FailureSSLUnknownAuthority {
			t.Fatal("invalid return value")
		}
	})

	t.Run("Unwrap", func(t *testing.T) {
		err := &ErrWrapper{
			Failure:    FailureEOFError,
			WrappedErr: io.EOF,
		}
		if !errors.Is(err, io.EOF) {
			t.Fatal("cannot unwrap error")
		}
	})

	t.Run("Is matches the kind sentinel", func(t *testing.T) {
		err := &ErrWrapper{Kind: KindTimeout, Failure: FailureGenericTimeoutError}
		if !errors.Is(err, ErrTimeout) {
			t.Fatal("expected ErrTimeout")
		}
		if errors.Is(err, ErrProtocol) {
			t.Fatal("did not expect ErrProtocol")
		}
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		wrappedErr := &ErrWrapper{
			Failure:    FailureEOFError,
			WrappedErr: io.EOF,
		}
		data, err := json.Marshal(wrappedErr)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(`"`+FailureEOFError+`"`, string(data)); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestNewErrWrapper(t *testing.T) {
	mustPanic := func(t *testing.T, f func()) {
		var recovered bool
		func() {
			defer func() {
				recovered = recover() != nil
			}()
			f()
		}()
		if !recovered {
			t.Fatal("did not panic")
		}
	}

	t.Run("panics if the classifier is nil", func(t *testing.T) {
		mustPanic(t, func() {
			NewErrWrapper(KindIO, nil, CloseOperation, io.EOF)
		})
	})

	t.Run("panics if the operation is empty", func(t *testing.T) {
		mustPanic(t, func() {
			NewErrWrapper(KindIO, ClassifyGenericError, "", io.EOF)
		})
	})

	t.Run("panics if the error is nil", func(t *testing.T) {
		mustPanic(t, func() {
			NewErrWrapper(KindIO, ClassifyGenericError, CloseOperation, nil)
		})
	})

	t.Run("otherwise, works as intended", func(t *testing.T) {
		ew := NewErrWrapper(KindIO, ClassifyGenericError, ReadOperation, io.EOF)
		if ew.Failure != FailureEOFError {
			t.Fatal("unexpected failure")
		}
		if ew.Operation != ReadOperation {
			t.Fatal("unexpected operation")
		}
		if ew.Kind != KindIO {
			t.Fatal("unexpected kind")
		}
	})

	t.Run("when the underlying error is already a wrapped error", func(t *testing.T) {
		inner := NewErrWrapper(KindTimeout, ClassifyGenericError, ReadOperation, io.EOF)
		ew := NewErrWrapper(KindUnknown, ClassifyTLSHandshakeError, TLSHandshakeOperation, inner)
		if ew.Failure != FailureEOFError {
			t.Fatal("unexpected failure")
		}
		if ew.Operation != ReadOperation {
			t.Fatal("unexpected operation", ew.Operation)
		}
		if ew.Kind != KindTimeout {
			t.Fatal("expected to inherit the kind")
		}
	})
}

func TestMaybeNewErrWrapper(t *testing.T) {
	if MaybeNewErrWrapper(KindIO, ClassifyGenericError, ReadOperation, nil) != nil {
		t.Fatal("expected nil")
	}
	err := MaybeNewErrWrapper(KindIO, ClassifyGenericError, ReadOperation, io.EOF)
	if !errors.Is(err, ErrIO) {
		t.Fatal("expected ErrIO", err)
	}
}

func TestKind(t *testing.T) {
	expect := map[Kind]string{
		KindUnknown:  "unknown_error",
		KindConfig:   "config_error",
		KindIO:       "io_error",
		KindDecrypt:  "decrypt_error",
		KindState:    "state_error",
		KindTimeout:  "timeout_error",
		KindProtocol: "protocol_error",
	}
	for kind, s := range expect {
		if kind.String() != s {
			t.Fatal("unexpected string for", int(kind), kind.String())
		}
	}
	if KindUnknown.Sentinel() != nil {
		t.Fatal("expected nil sentinel")
	}
}

func TestNewKindErrors(t *testing.T) {
	serr := NewStateError(DetachOperation, "invalid state: %s", "handshaking")
	if !errors.Is(serr, ErrState) || serr.Failure != FailureInvalidState {
		t.Fatal("unexpected state error", serr)
	}
	cerr := NewConfigError(AttachOperation, "no key pairs")
	if !errors.Is(cerr, ErrConfig) || cerr.Failure != FailureInvalidConfiguration {
		t.Fatal("unexpected config error", cerr)
	}
	derr := NewDecryptError(LoadFileOperation, io.ErrUnexpectedEOF)
	if !errors.Is(derr, ErrDecrypt) || !errors.Is(derr, io.ErrUnexpectedEOF) {
		t.Fatal("unexpected decrypt error", derr)
	}
	if KindOf(cerr) != KindConfig || KindOf(io.EOF) != KindUnknown {
		t.Fatal("KindOf is broken")
	}
}

func TestNewIOError(t *testing.T) {
	t.Run("for a deadline", func(t *testing.T) {
		err := NewIOError(ReadOperation, os.ErrDeadlineExceeded)
		if !errors.Is(err, ErrTimeout) || err.Failure != FailureGenericTimeoutError {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("for other errors", func(t *testing.T) {
		err := NewIOError(WriteOperation, io.EOF)
		if !errors.Is(err, ErrIO) || err.Failure != FailureEOFError || err.Operation != WriteOperation {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("for already wrapped errors", func(t *testing.T) {
		inner := NewStateError(ReadOperation, "layered")
		err := NewIOError(WriteOperation, inner)
		if !errors.Is(err, ErrState) || err.Operation != ReadOperation {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestErrorString(t *testing.T) {
	t.Run("for nil", func(t *testing.T) {
		if ErrorString(nil) != "ok" {
			t.Fatal("expected ok")
		}
	})

	t.Run("for wrapped errors", func(t *testing.T) {
		err := NewStateError(TLSHandshakeOperation, "detached")
		if ErrorString(err) != FailureInvalidState {
			t.Fatal("unexpected string")
		}
	})

	t.Run("never returns an empty string", func(t *testing.T) {
		for _, err := range []error{
			errors.New(""),
			errors.New("mocked error"),
			ErrConfig, ErrIO, ErrDecrypt, ErrState, ErrTimeout, ErrProtocol,
		} {
			if ErrorString(err) == "" {
				t.Fatal("empty string for", err)
			}
		}
	})
}
