package tlslayer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/ooni/btls/internal/engineconfig"
	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/keymaterial"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/runtimex"
	"github.com/ooni/btls/internal/sockets"
	"github.com/ooni/btls/internal/testingx"
)

// testEnv contains the common fixtures of the registry tests.
type testEnv struct {
	registry *Registry
	root     *testingx.PKI
	ca       *keymaterial.CertificateAuthority
	server   *keymaterial.KeyPair
	client   *keymaterial.KeyPair

	// serverPEM and clientPEM are the PEM key pairs.
	serverPEM *testingx.IssuedKeyPair
	clientPEM *testingx.IssuedKeyPair
}

func newTestEnv() *testEnv {
	root := testingx.MustNewPKI("btls root")
	serverPEM := root.MustIssue(&testingx.IssueConfig{
		CommonName: "www.example.com",
		DNSNames:   []string{"www.example.com", "*.example.org"},
	})
	clientPEM := root.MustIssue(&testingx.IssueConfig{
		CommonName: "client.example.com",
	})
	return &testEnv{
		registry:  NewRegistry(sockets.NewTable(log.Log), nil, log.Log),
		root:      root,
		ca:        runtimex.Try1(keymaterial.NewCA("", "", root.CertificatePEM())),
		server:    mustNewKeyPair(serverPEM),
		client:    mustNewKeyPair(clientPEM),
		serverPEM: serverPEM,
		clientPEM: clientPEM,
	}
}

func mustNewKeyPair(issued *testingx.IssuedKeyPair) *keymaterial.KeyPair {
	return runtimex.Try1(keymaterial.NewKeyPair(issued.CertPEM, issued.KeyPEM))
}

// connPair registers a pair of connected streams.
func (env *testEnv) connPair() (client, server model.Handle) {
	clientConn, serverConn := testingx.MustNewTCPConnPair()
	table := env.registry.Table()
	return table.Register(clientConn), table.Register(serverConn)
}

// closeAll closes the given handles.
func (env *testEnv) closeAll(handles ...model.Handle) {
	for _, h := range handles {
		env.registry.Close(h)
	}
}

// handshakeBoth performs the handshake of both handles concurrently.
func (env *testEnv) handshakeBoth(client, server model.Handle, deadline time.Time) (clientErr, serverErr error) {
	errch := make(chan error, 1)
	go func() {
		errch <- env.registry.Handshake(server, deadline)
	}()
	clientErr = env.registry.Handshake(client, deadline)
	if clientErr != nil {
		// make sure the server does not wait for us until the deadline
		env.registry.Reset(client)
		env.registry.Table().Close(client)
	}
	serverErr = <-errch
	return
}

// mustAttachPair attaches a default client and server to a new pair.
func (env *testEnv) mustAttachPair(alpn []string) (client, server model.Handle) {
	client, server = env.connPair()
	runtimex.Try0(env.registry.AttachServer(server, engineconfig.Default, 0,
		[]*keymaterial.KeyPair{env.server}, nil, alpn))
	runtimex.Try0(env.registry.AttachClient(client, engineconfig.Default, 0,
		env.ca, alpn, "www.example.com"))
	return
}

func deadlineIn(d time.Duration) time.Time {
	return time.Now().Add(d)
}

func TestAttachTwice(t *testing.T) {
	env := newTestEnv()
	client, server := env.connPair()
	defer env.closeAll(client, server)

	if err := env.registry.AttachClient(client, engineconfig.Default, 0, env.ca, nil, "www.example.com"); err != nil {
		t.Fatal(err)
	}
	kps := []*keymaterial.KeyPair{env.server}
	if err := env.registry.AttachServer(server, engineconfig.Default, 0, kps, nil, nil); err != nil {
		t.Fatal(err)
	}
	for idx := 0; idx < 2; idx++ {
		err := env.registry.AttachClient(client, engineconfig.Default, 0, env.ca, nil, "")
		if !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
		err = env.registry.AttachServer(client, engineconfig.Default, 0, kps, nil, nil)
		if !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
		err = env.registry.AttachServer(server, engineconfig.Default, 0, kps, nil, nil)
		if !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
		err = env.registry.AttachClientKP(server, engineconfig.Default, 0, kps, env.ca, nil, "")
		if !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
	}
}

func TestAttachStateErrors(t *testing.T) {
	env := newTestEnv()
	kps := []*keymaterial.KeyPair{env.server}

	t.Run("with a nonexistent handle", func(t *testing.T) {
		err := env.registry.AttachClient(1234, engineconfig.Default, 0, env.ca, nil, "")
		if !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("attaching a client to a listener", func(t *testing.T) {
		lh := runtimex.Try1(env.registry.Table().Listen("tcp", "127.0.0.1:0"))
		defer env.closeAll(lh)
		err := env.registry.AttachClient(lh, engineconfig.Default, 0, env.ca, nil, "")
		if !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("accepting from a listener without template", func(t *testing.T) {
		lh := runtimex.Try1(env.registry.Table().Listen("tcp", "127.0.0.1:0"))
		client, server := env.connPair()
		defer env.closeAll(lh, client, server)
		if err := env.registry.AttachAccept(server, lh); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("accepting onto a listener", func(t *testing.T) {
		lh := runtimex.Try1(env.registry.Table().Listen("tcp", "127.0.0.1:0"))
		other := runtimex.Try1(env.registry.Table().Listen("tcp", "127.0.0.1:0"))
		defer env.closeAll(lh, other)
		runtimex.Try0(env.registry.AttachServer(lh, engineconfig.Default, 0, kps, nil, nil))
		if err := env.registry.AttachAccept(other, lh); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestAttachConfigErrors(t *testing.T) {
	env := newTestEnv()

	type testcase struct {
		name   string
		attach func(h model.Handle) error
	}

	testcases := []testcase{{
		name: "server without key pairs",
		attach: func(h model.Handle) error {
			return env.registry.AttachServer(h, engineconfig.Default, 0, nil, nil, nil)
		},
	}, {
		name: "client requesting mutual authentication without key pairs",
		attach: func(h model.Handle) error {
			flags := engineconfig.Default | engineconfig.VerifyClient
			return env.registry.AttachClient(h, flags, 0, env.ca, nil, "www.example.com")
		},
	}, {
		name: "unsupported named curve",
		attach: func(h model.Handle) error {
			flags := engineconfig.Default | engineconfig.ECDHECurveSECP224K1
			return env.registry.AttachClient(h, flags, 0, env.ca, nil, "www.example.com")
		},
	}, {
		name: "specific ciphers we do not implement",
		attach: func(h model.Handle) error {
			flags := engineconfig.Default&^engineconfig.CiphersDefault | engineconfig.CiphersSpecific
			ciphers := uint64(engineconfig.CiphersCAMELLIA128SHA256)
			return env.registry.AttachClient(h, flags, ciphers, env.ca, nil, "www.example.com")
		},
	}, {
		name: "key not matching the certificate",
		attach: func(h model.Handle) error {
			kp := runtimex.Try1(keymaterial.NewKeyPair(env.serverPEM.CertPEM, env.clientPEM.KeyPEM))
			return env.registry.AttachServer(h, engineconfig.Default, 0, []*keymaterial.KeyPair{kp}, nil, nil)
		},
	}, {
		name: "name verification without a server name",
		attach: func(h model.Handle) error {
			return env.registry.AttachClient(h, engineconfig.Default, 0, env.ca, nil, "")
		},
	}, {
		name: "CA without certificates",
		attach: func(h model.Handle) error {
			ca := runtimex.Try1(keymaterial.NewCA("", "", []byte("antani")))
			return env.registry.AttachClient(h, engineconfig.Default, 0, ca, nil, "www.example.com")
		},
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			client, server := env.connPair()
			defer env.closeAll(client, server)
			if err := tc.attach(client); !errors.Is(err, errorsx.ErrConfig) {
				t.Fatal("unexpected error", err)
			}
			entry := runtimex.Try1(env.registry.Table().Lookup(client))
			if entry.Layer != nil {
				t.Fatal("a failed attach should not bind a layer")
			}
		})
	}
}

func TestAttachClientWithoutServerName(t *testing.T) {
	env := newTestEnv()
	client, server := env.connPair()
	defer env.closeAll(client, server)

	flags := engineconfig.Default | engineconfig.NoVerifyName
	runtimex.Try0(env.registry.AttachServer(server, engineconfig.Default, 0,
		[]*keymaterial.KeyPair{env.server}, nil, nil))
	runtimex.Try0(env.registry.AttachClient(client, flags, 0, env.ca, nil, ""))
	clientErr, serverErr := env.handshakeBoth(client, server, deadlineIn(10*time.Second))
	if clientErr != nil || serverErr != nil {
		t.Fatal(clientErr, serverErr)
	}
	if !env.registry.ConnServerName(server).IsNone() {
		t.Fatal("expected no SNI")
	}
}

func TestResetBeforeHandshake(t *testing.T) {
	env := newTestEnv()
	client, server := env.connPair()
	defer env.closeAll(client, server)

	for idx := 0; idx < 3; idx++ {
		if err := env.registry.AttachClient(client, engineconfig.Default, 0, env.ca, nil, "www.example.com"); err != nil {
			t.Fatal(err)
		}
		if state := env.registry.SessionState(client); state.Unwrap() != StateUnattached {
			t.Fatal("unexpected state", state.Unwrap())
		}
		env.registry.Reset(client)
		if state := env.registry.SessionState(client); state.Unwrap() != StateDetached {
			t.Fatal("unexpected state", state.Unwrap())
		}
	}

	// the raw stream is usable again
	if _, err := env.registry.Send(client, []byte("abc"), deadlineIn(time.Second)); err != nil {
		t.Fatal(err)
	}
	buffer := make([]byte, 16)
	count, err := env.registry.Recv(server, buffer, deadlineIn(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if string(buffer[:count]) != "abc" {
		t.Fatal("unexpected data", string(buffer[:count]))
	}

	// reset never fails, not even for nonexistent handles
	env.registry.Reset(client)
	env.registry.Reset(4321)
}

func TestHandshakeSuccess(t *testing.T) {
	env := newTestEnv()
	client, server := env.mustAttachPair([]string{"h2", "http/1.1"})
	defer env.closeAll(client, server)

	clientErr, serverErr := env.handshakeBoth(client, server, deadlineIn(10*time.Second))
	if clientErr != nil || serverErr != nil {
		t.Fatal(clientErr, serverErr)
	}

	for _, h := range []model.Handle{client, server} {
		if state := env.registry.SessionState(h).Unwrap(); state != StateEstablished {
			t.Fatal("unexpected state", state)
		}
		if alpn := env.registry.ConnALPNSelected(h); alpn.UnwrapOr("") != "h2" {
			t.Fatal("unexpected ALPN", alpn.UnwrapOr(""))
		}
		if cs := env.registry.ConnectionState(h); cs.IsNone() || !cs.Unwrap().HandshakeComplete {
			t.Fatal("expected a complete connection state")
		}
		if version := env.registry.ConnVersion(h); version.UnwrapOr("") != "TLSv1.2" {
			t.Fatal("unexpected version", version.UnwrapOr(""))
		}
		if cipher := env.registry.ConnCipher(h); !strings.HasPrefix(cipher.UnwrapOr(""), "TLS_ECDHE_ECDSA_") {
			t.Fatal("unexpected cipher", cipher.UnwrapOr(""))
		}
		if sni := env.registry.ConnServerName(h); sni.UnwrapOr("") != "www.example.com" {
			t.Fatal("unexpected server name", sni.UnwrapOr(""))
		}
		// handshaking again is a no-op
		if err := env.registry.Handshake(h, time.Time{}); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("the client sees the server certificate", func(t *testing.T) {
		if !env.registry.PeerCertProvided(client) {
			t.Fatal("expected a certificate")
		}
		if subject := env.registry.PeerCertSubject(client).UnwrapOr(""); !strings.Contains(subject, "CN=www.example.com") {
			t.Fatal("unexpected subject", subject)
		}
		if issuer := env.registry.PeerCertIssuer(client).UnwrapOr(""); !strings.Contains(issuer, "CN=btls root") {
			t.Fatal("unexpected issuer", issuer)
		}
		hash := env.registry.PeerCertHash(client).UnwrapOr("")
		if !strings.HasPrefix(hash, "SHA256:") || len(hash) != len("SHA256:")+64 {
			t.Fatal("unexpected hash", hash)
		}
		notBefore := env.registry.PeerCertNotBefore(client)
		notAfter := env.registry.PeerCertNotAfter(client)
		if notBefore.IsNone() || notAfter.IsNone() || !notBefore.Unwrap().Before(notAfter.Unwrap()) {
			t.Fatal("unexpected validity")
		}
		if !env.registry.PeerCertContainsName(client, "www.example.com") {
			t.Fatal("expected a match")
		}
		if !env.registry.PeerCertContainsName(client, "WWW.Example.COM.") {
			t.Fatal("expected a case insensitive match")
		}
		if !env.registry.PeerCertContainsName(client, "foo.example.org") {
			t.Fatal("expected a wildcard match")
		}
		if env.registry.PeerCertContainsName(client, "foo.bar.example.org") {
			t.Fatal("wildcards should only match one label")
		}
	})

	t.Run("the server does not see a client certificate", func(t *testing.T) {
		if env.registry.PeerCertProvided(server) {
			t.Fatal("expected no certificate")
		}
		if !env.registry.PeerCertHash(server).IsNone() || !env.registry.PeerCertNotAfter(server).IsNone() {
			t.Fatal("expected absent fields")
		}
		if env.registry.PeerCertContainsName(server, "client.example.com") {
			t.Fatal("expected no match")
		}
	})

	t.Run("we can exchange application data", func(t *testing.T) {
		if _, err := env.registry.Send(client, []byte("antani"), deadlineIn(time.Second)); err != nil {
			t.Fatal(err)
		}
		buffer := make([]byte, 64)
		count, err := env.registry.Recv(server, buffer, deadlineIn(time.Second))
		if err != nil {
			t.Fatal(err)
		}
		if string(buffer[:count]) != "antani" {
			t.Fatal("unexpected data", string(buffer[:count]))
		}
	})

	t.Run("we cleared our copy of the keys", func(t *testing.T) {
		session := runtimex.Try1(env.registry.session(server, errorsx.TLSHandshakeOperation))
		if !session.template.keysCleared() {
			t.Fatal("expected cleared keys")
		}
		if _, err := env.server.Certificate(); err != nil {
			t.Fatal("the caller's key pair should be untouched", err)
		}
	})
}

func TestHandshakeClientAuth(t *testing.T) {
	type testcase struct {
		name          string
		serverFlags   uint64
		withClientKey bool
		expectPeer    bool
	}

	testcases := []testcase{{
		name:          "required with certificate",
		serverFlags:   engineconfig.Default | engineconfig.VerifyClient,
		withClientKey: true,
		expectPeer:    true,
	}, {
		name:          "optional with certificate",
		serverFlags:   engineconfig.Default | engineconfig.VerifyClientOptional,
		withClientKey: true,
		expectPeer:    true,
	}, {
		name:          "optional without certificate",
		serverFlags:   engineconfig.Default | engineconfig.VerifyClientOptional,
		withClientKey: false,
		expectPeer:    false,
	}, {
		name:          "not requested with certificate",
		serverFlags:   engineconfig.Default,
		withClientKey: true,
		expectPeer:    false,
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			client, server := env.connPair()
			defer env.closeAll(client, server)
			runtimex.Try0(env.registry.AttachServer(server, tc.serverFlags, 0,
				[]*keymaterial.KeyPair{env.server}, env.ca, nil))
			var kps []*keymaterial.KeyPair
			if tc.withClientKey {
				kps = append(kps, env.client)
			}
			runtimex.Try0(env.registry.AttachClientKP(client, engineconfig.Default, 0,
				kps, env.ca, nil, "www.example.com"))
			clientErr, serverErr := env.handshakeBoth(client, server, deadlineIn(10*time.Second))
			if clientErr != nil || serverErr != nil {
				t.Fatal(clientErr, serverErr)
			}
			if env.registry.PeerCertProvided(server) != tc.expectPeer {
				t.Fatal("unexpected PeerCertProvided")
			}
			if tc.expectPeer && !env.registry.PeerCertContainsName(server, "client.example.com") {
				t.Fatal("expected the client name (from the common name)")
			}
		})
	}

	t.Run("required without certificate", func(t *testing.T) {
		env := newTestEnv()
		client, server := env.connPair()
		defer env.closeAll(client, server)
		runtimex.Try0(env.registry.AttachServer(server, engineconfig.Default|engineconfig.VerifyClient, 0,
			[]*keymaterial.KeyPair{env.server}, env.ca, nil))
		runtimex.Try0(env.registry.AttachClient(client, engineconfig.Default, 0, env.ca, nil, "www.example.com"))
		_, serverErr := env.handshakeBoth(client, server, deadlineIn(10*time.Second))
		if !errors.Is(serverErr, errorsx.ErrProtocol) {
			t.Fatal("unexpected error", serverErr)
		}
		if state := env.registry.SessionState(server).Unwrap(); state != StateFailed {
			t.Fatal("unexpected state", state)
		}
	})

	t.Run("optional with a certificate from another authority", func(t *testing.T) {
		env := newTestEnv()
		client, server := env.connPair()
		defer env.closeAll(client, server)
		issued := testingx.MustNewPKI("another root").MustIssue(&testingx.IssueConfig{
			CommonName: "stranger.example.com",
		})
		stranger := runtimex.Try1(keymaterial.NewKeyPair(issued.CertPEM, issued.KeyPEM))
		runtimex.Try0(env.registry.AttachServer(server, engineconfig.Default|engineconfig.VerifyClientOptional, 0,
			[]*keymaterial.KeyPair{env.server}, env.ca, nil))
		runtimex.Try0(env.registry.AttachClientKP(client, engineconfig.Default, 0,
			[]*keymaterial.KeyPair{stranger}, env.ca, nil, "www.example.com"))
		_, serverErr := env.handshakeBoth(client, server, deadlineIn(10*time.Second))
		if serverErr == nil || serverErr.Error() != errorsx.FailureSSLUnknownAuthority {
			t.Fatal("unexpected error", serverErr)
		}
	})
}

func TestHandshakeUntrustedServer(t *testing.T) {
	mitm := testingx.MustNewTLSMITMProviderNetem()
	server := testingx.MustNewTLSServer(testingx.TLSHandlerHandshakeAndWriteText(mitm, []byte("antani")))
	defer server.Close()

	t.Run("with verification", func(t *testing.T) {
		env := newTestEnv()
		h := runtimex.Try1(env.registry.Table().Dial(context.Background(), "tcp", server.Endpoint()))
		defer env.closeAll(h)
		runtimex.Try0(env.registry.AttachClient(h, engineconfig.Default, 0, env.ca, nil, "www.example.com"))
		err := env.registry.Handshake(h, deadlineIn(10*time.Second))
		if !errors.Is(err, errorsx.ErrProtocol) {
			t.Fatal("unexpected error", err)
		}
		if errorsx.ErrorString(err) != errorsx.FailureSSLUnknownAuthority {
			t.Fatal("unexpected failure", err)
		}
		if state := env.registry.SessionState(h).Unwrap(); state != StateFailed {
			t.Fatal("unexpected state", state)
		}
		if !env.registry.ConnVersion(h).IsNone() {
			t.Fatal("a failed session has no negotiated version")
		}
		// retrying after a failure is not allowed
		if err := env.registry.Handshake(h, deadlineIn(time.Second)); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}
		// we can detach without protocol close
		if err := env.registry.Detach(h, deadlineIn(time.Second)); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("without verification", func(t *testing.T) {
		env := newTestEnv()
		h := runtimex.Try1(env.registry.Table().Dial(context.Background(), "tcp", server.Endpoint()))
		defer env.closeAll(h)
		flags := engineconfig.Default | engineconfig.NoVerifyCert
		runtimex.Try0(env.registry.AttachClient(h, flags, 0, env.ca, nil, "www.example.com"))
		if err := env.registry.Handshake(h, deadlineIn(10*time.Second)); err != nil {
			t.Fatal(err)
		}
		if !env.registry.PeerCertProvided(h) {
			t.Fatal("expected a certificate")
		}
		buffer := make([]byte, 64)
		count, err := env.registry.Recv(h, buffer, deadlineIn(10*time.Second))
		if err != nil {
			t.Fatal(err)
		}
		if string(buffer[:count]) != "antani" {
			t.Fatal("unexpected data", string(buffer[:count]))
		}
	})
}

func TestHandshakeTimeout(t *testing.T) {
	t.Run("with a silent peer", func(t *testing.T) {
		env := newTestEnv()
		client, server := env.connPair()
		defer env.closeAll(client, server)
		runtimex.Try0(env.registry.AttachClient(client, engineconfig.Default, 0, env.ca, nil, "www.example.com"))
		start := time.Now()
		err := env.registry.Handshake(client, deadlineIn(250*time.Millisecond))
		if !errors.Is(err, errorsx.ErrTimeout) {
			t.Fatal("unexpected error", err)
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Fatal("the deadline was not honoured", elapsed)
		}
		if state := env.registry.SessionState(client).Unwrap(); state != StateFailed {
			t.Fatal("unexpected state", state)
		}
		if err := env.registry.Handshake(client, deadlineIn(time.Second)); !errors.Is(err, errorsx.ErrState) {
			t.Fatal("unexpected error", err)
		}

		// after reset the raw stream is usable again
		env.registry.Reset(client)
		if _, err := env.registry.Send(client, []byte("x"), deadlineIn(time.Second)); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("with a deadline in the past", func(t *testing.T) {
		env := newTestEnv()
		client, server := env.mustAttachPair(nil)
		defer env.closeAll(client, server)
		err := env.registry.Handshake(client, time.Now().Add(-time.Second))
		if !errors.Is(err, errorsx.ErrTimeout) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("with a server stalling the handshake", func(t *testing.T) {
		server := testingx.MustNewTLSServer(testingx.TLSHandlerTimeout())
		defer server.Close()
		env := newTestEnv()
		h := runtimex.Try1(env.registry.Table().Dial(context.Background(), "tcp", server.Endpoint()))
		defer env.closeAll(h)
		runtimex.Try0(env.registry.AttachClient(h, engineconfig.Default, 0, env.ca, nil, "www.example.com"))
		err := env.registry.Handshake(h, deadlineIn(250*time.Millisecond))
		if !errors.Is(err, errorsx.ErrTimeout) {
			t.Fatal("unexpected error", err)
		}
		if state := env.registry.SessionState(h).Unwrap(); state != StateFailed {
			t.Fatal("unexpected state", state)
		}
	})
}

func TestHandshakeEngineFailures(t *testing.T) {
	type testcase struct {
		name          string
		handler       testingx.TLSHandler
		expectKind    error
		expectFailure string
	}

	testcases := []testcase{{
		name:          "with an alert",
		handler:       testingx.TLSHandlerSendAlert(testingx.TLSAlertHandshakeFailure),
		expectKind:    errorsx.ErrProtocol,
		expectFailure: errorsx.FailureSSLFailedHandshake,
	}, {
		name:          "with EOF",
		handler:       testingx.TLSHandlerEOF(),
		expectKind:    errorsx.ErrIO,
		expectFailure: errorsx.FailureEOFError,
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			server := testingx.MustNewTLSServer(tc.handler)
			defer server.Close()
			env := newTestEnv()
			h := runtimex.Try1(env.registry.Table().Dial(context.Background(), "tcp", server.Endpoint()))
			defer env.closeAll(h)
			runtimex.Try0(env.registry.AttachClient(h, engineconfig.Default, 0, env.ca, nil, "www.example.com"))
			err := env.registry.Handshake(h, deadlineIn(10*time.Second))
			if !errors.Is(err, tc.expectKind) || errorsx.ErrorString(err) != tc.expectFailure {
				t.Fatal("unexpected error", err)
			}
		})
	}
}

func TestHandshakeWithoutSession(t *testing.T) {
	env := newTestEnv()
	client, server := env.connPair()
	defer env.closeAll(client, server)
	if err := env.registry.Handshake(client, time.Time{}); !errors.Is(err, errorsx.ErrState) {
		t.Fatal("unexpected error", err)
	}
	if err := env.registry.Detach(client, time.Time{}); !errors.Is(err, errorsx.ErrState) {
		t.Fatal("unexpected error", err)
	}
	if !env.registry.SessionState(client).IsNone() || !env.registry.ConnCipher(client).IsNone() {
		t.Fatal("expected absent results")
	}
	if env.registry.PeerCertProvided(client) || env.registry.PeerCertContainsName(client, "x") {
		t.Fatal("expected false")
	}
}
