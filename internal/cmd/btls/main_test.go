package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/runtimex"
	"github.com/ooni/btls/internal/testingx"
)

// testFiles contains paths of key material written to a temporary directory.
type testFiles struct {
	ca   string
	cert string
	key  string
}

func newTestFiles(t *testing.T) *testFiles {
	root := testingx.MustNewPKI("btls root")
	issued := root.MustIssue(&testingx.IssueConfig{
		CommonName: "localhost",
		DNSNames:   []string{"localhost"},
	})
	dir := t.TempDir()
	files := &testFiles{
		ca:   filepath.Join(dir, "ca.pem"),
		cert: filepath.Join(dir, "cert.pem"),
		key:  filepath.Join(dir, "key.pem"),
	}
	runtimex.Try0(os.WriteFile(files.ca, root.CertificatePEM(), 0600))
	runtimex.Try0(os.WriteFile(files.cert, issued.CertPEM, 0600))
	runtimex.Try0(os.WriteFile(files.key, issued.KeyPEM, 0600))
	return files
}

func TestConnectAndServe(t *testing.T) {
	files := newTestFiles(t)
	registry := runtimex.Try1(newRegistry(""))
	lh := runtimex.Try1(registry.Table().Listen("tcp", "127.0.0.1:0"))
	defer registry.Close(lh)
	entry := runtimex.Try1(registry.Table().Lookup(lh))
	address := entry.Listener.Addr().String()

	server := &serveOptions{
		tlsOptions: tlsOptions{
			alpn: []string{"echo"},
			cert: files.cert,
			key:  files.key,
		},
		timeout:      5 * time.Second,
		trailer:      "mascetti",
		verifyClient: "none",
	}
	runtimex.Try0(server.attach(registry, lh))
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		server.serve(ctx, registry, lh)
	}()
	defer wg.Wait()
	defer cancel()

	t.Run("with detach", func(t *testing.T) {
		client := &connectOptions{
			tlsOptions: tlsOptions{
				alpn:    []string{"echo"},
				ca:      files.ca,
				ciphers: "secure",
			},
			detach:     true,
			send:       "antani",
			serverName: "localhost",
			timeout:    5 * time.Second,
		}
		w := &bytes.Buffer{}
		if err := client.run(context.Background(), runtimex.Try1(newRegistry("")), address, w); err != nil {
			t.Fatal(err)
		}
		if w.String() != "antanimascetti" {
			t.Fatal("unexpected output", w.String())
		}
	})

	t.Run("with an untrusted server", func(t *testing.T) {
		client := &connectOptions{
			tlsOptions: tlsOptions{ciphers: "secure"},
			serverName: "localhost",
			timeout:    5 * time.Second,
		}
		// the system trust anchors do not include our test CA
		err := client.run(context.Background(), runtimex.Try1(newRegistry("")), address, &bytes.Buffer{})
		if !errors.Is(err, errorsx.ErrProtocol) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("with an invalid cipher policy", func(t *testing.T) {
		client := &connectOptions{tlsOptions: tlsOptions{ciphers: "antani"}}
		err := client.run(context.Background(), runtimex.Try1(newRegistry("")), address, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "unknown cipher policy") {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestConnectWithHTTPGet(t *testing.T) {
	files := newTestFiles(t)
	cert := runtimex.Try1(tls.LoadX509KeyPair(files.cert, files.key))
	listener := runtimex.Try1(net.Listen("tcp", "127.0.0.1:0"))
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello " + r.URL.Path))
		}),
		TLSConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
	}
	go srv.ServeTLS(listener, "", "")
	defer srv.Close()

	client := &connectOptions{
		tlsOptions: tlsOptions{
			ca:      files.ca,
			ciphers: "secure",
		},
		get:        "/antani",
		serverName: "localhost",
		timeout:    5 * time.Second,
	}
	w := &bytes.Buffer{}
	if err := client.run(context.Background(), runtimex.Try1(newRegistry("")), listener.Addr().String(), w); err != nil {
		t.Fatal(err)
	}
	if w.String() != "hello /antani" {
		t.Fatal("unexpected output", w.String())
	}
}

func TestDecode(t *testing.T) {
	files := newTestFiles(t)
	w := &bytes.Buffer{}
	if err := decodeMain(files.cert, nil, w); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(w.String(), "-----BEGIN CERTIFICATE-----") {
		t.Fatal("unexpected output", w.String())
	}
	err := decodeMain(filepath.Join(t.TempDir(), "nonexistent"), nil, w)
	if !errors.Is(err, errorsx.ErrIO) {
		t.Fatal("unexpected error", err)
	}
}

func TestNewRegistry(t *testing.T) {
	r := runtimex.Try1(newRegistry("chrome"))
	if r.Engine().Name() != "utls/chrome" {
		t.Fatal("unexpected engine", r.Engine().Name())
	}
	if _, err := newRegistry("netscape"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestRootCommand(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range []string{"connect", "serve", "decode"} {
		if !names[name] {
			t.Fatal("missing subcommand", name)
		}
	}
}
