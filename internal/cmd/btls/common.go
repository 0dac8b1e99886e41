package main

//
// Flags and key material shared by subcommands
//

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/ooni/btls/internal/engineconfig"
	"github.com/ooni/btls/internal/keymaterial"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/scrubber"
	"github.com/ooni/btls/internal/sockets"
	"github.com/ooni/btls/internal/tlsengine"
	"github.com/ooni/btls/internal/tlslayer"
	"github.com/spf13/pflag"
)

// tlsOptions contains the TLS options common to all subcommands.
type tlsOptions struct {
	alpn     []string
	ca       string
	cert     string
	ciphers  string
	insecure bool
	key      string
	password string
}

// register registers the flags of the options.
func (o *tlsOptions) register(flags *pflag.FlagSet) {
	flags.StringSliceVar(&o.alpn, "alpn", nil, "ALPN protocols to offer or accept")
	flags.StringVar(&o.ca, "ca", "", "PEM file or directory containing the trust anchors")
	flags.StringVar(&o.cert, "cert", "", "file containing the certificate chain")
	flags.StringVar(&o.ciphers, "ciphers", "secure", "cipher policy: secure, compat, legacy, or insecure")
	flags.BoolVar(&o.insecure, "insecure", false, "do not verify the peer certificate")
	flags.StringVar(&o.key, "key", "", "file containing the private key")
	flags.StringVar(&o.password, "password", "", "password for encrypted key files")
}

var cipherPolicies = map[string]uint64{
	"secure":   engineconfig.CiphersSecure,
	"compat":   engineconfig.CiphersCompat,
	"legacy":   engineconfig.CiphersLegacy,
	"insecure": engineconfig.CiphersInsecure,
}

// flags returns the engine flags selected by the options.
func (o *tlsOptions) flags() (uint64, error) {
	policy, found := cipherPolicies[o.ciphers]
	if !found {
		return 0, fmt.Errorf("unknown cipher policy: %s", o.ciphers)
	}
	flags := engineconfig.Default&^engineconfig.CiphersValue(engineconfig.Default) | policy
	if o.insecure {
		flags |= engineconfig.NoVerifyCert | engineconfig.NoVerifyName
	}
	return flags, nil
}

// keyPairs loads the key pair, if any.
func (o *tlsOptions) keyPairs() ([]*keymaterial.KeyPair, error) {
	if o.cert == "" && o.key == "" {
		return nil, nil
	}
	if o.key == "" {
		o.key = o.cert // e.g., PKCS#12 bundles
	}
	password := []byte(o.password)
	cert, err := keymaterial.LoadFile(o.cert, password)
	if err != nil {
		return nil, err
	}
	key, err := keymaterial.LoadFile(o.key, password)
	if err != nil {
		return nil, err
	}
	kp, err := keymaterial.NewKeyPair(cert, key)
	clear(key)
	if err != nil {
		return nil, err
	}
	return []*keymaterial.KeyPair{kp}, nil
}

// authority returns the trust anchors or nil to use the system's.
func (o *tlsOptions) authority() (*keymaterial.CertificateAuthority, error) {
	if o.ca == "" {
		return nil, nil
	}
	info, err := os.Stat(o.ca)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return keymaterial.NewCA("", o.ca, nil)
	}
	return keymaterial.NewCA(o.ca, "", nil)
}

// newLogger returns the logger used by the registry.
func newLogger() model.Logger {
	return &scrubber.Logger{Logger: log.Log}
}

// newRegistry creates a registry using the stdlib engine or, when
// parrot is not empty, the utls engine parroting that ClientHello.
func newRegistry(parrot string) (*tlslayer.Registry, error) {
	logger := newLogger()
	var engine model.TLSEngine
	if parrot != "" {
		utls, err := tlsengine.NewUTLS(parrot)
		if err != nil {
			return nil, err
		}
		engine = utls
	}
	return tlslayer.NewRegistry(sockets.NewTable(logger), engine, logger), nil
}

// logSession prints a table describing the session of h.
func logSession(r *tlslayer.Registry, h model.Handle) {
	log.WithFields(log.Fields{
		"type":        "table",
		"version":     r.ConnVersion(h).UnwrapOr("-"),
		"cipher":      r.ConnCipher(h).UnwrapOr("-"),
		"alpn":        r.ConnALPNSelected(h).UnwrapOr("-"),
		"server_name": r.ConnServerName(h).UnwrapOr("-"),
		"peer":        r.PeerCertSubject(h).UnwrapOr("-"),
		"issuer":      r.PeerCertIssuer(h).UnwrapOr("-"),
		"hash":        r.PeerCertHash(h).UnwrapOr("-"),
	}).Info("session")
}
