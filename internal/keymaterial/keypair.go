package keymaterial

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"strings"

	"github.com/ooni/btls/internal/errorsx"
)

// KeyPair is a PEM certificate chain and the matching PEM private key.
//
// A KeyPair either owns a copy of the bytes or borrows the caller's memory
// (see NewKeyPairBorrowed). Once handed to an attach operation, the bytes
// must not be modified since many sessions may share them.
type KeyPair struct {
	cert     []byte
	key      []byte
	borrowed bool
}

// NewKeyPair validates cert and key and returns a KeyPair owning
// copies of both buffers.
func NewKeyPair(cert, key []byte) (*KeyPair, error) {
	if err := validateKeyPair(cert, key); err != nil {
		return nil, err
	}
	kp := &KeyPair{
		cert:     append([]byte{}, cert...),
		key:      append([]byte{}, key...),
		borrowed: false,
	}
	return kp, nil
}

// NewKeyPairBorrowed is like NewKeyPair but does not copy: the caller must
// keep cert and key alive and unmodified for as long as sessions use them.
func NewKeyPairBorrowed(cert, key []byte) (*KeyPair, error) {
	if err := validateKeyPair(cert, key); err != nil {
		return nil, err
	}
	return &KeyPair{cert: cert, key: key, borrowed: true}, nil
}

// validateKeyPair only performs structural validation. Whether the key
// matches the certificate is checked when parsing.
func validateKeyPair(cert, key []byte) error {
	if len(cert) <= 0 {
		return errorsx.NewConfigError(errorsx.BuildKeyPairOperation, "keymaterial: empty certificate")
	}
	if len(key) <= 0 {
		return errorsx.NewConfigError(errorsx.BuildKeyPairOperation, "keymaterial: empty private key")
	}
	if !containsPEMBlock(cert, func(b *pem.Block) bool { return b.Type == "CERTIFICATE" }) {
		return errorsx.NewConfigError(errorsx.BuildKeyPairOperation, "keymaterial: no PEM certificate")
	}
	if !containsPEMBlock(key, isPrivateKeyBlock) {
		return errorsx.NewConfigError(errorsx.BuildKeyPairOperation, "keymaterial: no PEM private key")
	}
	return nil
}

func containsPEMBlock(data []byte, match func(b *pem.Block) bool) bool {
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			return false
		}
		if match(block) {
			return true
		}
		data = rest
	}
}

func isPrivateKeyBlock(block *pem.Block) bool {
	return block.Type == "PRIVATE KEY" || strings.HasSuffix(block.Type, " PRIVATE KEY")
}

// CertificatePEM returns the PEM certificate chain.
func (kp *KeyPair) CertificatePEM() []byte {
	return kp.cert
}

// Borrowed returns whether the key pair borrows the caller's memory.
func (kp *KeyPair) Borrowed() bool {
	return kp.borrowed
}

// Certificate parses the key pair into a [tls.Certificate] whose Leaf
// field is always set. The error is a KindConfig error.
func (kp *KeyPair) Certificate() (tls.Certificate, error) {
	cert, err := tls.X509KeyPair(kp.cert, kp.key)
	if err != nil {
		return tls.Certificate{}, errorsx.NewConfigError(
			errorsx.BuildKeyPairOperation, "keymaterial: cannot parse key pair: %w", err)
	}
	if cert.Leaf == nil {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return tls.Certificate{}, errorsx.NewConfigError(
				errorsx.BuildKeyPairOperation, "keymaterial: cannot parse leaf: %w", err)
		}
		cert.Leaf = leaf
	}
	return cert, nil
}
