package testingx

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"sync/atomic"
	"time"

	"github.com/ooni/btls/internal/runtimex"
)

// PKI is a certificate authority for tests. Use [MustNewPKI] to create
// a root and [*PKI.MustNewIntermediate] to create intermediates.
type PKI struct {
	// Cert is the certificate of this authority.
	Cert *x509.Certificate

	// chain contains the PEM of the intermediates up to, excluding, the root.
	chain []byte

	// key is the private key of this authority.
	key crypto.Signer
}

// serial is the serial number generator shared by all authorities.
var serial = &atomic.Int64{}

func nextSerial() *big.Int {
	return big.NewInt(serial.Add(1))
}

// MustNewPKI creates a new self-signed root authority.
func MustNewPKI(commonName string) *PKI {
	key := runtimex.Try1(ecdsa.GenerateKey(elliptic.P256(), rand.Reader))
	template := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"btls tests"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der := runtimex.Try1(x509.CreateCertificate(rand.Reader, template, template, key.Public(), key))
	return &PKI{
		Cert:  runtimex.Try1(x509.ParseCertificate(der)),
		chain: nil,
		key:   key,
	}
}

// MustNewIntermediate creates an intermediate authority signed by p.
func (p *PKI) MustNewIntermediate(commonName string) *PKI {
	key := runtimex.Try1(ecdsa.GenerateKey(elliptic.P256(), rand.Reader))
	template := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"btls tests"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der := runtimex.Try1(x509.CreateCertificate(rand.Reader, template, p.Cert, key.Public(), p.key))
	chain := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return &PKI{
		Cert:  runtimex.Try1(x509.ParseCertificate(der)),
		chain: append(chain, p.chain...),
		key:   key,
	}
}

// CertificatePEM returns the PEM encoded certificate of the authority, which
// is what you need to configure a trust anchor.
func (p *PKI) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: p.Cert.Raw})
}

// IssueConfig contains config for [*PKI.MustIssue].
type IssueConfig struct {
	// CommonName is the OPTIONAL subject common name.
	CommonName string

	// DNSNames contains the OPTIONAL DNS subject alternative names.
	DNSNames []string

	// IPAddresses contains the OPTIONAL IP subject alternative names.
	IPAddresses []net.IP

	// NotBefore is the OPTIONAL start of validity. When zero, we
	// use one hour ago.
	NotBefore time.Time

	// NotAfter is the OPTIONAL end of validity. When zero, we use
	// one day from now.
	NotAfter time.Time

	// RSA OPTIONALLY selects an RSA key rather than an ECDSA key.
	RSA bool
}

// IssuedKeyPair is a PEM key pair issued by [*PKI.MustIssue].
type IssuedKeyPair struct {
	// Cert is the parsed leaf certificate.
	Cert *x509.Certificate

	// CertPEM contains the leaf followed by the intermediates.
	CertPEM []byte

	// KeyPEM contains the PKCS#8 private key.
	KeyPEM []byte
}

// MustIssue issues a new leaf certificate usable by both servers and clients.
func (p *PKI) MustIssue(config *IssueConfig) *IssuedKeyPair {
	var key crypto.Signer
	if config.RSA {
		key = runtimex.Try1(rsa.GenerateKey(rand.Reader, 2048))
	} else {
		key = runtimex.Try1(ecdsa.GenerateKey(elliptic.P256(), rand.Reader))
	}
	notBefore := config.NotBefore
	if notBefore.IsZero() {
		notBefore = time.Now().Add(-time.Hour)
	}
	notAfter := config.NotAfter
	if notAfter.IsZero() {
		notAfter = time.Now().Add(24 * time.Hour)
	}
	keyUsage := x509.KeyUsageDigitalSignature
	if config.RSA {
		keyUsage |= x509.KeyUsageKeyEncipherment
	}
	template := &x509.Certificate{
		SerialNumber: nextSerial(),
		Subject:      pkix.Name{CommonName: config.CommonName, Organization: []string{"btls tests"}},
		DNSNames:     config.DNSNames,
		IPAddresses:  config.IPAddresses,
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     keyUsage,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
		BasicConstraintsValid: true,
	}
	der := runtimex.Try1(x509.CreateCertificate(rand.Reader, template, p.Cert, key.Public(), p.key))
	var certPEM bytes.Buffer
	runtimex.Try0(pem.Encode(&certPEM, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	certPEM.Write(p.chain)
	keyDER := runtimex.Try1(x509.MarshalPKCS8PrivateKey(key))
	return &IssuedKeyPair{
		Cert:    runtimex.Try1(x509.ParseCertificate(der)),
		CertPEM: certPEM.Bytes(),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}
}
