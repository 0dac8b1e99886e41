package tlsengine

//
// Cipher suites and curves
//

import (
	"crypto/tls"
	"strings"

	"github.com/ooni/btls/internal/engineconfig"
	"github.com/ooni/btls/internal/errorsx"
)

var (
	// ciphersSecure contains ECDHE with AEAD.
	ciphersSecure = []uint16{
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	}

	// ciphersCompat adds CBC mode and RSA key exchange.
	ciphersCompat = append(append([]uint16{}, ciphersSecure...),
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
		tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
		tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
		tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_RSA_WITH_AES_128_CBC_SHA256,
		tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		tls.TLS_RSA_WITH_AES_128_CBC_SHA,
	)

	// ciphersLegacy adds 3DES.
	ciphersLegacy = append(append([]uint16{}, ciphersCompat...),
		tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA,
		tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA,
	)

	// ciphersInsecure adds RC4.
	ciphersInsecure = append(append([]uint16{}, ciphersLegacy...),
		tls.TLS_ECDHE_ECDSA_WITH_RC4_128_SHA,
		tls.TLS_ECDHE_RSA_WITH_RC4_128_SHA,
		tls.TLS_RSA_WITH_RC4_128_SHA,
	)
)

// cipherMaskSuites maps the bits of [engineconfig.CipherMask] to the suites
// we can actually negotiate. Bits we cannot map (DHE, static ECDH, Camellia,
// draft ChaCha20, and CBC with SHA384) are missing.
var cipherMaskSuites = []struct {
	bit   engineconfig.CipherMask
	suite uint16
}{
	{engineconfig.CiphersECDHERSAAES256GCMSHA384, tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384},
	{engineconfig.CiphersECDHEECDSAAES256GCMSHA384, tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384},
	{engineconfig.CiphersECDHEECDSACHACHA20POLY1305, tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305},
	{engineconfig.CiphersECDHERSACHACHA20POLY1305, tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305},
	{engineconfig.CiphersAES256GCMSHA384, tls.TLS_RSA_WITH_AES_256_GCM_SHA384},
	{engineconfig.CiphersECDHERSAAES128GCMSHA256, tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256},
	{engineconfig.CiphersECDHEECDSAAES128GCMSHA256, tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256},
	{engineconfig.CiphersECDHERSAAES128SHA256, tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256},
	{engineconfig.CiphersECDHEECDSAAES128SHA256, tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256},
	{engineconfig.CiphersAES128GCMSHA256, tls.TLS_RSA_WITH_AES_128_GCM_SHA256},
	{engineconfig.CiphersAES128SHA256, tls.TLS_RSA_WITH_AES_128_CBC_SHA256},
	{engineconfig.CiphersAES256SHA, tls.TLS_RSA_WITH_AES_256_CBC_SHA},
}

// CipherSuites returns the TLS 1.2 cipher suites enabled by config, in
// order of preference. The error is a KindConfig error when no suite
// remains, e.g., because the explicit list only names suites we do not
// implement, or because ECDHE is disabled and only ECDHE suites are enabled.
func CipherSuites(config engineconfig.Config) ([]uint16, error) {
	var suites []uint16
	switch config.CipherPolicy {
	case engineconfig.CipherPolicyCompat:
		suites = ciphersCompat
	case engineconfig.CipherPolicyLegacy:
		suites = ciphersLegacy
	case engineconfig.CipherPolicyInsecure:
		suites = ciphersInsecure
	case engineconfig.CipherPolicySpecific:
		for _, entry := range cipherMaskSuites {
			if config.Ciphers.Has(entry.bit) {
				suites = append(suites, entry.suite)
			}
		}
	default:
		suites = ciphersSecure
	}
	var out []uint16
	for _, suite := range suites {
		if config.ECDHE == engineconfig.ECDHENone && isECDHE(suite) {
			continue
		}
		out = append(out, suite)
	}
	if len(out) <= 0 {
		return nil, errorsx.NewConfigError(errorsx.AttachOperation,
			"tlsengine: no usable cipher suite for %s with ecdhe=%s", config.CipherPolicy, config.ECDHE)
	}
	return out, nil
}

func isECDHE(suite uint16) bool {
	return strings.HasPrefix(TLSCipherSuiteString(suite), "TLS_ECDHE_")
}

// CurvePreferences returns the curves enabled by config. A nil return
// value means using the library defaults. The error is a KindConfig error
// for named curves we do not implement.
func CurvePreferences(config engineconfig.Config) ([]tls.CurveID, error) {
	switch config.ECDHE {
	case engineconfig.ECDHEAuto, engineconfig.ECDHENone:
		return nil, nil
	case engineconfig.ECDHESECP256R1:
		return []tls.CurveID{tls.CurveP256}, nil
	case engineconfig.ECDHESECP384R1:
		return []tls.CurveID{tls.CurveP384}, nil
	case engineconfig.ECDHESECP521R1:
		return []tls.CurveID{tls.CurveP521}, nil
	default:
		return nil, errorsx.NewConfigError(errorsx.AttachOperation,
			"tlsengine: unsupported curve: %s", config.ECDHE)
	}
}

// VersionRange returns the minimum and maximum enabled protocol versions. When
// the set is not contiguous (i.e., 1.0 and 1.2 only) the range includes versions
// that are not enabled, which [CheckNegotiated] rejects after the handshake.
func VersionRange(set engineconfig.VersionSet) (min, max uint16) {
	for _, entry := range []struct {
		member  engineconfig.VersionSet
		version uint16
	}{
		{engineconfig.VersionTLS10, tls.VersionTLS10},
		{engineconfig.VersionTLS11, tls.VersionTLS11},
		{engineconfig.VersionTLS12, tls.VersionTLS12},
	} {
		if !set.Contains(entry.member) {
			continue
		}
		if min == 0 {
			min = entry.version
		}
		max = entry.version
	}
	return
}

func versionEnabled(set engineconfig.VersionSet, version uint16) bool {
	switch version {
	case tls.VersionTLS10:
		return set.Contains(engineconfig.VersionTLS10)
	case tls.VersionTLS11:
		return set.Contains(engineconfig.VersionTLS11)
	case tls.VersionTLS12:
		return set.Contains(engineconfig.VersionTLS12)
	default:
		return false
	}
}
