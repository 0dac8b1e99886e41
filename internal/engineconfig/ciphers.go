package engineconfig

import "strings"

// CipherMask is the 64-bit mask selecting cipher suites when the cipher
// policy is CiphersSpecific. Each bit names one TLS v1.2 cipher suite.
type CipherMask uint64

// TLS v1.2 cipher suites. Note that CiphersECDHRSAAES256SHA384 and
// CiphersECDHECDSAAES256SHA384 share bit 18: this collision is part of the
// frozen bit layout and we keep it for compatibility. Setting bit 18
// selects both suites.
const (
	CiphersECDHERSAAES256GCMSHA384       = CipherMask(1 << 0)
	CiphersECDHEECDSAAES256GCMSHA384     = CipherMask(1 << 1)
	CiphersECDHERSAAES256SHA384          = CipherMask(1 << 2)
	CiphersECDHEECDSAAES256SHA384        = CipherMask(1 << 3)
	CiphersDHEDSSAES256GCMSHA384         = CipherMask(1 << 4)
	CiphersDHERSAAES256GCMSHA384         = CipherMask(1 << 5)
	CiphersDHERSAAES256SHA256            = CipherMask(1 << 6)
	CiphersDHEDSSAES256SHA256            = CipherMask(1 << 7)
	CiphersECDHEECDSACHACHA20POLY1305    = CipherMask(1 << 8)
	CiphersECDHERSACHACHA20POLY1305      = CipherMask(1 << 9)
	CiphersDHERSACHACHA20POLY1305        = CipherMask(1 << 10)
	CiphersECDHEECDSACHACHA20POLY1305Old = CipherMask(1 << 11)
	CiphersECDHERSACHACHA20POLY1305Old   = CipherMask(1 << 12)
	CiphersDHERSACHACHA20POLY1305Old     = CipherMask(1 << 13)
	CiphersDHERSACAMELLIA256SHA256       = CipherMask(1 << 14)
	CiphersDHEDSSCAMELLIA256SHA256       = CipherMask(1 << 15)
	CiphersECDHRSAAES256GCMSHA384        = CipherMask(1 << 16)
	CiphersECDHECDSAAES256GCMSHA384      = CipherMask(1 << 17)
	CiphersECDHRSAAES256SHA384           = CipherMask(1 << 18)
	CiphersECDHECDSAAES256SHA384         = CipherMask(1 << 18)
	CiphersAES256GCMSHA384               = CipherMask(1 << 19)
	CiphersAES256SHA256                  = CipherMask(1 << 20)
	CiphersCAMELLIA256SHA256             = CipherMask(1 << 21)
	CiphersECDHERSAAES128GCMSHA256       = CipherMask(1 << 22)
	CiphersECDHEECDSAAES128GCMSHA256     = CipherMask(1 << 23)
	CiphersECDHERSAAES128SHA256          = CipherMask(1 << 24)
	CiphersECDHEECDSAAES128SHA256        = CipherMask(1 << 25)
	CiphersDHEDSSAES128GCMSHA256         = CipherMask(1 << 26)
	CiphersDHERSAAES128GCMSHA256         = CipherMask(1 << 27)
	CiphersDHERSAAES128SHA256            = CipherMask(1 << 28)
	CiphersDHEDSSAES128SHA256            = CipherMask(1 << 29)
	CiphersDHERSACAMELLIA128SHA256       = CipherMask(1 << 30)
	CiphersDHEDSSCAMELLIA128SHA256       = CipherMask(1 << 31)
	CiphersECDHRSAAES128GCMSHA256        = CipherMask(1 << 32)
	CiphersECDHECDSAAES128GCMSHA256      = CipherMask(1 << 33)
	CiphersECDHRSAAES128SHA256           = CipherMask(1 << 34)
	CiphersECDHECDSAAES128SHA256         = CipherMask(1 << 35)
	CiphersAES128GCMSHA256               = CipherMask(1 << 36)
	CiphersAES128SHA256                  = CipherMask(1 << 37)
	CiphersCAMELLIA128SHA256             = CipherMask(1 << 38)
	CiphersAES256SHA                     = CipherMask(1 << 39)
)

// CipherName associates a cipher mask bit with the OpenSSL-style name.
type CipherName struct {
	Bit  CipherMask
	Name string
}

// CipherNames lists every named cipher in bit order. Bit 18 appears twice.
var CipherNames = []CipherName{
	{CiphersECDHERSAAES256GCMSHA384, "ECDHE-RSA-AES256-GCM-SHA384"},
	{CiphersECDHEECDSAAES256GCMSHA384, "ECDHE-ECDSA-AES256-GCM-SHA384"},
	{CiphersECDHERSAAES256SHA384, "ECDHE-RSA-AES256-SHA384"},
	{CiphersECDHEECDSAAES256SHA384, "ECDHE-ECDSA-AES256-SHA384"},
	{CiphersDHEDSSAES256GCMSHA384, "DHE-DSS-AES256-GCM-SHA384"},
	{CiphersDHERSAAES256GCMSHA384, "DHE-RSA-AES256-GCM-SHA384"},
	{CiphersDHERSAAES256SHA256, "DHE-RSA-AES256-SHA256"},
	{CiphersDHEDSSAES256SHA256, "DHE-DSS-AES256-SHA256"},
	{CiphersECDHEECDSACHACHA20POLY1305, "ECDHE-ECDSA-CHACHA20-POLY1305"},
	{CiphersECDHERSACHACHA20POLY1305, "ECDHE-RSA-CHACHA20-POLY1305"},
	{CiphersDHERSACHACHA20POLY1305, "DHE-RSA-CHACHA20-POLY1305"},
	{CiphersECDHEECDSACHACHA20POLY1305Old, "ECDHE-ECDSA-CHACHA20-POLY1305-OLD"},
	{CiphersECDHERSACHACHA20POLY1305Old, "ECDHE-RSA-CHACHA20-POLY1305-OLD"},
	{CiphersDHERSACHACHA20POLY1305Old, "DHE-RSA-CHACHA20-POLY1305-OLD"},
	{CiphersDHERSACAMELLIA256SHA256, "DHE-RSA-CAMELLIA256-SHA256"},
	{CiphersDHEDSSCAMELLIA256SHA256, "DHE-DSS-CAMELLIA256-SHA256"},
	{CiphersECDHRSAAES256GCMSHA384, "ECDH-RSA-AES256-GCM-SHA384"},
	{CiphersECDHECDSAAES256GCMSHA384, "ECDH-ECDSA-AES256-GCM-SHA384"},
	{CiphersECDHRSAAES256SHA384, "ECDH-RSA-AES256-SHA384"},
	{CiphersECDHECDSAAES256SHA384, "ECDH-ECDSA-AES256-SHA384"},
	{CiphersAES256GCMSHA384, "AES256-GCM-SHA384"},
	{CiphersAES256SHA256, "AES256-SHA256"},
	{CiphersCAMELLIA256SHA256, "CAMELLIA256-SHA256"},
	{CiphersECDHERSAAES128GCMSHA256, "ECDHE-RSA-AES128-GCM-SHA256"},
	{CiphersECDHEECDSAAES128GCMSHA256, "ECDHE-ECDSA-AES128-GCM-SHA256"},
	{CiphersECDHERSAAES128SHA256, "ECDHE-RSA-AES128-SHA256"},
	{CiphersECDHEECDSAAES128SHA256, "ECDHE-ECDSA-AES128-SHA256"},
	{CiphersDHEDSSAES128GCMSHA256, "DHE-DSS-AES128-GCM-SHA256"},
	{CiphersDHERSAAES128GCMSHA256, "DHE-RSA-AES128-GCM-SHA256"},
	{CiphersDHERSAAES128SHA256, "DHE-RSA-AES128-SHA256"},
	{CiphersDHEDSSAES128SHA256, "DHE-DSS-AES128-SHA256"},
	{CiphersDHERSACAMELLIA128SHA256, "DHE-RSA-CAMELLIA128-SHA256"},
	{CiphersDHEDSSCAMELLIA128SHA256, "DHE-DSS-CAMELLIA128-SHA256"},
	{CiphersECDHRSAAES128GCMSHA256, "ECDH-RSA-AES128-GCM-SHA256"},
	{CiphersECDHECDSAAES128GCMSHA256, "ECDH-ECDSA-AES128-GCM-SHA256"},
	{CiphersECDHRSAAES128SHA256, "ECDH-RSA-AES128-SHA256"},
	{CiphersECDHECDSAAES128SHA256, "ECDH-ECDSA-AES128-SHA256"},
	{CiphersAES128GCMSHA256, "AES128-GCM-SHA256"},
	{CiphersAES128SHA256, "AES128-SHA256"},
	{CiphersCAMELLIA128SHA256, "CAMELLIA128-SHA256"},
	{CiphersAES256SHA, "AES256-SHA"},
}

// CiphersAll is the union of all the named cipher bits.
const CiphersAll = CipherMask(1<<40 - 1)

// Has returns whether all the bits of other are set in m.
func (m CipherMask) Has(other CipherMask) bool {
	return other != 0 && m&other == other
}

// Names returns the names of the suites selected by m in bit order.
func (m CipherMask) Names() (out []string) {
	for _, entry := range CipherNames {
		if m.Has(entry.Bit) {
			out = append(out, entry.Name)
		}
	}
	return
}

// String returns the colon separated list of names (like OpenSSL does).
func (m CipherMask) String() string {
	return strings.Join(m.Names(), ":")
}
