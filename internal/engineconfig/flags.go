// Package engineconfig decodes the compact flags and cipher bitmasks used by
// the attach operations into a structured engine configuration.
//
// The bit layout is frozen for compatibility with existing callers. Raw
// bitmasks never travel past [Decode]: everything downstream consumes [Config].
package engineconfig

// Protocol versions occupy the low nibble. Bit 0 is reserved.
const (
	ProtoTLSv10 = uint64(1 << 1)
	ProtoTLSv11 = uint64(1 << 2)
	ProtoTLSv12 = uint64(1 << 3)
	ProtoTLSv1  = ProtoTLSv10 | ProtoTLSv11 | ProtoTLSv12

	ProtoAll     = ProtoTLSv1
	ProtoDefault = ProtoTLSv12
)

// ProtoValue extracts the protocol versions field.
func ProtoValue(x uint64) uint64 {
	return x & 0xf
}

// Reserved for future protocol versions. They are zero on purpose.
const (
	FlagsReserved0 = uint64(0 << 4)
	FlagsReserved1 = uint64(0 << 5)
)

// Single-bit policy and verification flags.
const (
	PreferCiphersClient  = uint64(0 << 6) // default
	PreferCiphersServer  = uint64(1 << 6)
	NoVerifyCert         = uint64(1 << 7)
	NoVerifyName         = uint64(1 << 8)
	NoVerifyTime         = uint64(1 << 9)
	VerifyClient         = uint64(1 << 10)
	VerifyClientOptional = uint64(1 << 11)
	ClearKeys            = uint64(1 << 12)
)

const (
	dheShift    = 13
	dheMask     = 0x3
	ecdheShift  = 15
	ecdheMask   = 0xf
	cipherShift = 19
	cipherMask  = 0x7
	depthShift  = 22
	depthMask   = 0x1f
)

// DHE parameters field (2 bits at offset 13).
const (
	DHEParamsNone   = uint64(0 << dheShift) // default
	DHEParamsAuto   = uint64(1 << dheShift)
	DHEParamsLegacy = uint64(2 << dheShift)
)

// DHEParamsValue extracts the DHE parameters field.
func DHEParamsValue(x uint64) uint64 {
	return x & (dheMask << dheShift)
}

// ECDHE curve field (4 bits at offset 15). Note that zero means auto.
const (
	ECDHECurveNone      = uint64(1 << ecdheShift)
	ECDHECurveAuto      = uint64(0 << ecdheShift) // default
	ECDHECurveSECP192R1 = uint64(2 << ecdheShift)
	ECDHECurveSECP224R1 = uint64(3 << ecdheShift)
	ECDHECurveSECP224K1 = uint64(4 << ecdheShift)
	ECDHECurveSECP256R1 = uint64(5 << ecdheShift)
	ECDHECurveSECP256K1 = uint64(6 << ecdheShift)
	ECDHECurveSECP384R1 = uint64(7 << ecdheShift)
	ECDHECurveSECP521R1 = uint64(8 << ecdheShift)
)

// ECDHECurveValue extracts the ECDHE curve field.
func ECDHECurveValue(x uint64) uint64 {
	return x & (ecdheMask << ecdheShift)
}

// Cipher policy field (3 bits at offset 19). Zero means secure.
const (
	CiphersDefault  = uint64(1 << cipherShift)
	CiphersSecure   = uint64(1 << cipherShift) // default
	CiphersCompat   = uint64(2 << cipherShift)
	CiphersLegacy   = uint64(3 << cipherShift)
	CiphersInsecure = uint64(4 << cipherShift)
	CiphersSpecific = uint64(5 << cipherShift) // see CipherMask
)

// CiphersValue extracts the cipher policy field.
func CiphersValue(x uint64) uint64 {
	return x & (cipherMask << cipherShift)
}

// Verify depth field (5 bits at offset 22).
const (
	VerifyDepthDefault = uint64(6 << depthShift)
	VerifyDepthMax     = uint64(1 << 27)
)

// VerifyDepth returns the flags value selecting the given depth. The
// argument is not masked: values above 31 spill into higher bits.
func VerifyDepth(n uint64) uint64 {
	return n << depthShift
}

// VerifyValue extracts the verify depth field.
func VerifyValue(x uint64) uint64 {
	return x & (depthMask << depthShift)
}

// Default is the recommended flags value.
const Default = ProtoDefault |
	DHEParamsNone |
	ECDHECurveAuto |
	CiphersDefault |
	VerifyDepthDefault |
	PreferCiphersServer |
	ClearKeys
