package btls

//
// Flags and cipher masks
//

import "github.com/ooni/btls/internal/engineconfig"

// Flags for the attach functions. See the engineconfig package for the bit layout.
const (
	ProtoTLSv10          = engineconfig.ProtoTLSv10
	ProtoTLSv11          = engineconfig.ProtoTLSv11
	ProtoTLSv12          = engineconfig.ProtoTLSv12
	ProtoTLSv1           = engineconfig.ProtoTLSv1
	ProtoAll             = engineconfig.ProtoAll
	ProtoDefault         = engineconfig.ProtoDefault
	FlagsReserved0       = engineconfig.FlagsReserved0
	FlagsReserved1       = engineconfig.FlagsReserved1
	PreferCiphersClient  = engineconfig.PreferCiphersClient
	PreferCiphersServer  = engineconfig.PreferCiphersServer
	NoVerifyCert         = engineconfig.NoVerifyCert
	NoVerifyName         = engineconfig.NoVerifyName
	NoVerifyTime         = engineconfig.NoVerifyTime
	VerifyClient         = engineconfig.VerifyClient
	VerifyClientOptional = engineconfig.VerifyClientOptional
	ClearKeys            = engineconfig.ClearKeys
	DHEParamsNone        = engineconfig.DHEParamsNone
	DHEParamsAuto        = engineconfig.DHEParamsAuto
	DHEParamsLegacy      = engineconfig.DHEParamsLegacy
	ECDHECurveNone       = engineconfig.ECDHECurveNone
	ECDHECurveAuto       = engineconfig.ECDHECurveAuto
	ECDHECurveSECP192R1  = engineconfig.ECDHECurveSECP192R1
	ECDHECurveSECP224R1  = engineconfig.ECDHECurveSECP224R1
	ECDHECurveSECP224K1  = engineconfig.ECDHECurveSECP224K1
	ECDHECurveSECP256R1  = engineconfig.ECDHECurveSECP256R1
	ECDHECurveSECP256K1  = engineconfig.ECDHECurveSECP256K1
	ECDHECurveSECP384R1  = engineconfig.ECDHECurveSECP384R1
	ECDHECurveSECP521R1  = engineconfig.ECDHECurveSECP521R1
	CiphersDefault       = engineconfig.CiphersDefault
	CiphersSecure        = engineconfig.CiphersSecure
	CiphersCompat        = engineconfig.CiphersCompat
	CiphersLegacy        = engineconfig.CiphersLegacy
	CiphersInsecure      = engineconfig.CiphersInsecure
	CiphersSpecific      = engineconfig.CiphersSpecific
	VerifyDepthDefault   = engineconfig.VerifyDepthDefault
	VerifyDepthMax       = engineconfig.VerifyDepthMax
	Default              = engineconfig.Default
)

// ProtoValue extracts the protocol versions field of flags.
func ProtoValue(flags uint64) uint64 {
	return engineconfig.ProtoValue(flags)
}

// VerifyDepth returns the flags value selecting the given verify depth.
func VerifyDepth(n uint64) uint64 {
	return engineconfig.VerifyDepth(n)
}

// Cipher masks for the ciphers argument of the attach functions. They are only
// used along with CiphersSpecific. Note that bit 18 names two suites.
const (
	CiphersECDHERSAAES256GCMSHA384       = uint64(engineconfig.CiphersECDHERSAAES256GCMSHA384)
	CiphersECDHEECDSAAES256GCMSHA384     = uint64(engineconfig.CiphersECDHEECDSAAES256GCMSHA384)
	CiphersECDHERSAAES256SHA384          = uint64(engineconfig.CiphersECDHERSAAES256SHA384)
	CiphersECDHEECDSAAES256SHA384        = uint64(engineconfig.CiphersECDHEECDSAAES256SHA384)
	CiphersDHEDSSAES256GCMSHA384         = uint64(engineconfig.CiphersDHEDSSAES256GCMSHA384)
	CiphersDHERSAAES256GCMSHA384         = uint64(engineconfig.CiphersDHERSAAES256GCMSHA384)
	CiphersDHERSAAES256SHA256            = uint64(engineconfig.CiphersDHERSAAES256SHA256)
	CiphersDHEDSSAES256SHA256            = uint64(engineconfig.CiphersDHEDSSAES256SHA256)
	CiphersECDHEECDSACHACHA20POLY1305    = uint64(engineconfig.CiphersECDHEECDSACHACHA20POLY1305)
	CiphersECDHERSACHACHA20POLY1305      = uint64(engineconfig.CiphersECDHERSACHACHA20POLY1305)
	CiphersDHERSACHACHA20POLY1305        = uint64(engineconfig.CiphersDHERSACHACHA20POLY1305)
	CiphersECDHEECDSACHACHA20POLY1305Old = uint64(engineconfig.CiphersECDHEECDSACHACHA20POLY1305Old)
	CiphersECDHERSACHACHA20POLY1305Old   = uint64(engineconfig.CiphersECDHERSACHACHA20POLY1305Old)
	CiphersDHERSACHACHA20POLY1305Old     = uint64(engineconfig.CiphersDHERSACHACHA20POLY1305Old)
	CiphersDHERSACAMELLIA256SHA256       = uint64(engineconfig.CiphersDHERSACAMELLIA256SHA256)
	CiphersDHEDSSCAMELLIA256SHA256       = uint64(engineconfig.CiphersDHEDSSCAMELLIA256SHA256)
	CiphersECDHRSAAES256GCMSHA384        = uint64(engineconfig.CiphersECDHRSAAES256GCMSHA384)
	CiphersECDHECDSAAES256GCMSHA384      = uint64(engineconfig.CiphersECDHECDSAAES256GCMSHA384)
	CiphersECDHRSAAES256SHA384           = uint64(engineconfig.CiphersECDHRSAAES256SHA384)
	CiphersECDHECDSAAES256SHA384         = uint64(engineconfig.CiphersECDHECDSAAES256SHA384)
	CiphersAES256GCMSHA384               = uint64(engineconfig.CiphersAES256GCMSHA384)
	CiphersAES256SHA256                  = uint64(engineconfig.CiphersAES256SHA256)
	CiphersCAMELLIA256SHA256             = uint64(engineconfig.CiphersCAMELLIA256SHA256)
	CiphersECDHERSAAES128GCMSHA256       = uint64(engineconfig.CiphersECDHERSAAES128GCMSHA256)
	CiphersECDHEECDSAAES128GCMSHA256     = uint64(engineconfig.CiphersECDHEECDSAAES128GCMSHA256)
	CiphersECDHERSAAES128SHA256          = uint64(engineconfig.CiphersECDHERSAAES128SHA256)
	CiphersECDHEECDSAAES128SHA256        = uint64(engineconfig.CiphersECDHEECDSAAES128SHA256)
	CiphersDHEDSSAES128GCMSHA256         = uint64(engineconfig.CiphersDHEDSSAES128GCMSHA256)
	CiphersDHERSAAES128GCMSHA256         = uint64(engineconfig.CiphersDHERSAAES128GCMSHA256)
	CiphersDHERSAAES128SHA256            = uint64(engineconfig.CiphersDHERSAAES128SHA256)
	CiphersDHEDSSAES128SHA256            = uint64(engineconfig.CiphersDHEDSSAES128SHA256)
	CiphersDHERSACAMELLIA128SHA256       = uint64(engineconfig.CiphersDHERSACAMELLIA128SHA256)
	CiphersDHEDSSCAMELLIA128SHA256       = uint64(engineconfig.CiphersDHEDSSCAMELLIA128SHA256)
	CiphersECDHRSAAES128GCMSHA256        = uint64(engineconfig.CiphersECDHRSAAES128GCMSHA256)
	CiphersECDHECDSAAES128GCMSHA256      = uint64(engineconfig.CiphersECDHECDSAAES128GCMSHA256)
	CiphersECDHRSAAES128SHA256           = uint64(engineconfig.CiphersECDHRSAAES128SHA256)
	CiphersECDHECDSAAES128SHA256         = uint64(engineconfig.CiphersECDHECDSAAES128SHA256)
	CiphersAES128GCMSHA256               = uint64(engineconfig.CiphersAES128GCMSHA256)
	CiphersAES128SHA256                  = uint64(engineconfig.CiphersAES128SHA256)
	CiphersCAMELLIA128SHA256             = uint64(engineconfig.CiphersCAMELLIA128SHA256)
	CiphersAES256SHA                     = uint64(engineconfig.CiphersAES256SHA)
)
