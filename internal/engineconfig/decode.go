package engineconfig

import (
	"fmt"
	"strings"
)

// VersionSet is a set of TLS protocol versions.
type VersionSet uint8

// These are the members of a VersionSet.
const (
	VersionTLS10 = VersionSet(1 << iota)
	VersionTLS11
	VersionTLS12
)

// Contains returns whether v is in the set.
func (s VersionSet) Contains(v VersionSet) bool {
	return s&v != 0
}

// String implements fmt.Stringer.
func (s VersionSet) String() string {
	var out []string
	if s.Contains(VersionTLS10) {
		out = append(out, "TLSv1.0")
	}
	if s.Contains(VersionTLS11) {
		out = append(out, "TLSv1.1")
	}
	if s.Contains(VersionTLS12) {
		out = append(out, "TLSv1.2")
	}
	return strings.Join(out, ",")
}

// CipherPolicy is the cipher selection policy.
type CipherPolicy int

// These are the possible cipher policies.
const (
	CipherPolicySecure = CipherPolicy(iota + 1)
	CipherPolicyCompat
	CipherPolicyLegacy
	CipherPolicyInsecure
	CipherPolicySpecific

	CipherPolicyDefault = CipherPolicySecure
)

// String implements fmt.Stringer.
func (p CipherPolicy) String() string {
	switch p {
	case CipherPolicySecure:
		return "secure"
	case CipherPolicyCompat:
		return "compat"
	case CipherPolicyLegacy:
		return "legacy"
	case CipherPolicyInsecure:
		return "insecure"
	case CipherPolicySpecific:
		return "specific"
	default:
		return fmt.Sprintf("cipherpolicy(%d)", int(p))
	}
}

// DHEPolicy is the DHE parameters policy.
type DHEPolicy int

// These are the possible DHE policies.
const (
	DHENone = DHEPolicy(iota)
	DHEAuto
	DHELegacy
)

// String implements fmt.Stringer.
func (p DHEPolicy) String() string {
	switch p {
	case DHEAuto:
		return "auto"
	case DHELegacy:
		return "legacy"
	default:
		return "none"
	}
}

// ECDHECurve is the ECDHE policy: auto, none, or a specific named curve.
type ECDHECurve int

// These are the possible ECDHE policies. The numeric values match
// the values of the ECDHE curve field.
const (
	ECDHEAuto = ECDHECurve(iota)
	ECDHENone
	ECDHESECP192R1
	ECDHESECP224R1
	ECDHESECP224K1
	ECDHESECP256R1
	ECDHESECP256K1
	ECDHESECP384R1
	ECDHESECP521R1
)

var ecdheNames = map[ECDHECurve]string{
	ECDHEAuto:      "auto",
	ECDHENone:      "none",
	ECDHESECP192R1: "secp192r1",
	ECDHESECP224R1: "secp224r1",
	ECDHESECP224K1: "secp224k1",
	ECDHESECP256R1: "secp256r1",
	ECDHESECP256K1: "secp256k1",
	ECDHESECP384R1: "secp384r1",
	ECDHESECP521R1: "secp521r1",
}

// IsNamed returns whether this policy selects a specific curve.
func (c ECDHECurve) IsNamed() bool {
	return c >= ECDHESECP192R1 && c <= ECDHESECP521R1
}

// String implements fmt.Stringer.
func (c ECDHECurve) String() string {
	if name, found := ecdheNames[c]; found {
		return name
	}
	return fmt.Sprintf("curve(%d)", int(c))
}

// ClientAuth is the client authentication policy of a server.
type ClientAuth int

// These are the possible client authentication policies.
const (
	ClientAuthNone = ClientAuth(iota)
	ClientAuthRequired
	ClientAuthOptional
)

// String implements fmt.Stringer.
func (a ClientAuth) String() string {
	switch a {
	case ClientAuthRequired:
		return "required"
	case ClientAuthOptional:
		return "optional"
	default:
		return "none"
	}
}

// Config is the engine configuration decoded from the flags and the
// cipher mask. A Config is a value: copy it freely.
type Config struct {
	// Versions contains the enabled protocol versions.
	Versions VersionSet

	// CipherPolicy is the cipher selection policy.
	CipherPolicy CipherPolicy

	// Ciphers is only meaningful when CipherPolicy is CipherPolicySpecific.
	Ciphers CipherMask

	// DHE is the DHE parameters policy.
	DHE DHEPolicy

	// ECDHE is the ECDHE curve policy.
	ECDHE ECDHECurve

	// VerifyCert indicates whether to verify the peer's certificate chain.
	VerifyCert bool

	// VerifyName indicates whether to verify the peer's name.
	VerifyName bool

	// VerifyTime indicates whether to verify the validity period.
	VerifyTime bool

	// ClientAuth is the client authentication policy (server role).
	ClientAuth ClientAuth

	// VerifyDepth is the maximum number of intermediate certificates
	// between the peer certificate and the trust anchor.
	VerifyDepth int

	// PreferServerCiphers indicates the server's preference wins.
	PreferServerCiphers bool

	// ClearKeys indicates whether a session drops its own copy of the
	// private keys once the handshake is complete.
	ClearKeys bool
}

// Decode decodes flags and ciphers into a Config. This function is total:
// reserved bits are ignored, reserved field values select the field's
// default, and a zero field selects the default when there is one.
func Decode(flags, ciphers uint64) Config {
	config := Config{
		Versions:            decodeVersions(flags),
		CipherPolicy:        decodeCipherPolicy(flags),
		DHE:                 decodeDHE(flags),
		ECDHE:               decodeECDHE(flags),
		VerifyCert:          flags&NoVerifyCert == 0,
		VerifyName:          flags&NoVerifyName == 0,
		VerifyTime:          flags&NoVerifyTime == 0,
		ClientAuth:          decodeClientAuth(flags),
		VerifyDepth:         int(VerifyValue(flags) >> depthShift),
		PreferServerCiphers: flags&PreferCiphersServer != 0,
		ClearKeys:           flags&ClearKeys != 0,
	}
	if config.CipherPolicy == CipherPolicySpecific {
		config.Ciphers = CipherMask(ciphers) & CiphersAll
	}
	return config
}

func decodeVersions(flags uint64) VersionSet {
	value := ProtoValue(flags)
	if value&ProtoAll == 0 {
		value = ProtoDefault
	}
	var set VersionSet
	if value&ProtoTLSv10 != 0 {
		set |= VersionTLS10
	}
	if value&ProtoTLSv11 != 0 {
		set |= VersionTLS11
	}
	if value&ProtoTLSv12 != 0 {
		set |= VersionTLS12
	}
	return set
}

func decodeCipherPolicy(flags uint64) CipherPolicy {
	switch CiphersValue(flags) {
	case CiphersCompat:
		return CipherPolicyCompat
	case CiphersLegacy:
		return CipherPolicyLegacy
	case CiphersInsecure:
		return CipherPolicyInsecure
	case CiphersSpecific:
		return CipherPolicySpecific
	default:
		return CipherPolicyDefault
	}
}

func decodeDHE(flags uint64) DHEPolicy {
	switch DHEParamsValue(flags) {
	case DHEParamsAuto:
		return DHEAuto
	case DHEParamsLegacy:
		return DHELegacy
	default:
		return DHENone
	}
}

func decodeECDHE(flags uint64) ECDHECurve {
	curve := ECDHECurve(ECDHECurveValue(flags) >> ecdheShift)
	if curve > ECDHESECP521R1 {
		return ECDHEAuto
	}
	return curve
}

func decodeClientAuth(flags uint64) ClientAuth {
	switch {
	case flags&VerifyClient != 0:
		return ClientAuthRequired
	case flags&VerifyClientOptional != 0:
		return ClientAuthOptional
	default:
		return ClientAuthNone
	}
}

// String returns a compact description suitable for logging.
func (c Config) String() string {
	var verify []string
	if c.VerifyCert {
		verify = append(verify, "cert")
	}
	if c.VerifyName {
		verify = append(verify, "name")
	}
	if c.VerifyTime {
		verify = append(verify, "time")
	}
	prefer := "client"
	if c.PreferServerCiphers {
		prefer = "server"
	}
	s := fmt.Sprintf(
		"versions=%s ciphers=%s dhe=%s ecdhe=%s verify=%s depth=%d clientauth=%s prefer=%s clearkeys=%v",
		c.Versions, c.CipherPolicy, c.DHE, c.ECDHE, strings.Join(verify, ","),
		c.VerifyDepth, c.ClientAuth, prefer, c.ClearKeys,
	)
	if c.CipherPolicy == CipherPolicySpecific {
		s += fmt.Sprintf(" list=%s", c.Ciphers)
	}
	return s
}
