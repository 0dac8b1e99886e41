package tlslayer

//
// Session introspection
//

import (
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/ooni/btls/internal/idnax"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/optional"
)

// lookupSession returns the session bound to h or, if there is none, the
// last session discarded from h. Introspection never fails: a missing session
// leads to absent results.
func (r *Registry) lookupSession(h model.Handle) optional.Value[*Session] {
	if entry, err := r.table.Lookup(h); err == nil {
		if session, ok := entry.Layer.(*Session); ok {
			return optional.Some(session)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return optional.Some(r.previous[h])
}

// peerCertificate returns the peer certificate of the session of h.
func (r *Registry) peerCertificate(h model.Handle) optional.Value[*CertificateInfo] {
	session := r.lookupSession(h)
	if session.IsNone() {
		return optional.None[*CertificateInfo]()
	}
	return session.Unwrap().PeerCertificate()
}

// PeerCertProvided returns whether the peer presented a certificate.
func (r *Registry) PeerCertProvided(h model.Handle) bool {
	return !r.peerCertificate(h).IsNone()
}

// PeerCertContainsName returns whether the peer certificate is valid for name,
// using the DNS and IP subject alternative names or, when there are no DNS
// names, the subject common name. A wildcard only matches a whole leftmost
// label: "*.example.com" matches "foo.example.com" and not "example.com"
// or "foo.bar.example.com".
func (r *Registry) PeerCertContainsName(h model.Handle, name string) bool {
	info := r.peerCertificate(h)
	if info.IsNone() {
		return false
	}
	leaf := info.Unwrap().Leaf
	if ip := net.ParseIP(name); ip != nil {
		for _, candidate := range leaf.IPAddresses {
			if candidate.Equal(ip) {
				return true
			}
		}
		return false
	}
	name, err := normalizeName(name)
	if err != nil {
		return false
	}
	patterns := leaf.DNSNames
	if len(patterns) <= 0 && leaf.Subject.CommonName != "" {
		patterns = []string{leaf.Subject.CommonName}
	}
	for _, pattern := range patterns {
		if matchHostname(pattern, name) {
			return true
		}
	}
	return false
}

// normalizeName converts name to lowercase ASCII without the trailing dot.
func normalizeName(name string) (string, error) {
	name = strings.TrimSuffix(name, ".")
	ascii, err := idnax.ToASCII(name)
	if err != nil {
		return "", err
	}
	return strings.ToLower(ascii), nil
}

// matchHostname returns whether the normalized name matches pattern.
func matchHostname(pattern, name string) bool {
	pattern = strings.ToLower(strings.TrimSuffix(pattern, "."))
	if pattern == "" || name == "" {
		return false
	}
	if !strings.HasPrefix(pattern, "*.") {
		return pattern == name
	}
	suffix := pattern[1:] // includes the leading dot
	if strings.Count(suffix, ".") < 2 {
		return false // refuse to match "*.com"
	}
	label, found := strings.CutSuffix(name, suffix)
	return found && label != "" && !strings.Contains(label, ".")
}

// PeerCertHash returns "SHA256:" followed by the hex SHA256 of the peer certificate.
func (r *Registry) PeerCertHash(h model.Handle) optional.Value[string] {
	return certificateField(r.peerCertificate(h), func(info *CertificateInfo) string {
		return info.Hash
	})
}

// PeerCertIssuer returns the issuer of the peer certificate.
func (r *Registry) PeerCertIssuer(h model.Handle) optional.Value[string] {
	return certificateField(r.peerCertificate(h), func(info *CertificateInfo) string {
		return info.Issuer
	})
}

// PeerCertSubject returns the subject of the peer certificate.
func (r *Registry) PeerCertSubject(h model.Handle) optional.Value[string] {
	return certificateField(r.peerCertificate(h), func(info *CertificateInfo) string {
		return info.Subject
	})
}

// PeerCertNotBefore returns the beginning of the peer certificate validity.
func (r *Registry) PeerCertNotBefore(h model.Handle) optional.Value[time.Time] {
	return certificateField(r.peerCertificate(h), func(info *CertificateInfo) time.Time {
		return info.NotBefore
	})
}

// PeerCertNotAfter returns the end of the peer certificate validity.
func (r *Registry) PeerCertNotAfter(h model.Handle) optional.Value[time.Time] {
	return certificateField(r.peerCertificate(h), func(info *CertificateInfo) time.Time {
		return info.NotAfter
	})
}

func certificateField[T any](info optional.Value[*CertificateInfo], fx func(info *CertificateInfo) T) optional.Value[T] {
	if info.IsNone() {
		return optional.None[T]()
	}
	return optional.Some(fx(info.Unwrap()))
}

// ConnALPNSelected returns the negotiated ALPN protocol.
func (r *Registry) ConnALPNSelected(h model.Handle) optional.Value[string] {
	return sessionField(r.lookupSession(h), (*Session).ALPN)
}

// ConnCipher returns the negotiated cipher suite (e.g., TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256).
func (r *Registry) ConnCipher(h model.Handle) optional.Value[string] {
	return sessionField(r.lookupSession(h), (*Session).Cipher)
}

// ConnServerName returns the server name indication.
func (r *Registry) ConnServerName(h model.Handle) optional.Value[string] {
	return sessionField(r.lookupSession(h), (*Session).ServerName)
}

// ConnVersion returns the negotiated version (e.g., TLSv1.2).
func (r *Registry) ConnVersion(h model.Handle) optional.Value[string] {
	return sessionField(r.lookupSession(h), (*Session).Version)
}

// ConnectionState returns the state negotiated by the session of h.
func (r *Registry) ConnectionState(h model.Handle) optional.Value[tls.ConnectionState] {
	session := r.lookupSession(h)
	if session.IsNone() || session.Unwrap().State() != StateEstablished {
		return optional.None[tls.ConnectionState]()
	}
	return optional.Some(session.Unwrap().ConnectionState())
}

func sessionField(session optional.Value[*Session], fx func(s *Session) optional.Value[string]) optional.Value[string] {
	if session.IsNone() {
		return optional.None[string]()
	}
	return fx(session.Unwrap())
}

// SessionState returns the state of the session bound to h or of the
// last session discarded from h.
func (r *Registry) SessionState(h model.Handle) optional.Value[State] {
	session := r.lookupSession(h)
	if session.IsNone() {
		return optional.None[State]()
	}
	return optional.Some(session.Unwrap().State())
}
