// Package idnax converts internationalized server names to the ASCII
// form used in SNI and in certificate name matching.
package idnax

import "golang.org/x/net/idna"

// ToASCII returns the lowercase A-label form of domain using the
// UTS #46 lookup profile.
func ToASCII(domain string) (string, error) {
	return idna.Lookup.ToASCII(domain)
}
