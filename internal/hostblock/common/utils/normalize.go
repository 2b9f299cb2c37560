package utils

import (
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeDomain returns a domain name in the form used for index keys and
// lookups:
// - Trimmed of surrounding whitespace
// - Lowercased
// - Unicode names converted to their ASCII (punycode) form
//
// A leading "." is preserved so wildcard keys normalize the same way as the
// domains they match. If IDNA conversion fails the lowercased input is used
// as-is; a name that cannot be converted simply won't match anything.
func NormalizeDomain(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if isASCII(name) {
		return name
	}
	wildcard := strings.HasPrefix(name, ".")
	trimmed := strings.TrimPrefix(name, ".")
	ascii, err := idna.Lookup.ToASCII(trimmed)
	if err != nil {
		return name
	}
	if wildcard {
		return "." + ascii
	}
	return ascii
}

// isASCII reports whether s contains only ASCII bytes.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
