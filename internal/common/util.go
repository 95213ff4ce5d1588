package common

import "strings"

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// Every lookup in the legacy and modern stores goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used to drop cleartext password bytes once hashing is done.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
