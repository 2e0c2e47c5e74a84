// Package id generates the opaque identifiers used for outbox events and lock tokens.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

// Len is the length of a NewID32 value.
const Len = 32

// NewID32 returns 32 lowercase hex characters drawn from crypto/rand.
func NewID32() string {
	var b [Len / 2]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("id: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// IsID32 reports whether s has the NewID32 shape.
func IsID32(s string) bool {
	if len(s) != Len {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
