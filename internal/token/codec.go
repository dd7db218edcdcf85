// Package token generates the opaque codes and tokens used for sign-in and
// family linking, and the one-way digests stored in their place.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// shortAlphabet has 32 symbols with the visually ambiguous ones removed
// (no 0/O, no 1/I), so codes survive being read aloud or typed from a photo.
const shortAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// SignInCode returns a 6-digit numeric code (100000–999999).
func SignInCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		panic(fmt.Sprintf("token: read entropy: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}

// Opaque returns 48 hex characters (24 random bytes), used as the long-form
// magic-link URL parameter.
func Opaque() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("token: read entropy: %v", err))
	}
	return hex.EncodeToString(b)
}

// ShortCode returns a human-typable code in XXX-XXX form.
func ShortCode() string {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		if i == 3 {
			sb.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(shortAlphabet))))
		if err != nil {
			panic(fmt.Sprintf("token: read entropy: %v", err))
		}
		sb.WriteByte(shortAlphabet[n.Int64()])
	}
	return sb.String()
}

// Digest returns the hex-encoded SHA-256 of raw, for storing tokens at rest.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
