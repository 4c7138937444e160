// Package sha1 derives short, stable tokens from product identity strings.
package sha1

import (
	"crypto/sha1" //nolint:gosec // identity token, not a security boundary
	"encoding/hex"
	"strings"
)

// TokenLength is the number of hex characters kept by Token.
const TokenLength = 16

// Hex returns the full lowercase SHA-1 hex digest of value.
func Hex(value string) string {
	sum := sha1.Sum([]byte(value)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Token returns the first TokenLength hex characters of the SHA-1 digest of
// value, uppercased.
func Token(value string) string {
	return strings.ToUpper(Hex(value)[:TokenLength])
}
