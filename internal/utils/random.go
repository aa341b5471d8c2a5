package utils // package utils provides small helpers shared across packages

import (
	"crypto/rand"  // secure random number generation
	"encoding/hex" // hex encoding of random bytes
)

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.  It is used for session ids and
// OAuth state values.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
