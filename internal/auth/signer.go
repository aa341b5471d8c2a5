package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// Signer authenticates cookie values with HMAC-SHA256.  The MAC key is
// derived from SESSION_SECRET so the raw secret never keys anything
// directly.
type Signer struct {
	key []byte
}

// NewSigner derives a signing key from secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("empty session secret")
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("office-seat-booking/cookie/v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

// Sign returns value followed by a dot and its MAC.
func (s *Signer) Sign(value string) string {
	return value + "." + base64.RawURLEncoding.EncodeToString(s.mac(value))
}

// Verify checks a value produced by Sign and returns the original value.
func (s *Signer) Verify(signed string) (string, bool) {
	i := strings.LastIndexByte(signed, '.')
	if i <= 0 {
		return "", false
	}
	value, sig := signed[:i], signed[i+1:]
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(got, s.mac(value)) {
		return "", false
	}
	return value, true
}

func (s *Signer) mac(value string) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(value))
	return m.Sum(nil)
}
