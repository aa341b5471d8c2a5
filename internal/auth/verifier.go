package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyProvider resolves a signing key by key id.
type KeyProvider interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Verifier validates W3ID-issued JWTs.  Only RS256 is accepted and the
// issuer must match.  The audience is not checked; several
// client ids share tokens from the same provider tenant.
type Verifier struct {
	keys   KeyProvider
	parser *jwt.Parser
}

// NewVerifier returns a Verifier trusting keys from kp for issuer.
func NewVerifier(kp KeyProvider, issuer string) *Verifier {
	return &Verifier{
		keys: kp,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

// Verify parses raw, checks its signature against the key named by its kid
// header and returns the identity it asserts.  A key set that cannot be
// fetched yields ErrServiceUnavailable; every other failure yields
// ErrUnauthenticated.
func (v *Verifier) Verify(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: empty token", ErrUnauthenticated)
	}
	tok, err := v.parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: token header has no kid", ErrUnauthenticated)
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		if errors.Is(err, ErrServiceUnavailable) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Identity{}, fmt.Errorf("%w: invalid claims", ErrUnauthenticated)
	}
	id := IdentityFromClaims(claims)
	if id.W3ID == "" {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrNoIdentity)
	}
	return id, nil
}
