package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/utils"
)

// Cookie names used by the login flow.
const (
	SessionCookie     = "session"
	AccessTokenCookie = "access_token"
	StateCookie       = "oauth_state"
)

// Authentication modes.
const (
	ModeSession = "session"
	ModeCookie  = "cookie"
)

const stateTTL = 10 * time.Minute

// TokenVerifier validates a raw JWT and returns its identity.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Identity, error)
}

// Authenticator establishes and checks proof of login.  In session mode the
// browser holds a signed session id and the identity lives server-side; in
// cookie mode the browser holds the provider access token, verified on
// every request.  Bearer tokens in the Authorization header are accepted
// in both modes.
type Authenticator struct {
	Mode       string
	Sessions   SessionStore
	Verifier   TokenVerifier
	Signer     *Signer
	SessionTTL time.Duration
	Secure     bool
}

// Resolve returns the identity behind the request's credential.
func (a *Authenticator) Resolve(r *http.Request) (Identity, error) {
	ctx := r.Context()
	if raw, ok := bearerToken(r); ok {
		return a.Verifier.Verify(ctx, raw)
	}
	if a.Mode == ModeCookie {
		c, err := r.Cookie(AccessTokenCookie)
		if err != nil || c.Value == "" {
			return Identity{}, fmt.Errorf("%w: no credential", ErrUnauthenticated)
		}
		return a.Verifier.Verify(ctx, c.Value)
	}

	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return Identity{}, fmt.Errorf("%w: no credential", ErrUnauthenticated)
	}
	sid, ok := a.Signer.Verify(c.Value)
	if !ok {
		return Identity{}, fmt.Errorf("%w: bad session signature", ErrUnauthenticated)
	}
	id, err := a.Sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Identity{}, fmt.Errorf("%w: session expired", ErrUnauthenticated)
		}
		return Identity{}, err
	}
	return id, nil
}

// CredentialToken picks the token that proves identity for the configured
// mode: the ID token for sessions, the access token for cookie mode.
func (a *Authenticator) CredentialToken(tok TokenResponse) (string, error) {
	if a.Mode == ModeCookie {
		if tok.AccessToken == "" {
			return "", fmt.Errorf("%w: missing access_token", ErrTokenExchange)
		}
		return tok.AccessToken, nil
	}
	if tok.IDToken == "" {
		return "", fmt.Errorf("%w: missing id_token", ErrTokenExchange)
	}
	return tok.IDToken, nil
}

// Grant is a credential minted by Issue and not yet handed to the browser.
type Grant struct {
	cookie *http.Cookie
	sid    string
}

// Issue mints the credential for a verified identity.  In session mode the
// session is persisted here, so a failure surfaces before anything else
// records the login.
func (a *Authenticator) Issue(ctx context.Context, id Identity, tok TokenResponse) (Grant, error) {
	if a.Mode == ModeCookie {
		maxAge := tok.ExpiresIn
		if maxAge <= 0 {
			maxAge = a.SessionTTL
		}
		return Grant{cookie: a.cookie(AccessTokenCookie, tok.AccessToken, "/", maxAge)}, nil
	}
	sid, err := a.Sessions.Create(ctx, id, a.SessionTTL)
	if err != nil {
		return Grant{}, err
	}
	return Grant{cookie: a.cookie(SessionCookie, a.Signer.Sign(sid), "/", a.SessionTTL), sid: sid}, nil
}

// Deliver sets the granted cookie on w.
func (a *Authenticator) Deliver(w http.ResponseWriter, g Grant) {
	if g.cookie != nil {
		http.SetCookie(w, g.cookie)
	}
}

// Revoke discards a grant that will not be delivered.
func (a *Authenticator) Revoke(ctx context.Context, g Grant) error {
	if g.sid == "" {
		return nil
	}
	return a.Sessions.Delete(ctx, g.sid)
}

// Establish issues and delivers the credential in one step.
func (a *Authenticator) Establish(ctx context.Context, w http.ResponseWriter, id Identity, tok TokenResponse) error {
	g, err := a.Issue(ctx, id, tok)
	if err != nil {
		return err
	}
	a.Deliver(w, g)
	return nil
}

// Clear removes any session and expires the auth cookies.
func (a *Authenticator) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, cerr := r.Cookie(SessionCookie); cerr == nil {
		if sid, ok := a.Signer.Verify(c.Value); ok {
			err = a.Sessions.Delete(ctx, sid)
		}
	}
	http.SetCookie(w, a.cookie(SessionCookie, "", "/", -1))
	http.SetCookie(w, a.cookie(AccessTokenCookie, "", "/", -1))
	return err
}

// NewState issues a login state value and stores its signed copy in a
// short-lived cookie scoped to /auth.
func (a *Authenticator) NewState(w http.ResponseWriter) (string, error) {
	state, err := utils.RandomHex(16)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, a.cookie(StateCookie, a.Signer.Sign(state), "/auth", stateTTL))
	return state, nil
}

// CheckState compares the callback's state with the cookie set by NewState
// and clears the cookie.
func (a *Authenticator) CheckState(w http.ResponseWriter, r *http.Request, state string) bool {
	c, err := r.Cookie(StateCookie)
	http.SetCookie(w, a.cookie(StateCookie, "", "/auth", -1))
	if err != nil || state == "" {
		return false
	}
	want, ok := a.Signer.Verify(c.Value)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(state)) == 1
}

func (a *Authenticator) cookie(name, value, path string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.MaxAge = int(maxAge / time.Second)
		c.Expires = time.Now().Add(maxAge)
	}
	return c
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return raw, raw != ""
}
