package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-seat-booking/internal/auth"
)

// Redirect error codes appended to the front-end URL when a login fails.
const (
	loginNoCode              = "no_code"
	loginInvalidState        = "invalid_state"
	loginTokenExchangeFailed = "token_exchange_failed"
	loginInvalidToken        = "invalid_token"
	loginInvalidClaims       = "invalid_claims"
	loginProviderUnavailable = "provider_unavailable"
	loginAuthFailed          = "auth_failed"
)

// LoginProvider is the OAuth side of the identity provider.
// *auth.Client satisfies it.
type LoginProvider interface {
	AuthorizeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (auth.TokenResponse, error)
}

// LoginRecorder upserts the employee behind a fresh login.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, id auth.Identity) error
}

// AuthHandler drives the W3ID authorization-code login.
type AuthHandler struct {
	Provider    LoginProvider
	Verifier    auth.TokenVerifier
	Auth        *auth.Authenticator
	Directory   LoginRecorder
	FrontendURL string
	Timeout     time.Duration
}

// Login redirects the browser to the provider's authorize endpoint.
func (h *AuthHandler) Login(c echo.Context) error {
	state, err := h.Auth.NewState(c.Response())
	if err != nil {
		log.Printf("[AUTH] action=login msg=state generation failed err=%v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	target, err := h.Provider.AuthorizeURL(state)
	if err != nil {
		log.Printf("[AUTH] action=login msg=authorize url failed err=%v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.Redirect(http.StatusFound, target)
}

// Callback completes the login.  It always answers with a redirect to the
// front end; failures carry an ?error= code instead of a raw fault.
func (h *AuthHandler) Callback(c echo.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[AUTH] action=callback msg=panic err=%v", r)
			err = h.fail(c, loginAuthFailed)
		}
	}()
	if code := c.QueryParam("error"); code != "" {
		log.Printf("[AUTH] action=callback msg=provider error error=%s description=%q", code, c.QueryParam("error_description"))
		h.Auth.CheckState(c.Response(), c.Request(), "")
		return h.fail(c, code)
	}
	code := c.QueryParam("code")
	if code == "" {
		return h.fail(c, loginNoCode)
	}
	if !h.Auth.CheckState(c.Response(), c.Request(), c.QueryParam("state")) {
		log.Printf("[AUTH] action=callback msg=state mismatch ip=%s", c.RealIP())
		return h.fail(c, loginInvalidState)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout())
	defer cancel()

	tok, err := h.Provider.Exchange(ctx, code)
	if err != nil {
		log.Printf("[AUTH] action=callback msg=token exchange failed err=%v", err)
		if errors.Is(err, auth.ErrServiceUnavailable) {
			return h.fail(c, loginProviderUnavailable)
		}
		return h.fail(c, loginTokenExchangeFailed)
	}
	raw, err := h.Auth.CredentialToken(tok)
	if err != nil {
		log.Printf("[AUTH] action=callback msg=no usable token err=%v", err)
		return h.fail(c, loginTokenExchangeFailed)
	}
	id, err := h.Verifier.Verify(ctx, raw)
	if err != nil {
		log.Printf("[AUTH] action=callback msg=token rejected err=%v", err)
		switch {
		case errors.Is(err, auth.ErrServiceUnavailable):
			return h.fail(c, loginProviderUnavailable)
		case errors.Is(err, auth.ErrNoIdentity):
			return h.fail(c, loginInvalidClaims)
		default:
			return h.fail(c, loginInvalidToken)
		}
	}

	// The credential is minted first so a login is only recorded once it
	// can succeed; a recording failure then revokes it.
	grant, err := h.Auth.Issue(ctx, id, tok)
	if err != nil {
		log.Printf("[AUTH] action=callback msg=session create failed w3_id=%s err=%v", id.W3ID, err)
		return h.fail(c, loginAuthFailed)
	}
	if err := h.Directory.RecordLogin(ctx, id); err != nil {
		if rerr := h.Auth.Revoke(ctx, grant); rerr != nil {
			log.Printf("[AUTH] action=callback msg=session revoke failed w3_id=%s err=%v", id.W3ID, rerr)
		}
		return h.fail(c, loginAuthFailed)
	}
	h.Auth.Deliver(c.Response(), grant)
	log.Printf("[AUTH] action=callback msg=login ok w3_id=%s mode=%s", id.W3ID, h.Auth.Mode)
	return c.Redirect(http.StatusFound, h.FrontendURL)
}

// Logout drops the session and expires the auth cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Auth.Clear(c.Request().Context(), c.Response(), c.Request()); err != nil {
		log.Printf("[AUTH] action=logout msg=session delete failed err=%v", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) fail(c echo.Context, code string) error {
	return c.Redirect(http.StatusFound, withError(h.FrontendURL, code))
}

func (h *AuthHandler) timeout() time.Duration {
	if h.Timeout > 0 {
		return h.Timeout
	}
	return 15 * time.Second
}

// withError appends ?error=code to base, keeping any query it already has.
func withError(base, code string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("error", code)
	u.RawQuery = q.Encode()
	return u.String()
}
