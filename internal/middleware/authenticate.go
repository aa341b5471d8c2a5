package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-seat-booking/internal/auth"
)

// IdentityResolver turns a request's credential into a verified identity.
// *auth.Authenticator satisfies it.
type IdentityResolver interface {
	Resolve(r *http.Request) (auth.Identity, error)
}

// Authenticate rejects requests without a valid credential and stores the
// verified identity for handlers (see CurrentIdentity).  A provider outage
// while verifying yields 503 so clients can tell it apart from a bad token.
func Authenticate(resolver IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := resolver.Resolve(c.Request())
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrServiceUnavailable):
					log.Printf("[AUTH] action=authenticate msg=provider unavailable path=%s err=%v", c.Path(), err)
					return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "identity provider unavailable"})
				case errors.Is(err, auth.ErrUnauthenticated):
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
				default:
					log.Printf("[AUTH] action=authenticate msg=resolve failed path=%s err=%v", c.Path(), err)
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
				}
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}
