package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-seat-booking/internal/auth"
)

const identityKey = "identity"

// CurrentIdentity returns the identity stored by Authenticate.
func CurrentIdentity(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok && id.W3ID != ""
}

// userID returns the caller's w3_id, or "guest" when the request did not
// pass through Authenticate.
func userID(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return id.W3ID
	}
	return "guest"
}
