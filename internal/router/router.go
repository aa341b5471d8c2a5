// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-seat-booking/internal/handler"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the login flow.  /auth/ibm/callback is the
// redirect URI some W3ID registrations were created with; both callback
// paths behave identically.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/auth")
	g.GET("/login", a.Login)
	g.GET("/callback", a.Callback)
	g.GET("/ibm/callback", a.Callback)
	g.POST("/logout", a.Logout)
}

// RegisterSeats registers the authenticated seat routes.  authn runs first
// on every route so the cache and the limiter only ever see verified
// callers; the cache fronts the seat list and the limiter fronts writes.
func RegisterSeats(e *echo.Echo, s *handler.SeatHandler, authn, cache, limit echo.MiddlewareFunc) {
	e.GET("/me", s.Me, authn)
	e.GET("/seats", s.List, authn, cache)
	e.POST("/book", s.Book, authn, limit)
	e.POST("/release/:seat_id", s.Release, authn, limit)
}
