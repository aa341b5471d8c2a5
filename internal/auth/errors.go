// Package auth verifies W3ID identities and drives the OAuth2
// authorization-code login flow.
package auth

import "errors"

// ErrUnauthenticated means the credential is missing, malformed, expired or
// fails signature/issuer validation.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrServiceUnavailable means the identity provider (token endpoint or key
// set) could not be reached or answered with a server error.
var ErrServiceUnavailable = errors.New("identity provider unavailable")

// ErrTokenExchange means the provider answered the code exchange but the
// response carried no usable token.
var ErrTokenExchange = errors.New("token exchange failed")

// ErrNoIdentity means a verified token carried none of the identity claims.
var ErrNoIdentity = errors.New("token has no identity claim")

// ErrSessionNotFound is returned by session stores for unknown or expired
// sessions.
var ErrSessionNotFound = errors.New("session not found")
