package auth

import "errors"

// Token verification failures. The Guard collapses all of these into
// ErrUnauthenticated before they reach a caller, so a client cannot tell a
// forged token from an expired or revoked one.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrRevokedToken = errors.New("token revoked")
)

var (
	// ErrUnauthenticated covers bad credentials, invalid/expired/revoked
	// tokens, and unknown subjects alike.
	ErrUnauthenticated = errors.New("could not validate credentials")

	// ErrInactiveAccount is returned for a valid token whose account has
	// been deactivated.
	ErrInactiveAccount = errors.New("inactive account")

	// ErrForbidden is returned when an authenticated user lacks the
	// required role.
	ErrForbidden = errors.New("admin privileges required")
)
