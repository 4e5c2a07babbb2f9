package identity

import "errors"

var (
	// ErrUnauthenticated is returned without any network call when a gated operation
	// runs without an authenticated session.
	ErrUnauthenticated = errors.New("not authenticated with identity provider")
	// ErrInvalidToken means the login token failed verification.
	ErrInvalidToken = errors.New("invalid identity token")
)
