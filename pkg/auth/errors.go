package auth

import "errors"

var (
	// ErrUnauthenticated indicates the request carried no session token.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidToken indicates an ID or session token failed verification.
	ErrInvalidToken = errors.New("invalid token")
)
