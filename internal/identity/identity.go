// Package identity exchanges identity provider ID tokens for API session
// tokens, creating the user document on first sign-in.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JaimeStill/glimpse/internal/users"
	"github.com/JaimeStill/glimpse/pkg/auth"
)

// Domain errors for sign-in.
var (
	ErrMissingToken      = errors.New("id_token is required")
	ErrInvalidCredential = errors.New("identity token rejected")
)

// MapHTTPStatus maps identity errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingToken):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredential):
		return http.StatusUnauthorized
	}
	return users.MapHTTPStatus(err)
}

// SignInCommand carries the identity provider ID token.
type SignInCommand struct {
	IDToken string `json:"id_token"`
}

// SignInResult is returned from a successful sign-in.
type SignInResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *users.User `json:"user"`
}

// System defines the sign-in contract.
type System interface {
	Handler() *Handler
	SignIn(ctx context.Context, cmd SignInCommand) (*SignInResult, error)
}

type service struct {
	verifier auth.Verifier
	tokens   *auth.Tokens
	users    users.System
	logger   *slog.Logger
}

// New creates the identity system.
func New(verifier auth.Verifier, tokens *auth.Tokens, userSys users.System, logger *slog.Logger) System {
	return &service{
		verifier: verifier,
		tokens:   tokens,
		users:    userSys,
		logger:   logger.With("system", "identity"),
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger)
}

func (s *service) SignIn(ctx context.Context, cmd SignInCommand) (*SignInResult, error) {
	if cmd.IDToken == "" {
		return nil, ErrMissingToken
	}

	id, err := s.verifier.Verify(ctx, cmd.IDToken)
	if err != nil {
		s.logger.Warn("identity token rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	u, err := s.users.Ensure(ctx, users.EnsureCommand{
		UserID:      id.Subject,
		DisplayName: displayName(id),
		Email:       id.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	token, expires, err := s.tokens.Issue(auth.Session{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("signed in", "user_id", u.ID, "role", u.Role)
	return &SignInResult{Token: token, ExpiresAt: expires, User: u}, nil
}

func displayName(id *auth.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}
