package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JaimeStill/glimpse/internal/identity"
	"github.com/JaimeStill/glimpse/internal/navigation"
)

// SignInAPI is the server surface used for authentication.
type SignInAPI interface {
	SignIn(ctx context.Context, idToken string) (*identity.SignInResult, error)
	SetToken(token string)
}

// AuthState tracks the signed-in user and notifies listeners on sign-in.
// The admin flag is taken from the user document returned by the exchange,
// so listeners never observe an unresolved role.
type AuthState struct {
	api    SignInAPI
	logger *slog.Logger

	mu        sync.Mutex
	current   *navigation.Session
	listeners map[uint64]func(navigation.Session)
	nextID    uint64
}

// NewAuthState creates a signed-out AuthState.
func NewAuthState(api SignInAPI, logger *slog.Logger) *AuthState {
	return &AuthState{
		api:       api,
		logger:    logger.With("system", "auth"),
		listeners: make(map[uint64]func(navigation.Session)),
	}
}

// AddListener registers fn and calls it at once when a user is signed in.
func (s *AuthState) AddListener(fn func(navigation.Session)) (remove func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	current := s.current
	s.mu.Unlock()

	if current != nil {
		fn(*current)
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Listeners returns the number of registered listeners.
func (s *AuthState) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Current returns the signed-in user, if any.
func (s *AuthState) Current() (navigation.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return navigation.Session{}, false
	}
	return *s.current, true
}

// SignIn exchanges idToken with the server and notifies listeners.
func (s *AuthState) SignIn(ctx context.Context, idToken string) error {
	result, err := s.api.SignIn(ctx, idToken)
	if err != nil {
		s.logger.Error("sign in failed", "error", err)
		return fmt.Errorf("sign in: %w", err)
	}

	session := navigation.Session{
		UserID:      result.User.ID,
		DisplayName: result.User.DisplayName,
		Admin:       result.User.IsAdmin(),
	}

	s.mu.Lock()
	s.current = &session
	fns := make([]func(navigation.Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(session)
	}
	return nil
}

// SignOut forgets the session token and the signed-in user.
func (s *AuthState) SignOut() {
	s.api.SetToken("")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
