// Package auth verifies identity provider ID tokens and issues the session
// tokens that authenticate API requests.
package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Identity is the verified subject of an identity provider ID token.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Verifier checks identity provider ID tokens.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier creates a Verifier for the configured issuer and client.
// Signing keys are fetched from JWKSURL on first use and cached; ctx bounds
// those background key fetches.
func NewVerifier(ctx context.Context, cfg *Config) Verifier {
	keys := oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
	return &oidcVerifier{
		verifier: oidc.NewVerifier(cfg.Issuer, keys, &oidc.Config{ClientID: cfg.ClientID}),
	}
}

func (v *oidcVerifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrInvalidToken, err)
	}

	return &Identity{
		Subject: token.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}
