package auth_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/glimpse/pkg/auth"
)

func newTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	cfg := &auth.Config{
		ClientID:      "client",
		SessionSecret: "0123456789abcdef0123456789abcdef",
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return auth.NewTokens(cfg)
}

func TestMiddleware(t *testing.T) {
	tokens := newTokens(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	raw, _, err := tokens.Issue(auth.Session{UserID: "u1", DisplayName: "Ada"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := auth.FromContext(r.Context()); ok {
			seen = s.UserID
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.Middleware(tokens, logger, "/auth/")(next)

	tests := []struct {
		name     string
		target   string
		header   string
		wantCode int
		wantUser string
	}{
		{"public path", "/auth/session", "", http.StatusOK, ""},
		{"missing token", "/comments", "", http.StatusUnauthorized, ""},
		{"bad scheme", "/comments", "Basic abc", http.StatusUnauthorized, ""},
		{"invalid token", "/comments", "Bearer nope", http.StatusUnauthorized, ""},
		{"bearer token", "/comments", "Bearer " + raw, http.StatusOK, "u1"},
		{"query token ignored", "/comments/stream?classification_id=cat&access_token=" + raw, "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if seen != tt.wantUser {
				t.Errorf("user = %q, want %q", seen, tt.wantUser)
			}
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_AUTH_CLIENT_ID", "env-client")

	cfg := &auth.Config{SessionSecret: "0123456789abcdef0123456789abcdef"}
	if err := cfg.Finalize(&auth.Env{ClientID: "TEST_AUTH_CLIENT_ID"}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if cfg.ClientID != "env-client" {
		t.Errorf("client id = %q", cfg.ClientID)
	}
	if cfg.Issuer != "https://accounts.google.com" {
		t.Errorf("issuer = %q", cfg.Issuer)
	}
	if cfg.SessionTTLDuration().Hours() != 24 {
		t.Errorf("ttl = %v, want 24h", cfg.SessionTTLDuration())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  auth.Config
	}{
		{"missing client", auth.Config{SessionSecret: "0123456789abcdef0123456789abcdef"}},
		{"short secret", auth.Config{ClientID: "c", SessionSecret: "short"}},
		{"bad ttl", auth.Config{ClientID: "c", SessionSecret: "0123456789abcdef0123456789abcdef", SessionTTL: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
