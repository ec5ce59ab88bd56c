// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/glimpse/internal/config"
	"github.com/JaimeStill/glimpse/internal/infrastructure"
	"github.com/JaimeStill/glimpse/pkg/auth"
	"github.com/JaimeStill/glimpse/pkg/middleware"
	"github.com/JaimeStill/glimpse/pkg/module"
)

// publicPrefixes are served without a session token.
var publicPrefixes = []string{"/auth/", specPath}

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg); err != nil {
		return nil, err
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(auth.Middleware(runtime.Tokens, runtime.Logger, publicPrefixes...))

	return m, nil
}
