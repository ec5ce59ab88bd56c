package api

import (
	"net/http"

	"github.com/JaimeStill/glimpse/internal/config"
	"github.com/JaimeStill/glimpse/pkg/openapi"
	"github.com/JaimeStill/glimpse/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) error {
	groups := []routes.Group{
		domain.Identity.Handler().Routes(),
		domain.Users.Handler().Routes(),
		domain.Comments.Handler(cfg.API.MaxSnapshotSizeBytes()).Routes(),
	}

	routes.Register(mux, groups...)

	spec, err := buildSpec(cfg, groups)
	if err != nil {
		return err
	}
	mux.HandleFunc("GET "+specPath, openapi.ServeSpec(spec))

	return nil
}
