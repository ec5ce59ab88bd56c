package api

import (
	"fmt"

	"github.com/JaimeStill/glimpse/internal/comments"
	"github.com/JaimeStill/glimpse/internal/config"
	"github.com/JaimeStill/glimpse/internal/identity"
	"github.com/JaimeStill/glimpse/internal/users"
	"github.com/JaimeStill/glimpse/pkg/openapi"
	"github.com/JaimeStill/glimpse/pkg/routes"
)

const specPath = "/openapi.json"

// buildSpec documents groups and returns the serialized spec.
func buildSpec(cfg *config.Config, groups []routes.Group) ([]byte, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(users.Schemas())
	spec.Components.AddSchemas(identity.Schemas())
	spec.Components.AddSchemas(comments.Schemas())

	routes.Document(spec, groups...)

	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi spec: %w", err)
	}
	return data, nil
}
