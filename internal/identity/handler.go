package identity

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/glimpse/pkg/handlers"
	"github.com/JaimeStill/glimpse/pkg/openapi"
	"github.com/JaimeStill/glimpse/pkg/routes"
)

// Handler provides the sign-in endpoint.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler for the given system.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "identity"),
	}
}

// Routes returns the route group for authentication endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/auth",
		Tags:   []string{"Auth"},
		Routes: []routes.Route{
			{
				Method:  "POST",
				Pattern: "/session",
				Handler: h.SignIn,
				OpenAPI: (&openapi.Operation{
					Summary:     "Sign in",
					Description: "Exchanges an identity provider ID token for a session token, creating the user on first sign-in.",
					RequestBody: openapi.RequestBodyJSON("SignInCommand", true),
					Responses: map[int]*openapi.Response{
						200: openapi.ResponseJSON("Session issued", "SignInResult"),
						400: openapi.ResponseRef("BadRequest"),
						401: openapi.ResponseRef("Unauthorized"),
					},
				}).Public(),
			},
		},
	}
}

// SignIn exchanges an identity provider ID token for a session token.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	cmd, err := handlers.Decode[SignInCommand](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.SignIn(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
