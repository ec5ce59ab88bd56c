package users

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/glimpse/pkg/auth"
	"github.com/JaimeStill/glimpse/pkg/handlers"
	"github.com/JaimeStill/glimpse/pkg/openapi"
	"github.com/JaimeStill/glimpse/pkg/routes"
)

// Handler provides HTTP endpoints for user operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler for the given system.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "users"),
	}
}

// Routes returns the route group definition for user endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/users",
		Tags:   []string{"Users"},
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "/me",
				Handler: h.Me,
				OpenAPI: &openapi.Operation{
					Summary: "Current user",
					Responses: map[int]*openapi.Response{
						200: openapi.ResponseJSON("User profile", "User"),
						401: openapi.ResponseRef("Unauthorized"),
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
			{
				Method:  "PUT",
				Pattern: "/{id}/role",
				Handler: h.SetRole,
				OpenAPI: &openapi.Operation{
					Summary:     "Set role",
					Description: "Admin only.",
					Parameters:  []*openapi.Parameter{openapi.PathParamString("id", "User ID")},
					RequestBody: openapi.RequestBodyJSON("SetRoleCommand", true),
					Responses: map[int]*openapi.Response{
						200: openapi.ResponseJSON("Updated user", "User"),
						400: openapi.ResponseRef("BadRequest"),
						403: openapi.ResponseRef("Forbidden"),
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
		},
	}
}

// Me returns the profile of the authenticated caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.FromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrUnauthenticated)
		return
	}

	u, err := h.sys.Find(r.Context(), session.UserID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, u)
}

// SetRole changes the role of the user named by the id path parameter.
// Only admins may call it.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.FromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrUnauthenticated)
		return
	}

	if !h.sys.IsAdmin(r.Context(), session.UserID) {
		handlers.RespondError(w, h.logger, http.StatusForbidden, ErrForbidden)
		return
	}

	cmd, err := handlers.Decode[SetRoleCommand](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRole)
		return
	}

	u, err := h.sys.SetRole(r.Context(), r.PathValue("id"), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, u)
}
