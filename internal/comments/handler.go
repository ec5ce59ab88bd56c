package comments

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/pkg/auth"
	"github.com/JaimeStill/glimpse/pkg/formatting"
	"github.com/JaimeStill/glimpse/pkg/handlers"
	"github.com/JaimeStill/glimpse/pkg/pagination"
	"github.com/JaimeStill/glimpse/pkg/routes"
)

// Handler provides HTTP endpoints for comment operations.
type Handler struct {
	sys             System
	roles           RoleLookup
	logger          *slog.Logger
	pagination      pagination.Config
	maxSnapshotSize int64
}

// NewHandler creates a Handler with the given system, role lookup, logger,
// pagination config and snapshot size limit.
func NewHandler(
	sys System,
	roles RoleLookup,
	logger *slog.Logger,
	pagination pagination.Config,
	maxSnapshotSize int64,
) *Handler {
	return &Handler{
		sys:             sys,
		roles:           roles,
		logger:          logger.With("handler", "comments"),
		pagination:      pagination,
		maxSnapshotSize: maxSnapshotSize,
	}
}

// Routes returns the route group definition for comment endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/comments",
		Tags:   []string{"Comments"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: spec.List},
			{Method: "GET", Pattern: "/stream", Handler: h.Stream, OpenAPI: spec.Stream},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, OpenAPI: spec.Find},
			{Method: "POST", Pattern: "", Handler: h.Create, OpenAPI: spec.Create},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update, OpenAPI: spec.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete, OpenAPI: spec.Delete},
			{Method: "PUT", Pattern: "/{id}/snapshot", Handler: h.PutSnapshot, OpenAPI: spec.PutSnapshot},
			{Method: "GET", Pattern: "/{id}/snapshot", Handler: h.GetSnapshot, OpenAPI: spec.GetSnapshot},
		},
	}
}

// List returns a page of the thread named by the classification_id query
// parameter, newest first, with the caller's permissions on each comment.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), r.URL.Query().Get("classification_id"), page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	views := make([]View, len(result.Data))
	for i, c := range result.Data {
		views[i] = ViewFor(c, actor)
	}

	handlers.RespondJSON(
		w, http.StatusOK,
		pagination.NewPageResult(views, result.Total, result.Page, result.PageSize),
	)
}

// Find returns a single comment by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	c, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ViewFor(*c, actor))
}

// Create adds a comment authored by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	cmd, err := handlers.Decode[CreateCommand](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidComment)
		return
	}

	c, err := h.sys.Create(r.Context(), actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, ViewFor(*c, actor))
}

// Update replaces the text of a comment owned by the caller.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	cmd, err := handlers.Decode[UpdateCommand](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidComment)
		return
	}

	c, err := h.sys.Update(r.Context(), actor, id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ViewFor(*c, actor))
}

// Delete removes a comment owned by the caller, or any comment for admins.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.sys.Delete(r.Context(), actor, id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PutSnapshot attaches the JPEG request body to a comment owned by the caller.
func (h *Handler) PutSnapshot(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxSnapshotSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			limit := formatting.FormatBytes(h.maxSnapshotSize, 1)
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: limit %s", ErrSnapshotTooLarge, limit))
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidSnapshot)
		return
	}

	c, err := h.sys.AttachSnapshot(r.Context(), actor, id, data)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ViewFor(*c, actor))
}

// GetSnapshot streams the JPEG attached to a comment.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	rc, err := h.sys.Snapshot(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", snapshotContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("snapshot stream interrupted", "id", id, "error", err)
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	session, ok := auth.FromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrUnauthenticated)
		return Actor{}, false
	}

	return Actor{
		UserID:   session.UserID,
		Username: session.DisplayName,
		Admin:    h.roles.IsAdmin(r.Context(), session.UserID),
	}, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}
