package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/auth"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/services"
)

// ProjectsHandler handles project-related HTTP requests.
type ProjectsHandler struct {
	projectService services.ProjectService
	errs           errorWriter
	logger         *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projectService services.ProjectService, alerter services.OperatorAlerter, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		projectService: projectService,
		errs:           errorWriter{alerter: alerter, logger: logger},
		logger:         logger,
	}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/projects", authMiddleware.RequireAuth(scopeMiddleware(h.Create)))
	mux.HandleFunc("GET /api/projects/{pid}", authMiddleware.RequireAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("PATCH /api/projects/{pid}/active", authMiddleware.RequireAuth(scopeMiddleware(h.SetActive)))
}

// Create handles POST /api/projects with the finalized wizard output.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.RequireActorIDFromContext(r.Context())
	if err != nil {
		h.errs.write(w, http.StatusUnauthorized, "unauthorized", "Missing authentication")
		return
	}
	var draft models.ProjectDraft
	if !h.errs.decodeJSON(w, r, &draft) {
		return
	}
	p, err := h.projectService.CreateProject(r.Context(), owner, &draft)
	if err != nil {
		h.errs.service(w, r, err, "Failed to create project")
		return
	}
	h.errs.json(w, http.StatusCreated, p)
}

// Get handles GET /api/projects/{pid}. The chat link is never serialized.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.projectService.GetByID(r.Context(), projectID)
	if err != nil {
		h.errs.service(w, r, err, "Failed to get project")
		return
	}
	h.errs.json(w, http.StatusOK, p)
}

// SetActive handles PATCH /api/projects/{pid}/active. Non-owners get 404.
func (h *ProjectsHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	owner := auth.GetActorIDFromContext(r.Context())

	var payload ActivePayload
	if !h.errs.decodeJSON(w, r, &payload) {
		return
	}
	if err := validate.Struct(&payload); err != nil {
		h.errs.write(w, http.StatusBadRequest, "invalid_request", "active is required")
		return
	}
	if err := h.projectService.SetActive(r.Context(), projectID, owner, *payload.Active); err != nil {
		h.errs.service(w, r, err, "Failed to update project visibility")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
