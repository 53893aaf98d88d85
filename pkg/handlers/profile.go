package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/auth"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/services"
)

// EnsureProfilePayload is the body of POST /api/profile/ensure, sent on first contact.
type EnsureProfilePayload struct {
	Username string `json:"username"`
}

// ActivePayload toggles feed visibility.
type ActivePayload struct {
	Active *bool `json:"active" validate:"required"`
}

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	profileService services.ProfileService
	errs           errorWriter
	logger         *zap.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profileService services.ProfileService, alerter services.OperatorAlerter, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		errs:           errorWriter{alerter: alerter, logger: logger},
		logger:         logger,
	}
}

// RegisterRoutes registers the profile handler's routes on the given mux.
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("GET /api/profile", authMiddleware.RequireAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("PUT /api/profile", authMiddleware.RequireAuth(scopeMiddleware(h.Save)))
	mux.HandleFunc("POST /api/profile/ensure", authMiddleware.RequireAuth(scopeMiddleware(h.Ensure)))
	mux.HandleFunc("PATCH /api/profile/active", authMiddleware.RequireAuth(scopeMiddleware(h.SetActive)))
}

func (h *ProfileHandler) caller(w http.ResponseWriter, r *http.Request) (models.ActorID, bool) {
	actor, err := auth.RequireActorIDFromContext(r.Context())
	if err != nil {
		h.errs.write(w, http.StatusUnauthorized, "unauthorized", "Missing authentication")
		return 0, false
	}
	return actor, true
}

// Get handles GET /api/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	p, err := h.profileService.GetProfile(r.Context(), actor)
	if err != nil {
		h.errs.service(w, r, err, "Failed to get profile")
		return
	}
	h.errs.json(w, http.StatusOK, p)
}

// Save handles PUT /api/profile with the finalized wizard output.
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	var draft models.ProfileDraft
	if !h.errs.decodeJSON(w, r, &draft) {
		return
	}
	p, err := h.profileService.SaveProfile(r.Context(), actor, &draft)
	if err != nil {
		h.errs.service(w, r, err, "Failed to save profile")
		return
	}
	h.errs.json(w, http.StatusOK, p)
}

// Ensure handles POST /api/profile/ensure.
func (h *ProfileHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload EnsureProfilePayload
	if r.ContentLength != 0 && !h.errs.decodeJSON(w, r, &payload) {
		return
	}
	p, err := h.profileService.EnsureProfile(r.Context(), actor, payload.Username)
	if err != nil {
		h.errs.service(w, r, err, "Failed to ensure profile")
		return
	}
	h.errs.json(w, http.StatusOK, p)
}

// SetActive handles PATCH /api/profile/active.
func (h *ProfileHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	var payload ActivePayload
	if !h.errs.decodeJSON(w, r, &payload) {
		return
	}
	if err := validate.Struct(&payload); err != nil {
		h.errs.write(w, http.StatusBadRequest, "invalid_request", "active is required")
		return
	}
	if err := h.profileService.SetActive(r.Context(), actor, *payload.Active); err != nil {
		h.errs.service(w, r, err, "Failed to update profile visibility")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
