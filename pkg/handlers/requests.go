package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/auth"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/services"
)

// ScopeMiddleware wraps a handler with a per-request database scope.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateRequestPayload is the body of POST /api/requests.
// Exactly one of ToActorID and ProjectID identifies the recipient.
type CreateRequestPayload struct {
	ToActorID int64      `json:"to_actor_id" validate:"required_without=ProjectID,excluded_with=ProjectID"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
	Greeting  string     `json:"greeting,omitempty"`
}

// CreateRequestResponse reports the creation outcome. Request is set for created and duplicate.
type CreateRequestResponse struct {
	Outcome models.CreateOutcome `json:"outcome"`
	Message string               `json:"message"`
	Request *models.Request      `json:"request,omitempty"`
}

// RespondPayload is the body of POST /api/requests/{rid}/respond.
type RespondPayload struct {
	Decision models.Decision `json:"decision" validate:"required,oneof=accept reject"`
}

// RespondResponse reports the response outcome.
type RespondResponse struct {
	Outcome models.RespondOutcome `json:"outcome"`
	Message string                `json:"message"`
	Request *models.Request       `json:"request,omitempty"`
}

// IncomingResponse lists pending requests addressed to the caller.
type IncomingResponse struct {
	Requests []*models.Request `json:"requests"`
}

var createOutcomes = map[models.CreateOutcome]struct {
	status  int
	message string
}{
	models.CreateOutcomeCreated:         {http.StatusCreated, "Заявка отправлена 🎯"},
	models.CreateOutcomeSelf:            {http.StatusUnprocessableEntity, "Это ты сам 😄"},
	models.CreateOutcomeDuplicate:       {http.StatusConflict, "Заявка уже отправлена, ждём ответа."},
	models.CreateOutcomeQuotaExceeded:   {http.StatusTooManyRequests, "На сегодня лимит заявок исчерпан. Попробуй завтра."},
	models.CreateOutcomeProjectNotFound: {http.StatusNotFound, "Проект не найден. Попробуй позже."},
}

var respondOutcomes = map[models.RespondOutcome]struct {
	status  int
	message string
}{
	models.RespondOutcomeAccepted:        {http.StatusOK, "Заявка принята ✅"},
	models.RespondOutcomeCapacityFull:    {http.StatusOK, "Заявка принята, но мест в команде больше нет."},
	models.RespondOutcomeRejected:        {http.StatusOK, "Заявка отклонена"},
	models.RespondOutcomeAlreadyResolved: {http.StatusConflict, "Эта заявка уже обработана"},
	models.RespondOutcomeNotFound:        {http.StatusNotFound, "Заявка не найдена"},
}

// RequestsHandler serves the request lifecycle endpoints.
type RequestsHandler struct {
	requestService services.RequestService
	errs           errorWriter
	logger         *zap.Logger
}

// NewRequestsHandler creates a new requests handler.
func NewRequestsHandler(requestService services.RequestService, alerter services.OperatorAlerter, logger *zap.Logger) *RequestsHandler {
	return &RequestsHandler{
		requestService: requestService,
		errs:           errorWriter{alerter: alerter, logger: logger},
		logger:         logger,
	}
}

// RegisterRoutes registers the requests handler's routes on the given mux.
func (h *RequestsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/requests", authMiddleware.RequireAuth(scopeMiddleware(h.Create)))
	mux.HandleFunc("GET /api/requests/incoming", authMiddleware.RequireAuth(scopeMiddleware(h.ListIncoming)))
	mux.HandleFunc("GET /api/requests/{rid}", authMiddleware.RequireAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("POST /api/requests/{rid}/respond", authMiddleware.RequireAuth(scopeMiddleware(h.Respond)))
}

// Create handles POST /api/requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	from, err := auth.RequireActorIDFromContext(r.Context())
	if err != nil {
		h.errs.write(w, http.StatusUnauthorized, "unauthorized", "Missing authentication")
		return
	}

	var payload CreateRequestPayload
	if !h.errs.decodeJSON(w, r, &payload) {
		return
	}
	if err := validate.Struct(&payload); err != nil {
		h.errs.write(w, http.StatusBadRequest, "invalid_request", "Either to_actor_id or project_id is required")
		return
	}

	req, outcome, err := h.requestService.Create(r.Context(), from, models.ActorID(payload.ToActorID), payload.ProjectID, payload.Greeting)
	if err != nil {
		h.errs.service(w, r, err, "Failed to create request")
		return
	}

	mapped := createOutcomes[outcome]
	h.errs.json(w, mapped.status, CreateRequestResponse{
		Outcome: outcome,
		Message: mapped.message,
		Request: req,
	})
}

// Get handles GET /api/requests/{rid}. Only the two parties may read a request.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID, ok := ParseRequestID(w, r, h.logger)
	if !ok {
		return
	}
	caller := auth.GetActorIDFromContext(r.Context())

	req, err := h.requestService.Get(r.Context(), requestID)
	if err != nil {
		h.errs.service(w, r, err, "Failed to get request")
		return
	}
	if req.FromActorID != caller && req.ToActorID != caller {
		h.errs.write(w, http.StatusNotFound, "not_found", "Заявка не найдена")
		return
	}
	h.errs.json(w, http.StatusOK, req)
}

// ListIncoming handles GET /api/requests/incoming.
func (h *RequestsHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.RequireActorIDFromContext(r.Context())
	if err != nil {
		h.errs.write(w, http.StatusUnauthorized, "unauthorized", "Missing authentication")
		return
	}

	requests, err := h.requestService.ListIncomingPending(r.Context(), caller)
	if err != nil {
		h.errs.service(w, r, err, "Failed to list incoming requests")
		return
	}
	h.errs.json(w, http.StatusOK, IncomingResponse{Requests: requests})
}

// Respond handles POST /api/requests/{rid}/respond. Only the recipient may answer.
func (h *RequestsHandler) Respond(w http.ResponseWriter, r *http.Request) {
	requestID, ok := ParseRequestID(w, r, h.logger)
	if !ok {
		return
	}
	caller := auth.GetActorIDFromContext(r.Context())

	var payload RespondPayload
	if !h.errs.decodeJSON(w, r, &payload) {
		return
	}
	if err := validate.Struct(&payload); err != nil {
		h.errs.write(w, http.StatusBadRequest, "invalid_decision", "Decision must be accept or reject")
		return
	}

	req, err := h.requestService.Get(r.Context(), requestID)
	if errors.Is(err, apperrors.ErrNotFound) {
		h.writeRespond(w, &models.RespondResult{Outcome: models.RespondOutcomeNotFound})
		return
	}
	if err != nil {
		h.errs.service(w, r, err, "Failed to get request")
		return
	}
	if req.ToActorID != caller {
		h.errs.write(w, http.StatusForbidden, "forbidden", "Это не твоя заявка")
		return
	}

	res, err := h.requestService.Respond(r.Context(), requestID, payload.Decision)
	if err != nil {
		h.errs.service(w, r, err, "Failed to respond to request")
		return
	}
	h.writeRespond(w, res)
}

func (h *RequestsHandler) writeRespond(w http.ResponseWriter, res *models.RespondResult) {
	mapped := respondOutcomes[res.Outcome]
	h.errs.json(w, mapped.status, RespondResponse{
		Outcome: res.Outcome,
		Message: mapped.message,
		Request: res.Request,
	})
}
