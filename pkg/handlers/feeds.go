package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/auth"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/notify"
	"github.com/linkit-hq/linkit-engine/pkg/services"
	"github.com/linkit-hq/linkit-engine/pkg/session"
)

// FeedFiltersPayload is the body of POST /api/feeds/{kind}.
// Goal applies to profiles, Level to projects; the other is ignored.
type FeedFiltersPayload struct {
	Role  string `json:"role"`
	Stack string `json:"stack"`
	Goal  string `json:"goal"`
	Level string `json:"level"`
}

// FeedCard is a rendered card. Contacts are never included.
type FeedCard struct {
	Kind      models.FeedKind `json:"kind"`
	Position  int             `json:"position"`
	Total     int             `json:"total"`
	Text      string          `json:"text"`
	PhotoRef  string          `json:"photo_ref,omitempty"`
	ActorID   int64           `json:"actor_id,omitempty"`
	ProjectID string          `json:"project_id,omitempty"`
}

// FeedResponse carries the card at the cursor. End is set when there is none in the
// requested direction; the cursor is then unchanged.
type FeedResponse struct {
	End     bool      `json:"end"`
	Message string    `json:"message,omitempty"`
	Card    *FeedCard `json:"card,omitempty"`
}

// FeedsHandler serves the feed browsing endpoints.
type FeedsHandler struct {
	feedService services.FeedService
	renderer    *notify.Renderer
	errs        errorWriter
	logger      *zap.Logger
}

// NewFeedsHandler creates a new feeds handler.
func NewFeedsHandler(feedService services.FeedService, renderer *notify.Renderer, alerter services.OperatorAlerter, logger *zap.Logger) *FeedsHandler {
	return &FeedsHandler{
		feedService: feedService,
		renderer:    renderer,
		errs:        errorWriter{alerter: alerter, logger: logger},
		logger:      logger,
	}
}

// RegisterRoutes registers the feeds handler's routes on the given mux.
func (h *FeedsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/feeds/{kind}", authMiddleware.RequireAuth(scopeMiddleware(h.Build)))
	mux.HandleFunc("GET /api/feeds/{kind}/current", authMiddleware.RequireAuth(scopeMiddleware(h.Current)))
	mux.HandleFunc("POST /api/feeds/{kind}/next", authMiddleware.RequireAuth(scopeMiddleware(h.advance(models.DirectionNext))))
	mux.HandleFunc("POST /api/feeds/{kind}/previous", authMiddleware.RequireAuth(scopeMiddleware(h.advance(models.DirectionPrevious))))
}

func (h *FeedsHandler) sessionKey(w http.ResponseWriter, r *http.Request) (session.Key, bool) {
	key, err := auth.RequireSessionKey(r.Context())
	if err != nil {
		h.errs.write(w, http.StatusUnauthorized, "unauthorized", "Missing authentication")
		return session.Key{}, false
	}
	return key, true
}

// Build handles POST /api/feeds/{kind}: builds a fresh feed and returns its first card.
func (h *FeedsHandler) Build(w http.ResponseWriter, r *http.Request) {
	kind, ok := ParseFeedKind(w, r, h.logger)
	if !ok {
		return
	}
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}

	var payload FeedFiltersPayload
	if r.ContentLength != 0 && !h.errs.decodeJSON(w, r, &payload) {
		return
	}

	var err error
	switch kind {
	case models.FeedKindProfiles:
		_, err = h.feedService.BuildProfileFeed(r.Context(), key, models.ProfileFilters{
			Role: payload.Role, Stack: payload.Stack, Goal: payload.Goal,
		})
	case models.FeedKindProjects:
		_, err = h.feedService.BuildProjectFeed(r.Context(), key, models.ProjectFilters{
			Role: payload.Role, Stack: payload.Stack, Level: payload.Level,
		})
	}
	if err != nil {
		h.errs.service(w, r, err, "Failed to build feed")
		return
	}

	card, err := h.feedService.Current(r.Context(), key, kind)
	h.writeCard(w, r, kind, card, err, "По этим фильтрам пока никого нет.")
}

// Current handles GET /api/feeds/{kind}/current.
func (h *FeedsHandler) Current(w http.ResponseWriter, r *http.Request) {
	kind, ok := ParseFeedKind(w, r, h.logger)
	if !ok {
		return
	}
	key, ok := h.sessionKey(w, r)
	if !ok {
		return
	}

	card, err := h.feedService.Current(r.Context(), key, kind)
	h.writeCard(w, r, kind, card, err, "Лента пуста. Задай фильтры заново.")
}

// advance handles POST /api/feeds/{kind}/next and /previous.
func (h *FeedsHandler) advance(dir models.Direction) http.HandlerFunc {
	endMessage := "Это была последняя карточка"
	if dir == models.DirectionPrevious {
		endMessage = "Это первая карточка"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := ParseFeedKind(w, r, h.logger)
		if !ok {
			return
		}
		key, ok := h.sessionKey(w, r)
		if !ok {
			return
		}

		card, err := h.feedService.Advance(r.Context(), key, kind, dir)
		h.writeCard(w, r, kind, card, err, endMessage)
	}
}

func (h *FeedsHandler) writeCard(w http.ResponseWriter, r *http.Request, kind models.FeedKind, card *models.FeedCandidate, err error, endMessage string) {
	if errors.Is(err, services.ErrEndOfFeed) {
		h.errs.json(w, http.StatusOK, FeedResponse{End: true, Message: endMessage})
		return
	}
	if err != nil {
		h.errs.service(w, r, err, "Failed to move feed cursor")
		return
	}
	h.errs.json(w, http.StatusOK, FeedResponse{Card: h.render(card)})
}

func (h *FeedsHandler) render(c *models.FeedCandidate) *FeedCard {
	card := &FeedCard{Kind: c.Kind, Position: c.Position, Total: c.Total}
	switch {
	case c.Profile != nil:
		card.Text = h.renderer.ProfileCard(c.Profile)
		card.PhotoRef = c.Profile.AvatarRef
		card.ActorID = int64(c.Profile.ActorID)
	case c.Project != nil:
		card.Text = h.renderer.ProjectCard(c.Project)
		card.PhotoRef = c.Project.ImageRef
		card.ProjectID = c.Project.ID.String()
	}
	return card
}
