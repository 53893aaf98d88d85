package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/models"
)

// ParseProjectID extracts and validates the project ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: pid
func ParseProjectID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "pid", "invalid_project_id", "Invalid project ID format", logger)
}

// ParseRequestID extracts and validates the request ID from the request path.
// Expects path parameter: rid
func ParseRequestID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "rid", "invalid_request_id", "Invalid request ID format", logger)
}

// ParseFeedKind extracts the feed kind from the request path.
// Expects path parameter: kind
func ParseFeedKind(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (models.FeedKind, bool) {
	kind, err := models.ParseFeedKind(r.PathValue("kind"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_feed_kind", "Feed kind must be profiles or projects"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return kind, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
