package auth

import (
	"context"
	"fmt"

	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/session"
)

// GetActorIDFromContext returns the caller's actor id, or 0 when unauthenticated.
func GetActorIDFromContext(ctx context.Context) models.ActorID {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return 0
	}
	id, err := claims.ActorID()
	if err != nil {
		return 0
	}
	return id
}

// GetConversationIDFromContext returns the conversation id, or 0 when absent.
func GetConversationIDFromContext(ctx context.Context) int64 {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return 0
	}
	return claims.ConversationID
}

// RequireActorIDFromContext extracts the actor id and returns an error if not found.
func RequireActorIDFromContext(ctx context.Context) (models.ActorID, error) {
	id := GetActorIDFromContext(ctx)
	if id == 0 {
		return 0, fmt.Errorf("actor ID not found in context")
	}
	return id, nil
}

// RequireSessionKey returns the browsing session key of the caller.
// A missing conversation id falls back to the actor id, the private-chat convention.
func RequireSessionKey(ctx context.Context) (session.Key, error) {
	actor, err := RequireActorIDFromContext(ctx)
	if err != nil {
		return session.Key{}, err
	}
	conv := GetConversationIDFromContext(ctx)
	if conv == 0 {
		conv = int64(actor)
	}
	return session.Key{ActorID: actor, ConversationID: conv}, nil
}
