// Package auth authenticates calls from the chat gateway.
// The gateway signs an HS256 token per call carrying the actor and conversation ids.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/linkit-hq/linkit-engine/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims identifies the caller. Subject is the actor id in decimal.
type Claims struct {
	jwt.RegisteredClaims
	ConversationID int64 `json:"cid,omitempty"` // chat the call originated from
}

// ActorID parses the subject.
func (c *Claims) ActorID() (models.ActorID, error) {
	if c.Subject == "" {
		return 0, errors.New("missing subject in JWT claims")
	}
	n, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	if n == 0 {
		return 0, errors.New("zero subject in JWT claims")
	}
	return models.ActorID(n), nil
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// WithClaims returns a copy of ctx carrying claims and the raw token.
func WithClaims(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return context.WithValue(ctx, TokenKey, token)
}
