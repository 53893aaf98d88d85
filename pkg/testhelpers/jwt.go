// Package testhelpers provides utilities for testing linkit-engine components.
package testhelpers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestJWTSecret is the HS256 secret used by handler and middleware tests.
const TestJWTSecret = "test-secret-for-linkit-engine-tests"

// GenerateTestToken signs a token for the given actor and conversation with TestJWTSecret.
func GenerateTestToken(actorID, conversationID int64) string {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(actorID, 10),
		"cid": conversationID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
	if err != nil {
		panic(fmt.Sprintf("failed to sign test token: %v", err))
	}
	return token
}

// GenerateTestTokenWithBearer returns the token with "Bearer " prefix for the Authorization header.
func GenerateTestTokenWithBearer(actorID, conversationID int64) string {
	return "Bearer " + GenerateTestToken(actorID, conversationID)
}
