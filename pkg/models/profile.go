// Package models contains domain types for linkit-engine.
package models

import (
	"strings"
	"time"
)

// ActorID is the chat-platform identifier of a user. It doubles as the chat id for delivery.
type ActorID int64

// Profile is a person's public card. It is created as a placeholder on first contact
// and filled in by the registration wizard.
type Profile struct {
	ActorID     ActorID   `json:"actor_id"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name"`
	AvatarRef   string    `json:"avatar_ref,omitempty"`
	Role        string    `json:"role"`
	Stack       string    `json:"stack"`
	Framework   string    `json:"framework"`
	Skills      string    `json:"skills"`
	Goal        string    `json:"goal"`
	About       string    `json:"about"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsEmpty reports whether every descriptive field is blank. Empty profiles never appear in feeds.
func (p *Profile) IsEmpty() bool {
	for _, v := range []string{p.DisplayName, p.Role, p.Stack, p.Framework, p.Skills, p.Goal, p.About} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Contact returns "@username" when the actor has a public handle, otherwise "id: <actor>".
func (p *Profile) Contact() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	return ContactForActor(p.ActorID)
}

// ProfileDraft is the finalized output of the profile wizard.
type ProfileDraft struct {
	Username    string `json:"username" validate:"omitempty,max=64"`
	DisplayName string `json:"display_name" validate:"required,max=128"`
	AvatarRef   string `json:"avatar_ref" validate:"omitempty,max=256"`
	Role        string `json:"role" validate:"required,max=64"`
	Stack       string `json:"stack" validate:"max=256"`
	Framework   string `json:"framework" validate:"max=128"`
	Skills      string `json:"skills" validate:"max=256"`
	Goal        string `json:"goal" validate:"max=256"`
	About       string `json:"about" validate:"max=2000"`
}
