package models

import (
	"time"

	"github.com/google/uuid"
)

// Project statuses, in lifecycle order. Frozen and launched are terminal.
const (
	ProjectStatusIdea       = "idea"
	ProjectStatusPrototype  = "prototype"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusFrozen     = "frozen"
	ProjectStatusLaunched   = "launched"
)

// Seniority levels a project can ask for. LevelAny matches every level filter.
const (
	LevelJunior = "junior"
	LevelMiddle = "middle"
	LevelSenior = "senior"
	LevelAny    = "any"
)

// Project is a team looking for members.
type Project struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        ActorID   `json:"owner_actor_id"`
	Title          string    `json:"title"`
	Idea           string    `json:"idea"`
	Stack          string    `json:"stack"`
	Status         string    `json:"status"`
	NeedsNow       string    `json:"needs_now"`
	LookingForRole string    `json:"looking_for_role"`
	Level          string    `json:"level"`
	Extra          string    `json:"extra,omitempty"`
	TeamLimit      *int      `json:"team_limit,omitempty"`
	CurrentMembers int       `json:"current_members"`
	ChatLink       string    `json:"-"` // revealed only to accepted applicants
	ImageRef       string    `json:"image_ref,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Capacity returns the room left in the team.
func (p *Project) Capacity() Capacity {
	return CheckCapacity(p.CurrentMembers, p.TeamLimit)
}

// ProjectDraft is the finalized output of the project wizard.
type ProjectDraft struct {
	Title          string `json:"title" validate:"required,max=128"`
	Idea           string `json:"idea" validate:"required,max=2000"`
	Stack          string `json:"stack" validate:"max=256"`
	Status         string `json:"status" validate:"required,oneof=idea prototype in_progress frozen launched"`
	NeedsNow       string `json:"needs_now" validate:"max=1000"`
	LookingForRole string `json:"looking_for_role" validate:"max=256"`
	Level          string `json:"level" validate:"required,oneof=junior middle senior any"`
	Extra          string `json:"extra" validate:"max=1000"`
	TeamLimit      *int   `json:"team_limit" validate:"omitempty,min=1"`
	ChatLink       string `json:"chat_link" validate:"omitempty,url,max=256"`
	ImageRef       string `json:"image_ref" validate:"omitempty,max=256"`
}
