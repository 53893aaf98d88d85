package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request statuses. The only transitions are pending→accepted and pending→rejected.
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// MaxGreetingLength bounds the optional free-text greeting, in runes.
const MaxGreetingLength = 500

// RequestKind distinguishes peer introductions from project applications.
type RequestKind string

const (
	RequestKindPeer    RequestKind = "peer"
	RequestKindProject RequestKind = "project"
)

// Request is a directed introduction from one actor to another, optionally about a project.
// For project applications ToActorID is the project owner.
type Request struct {
	ID          uuid.UUID  `json:"id"`
	FromActorID ActorID    `json:"from_actor_id"`
	ToActorID   ActorID    `json:"to_actor_id"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	Status      string     `json:"status"`
	Greeting    string     `json:"greeting,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// Kind tells which pending-uniqueness key and acceptance effect apply.
func (r *Request) Kind() RequestKind {
	if r.ProjectID != nil {
		return RequestKindProject
	}
	return RequestKindPeer
}

// IsPending reports whether the request still awaits a decision.
func (r *Request) IsPending() bool {
	return r.Status == RequestStatusPending
}

// CreateOutcome is the result of an attempt to create a request.
type CreateOutcome string

const (
	CreateOutcomeCreated         CreateOutcome = "created"
	CreateOutcomeSelf            CreateOutcome = "self"
	CreateOutcomeDuplicate       CreateOutcome = "duplicate"
	CreateOutcomeQuotaExceeded   CreateOutcome = "quota_exceeded"
	CreateOutcomeProjectNotFound CreateOutcome = "project_not_found"
)

// Decision is the recipient's answer to a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ParseDecision validates a decision string.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionAccept, DecisionReject:
		return Decision(s), nil
	default:
		return "", fmt.Errorf("unknown decision %q", s)
	}
}

// RespondOutcome is the result of answering a request.
type RespondOutcome string

const (
	RespondOutcomeAccepted        RespondOutcome = "accepted"
	RespondOutcomeRejected        RespondOutcome = "rejected"
	RespondOutcomeAlreadyResolved RespondOutcome = "already_resolved"
	RespondOutcomeCapacityFull    RespondOutcome = "capacity_full"
	RespondOutcomeNotFound        RespondOutcome = "not_found"
)

// RespondResult carries the request after a response attempt. Project is set for applications.
type RespondResult struct {
	Request *Request       `json:"request,omitempty"`
	Project *Project       `json:"project,omitempty"`
	Outcome RespondOutcome `json:"outcome"`
}

// ContactForActor is the fallback contact line for actors without a public handle.
func ContactForActor(id ActorID) string {
	return fmt.Sprintf("id: %d", int64(id))
}
