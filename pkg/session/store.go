// Package session keeps per-conversation browsing state: the candidate list of each
// feed and the cursor into it.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/linkit-hq/linkit-engine/pkg/models"
)

var (
	// ErrNoFeed is returned when the session has not built a feed of the requested kind.
	ErrNoFeed = errors.New("no feed in session")

	// ErrContended is returned when an update kept losing to concurrent writers.
	ErrContended = errors.New("session update contended")
)

// Key identifies one session: an actor within one conversation.
type Key struct {
	ActorID        models.ActorID `json:"actor_id"`
	ConversationID int64          `json:"conversation_id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", int64(k.ActorID), k.ConversationID)
}

// FeedState is a built feed. IDs are profile actor ids or project uuids in string form.
// Cursor is always within [0, len(IDs)) when IDs is non-empty.
type FeedState struct {
	Kind           models.FeedKind        `json:"kind"`
	IDs            []string               `json:"ids"`
	Cursor         int                    `json:"cursor"`
	ProfileFilters *models.ProfileFilters `json:"profile_filters,omitempty"`
	ProjectFilters *models.ProjectFilters `json:"project_filters,omitempty"`
	BuiltAt        time.Time              `json:"built_at"`
}

// Clone returns a deep copy so stored state never aliases caller memory.
func (s *FeedState) Clone() *FeedState {
	if s == nil {
		return nil
	}
	c := *s
	c.IDs = slices.Clone(s.IDs)
	if s.ProfileFilters != nil {
		f := *s.ProfileFilters
		c.ProfileFilters = &f
	}
	if s.ProjectFilters != nil {
		f := *s.ProjectFilters
		c.ProjectFilters = &f
	}
	return &c
}

// Store persists feed state per session and feed kind.
type Store interface {
	// SaveFeed replaces the feed of state.Kind for the session.
	SaveFeed(ctx context.Context, key Key, state *FeedState) error

	// LoadFeed returns the feed or ErrNoFeed.
	LoadFeed(ctx context.Context, key Key, kind models.FeedKind) (*FeedState, error)

	// UpdateFeed runs fn on the current feed and stores the result. Calls for the same
	// session and kind are serialized. If fn returns an error nothing is stored and the
	// error is returned unchanged.
	UpdateFeed(ctx context.Context, key Key, kind models.FeedKind, fn func(state *FeedState) error) error

	// Clear drops every feed of the session.
	Clear(ctx context.Context, key Key) error
}

var feedKinds = []models.FeedKind{models.FeedKindProfiles, models.FeedKindProjects}
