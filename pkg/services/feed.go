package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/catalog"
	"github.com/linkit-hq/linkit-engine/pkg/metrics"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/repositories"
	"github.com/linkit-hq/linkit-engine/pkg/session"
)

// ErrEndOfFeed means no valid card exists in the direction of travel.
// It is an expected outcome; the cursor is left where it was.
var ErrEndOfFeed = errors.New("end of feed")

// DefaultFeedSize is the number of candidates kept in a built feed.
const DefaultFeedSize = 50

// overFetchFactor compensates for candidates dropped by the in-process filters.
const overFetchFactor = 3

// FeedService builds candidate feeds and moves the per-session cursor through them.
type FeedService interface {
	BuildProfileFeed(ctx context.Context, viewer session.Key, filters models.ProfileFilters) (*session.FeedState, error)
	BuildProjectFeed(ctx context.Context, viewer session.Key, filters models.ProjectFilters) (*session.FeedState, error)

	// Current returns the card at the cursor, moving forward past entries that are no longer valid.
	Current(ctx context.Context, viewer session.Key, kind models.FeedKind) (*models.FeedCandidate, error)

	// Advance moves the cursor to the nearest valid entry in the given direction.
	Advance(ctx context.Context, viewer session.Key, kind models.FeedKind, dir models.Direction) (*models.FeedCandidate, error)
}

type feedService struct {
	profiles repositories.ProfileRepository
	projects repositories.ProjectRepository
	requests repositories.RequestRepository
	store    session.Store
	catalog  *catalog.Catalog
	size     int
	now      func() time.Time
	logger   *zap.Logger
}

// NewFeedService creates the feed cursor engine. A non-positive size uses DefaultFeedSize.
func NewFeedService(
	profiles repositories.ProfileRepository,
	projects repositories.ProjectRepository,
	requests repositories.RequestRepository,
	store session.Store,
	cat *catalog.Catalog,
	size int,
	logger *zap.Logger,
) FeedService {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &feedService{
		profiles: profiles,
		projects: projects,
		requests: requests,
		store:    store,
		catalog:  cat,
		size:     size,
		now:      time.Now,
		logger:   logger.Named("feed-service"),
	}
}

var _ FeedService = (*feedService)(nil)

func (s *feedService) BuildProfileFeed(ctx context.Context, viewer session.Key, filters models.ProfileFilters) (*session.FeedState, error) {
	f := filters.Normalized()

	candidates, err := s.profiles.ListFeedCandidates(ctx, viewer.ActorID, f, overFetchFactor*s.size)
	if err != nil {
		return nil, err
	}
	sent, err := s.requests.SentTargetIDs(ctx, viewer.ActorID)
	if err != nil {
		return nil, err
	}
	contacted := make(map[models.ActorID]struct{}, len(sent))
	for _, id := range sent {
		contacted[id] = struct{}{}
	}

	ids := make([]string, 0, s.size)
	for _, p := range candidates {
		if len(ids) == s.size {
			break
		}
		if p.ActorID == viewer.ActorID || p.IsEmpty() {
			continue
		}
		if _, ok := contacted[p.ActorID]; ok {
			continue
		}
		if !models.StackMatches(p.Stack, f.Stack) {
			continue
		}
		ids = append(ids, strconv.FormatInt(int64(p.ActorID), 10))
	}

	state := &session.FeedState{
		Kind:           models.FeedKindProfiles,
		IDs:            ids,
		ProfileFilters: &f,
		BuiltAt:        s.now().UTC(),
	}
	return s.save(ctx, viewer, state)
}

func (s *feedService) BuildProjectFeed(ctx context.Context, viewer session.Key, filters models.ProjectFilters) (*session.FeedState, error) {
	f := filters.Normalized()

	candidates, err := s.projects.ListFeedCandidates(ctx, viewer.ActorID, f, overFetchFactor*s.size)
	if err != nil {
		return nil, err
	}
	appliedIDs, err := s.requests.AppliedProjectIDs(ctx, viewer.ActorID)
	if err != nil {
		return nil, err
	}
	applied := make(map[uuid.UUID]struct{}, len(appliedIDs))
	for _, id := range appliedIDs {
		applied[id] = struct{}{}
	}

	ids := make([]string, 0, s.size)
	for _, p := range candidates {
		if len(ids) == s.size {
			break
		}
		if p.OwnerID == viewer.ActorID {
			continue
		}
		if _, ok := applied[p.ID]; ok {
			continue
		}
		if !s.catalog.RoleWanted(p.LookingForRole, f.Role) || !models.StackMatches(p.Stack, f.Stack) {
			continue
		}
		ids = append(ids, p.ID.String())
	}

	state := &session.FeedState{
		Kind:           models.FeedKindProjects,
		IDs:            ids,
		ProjectFilters: &f,
		BuiltAt:        s.now().UTC(),
	}
	return s.save(ctx, viewer, state)
}

func (s *feedService) save(ctx context.Context, viewer session.Key, state *session.FeedState) (*session.FeedState, error) {
	if err := s.store.SaveFeed(ctx, viewer, state); err != nil {
		return nil, err
	}
	metrics.FeedsBuilt.WithLabelValues(string(state.Kind)).Inc()
	metrics.FeedSize.WithLabelValues(string(state.Kind)).Observe(float64(len(state.IDs)))
	s.logger.Debug("Built feed",
		zap.Int64("actor_id", int64(viewer.ActorID)),
		zap.String("kind", string(state.Kind)),
		zap.Int("size", len(state.IDs)))
	return state, nil
}

func (s *feedService) Current(ctx context.Context, viewer session.Key, kind models.FeedKind) (*models.FeedCandidate, error) {
	return s.move(ctx, viewer, kind, models.DirectionNext, true)
}

func (s *feedService) Advance(ctx context.Context, viewer session.Key, kind models.FeedKind, dir models.Direction) (*models.FeedCandidate, error) {
	if dir != models.DirectionNext && dir != models.DirectionPrevious {
		return nil, fmt.Errorf("%w: unknown direction %q", apperrors.ErrInvalidInput, dir)
	}
	card, err := s.move(ctx, viewer, kind, dir, false)
	if errors.Is(err, ErrEndOfFeed) {
		metrics.FeedEndReached.WithLabelValues(string(kind), string(dir)).Inc()
	}
	return card, err
}

// move scans from the cursor in the direction of travel. With inclusive set the scan
// starts at the cursor itself. The loop visits each entry at most once.
func (s *feedService) move(ctx context.Context, viewer session.Key, kind models.FeedKind, dir models.Direction, inclusive bool) (*models.FeedCandidate, error) {
	step := 1
	if dir == models.DirectionPrevious {
		step = -1
	}

	var card *models.FeedCandidate
	err := s.store.UpdateFeed(ctx, viewer, kind, func(st *session.FeedState) error {
		start := st.Cursor + step
		if inclusive {
			start = st.Cursor
		}
		for i := start; i >= 0 && i < len(st.IDs); i += step {
			c, err := s.resolve(ctx, viewer, kind, st.IDs[i])
			if err != nil {
				return err
			}
			if c == nil {
				continue
			}
			c.Position = i
			c.Total = len(st.IDs)
			st.Cursor = i
			card = c
			return nil
		}
		return ErrEndOfFeed
	})
	if errors.Is(err, session.ErrNoFeed) {
		return nil, ErrEndOfFeed
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

// resolve loads the entry behind id. It returns nil when the entry vanished, was
// deactivated, became empty, or belongs to the viewer.
func (s *feedService) resolve(ctx context.Context, viewer session.Key, kind models.FeedKind, id string) (*models.FeedCandidate, error) {
	switch kind {
	case models.FeedKindProfiles:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, nil
		}
		p, err := s.profiles.Get(ctx, models.ActorID(n))
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !p.Active || p.IsEmpty() || p.ActorID == viewer.ActorID {
			return nil, nil
		}
		return &models.FeedCandidate{Kind: kind, Profile: p}, nil

	case models.FeedKindProjects:
		pid, err := uuid.Parse(id)
		if err != nil {
			return nil, nil
		}
		p, err := s.projects.Get(ctx, pid)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !p.Active || p.OwnerID == viewer.ActorID {
			return nil, nil
		}
		return &models.FeedCandidate{Kind: kind, Project: p}, nil

	default:
		return nil, fmt.Errorf("%w: unknown feed kind %q", apperrors.ErrInvalidInput, kind)
	}
}
