package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/catalog"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/repositories"
)

// ProfileService persists profiles. Only the terminal wizard step reaches the engine.
type ProfileService interface {
	// EnsureProfile creates a placeholder on first contact and keeps the username fresh.
	EnsureProfile(ctx context.Context, actor models.ActorID, username string) (*models.Profile, error)
	GetProfile(ctx context.Context, actor models.ActorID) (*models.Profile, error)
	SaveProfile(ctx context.Context, actor models.ActorID, draft *models.ProfileDraft) (*models.Profile, error)
	SetActive(ctx context.Context, actor models.ActorID, active bool) error
}

type profileService struct {
	profiles repositories.ProfileRepository
	catalog  *catalog.Catalog
	logger   *zap.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(profiles repositories.ProfileRepository, cat *catalog.Catalog, logger *zap.Logger) ProfileService {
	return &profileService{
		profiles: profiles,
		catalog:  cat,
		logger:   logger.Named("profile-service"),
	}
}

var _ ProfileService = (*profileService)(nil)

func (s *profileService) EnsureProfile(ctx context.Context, actor models.ActorID, username string) (*models.Profile, error) {
	return s.profiles.Ensure(ctx, actor, strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

func (s *profileService) GetProfile(ctx context.Context, actor models.ActorID) (*models.Profile, error) {
	return s.profiles.Get(ctx, actor)
}

func (s *profileService) SaveProfile(ctx context.Context, actor models.ActorID, draft *models.ProfileDraft) (*models.Profile, error) {
	draft.Username = strings.TrimPrefix(strings.TrimSpace(draft.Username), "@")
	draft.Role = strings.ToLower(strings.TrimSpace(draft.Role))
	if err := validateStruct(draft); err != nil {
		return nil, err
	}
	if !s.catalog.IsRole(draft.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrInvalidInput, draft.Role)
	}

	p, err := s.profiles.Save(ctx, actor, draft)
	if err != nil {
		s.logger.Error("Failed to save profile", zap.Int64("actor_id", int64(actor)), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Profile saved", zap.Int64("actor_id", int64(actor)))
	return p, nil
}

func (s *profileService) SetActive(ctx context.Context, actor models.ActorID, active bool) error {
	return s.profiles.SetActive(ctx, actor, active)
}
