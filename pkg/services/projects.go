package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/repositories"
)

// ProjectService defines the interface for project operations.
type ProjectService interface {
	// CreateProject stores a finalized project draft. The owner counts as the first member.
	CreateProject(ctx context.Context, owner models.ActorID, draft *models.ProjectDraft) (*models.Project, error)

	// GetByID returns a project by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)

	// SetActive hides or shows a project in feeds. Only the owner may change it.
	SetActive(ctx context.Context, id uuid.UUID, owner models.ActorID, active bool) error
}

type projectService struct {
	projects repositories.ProjectRepository
	logger   *zap.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(projects repositories.ProjectRepository, logger *zap.Logger) ProjectService {
	return &projectService{
		projects: projects,
		logger:   logger.Named("project-service"),
	}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) CreateProject(ctx context.Context, owner models.ActorID, draft *models.ProjectDraft) (*models.Project, error) {
	if err := validateStruct(draft); err != nil {
		return nil, err
	}

	p, err := s.projects.Create(ctx, owner, draft)
	if err != nil {
		s.logger.Error("Failed to create project", zap.Int64("owner", int64(owner)), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Project created",
		zap.String("project_id", p.ID.String()),
		zap.Int64("owner", int64(owner)))
	return p, nil
}

func (s *projectService) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.projects.Get(ctx, id)
}

func (s *projectService) SetActive(ctx context.Context, id uuid.UUID, owner models.ActorID, active bool) error {
	return s.projects.SetActive(ctx, id, owner, active)
}
