package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/database"
	"github.com/linkit-hq/linkit-engine/pkg/models"
)

// ProjectRepository defines the interface for project data access.
type ProjectRepository interface {
	// Create stores a finalized project draft owned by owner. The owner counts as the first member.
	Create(ctx context.Context, owner models.ActorID, draft *models.ProjectDraft) (*models.Project, error)

	// Get returns a project or apperrors.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)

	// SetActive toggles feed visibility. Only the owner may do so; other callers get ErrNotFound.
	SetActive(ctx context.Context, id uuid.UUID, owner models.ActorID, active bool) error

	// IncrementMembers adds one member unless the team is full.
	// It returns the project after the attempt and whether a slot was taken.
	// The ceiling is checked and applied in a single UPDATE, so concurrent callers
	// can never push current_members past team_limit.
	IncrementMembers(ctx context.Context, id uuid.UUID) (*models.Project, bool, error)

	// ListFeedCandidates returns active projects not owned by the viewer, newest first,
	// pre-filtered on level. Stack and role are filtered by the caller.
	ListFeedCandidates(ctx context.Context, viewer models.ActorID, filters models.ProjectFilters, limit int) ([]*models.Project, error)
}

type projectRepository struct{}

// NewProjectRepository creates a new project repository.
func NewProjectRepository() ProjectRepository {
	return &projectRepository{}
}

var _ ProjectRepository = (*projectRepository)(nil)

const projectColumns = `id, owner_actor_id, title, idea, stack, status, needs_now, looking_for_role,
	level, extra, team_limit, current_members, chat_link, image_ref, active, created_at, updated_at`

func (r *projectRepository) Create(ctx context.Context, owner models.ActorID, draft *models.ProjectDraft) (*models.Project, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	query := `
		INSERT INTO projects (owner_actor_id, title, idea, stack, status, needs_now, looking_for_role,
		                      level, extra, team_limit, current_members, chat_link, image_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)
		RETURNING ` + projectColumns

	p, err := scanProject(scope.Conn.QueryRow(ctx, query,
		owner, draft.Title, draft.Idea, draft.Stack, draft.Status, draft.NeedsNow, draft.LookingForRole,
		draft.Level, draft.Extra, draft.TeamLimit, draft.ChatLink, draft.ImageRef))
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

func (r *projectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	p, err := scanProject(scope.Conn.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (r *projectRepository) SetActive(ctx context.Context, id uuid.UUID, owner models.ActorID, active bool) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return apperrors.ErrNoScope
	}

	tag, err := scope.Conn.Exec(ctx,
		`UPDATE projects SET active = $3, updated_at = now() WHERE id = $1 AND owner_actor_id = $2`,
		id, owner, active)
	if err != nil {
		return fmt.Errorf("failed to update project activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *projectRepository) IncrementMembers(ctx context.Context, id uuid.UUID) (*models.Project, bool, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, false, apperrors.ErrNoScope
	}

	query := `
		UPDATE projects
		SET current_members = current_members + 1, updated_at = now()
		WHERE id = $1 AND (team_limit IS NULL OR current_members < team_limit)
		RETURNING ` + projectColumns

	p, err := scanProject(scope.Conn.QueryRow(ctx, query, id))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to increment project members: %w", err)
	}

	// Either the team is full or the project is gone.
	p, err = r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return p, false, nil
}

func (r *projectRepository) ListFeedCandidates(ctx context.Context, viewer models.ActorID, filters models.ProjectFilters, limit int) ([]*models.Project, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE active
		  AND owner_actor_id <> $1
		  AND ($2 = '' OR level = $2 OR level = 'any')
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := scope.Conn.Query(ctx, query, viewer, filters.Level, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list project candidates: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Idea, &p.Stack, &p.Status, &p.NeedsNow, &p.LookingForRole,
		&p.Level, &p.Extra, &p.TeamLimit, &p.CurrentMembers, &p.ChatLink, &p.ImageRef, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
