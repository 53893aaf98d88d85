package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/database"
	"github.com/linkit-hq/linkit-engine/pkg/models"
)

// ProfileRepository defines the interface for profile data access.
type ProfileRepository interface {
	// Ensure creates a placeholder profile on first contact and refreshes the username.
	Ensure(ctx context.Context, actorID models.ActorID, username string) (*models.Profile, error)

	// Get returns a profile or apperrors.ErrNotFound.
	Get(ctx context.Context, actorID models.ActorID) (*models.Profile, error)

	// Save writes the finalized wizard draft over the actor's profile, creating it if needed.
	Save(ctx context.Context, actorID models.ActorID, draft *models.ProfileDraft) (*models.Profile, error)

	// SetActive toggles feed visibility.
	SetActive(ctx context.Context, actorID models.ActorID, active bool) error

	// ListFeedCandidates returns active profiles other than the viewer, newest first,
	// pre-filtered on role and goal equality. Stack and emptiness are filtered by the caller.
	ListFeedCandidates(ctx context.Context, viewer models.ActorID, filters models.ProfileFilters, limit int) ([]*models.Profile, error)
}

type profileRepository struct{}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository() ProfileRepository {
	return &profileRepository{}
}

var _ ProfileRepository = (*profileRepository)(nil)

const profileColumns = `actor_id, username, display_name, avatar_ref, role, stack, framework,
	skills, goal, about, active, created_at, updated_at`

func (r *profileRepository) Ensure(ctx context.Context, actorID models.ActorID, username string) (*models.Profile, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	query := `
		INSERT INTO profiles (actor_id, username)
		VALUES ($1, $2)
		ON CONFLICT (actor_id) DO UPDATE
		SET username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE profiles.username END,
		    updated_at = CASE WHEN EXCLUDED.username <> '' AND EXCLUDED.username <> profiles.username
		                      THEN now() ELSE profiles.updated_at END
		RETURNING ` + profileColumns

	p, err := scanProfile(scope.Conn.QueryRow(ctx, query, actorID, username))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}
	return p, nil
}

func (r *profileRepository) Get(ctx context.Context, actorID models.ActorID) (*models.Profile, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE actor_id = $1`

	p, err := scanProfile(scope.Conn.QueryRow(ctx, query, actorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (r *profileRepository) Save(ctx context.Context, actorID models.ActorID, draft *models.ProfileDraft) (*models.Profile, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	query := `
		INSERT INTO profiles (actor_id, username, display_name, avatar_ref, role, stack, framework, skills, goal, about)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (actor_id) DO UPDATE
		SET username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE profiles.username END,
		    display_name = EXCLUDED.display_name,
		    avatar_ref = EXCLUDED.avatar_ref,
		    role = EXCLUDED.role,
		    stack = EXCLUDED.stack,
		    framework = EXCLUDED.framework,
		    skills = EXCLUDED.skills,
		    goal = EXCLUDED.goal,
		    about = EXCLUDED.about,
		    updated_at = now()
		RETURNING ` + profileColumns

	p, err := scanProfile(scope.Conn.QueryRow(ctx, query,
		actorID, draft.Username, draft.DisplayName, draft.AvatarRef, draft.Role,
		draft.Stack, draft.Framework, draft.Skills, draft.Goal, draft.About))
	if err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return p, nil
}

func (r *profileRepository) SetActive(ctx context.Context, actorID models.ActorID, active bool) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return apperrors.ErrNoScope
	}

	tag, err := scope.Conn.Exec(ctx,
		`UPDATE profiles SET active = $2, updated_at = now() WHERE actor_id = $1`, actorID, active)
	if err != nil {
		return fmt.Errorf("failed to update profile activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *profileRepository) ListFeedCandidates(ctx context.Context, viewer models.ActorID, filters models.ProfileFilters, limit int) ([]*models.Profile, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE active
		  AND actor_id <> $1
		  AND ($2 = '' OR lower(role) = $2)
		  AND ($3 = '' OR lower(goal) = $3)
		ORDER BY created_at DESC, actor_id DESC
		LIMIT $4`

	rows, err := scope.Conn.Query(ctx, query, viewer, filters.Role, filters.Goal, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile candidates: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return profiles, nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ActorID, &p.Username, &p.DisplayName, &p.AvatarRef, &p.Role, &p.Stack, &p.Framework,
		&p.Skills, &p.Goal, &p.About, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
