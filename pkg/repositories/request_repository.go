package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/database"
	"github.com/linkit-hq/linkit-engine/pkg/models"
)

// RequestRepository defines the interface for request data access.
type RequestRepository interface {
	// LockSender serializes request creation per sender until the surrounding transaction ends.
	LockSender(ctx context.Context, from models.ActorID) error

	// FindPending returns the pending request for the dedup key or apperrors.ErrNotFound.
	// A nil projectID selects peer requests only.
	FindPending(ctx context.Context, from, to models.ActorID, projectID *uuid.UUID) (*models.Request, error)

	// Create inserts a pending request and fills in its ID.
	// A concurrent pending duplicate yields apperrors.ErrDuplicatePending.
	Create(ctx context.Context, req *models.Request) error

	// CountCreatedBetween counts requests sent by from with created_at in [start, end).
	CountCreatedBetween(ctx context.Context, from models.ActorID, start, end time.Time) (int, error)

	// Get returns a request or apperrors.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.Request, error)

	// GetForUpdate is Get with the row locked until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Request, error)

	// Resolve moves a pending request to status. A request that is no longer pending
	// is left untouched and apperrors.ErrConflict is returned.
	Resolve(ctx context.Context, id uuid.UUID, status string, respondedAt time.Time) (*models.Request, error)

	// ListIncomingPending returns pending requests addressed to an actor, newest first.
	ListIncomingPending(ctx context.Context, to models.ActorID, limit int) ([]*models.Request, error)

	// ListAcceptedRespondedBetween returns accepted requests with responded_at in [start, end].
	ListAcceptedRespondedBetween(ctx context.Context, start, end time.Time) ([]*models.Request, error)

	// SentTargetIDs returns every actor the sender has ever addressed, in any status.
	SentTargetIDs(ctx context.Context, from models.ActorID) ([]models.ActorID, error)

	// AppliedProjectIDs returns projects the actor has a pending or accepted application for.
	AppliedProjectIDs(ctx context.Context, from models.ActorID) ([]uuid.UUID, error)
}

type requestRepository struct{}

// NewRequestRepository creates a new request repository.
func NewRequestRepository() RequestRepository {
	return &requestRepository{}
}

var _ RequestRepository = (*requestRepository)(nil)

const requestColumns = `id, from_actor_id, to_actor_id, project_id, status, greeting, created_at, responded_at`

func (r *requestRepository) LockSender(ctx context.Context, from models.ActorID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return apperrors.ErrNoScope
	}
	if _, err := scope.Conn.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(from)); err != nil {
		return fmt.Errorf("failed to lock sender: %w", err)
	}
	return nil
}

func (r *requestRepository) FindPending(ctx context.Context, from, to models.ActorID, projectID *uuid.UUID) (*models.Request, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	var row pgx.Row
	if projectID == nil {
		row = scope.Conn.QueryRow(ctx, `
			SELECT `+requestColumns+`
			FROM requests
			WHERE from_actor_id = $1 AND to_actor_id = $2 AND project_id IS NULL AND status = 'pending'`,
			from, to)
	} else {
		row = scope.Conn.QueryRow(ctx, `
			SELECT `+requestColumns+`
			FROM requests
			WHERE from_actor_id = $1 AND to_actor_id = $2 AND project_id = $3 AND status = 'pending'`,
			from, to, *projectID)
	}

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find pending request: %w", err)
	}
	return req, nil
}

func (r *requestRepository) Create(ctx context.Context, req *models.Request) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return apperrors.ErrNoScope
	}

	query := `
		INSERT INTO requests (from_actor_id, to_actor_id, project_id, status, greeting, created_at)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING id, status`

	err := scope.Conn.QueryRow(ctx, query,
		req.FromActorID, req.ToActorID, req.ProjectID, req.Greeting, req.CreatedAt,
	).Scan(&req.ID, &req.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (r *requestRepository) CountCreatedBetween(ctx context.Context, from models.ActorID, start, end time.Time) (int, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, apperrors.ErrNoScope
	}

	var count int
	err := scope.Conn.QueryRow(ctx, `
		SELECT COUNT(*) FROM requests
		WHERE from_actor_id = $1 AND created_at >= $2 AND created_at < $3`,
		from, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}

func (r *requestRepository) Get(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return r.get(ctx, id, false)
}

func (r *requestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return r.get(ctx, id, true)
}

func (r *requestRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Request, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	req, err := scanRequest(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

func (r *requestRepository) Resolve(ctx context.Context, id uuid.UUID, status string, respondedAt time.Time) (*models.Request, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	query := `
		UPDATE requests
		SET status = $2, responded_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + requestColumns

	req, err := scanRequest(scope.Conn.QueryRow(ctx, query, id, status, respondedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("failed to resolve request: %w", err)
	}
	return req, nil
}

func (r *requestRepository) ListIncomingPending(ctx context.Context, to models.ActorID, limit int) ([]*models.Request, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE to_actor_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT $2`, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming requests: %w", err)
	}
	return collectRequests(rows)
}

func (r *requestRepository) ListAcceptedRespondedBetween(ctx context.Context, start, end time.Time) ([]*models.Request, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE status = 'accepted'
		  AND responded_at IS NOT NULL
		  AND responded_at >= $1
		  AND responded_at <= $2
		ORDER BY responded_at`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted requests: %w", err)
	}
	return collectRequests(rows)
}

func (r *requestRepository) SentTargetIDs(ctx context.Context, from models.ActorID) ([]models.ActorID, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	rows, err := scope.Conn.Query(ctx,
		`SELECT DISTINCT to_actor_id FROM requests WHERE from_actor_id = $1`, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list request targets: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[models.ActorID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan request targets: %w", err)
	}
	return ids, nil
}

func (r *requestRepository) AppliedProjectIDs(ctx context.Context, from models.ActorID) ([]uuid.UUID, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoScope
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT DISTINCT project_id FROM requests
		WHERE from_actor_id = $1 AND project_id IS NOT NULL AND status IN ('pending', 'accepted')`, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied projects: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan applied projects: %w", err)
	}
	return ids, nil
}

func collectRequests(rows pgx.Rows) ([]*models.Request, error) {
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}
	return requests, nil
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var req models.Request
	err := row.Scan(
		&req.ID, &req.FromActorID, &req.ToActorID, &req.ProjectID, &req.Status,
		&req.Greeting, &req.CreatedAt, &req.RespondedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
