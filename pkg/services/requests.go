package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/database"
	"github.com/linkit-hq/linkit-engine/pkg/metrics"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/repositories"
)

// IncomingLimit caps the inbox listing.
const IncomingLimit = 50

// RequestService owns the request lifecycle: creation with dedup and quota checks,
// and the single pending→accepted/rejected transition.
type RequestService interface {
	// Create sends a request from one actor to another, or applies to a project when
	// projectID is set (the recipient is then the project owner and to is ignored).
	// Validation outcomes are reported through CreateOutcome, not errors.
	Create(ctx context.Context, from, to models.ActorID, projectID *uuid.UUID, greeting string) (*models.Request, models.CreateOutcome, error)

	// Respond applies the recipient's decision. It does not check who is answering.
	Respond(ctx context.Context, requestID uuid.UUID, decision models.Decision) (*models.RespondResult, error)

	Get(ctx context.Context, requestID uuid.UUID) (*models.Request, error)

	ListIncomingPending(ctx context.Context, actor models.ActorID) ([]*models.Request, error)
}

type requestService struct {
	tx            database.Transactor
	requests      repositories.RequestRepository
	projects      repositories.ProjectRepository
	quota         QuotaTracker
	notifications NotificationService
	now           func() time.Time
	logger        *zap.Logger
}

// NewRequestService creates the request lifecycle engine. A nil clock uses time.Now.
func NewRequestService(
	tx database.Transactor,
	requests repositories.RequestRepository,
	projects repositories.ProjectRepository,
	quota QuotaTracker,
	notifications NotificationService,
	now func() time.Time,
	logger *zap.Logger,
) RequestService {
	if now == nil {
		now = time.Now
	}
	return &requestService{
		tx:            tx,
		requests:      requests,
		projects:      projects,
		quota:         quota,
		notifications: notifications,
		now:           now,
		logger:        logger.Named("request-service"),
	}
}

var _ RequestService = (*requestService)(nil)

func (s *requestService) Create(ctx context.Context, from, to models.ActorID, projectID *uuid.UUID, greeting string) (*models.Request, models.CreateOutcome, error) {
	greeting = strings.TrimSpace(greeting)
	if utf8.RuneCountInString(greeting) > models.MaxGreetingLength {
		return nil, "", fmt.Errorf("%w: greeting longer than %d characters", apperrors.ErrInvalidInput, models.MaxGreetingLength)
	}

	kind := models.RequestKindPeer
	if projectID != nil {
		kind = models.RequestKindProject
	}

	var (
		result  *models.Request
		project *models.Project
		outcome models.CreateOutcome
	)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if projectID != nil {
			p, err := s.projects.Get(ctx, *projectID)
			if errors.Is(err, apperrors.ErrNotFound) || (err == nil && !p.Active) {
				outcome = models.CreateOutcomeProjectNotFound
				return nil
			}
			if err != nil {
				return err
			}
			project = p
			to = p.OwnerID
		}

		if from == to {
			outcome = models.CreateOutcomeSelf
			return nil
		}

		// Serializes the duplicate and quota checks with the insert for this sender.
		if err := s.requests.LockSender(ctx, from); err != nil {
			return err
		}

		existing, err := s.requests.FindPending(ctx, from, to, projectID)
		if err == nil {
			result, outcome = existing, models.CreateOutcomeDuplicate
			return nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		exceeded, err := s.quota.Exceeded(ctx, from)
		if err != nil {
			return err
		}
		if exceeded {
			outcome = models.CreateOutcomeQuotaExceeded
			return nil
		}

		req := &models.Request{
			FromActorID: from,
			ToActorID:   to,
			ProjectID:   projectID,
			Greeting:    greeting,
			CreatedAt:   s.now().UTC(),
		}
		if err := s.requests.Create(ctx, req); err != nil {
			return err
		}
		result, outcome = req, models.CreateOutcomeCreated
		return nil
	})

	if errors.Is(err, apperrors.ErrDuplicatePending) {
		// A concurrent submit committed first. The transaction is gone; report the winner.
		existing, ferr := s.requests.FindPending(ctx, from, to, projectID)
		if ferr != nil {
			return nil, "", fmt.Errorf("failed to read concurrent request: %w", ferr)
		}
		result, outcome, err = existing, models.CreateOutcomeDuplicate, nil
	}
	if err != nil {
		s.logger.Error("Failed to create request",
			zap.Int64("from", int64(from)),
			zap.Int64("to", int64(to)),
			zap.Error(err))
		return nil, "", err
	}

	metrics.RequestsCreated.WithLabelValues(string(kind), string(outcome)).Inc()
	s.logger.Debug("Create request",
		zap.Int64("from", int64(from)),
		zap.Int64("to", int64(to)),
		zap.String("kind", string(kind)),
		zap.String("outcome", string(outcome)))

	if outcome == models.CreateOutcomeCreated && s.notifications != nil {
		s.notifications.RequestCreated(ctx, result, project)
	}
	return result, outcome, nil
}

func (s *requestService) Respond(ctx context.Context, requestID uuid.UUID, decision models.Decision) (*models.RespondResult, error) {
	if _, err := models.ParseDecision(string(decision)); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	res := &models.RespondResult{}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetForUpdate(ctx, requestID)
		if errors.Is(err, apperrors.ErrNotFound) {
			res.Outcome = models.RespondOutcomeNotFound
			return nil
		}
		if err != nil {
			return err
		}
		if !req.IsPending() {
			res.Request, res.Outcome = req, models.RespondOutcomeAlreadyResolved
			return nil
		}

		status := models.RequestStatusRejected
		if decision == models.DecisionAccept {
			status = models.RequestStatusAccepted
		}

		updated, err := s.requests.Resolve(ctx, requestID, status, s.now().UTC())
		if errors.Is(err, apperrors.ErrConflict) {
			res.Request, res.Outcome = req, models.RespondOutcomeAlreadyResolved
			return nil
		}
		if err != nil {
			return err
		}
		res.Request = updated
		return s.acceptEffect(ctx, decision, res)
	})
	if err != nil {
		s.logger.Error("Failed to respond to request",
			zap.String("request_id", requestID.String()),
			zap.String("decision", string(decision)),
			zap.Error(err))
		return nil, err
	}

	kind := models.RequestKindPeer
	if res.Request != nil {
		kind = res.Request.Kind()
	}
	metrics.RequestsResponded.WithLabelValues(string(kind), string(res.Outcome)).Inc()

	if s.notifications != nil {
		s.notifications.RequestResolved(ctx, res)
	}
	return res, nil
}

// acceptEffect sets the outcome of a resolved request and applies the side effects
// that depend on its kind. Runs inside the Respond transaction.
func (s *requestService) acceptEffect(ctx context.Context, decision models.Decision, res *models.RespondResult) error {
	req := res.Request
	if decision == models.DecisionReject {
		res.Outcome = models.RespondOutcomeRejected
	} else {
		res.Outcome = models.RespondOutcomeAccepted
	}

	switch req.Kind() {
	case models.RequestKindPeer:
		return nil
	case models.RequestKindProject:
		if decision == models.DecisionReject {
			if p, err := s.projects.Get(ctx, *req.ProjectID); err == nil {
				res.Project = p
			}
			return nil
		}
		// The request stays accepted even when the team is full; the ceiling only
		// governs the member count.
		p, took, err := s.projects.IncrementMembers(ctx, *req.ProjectID)
		if err != nil {
			return err
		}
		res.Project = p
		if !took {
			res.Outcome = models.RespondOutcomeCapacityFull
		}
		return nil
	default:
		return fmt.Errorf("unknown request kind %q", req.Kind())
	}
}

func (s *requestService) Get(ctx context.Context, requestID uuid.UUID) (*models.Request, error) {
	return s.requests.Get(ctx, requestID)
}

func (s *requestService) ListIncomingPending(ctx context.Context, actor models.ActorID) ([]*models.Request, error) {
	requests, err := s.requests.ListIncomingPending(ctx, actor, IncomingLimit)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []*models.Request{}
	}
	return requests, nil
}
