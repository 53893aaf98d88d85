package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/notify"
	"github.com/linkit-hq/linkit-engine/pkg/repositories"
)

// NotificationService tells the parties of a request what happened.
// Delivery is best effort and never fails the operation that triggered it.
type NotificationService interface {
	RequestCreated(ctx context.Context, req *models.Request, project *models.Project)
	RequestResolved(ctx context.Context, res *models.RespondResult)
}

type notificationService struct {
	profiles   repositories.ProfileRepository
	dispatcher notify.Dispatcher
	renderer   *notify.Renderer
	logger     *zap.Logger
}

// NewNotificationService creates the request notification fan-out.
func NewNotificationService(
	profiles repositories.ProfileRepository,
	dispatcher notify.Dispatcher,
	renderer *notify.Renderer,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		profiles:   profiles,
		dispatcher: dispatcher,
		renderer:   renderer,
		logger:     logger.Named("notification-service"),
	}
}

var _ NotificationService = (*notificationService)(nil)

func (s *notificationService) RequestCreated(ctx context.Context, req *models.Request, project *models.Project) {
	sender := s.profile(ctx, req.FromActorID)
	s.send(ctx, req.ToActorID, s.renderer.RequestReceived(req, sender, project))
}

func (s *notificationService) RequestResolved(ctx context.Context, res *models.RespondResult) {
	req := res.Request
	switch res.Outcome {
	case models.RespondOutcomeRejected:
		s.send(ctx, req.FromActorID, s.renderer.Rejected(res.Project))

	case models.RespondOutcomeAccepted, models.RespondOutcomeCapacityFull:
		sender := s.profile(ctx, req.FromActorID)
		recipient := s.profile(ctx, req.ToActorID)
		if res.Outcome == models.RespondOutcomeCapacityFull && res.Project != nil {
			s.send(ctx, req.FromActorID, s.renderer.CapacityFullForRequester(res.Project, ownerContact(req, recipient)))
			s.send(ctx, req.ToActorID, s.renderer.AcceptedForRecipient(req, sender, res.Project))
			s.send(ctx, req.ToActorID, s.renderer.CapacityFullForOwner(res.Project))
			return
		}
		s.send(ctx, req.FromActorID, s.renderer.AcceptedForRequester(req, recipient, res.Project))
		s.send(ctx, req.ToActorID, s.renderer.AcceptedForRecipient(req, sender, res.Project))
	}
}

// ownerContact is the recipient's handle, or an id-based fallback when the profile is missing.
func ownerContact(req *models.Request, recipient *models.Profile) string {
	if recipient != nil {
		return recipient.Contact()
	}
	return models.ContactForActor(req.ToActorID)
}

// profile returns nil when the profile is missing or cannot be read; messages fall back to ids.
func (s *notificationService) profile(ctx context.Context, actor models.ActorID) *models.Profile {
	p, err := s.profiles.Get(ctx, actor)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Failed to load profile for notification",
				zap.Int64("actor_id", int64(actor)),
				zap.Error(err))
		}
		return nil
	}
	return p
}

func (s *notificationService) send(ctx context.Context, to models.ActorID, msg notify.Message) {
	if !s.dispatcher.Notify(ctx, to, msg) {
		s.logger.Debug("Notification not delivered", zap.Int64("to", int64(to)))
	}
}
