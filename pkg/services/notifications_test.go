package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/catalog"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/notify"
)

func newNotificationFixture(profiles ...*models.Profile) (NotificationService, *mockDispatcher, *notify.Renderer, *mockProfileRepo) {
	repo := newMockProfileRepo(profiles...)
	dispatcher := &mockDispatcher{}
	renderer := notify.NewRenderer(catalog.Default())
	return NewNotificationService(repo, dispatcher, renderer, zap.NewNop()), dispatcher, renderer, repo
}

func TestNotificationService_RequestCreated(t *testing.T) {
	sender := &models.Profile{ActorID: 1, Username: "alice", DisplayName: "Alice", Role: "backend", AvatarRef: "photo-1"}
	svc, dispatcher, renderer, _ := newNotificationFixture(sender)
	req := &models.Request{ID: uuid.New(), FromActorID: 1, ToActorID: 2, Status: models.RequestStatusPending}

	svc.RequestCreated(context.Background(), req, nil)

	msgs := dispatcher.to(2)
	require.Len(t, msgs, 1)
	assert.Equal(t, renderer.RequestReceived(req, sender, nil), msgs[0])
	assert.Equal(t, "photo-1", msgs[0].PhotoRef)
	assert.NotContains(t, msgs[0].Text, "@alice", "contacts stay hidden until acceptance")
	assert.Empty(t, dispatcher.to(1))
}

func TestNotificationService_RequestCreated_UnknownSender(t *testing.T) {
	svc, dispatcher, _, _ := newNotificationFixture()
	req := &models.Request{ID: uuid.New(), FromActorID: 42, ToActorID: 2, Status: models.RequestStatusPending}

	svc.RequestCreated(context.Background(), req, nil)

	msgs := dispatcher.to(2)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "42")
}

func TestNotificationService_Rejected(t *testing.T) {
	svc, dispatcher, renderer, _ := newNotificationFixture()
	req := &models.Request{ID: uuid.New(), FromActorID: 1, ToActorID: 2, Status: models.RequestStatusRejected}

	svc.RequestResolved(context.Background(), &models.RespondResult{Request: req, Outcome: models.RespondOutcomeRejected})

	assert.Equal(t, []notify.Message{renderer.Rejected(nil)}, dispatcher.to(1))
	assert.Empty(t, dispatcher.to(2))
}

func TestNotificationService_AcceptedRevealsContacts(t *testing.T) {
	alice := &models.Profile{ActorID: 1, Username: "alice", DisplayName: "Alice"}
	bob := &models.Profile{ActorID: 2, DisplayName: "Bob"}
	svc, dispatcher, _, _ := newNotificationFixture(alice, bob)
	req := &models.Request{ID: uuid.New(), FromActorID: 1, ToActorID: 2, Status: models.RequestStatusAccepted}

	svc.RequestResolved(context.Background(), &models.RespondResult{Request: req, Outcome: models.RespondOutcomeAccepted})

	toAlice := dispatcher.to(1)
	require.Len(t, toAlice, 1)
	assert.Contains(t, toAlice[0].Text, "ID: 2")

	toBob := dispatcher.to(2)
	require.Len(t, toBob, 1)
	assert.Contains(t, toBob[0].Text, "@alice")
}

func TestNotificationService_CapacityFullNotifiesOwner(t *testing.T) {
	owner := &models.Profile{ActorID: 2, Username: "owner", DisplayName: "Owner"}
	svc, dispatcher, renderer, _ := newNotificationFixture(owner)
	project := &models.Project{ID: uuid.New(), OwnerID: 2, Title: "Chess bot", TeamLimit: intPtr(1), CurrentMembers: 1, ChatLink: "https://t.me/+chat"}
	req := &models.Request{ID: uuid.New(), FromActorID: 1, ToActorID: 2, ProjectID: &project.ID, Status: models.RequestStatusAccepted}

	svc.RequestResolved(context.Background(), &models.RespondResult{Request: req, Project: project, Outcome: models.RespondOutcomeCapacityFull})

	toApplicant := dispatcher.to(1)
	require.Len(t, toApplicant, 1)
	assert.Equal(t, renderer.CapacityFullForRequester(project, "@owner"), toApplicant[0])
	assert.Contains(t, toApplicant[0].Text, "команда уже укомплектована")
	assert.Contains(t, toApplicant[0].Text, "@owner")
	assert.NotContains(t, toApplicant[0].Text, "Тебя приняли в проект")
	assert.NotContains(t, toApplicant[0].Text, "t.me/+chat", "no team chat for an applicant who was not counted")

	toOwner := dispatcher.to(2)
	require.Len(t, toOwner, 2)
	assert.Equal(t, renderer.CapacityFullForOwner(project), toOwner[1])
}

func TestNotificationService_CapacityFullWithoutOwnerProfile(t *testing.T) {
	svc, dispatcher, _, _ := newNotificationFixture()
	project := &models.Project{ID: uuid.New(), OwnerID: 2, Title: "Chess bot", TeamLimit: intPtr(1), CurrentMembers: 1}
	req := &models.Request{ID: uuid.New(), FromActorID: 1, ToActorID: 2, ProjectID: &project.ID, Status: models.RequestStatusAccepted}

	svc.RequestResolved(context.Background(), &models.RespondResult{Request: req, Project: project, Outcome: models.RespondOutcomeCapacityFull})

	toApplicant := dispatcher.to(1)
	require.Len(t, toApplicant, 1)
	assert.Contains(t, toApplicant[0].Text, models.ContactForActor(2))
}

func TestNotificationService_SilentOutcomes(t *testing.T) {
	svc, dispatcher, _, _ := newNotificationFixture()
	req := &models.Request{ID: uuid.New(), FromActorID: 1, ToActorID: 2, Status: models.RequestStatusAccepted}

	svc.RequestResolved(context.Background(), &models.RespondResult{Request: req, Outcome: models.RespondOutcomeAlreadyResolved})
	svc.RequestResolved(context.Background(), &models.RespondResult{Outcome: models.RespondOutcomeNotFound})

	assert.Empty(t, dispatcher.sent)
}

func TestNotificationService_DeliveryFailureAndProfileErrorsAreSwallowed(t *testing.T) {
	svc, dispatcher, _, repo := newNotificationFixture()
	repo.getErr = errors.New("db down")
	dispatcher.fail = map[models.ActorID]bool{1: true}
	req := &models.Request{ID: uuid.New(), FromActorID: 1, ToActorID: 2, Status: models.RequestStatusAccepted}

	assert.NotPanics(t, func() {
		svc.RequestResolved(context.Background(), &models.RespondResult{Request: req, Outcome: models.RespondOutcomeAccepted})
	})
	assert.Len(t, dispatcher.to(2), 1)
}
