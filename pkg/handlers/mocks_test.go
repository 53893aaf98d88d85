package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/linkit-hq/linkit-engine/pkg/auth"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/session"
)

// withActor attaches claims for the given actor to the request context.
func withActor(r *http.Request, actor int64) *http.Request {
	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatInt(actor, 10)}}
	return r.WithContext(auth.WithClaims(r.Context(), claims, "token"))
}

type alert struct {
	actor          models.ActorID
	conversationID int64
	errorType      string
}

type mockAlerter struct {
	alerts []alert
}

func (m *mockAlerter) Alert(_ context.Context, actor models.ActorID, conversationID int64, errorType string) {
	m.alerts = append(m.alerts, alert{actor: actor, conversationID: conversationID, errorType: errorType})
}

type mockRequestService struct {
	createFn    func(from, to models.ActorID, projectID *uuid.UUID, greeting string) (*models.Request, models.CreateOutcome, error)
	respondFn   func(id uuid.UUID, decision models.Decision) (*models.RespondResult, error)
	getFn       func(id uuid.UUID) (*models.Request, error)
	incomingFn  func(actor models.ActorID) ([]*models.Request, error)
	respondCall int
}

func (m *mockRequestService) Create(_ context.Context, from, to models.ActorID, projectID *uuid.UUID, greeting string) (*models.Request, models.CreateOutcome, error) {
	return m.createFn(from, to, projectID, greeting)
}

func (m *mockRequestService) Respond(_ context.Context, id uuid.UUID, decision models.Decision) (*models.RespondResult, error) {
	m.respondCall++
	return m.respondFn(id, decision)
}

func (m *mockRequestService) Get(_ context.Context, id uuid.UUID) (*models.Request, error) {
	return m.getFn(id)
}

func (m *mockRequestService) ListIncomingPending(_ context.Context, actor models.ActorID) ([]*models.Request, error) {
	return m.incomingFn(actor)
}

type mockFeedService struct {
	profileFilters *models.ProfileFilters
	projectFilters *models.ProjectFilters
	buildErr       error
	current        *models.FeedCandidate
	currentErr     error
	advanced       []models.Direction
	advanceErr     error
	lastKey        session.Key
}

func (m *mockFeedService) BuildProfileFeed(_ context.Context, key session.Key, filters models.ProfileFilters) (*session.FeedState, error) {
	m.lastKey = key
	m.profileFilters = &filters
	return &session.FeedState{}, m.buildErr
}

func (m *mockFeedService) BuildProjectFeed(_ context.Context, key session.Key, filters models.ProjectFilters) (*session.FeedState, error) {
	m.lastKey = key
	m.projectFilters = &filters
	return &session.FeedState{}, m.buildErr
}

func (m *mockFeedService) Current(_ context.Context, key session.Key, _ models.FeedKind) (*models.FeedCandidate, error) {
	m.lastKey = key
	return m.current, m.currentErr
}

func (m *mockFeedService) Advance(_ context.Context, key session.Key, _ models.FeedKind, dir models.Direction) (*models.FeedCandidate, error) {
	m.lastKey = key
	m.advanced = append(m.advanced, dir)
	return m.current, m.advanceErr
}

type mockProfileService struct {
	profile   *models.Profile
	err       error
	ensuredAs string
	saved     *models.ProfileDraft
	active    *bool
}

func (m *mockProfileService) EnsureProfile(_ context.Context, _ models.ActorID, username string) (*models.Profile, error) {
	m.ensuredAs = username
	return m.profile, m.err
}

func (m *mockProfileService) GetProfile(_ context.Context, _ models.ActorID) (*models.Profile, error) {
	return m.profile, m.err
}

func (m *mockProfileService) SaveProfile(_ context.Context, _ models.ActorID, draft *models.ProfileDraft) (*models.Profile, error) {
	m.saved = draft
	return m.profile, m.err
}

func (m *mockProfileService) SetActive(_ context.Context, _ models.ActorID, active bool) error {
	m.active = &active
	return m.err
}

type mockProjectService struct {
	project *models.Project
	err     error
	owner   models.ActorID
	active  *bool
}

func (m *mockProjectService) CreateProject(_ context.Context, owner models.ActorID, _ *models.ProjectDraft) (*models.Project, error) {
	m.owner = owner
	return m.project, m.err
}

func (m *mockProjectService) GetByID(_ context.Context, _ uuid.UUID) (*models.Project, error) {
	return m.project, m.err
}

func (m *mockProjectService) SetActive(_ context.Context, _ uuid.UUID, owner models.ActorID, active bool) error {
	m.owner = owner
	m.active = &active
	return m.err
}
