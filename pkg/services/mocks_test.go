package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/notify"
)

// passthroughTx runs fn directly; the mocks below keep their own consistency.
type passthroughTx struct {
	calls int
}

func (p *passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

// fakeScopes hands out the caller's context unchanged.
type fakeScopes struct {
	err error
}

func (f *fakeScopes) WithScope(ctx context.Context) (context.Context, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return ctx, func() {}, nil
}

// mockRequestRepo implements repositories.RequestRepository in memory.
type mockRequestRepo struct {
	mu       sync.Mutex
	requests []*models.Request

	createErr error
	countErr  error
	// duplicateOnCreate simulates losing the unique-index race to a concurrent insert.
	duplicateOnCreate *models.Request
	locked            []models.ActorID
}

func (m *mockRequestRepo) LockSender(_ context.Context, from models.ActorID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = append(m.locked, from)
	return nil
}

func sameProject(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *mockRequestRepo) FindPending(_ context.Context, from, to models.ActorID, projectID *uuid.UUID) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.FromActorID == from && r.ToActorID == to && sameProject(r.ProjectID, projectID) && r.IsPending() {
			c := *r
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockRequestRepo) Create(_ context.Context, req *models.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.duplicateOnCreate != nil {
		m.requests = append(m.requests, m.duplicateOnCreate)
		m.duplicateOnCreate = nil
		return apperrors.ErrDuplicatePending
	}
	req.ID = uuid.New()
	req.Status = models.RequestStatusPending
	c := *req
	m.requests = append(m.requests, &c)
	return nil
}

func (m *mockRequestRepo) CountCreatedBetween(_ context.Context, from models.ActorID, start, end time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, r := range m.requests {
		if r.FromActorID == from && !r.CreatedAt.Before(start) && r.CreatedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (m *mockRequestRepo) find(id uuid.UUID) *models.Request {
	for _, r := range m.requests {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *mockRequestRepo) Get(_ context.Context, id uuid.UUID) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(id)
	if r == nil {
		return nil, apperrors.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *mockRequestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return m.Get(ctx, id)
}

func (m *mockRequestRepo) Resolve(_ context.Context, id uuid.UUID, status string, respondedAt time.Time) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(id)
	if r == nil || !r.IsPending() {
		return nil, apperrors.ErrConflict
	}
	r.Status = status
	r.RespondedAt = &respondedAt
	c := *r
	return &c, nil
}

func (m *mockRequestRepo) ListIncomingPending(_ context.Context, to models.ActorID, limit int) ([]*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Request
	for _, r := range m.requests {
		if r.ToActorID == to && r.IsPending() && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRequestRepo) ListAcceptedRespondedBetween(_ context.Context, start, end time.Time) ([]*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Request
	for _, r := range m.requests {
		if r.Status != models.RequestStatusAccepted || r.RespondedAt == nil {
			continue
		}
		if r.RespondedAt.Before(start) || r.RespondedAt.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRequestRepo) SentTargetIDs(_ context.Context, from models.ActorID) ([]models.ActorID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ActorID
	for _, r := range m.requests {
		if r.FromActorID == from {
			out = append(out, r.ToActorID)
		}
	}
	return out, nil
}

func (m *mockRequestRepo) AppliedProjectIDs(_ context.Context, from models.ActorID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for _, r := range m.requests {
		if r.FromActorID == from && r.ProjectID != nil && r.Status != models.RequestStatusRejected {
			out = append(out, *r.ProjectID)
		}
	}
	return out, nil
}

// mockProjectRepo implements repositories.ProjectRepository in memory.
type mockProjectRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*models.Project
	getErr   error
}

func newMockProjectRepo(projects ...*models.Project) *mockProjectRepo {
	m := &mockProjectRepo{projects: make(map[uuid.UUID]*models.Project)}
	for _, p := range projects {
		m.projects[p.ID] = p
	}
	return m
}

func (m *mockProjectRepo) Create(_ context.Context, owner models.ActorID, draft *models.ProjectDraft) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &models.Project{
		ID: uuid.New(), OwnerID: owner, Title: draft.Title, Status: draft.Status, Level: draft.Level,
		TeamLimit: draft.TeamLimit, CurrentMembers: 1, Active: true, CreatedAt: time.Now(),
	}
	m.projects[p.ID] = p
	return p, nil
}

func (m *mockProjectRepo) Get(_ context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *mockProjectRepo) SetActive(_ context.Context, id uuid.UUID, owner models.ActorID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok || p.OwnerID != owner {
		return apperrors.ErrNotFound
	}
	p.Active = active
	return nil
}

func (m *mockProjectRepo) IncrementMembers(_ context.Context, id uuid.UUID) (*models.Project, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, false, apperrors.ErrNotFound
	}
	took := false
	if p.TeamLimit == nil || p.CurrentMembers < *p.TeamLimit {
		p.CurrentMembers++
		took = true
	}
	c := *p
	return &c, took, nil
}

func (m *mockProjectRepo) ListFeedCandidates(_ context.Context, viewer models.ActorID, filters models.ProjectFilters, limit int) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Project
	for _, p := range m.projects {
		if !p.Active || p.OwnerID == viewer {
			continue
		}
		if filters.Level != "" && p.Level != filters.Level && p.Level != models.LevelAny {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockProfileRepo implements repositories.ProfileRepository in memory.
type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[models.ActorID]*models.Profile
	getErr   error
	saveErr  error
}

func newMockProfileRepo(profiles ...*models.Profile) *mockProfileRepo {
	m := &mockProfileRepo{profiles: make(map[models.ActorID]*models.Profile)}
	for _, p := range profiles {
		m.profiles[p.ActorID] = p
	}
	return m
}

func (m *mockProfileRepo) Ensure(_ context.Context, actorID models.ActorID, username string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[actorID]
	if !ok {
		p = &models.Profile{ActorID: actorID, Active: true}
		m.profiles[actorID] = p
	}
	if username != "" {
		p.Username = username
	}
	c := *p
	return &c, nil
}

func (m *mockProfileRepo) Get(_ context.Context, actorID models.ActorID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.profiles[actorID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *mockProfileRepo) Save(_ context.Context, actorID models.ActorID, draft *models.ProfileDraft) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	p := &models.Profile{
		ActorID: actorID, Username: draft.Username, DisplayName: draft.DisplayName, Role: draft.Role,
		Stack: draft.Stack, Goal: draft.Goal, About: draft.About, Active: true,
	}
	m.profiles[actorID] = p
	c := *p
	return &c, nil
}

func (m *mockProfileRepo) SetActive(_ context.Context, actorID models.ActorID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[actorID]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.Active = active
	return nil
}

func (m *mockProfileRepo) ListFeedCandidates(_ context.Context, viewer models.ActorID, filters models.ProfileFilters, limit int) ([]*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Profile
	for _, p := range m.profiles {
		if !p.Active || p.ActorID == viewer {
			continue
		}
		if filters.Role != "" && p.Role != filters.Role {
			continue
		}
		if filters.Goal != "" && p.Goal != filters.Goal {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type sentMessage struct {
	to  models.ActorID
	msg notify.Message
}

// mockDispatcher records messages. Actors in fail are reported as undeliverable.
type mockDispatcher struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[models.ActorID]bool
}

func (d *mockDispatcher) Notify(_ context.Context, to models.ActorID, msg notify.Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[to] {
		return false
	}
	d.sent = append(d.sent, sentMessage{to: to, msg: msg})
	return true
}

func (d *mockDispatcher) to(actor models.ActorID) []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notify.Message
	for _, s := range d.sent {
		if s.to == actor {
			out = append(out, s.msg)
		}
	}
	return out
}

// recordingNotifications implements NotificationService and remembers calls.
type recordingNotifications struct {
	created  []*models.Request
	resolved []*models.RespondResult
}

func (r *recordingNotifications) RequestCreated(_ context.Context, req *models.Request, _ *models.Project) {
	r.created = append(r.created, req)
}

func (r *recordingNotifications) RequestResolved(_ context.Context, res *models.RespondResult) {
	r.resolved = append(r.resolved, res)
}

// fixedClock returns a settable clock.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
