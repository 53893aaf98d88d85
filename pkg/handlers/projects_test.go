package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
	"github.com/linkit-hq/linkit-engine/pkg/models"
)

func TestProjectsHandler_Create(t *testing.T) {
	svc := &mockProjectService{project: &models.Project{ID: uuid.New(), Title: "LinkIT", ChatLink: "https://t.me/+secret"}}
	h := NewProjectsHandler(svc, &mockAlerter{}, zap.NewNop())

	body := `{"title":"LinkIT","idea":"match devs","status":"idea","level":"any","chat_link":"https://t.me/+secret"}`
	rec := httptest.NewRecorder()
	h.Create(rec, withActor(httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(body)), 9))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if svc.owner != 9 {
		t.Errorf("expected owner 9, got %d", svc.owner)
	}
	if strings.Contains(rec.Body.String(), "t.me") {
		t.Error("chat link must not be serialized")
	}
}

func TestProjectsHandler_GetNotFound(t *testing.T) {
	h := NewProjectsHandler(&mockProjectService{err: apperrors.ErrNotFound}, &mockAlerter{}, zap.NewNop())

	id := uuid.New()
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/projects/"+id.String(), nil), 9)
	req.SetPathValue("pid", id.String())
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestProjectsHandler_SetActive(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"owner", nil, http.StatusNoContent},
		{"not owner", apperrors.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockProjectService{err: tt.err}
			h := NewProjectsHandler(svc, &mockAlerter{}, zap.NewNop())

			id := uuid.New()
			req := withActor(httptest.NewRequest(http.MethodPatch, "/api/projects/"+id.String()+"/active", strings.NewReader(`{"active":true}`)), 9)
			req.SetPathValue("pid", id.String())
			rec := httptest.NewRecorder()
			h.SetActive(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if svc.owner != 9 || svc.active == nil || !*svc.active {
				t.Errorf("expected owner 9 and active=true, got owner %d", svc.owner)
			}
		})
	}
}
