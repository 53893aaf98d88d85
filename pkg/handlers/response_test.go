package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
)

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()

	if err := ErrorResponse(rec, http.StatusBadRequest, "invalid_input", "bad"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["error"] != "invalid_input" || body["message"] != "bad" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	if err := WriteJSON(rec, http.StatusCreated, map[string]int{"n": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
}

func TestErrorWriter_Service(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantAlerts int
	}{
		{"invalid input", fmt.Errorf("%w: greeting too long", apperrors.ErrInvalidInput), http.StatusBadRequest, 0},
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, 0},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, 0},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, 0},
		{"storage failure", errors.New("connection refused"), http.StatusInternalServerError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerter := &mockAlerter{}
			ew := errorWriter{alerter: alerter, logger: zap.NewNop()}
			req := withActor(httptest.NewRequest(http.MethodGet, "/", nil), 5)
			rec := httptest.NewRecorder()

			ew.service(rec, req, tt.err, "op")

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if len(alerter.alerts) != tt.wantAlerts {
				t.Errorf("expected %d alerts, got %d", tt.wantAlerts, len(alerter.alerts))
			}
		})
	}
}

func TestErrorWriter_InternalHidesDetails(t *testing.T) {
	alerter := &mockAlerter{}
	ew := errorWriter{alerter: alerter, logger: zap.NewNop()}
	req := withActor(httptest.NewRequest(http.MethodGet, "/", nil), 5)
	rec := httptest.NewRecorder()

	ew.internal(rec, req, errors.New("pq: relation does not exist"), "op")

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["message"] != apologyMessage {
		t.Errorf("expected apology, got %q", body["message"])
	}
	if len(alerter.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerter.alerts))
	}
	if alerter.alerts[0].actor != 5 || alerter.alerts[0].errorType != "*errors.errorString" {
		t.Errorf("unexpected alert: %+v", alerter.alerts[0])
	}
}
