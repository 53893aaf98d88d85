package services

import (
	"context"
	"fmt"
	"time"

	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/repositories"
)

// QuotaTracker counts the requests an actor sent during the current UTC calendar day.
type QuotaTracker interface {
	CountToday(ctx context.Context, actor models.ActorID) (int, error)

	// Exceeded reports whether the actor already used the whole daily allowance.
	Exceeded(ctx context.Context, actor models.ActorID) (bool, error)

	Limit() int
}

type quotaTracker struct {
	requests repositories.RequestRepository
	limit    int
	now      func() time.Time
}

// NewQuotaTracker creates a tracker with the given daily limit. A nil clock uses time.Now.
func NewQuotaTracker(requests repositories.RequestRepository, limit int, now func() time.Time) QuotaTracker {
	if now == nil {
		now = time.Now
	}
	return &quotaTracker{requests: requests, limit: limit, now: now}
}

var _ QuotaTracker = (*quotaTracker)(nil)

// DayWindow returns [00:00 UTC, next 00:00 UTC) around t.
// The window resets at a fixed wall-clock instant, so a burst straddling midnight
// can spend two allowances in quick succession.
func DayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func (q *quotaTracker) CountToday(ctx context.Context, actor models.ActorID) (int, error) {
	start, end := DayWindow(q.now())
	count, err := q.requests.CountCreatedBetween(ctx, actor, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to count today's requests: %w", err)
	}
	return count, nil
}

func (q *quotaTracker) Exceeded(ctx context.Context, actor models.ActorID) (bool, error) {
	count, err := q.CountToday(ctx, actor)
	if err != nil {
		return false, err
	}
	return count >= q.limit, nil
}

func (q *quotaTracker) Limit() int {
	return q.limit
}
