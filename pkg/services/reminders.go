package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linkit-hq/linkit-engine/pkg/database"
	"github.com/linkit-hq/linkit-engine/pkg/metrics"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/notify"
	"github.com/linkit-hq/linkit-engine/pkg/repositories"
)

// ReminderConfig controls the reminder pass.
type ReminderConfig struct {
	// AfterDays is how long after acceptance a pair is reminded.
	AfterDays int
	// Interval is both the schedule period and the width of the responded_at window,
	// so consecutive passes tile time and each request is picked up at most once.
	Interval time.Duration
	// Concurrency bounds parallel deliveries. Zero means 8.
	Concurrency int
}

// ReminderStats summarizes one pass.
type ReminderStats struct {
	Requests int
	Sent     int
	Failed   int
}

// ReminderService nudges both parties of requests accepted a few days ago.
type ReminderService interface {
	// RunOnce performs a single pass. Failed deliveries are counted, never returned.
	RunOnce(ctx context.Context) (ReminderStats, error)

	// Start schedules RunOnce every Interval until Stop.
	Start() error

	// Stop halts the schedule and returns a context done when a running pass finishes.
	Stop() context.Context
}

type reminderService struct {
	cfg        ReminderConfig
	scopes     database.ScopeProvider
	requests   repositories.RequestRepository
	dispatcher notify.Dispatcher
	renderer   *notify.Renderer
	now        func() time.Time
	logger     *zap.Logger
	cron       *cron.Cron
}

// NewReminderService creates the reminder task. A nil clock uses time.Now.
func NewReminderService(
	cfg ReminderConfig,
	scopes database.ScopeProvider,
	requests repositories.RequestRepository,
	dispatcher notify.Dispatcher,
	renderer *notify.Renderer,
	now func() time.Time,
	logger *zap.Logger,
) ReminderService {
	if now == nil {
		now = time.Now
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	logger = logger.Named("reminders")
	return &reminderService{
		cfg:        cfg,
		scopes:     scopes,
		requests:   requests,
		dispatcher: dispatcher,
		renderer:   renderer,
		now:        now,
		logger:     logger,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger.Sugar()}),
			cron.SkipIfStillRunning(cronLogger{logger.Sugar()}),
		)),
	}
}

var _ ReminderService = (*reminderService)(nil)

// Window returns the responded_at range covered by a pass at now.
func (s *reminderService) Window(now time.Time) (time.Time, time.Time) {
	cutoff := now.UTC().Add(-time.Duration(s.cfg.AfterDays) * 24 * time.Hour)
	return cutoff.Add(-s.cfg.Interval), cutoff
}

type reminderTarget struct {
	requestID string
	actor     models.ActorID
}

func (s *reminderService) RunOnce(ctx context.Context) (ReminderStats, error) {
	started := time.Now()
	defer metrics.ObserveReminderRun(started)

	windowStart, cutoff := s.Window(s.now())

	requests, err := s.loadDue(ctx, windowStart, cutoff)
	if err != nil {
		s.logger.Error("Failed to load accepted requests", zap.Error(err))
		return ReminderStats{}, err
	}

	stats := ReminderStats{Requests: len(requests)}
	if len(requests) == 0 {
		s.logger.Debug("No requests due for reminders",
			zap.Time("window_start", windowStart),
			zap.Time("cutoff", cutoff))
		return stats, nil
	}

	var targets []reminderTarget
	for _, req := range requests {
		targets = append(targets, reminderTarget{requestID: req.ID.String(), actor: req.FromActorID})
		if req.ToActorID != req.FromActorID {
			targets = append(targets, reminderTarget{requestID: req.ID.String(), actor: req.ToActorID})
		}
	}

	msg := s.renderer.Reminder()
	var sent, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for _, target := range targets {
		g.Go(func() error {
			if s.dispatcher.Notify(ctx, target.actor, msg) {
				sent.Add(1)
				metrics.RemindersSent.WithLabelValues(metrics.Result(true)).Inc()
				return nil
			}
			failed.Add(1)
			metrics.RemindersSent.WithLabelValues(metrics.Result(false)).Inc()
			s.logger.Debug("Failed to send reminder",
				zap.Int64("to", int64(target.actor)),
				zap.String("request_id", target.requestID))
			return nil
		})
	}
	_ = g.Wait()

	stats.Sent = int(sent.Load())
	stats.Failed = int(failed.Load())
	s.logger.Info("Reminders sent",
		zap.Int("success", stats.Sent),
		zap.Int("failed", stats.Failed),
		zap.Int("requests", stats.Requests))
	return stats, nil
}

// loadDue holds a connection only for the query; delivery runs without one.
func (s *reminderService) loadDue(ctx context.Context, start, end time.Time) ([]*models.Request, error) {
	scoped, cleanup, err := s.scopes.WithScope(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire scope: %w", err)
	}
	defer cleanup()

	return s.requests.ListAcceptedRespondedBetween(scoped, start, end)
}

func (s *reminderService) Start() error {
	schedule := fmt.Sprintf("@every %s", s.cfg.Interval)
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Interval)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Reminder scheduler started",
		zap.String("schedule", schedule),
		zap.Int("after_days", s.cfg.AfterDays))
	return nil
}

func (s *reminderService) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
