package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linkit-hq/linkit-engine/pkg/auth"
	"github.com/linkit-hq/linkit-engine/pkg/database"
	"github.com/linkit-hq/linkit-engine/pkg/handlers"
	"github.com/linkit-hq/linkit-engine/pkg/middleware"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP API and the reminder schedule",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), version)
		},
	}
}

func runServe(ctx context.Context, version string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadBase(version)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.Int("max_requests_per_day", cfg.Limits.MaxRequestsPerDay),
		zap.Int("reminder_after_days", cfg.Reminders.AfterDays),
		zap.Duration("reminder_interval", cfg.Reminders.Interval()))

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sqlDB, err := openMigrationDB(cfg)
	if err != nil {
		return err
	}
	err = database.RunMigrations(sqlDB, logger)
	_ = sqlDB.Close()
	if err != nil {
		return err
	}

	authMiddleware := auth.NewMiddleware(auth.NewAuthService(auth.Config{
		EnableVerification: cfg.Auth.EnableVerification,
		Secret:             cfg.Auth.JWTSecret,
	}, logger), logger)
	scope := database.WithScopeContext(a.db, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewProfileHandler(a.profiles, a.alerter, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewProjectsHandler(a.projects, a.alerter, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewRequestsHandler(a.requests, a.alerter, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewFeedsHandler(a.feeds, a.renderer, a.alerter, logger).RegisterRoutes(mux, authMiddleware, scope)

	var handler http.Handler = mux
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.Recover(a.alerter, logger)(handler)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := a.reminders.Start(); err != nil {
		return fmt.Errorf("failed to start reminders: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting linkit-engine", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		select {
		case <-a.reminders.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn("Reminder pass still running at shutdown deadline")
		}
		return err
	})

	return g.Wait()
}
