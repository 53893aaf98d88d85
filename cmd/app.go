package cmd

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for golang-migrate
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/catalog"
	"github.com/linkit-hq/linkit-engine/pkg/config"
	"github.com/linkit-hq/linkit-engine/pkg/database"
	"github.com/linkit-hq/linkit-engine/pkg/logging"
	"github.com/linkit-hq/linkit-engine/pkg/notify"
	"github.com/linkit-hq/linkit-engine/pkg/repositories"
	"github.com/linkit-hq/linkit-engine/pkg/services"
	"github.com/linkit-hq/linkit-engine/pkg/session"
)

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.DB
	redis  *redis.Client

	catalog    *catalog.Catalog
	renderer   *notify.Renderer
	dispatcher notify.Dispatcher
	sessions   session.Store

	profileRepo repositories.ProfileRepository
	projectRepo repositories.ProjectRepository
	requestRepo repositories.RequestRepository

	alerter       services.OperatorAlerter
	notifications services.NotificationService
	profiles      services.ProfileService
	projects      services.ProjectService
	requests      services.RequestService
	feeds         services.FeedService
	reminders     services.ReminderService
}

// loadBase reads configuration and builds the logger.
func loadBase(version string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(version, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// newApp connects to storage and wires every service.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db

	a.redis, err = database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if a.redis != nil {
		a.sessions = session.NewRedisStore(a.redis, cfg.Feed.SessionTTL())
		logger.Info("Feed sessions stored in Redis", zap.String("addr", cfg.Redis.Addr()))
	} else {
		a.sessions = session.NewMemoryStore(cfg.Feed.SessionTTL())
		logger.Info("Feed sessions stored in memory")
	}

	if cfg.Telegram.BotToken != "" {
		a.dispatcher = notify.NewTelegramDispatcher(notify.TelegramConfig{
			APIURL:        cfg.Telegram.APIURL,
			BotToken:      cfg.Telegram.BotToken,
			RatePerSecond: cfg.Telegram.RatePerSecond,
		}, logger)
	} else {
		logger.Warn("BOT_TOKEN not set, outbound messages are only logged")
		a.dispatcher = notify.NewLogDispatcher(logger)
	}

	a.catalog = catalog.Default()
	a.renderer = notify.NewRenderer(a.catalog)

	a.profileRepo = repositories.NewProfileRepository()
	a.projectRepo = repositories.NewProjectRepository()
	a.requestRepo = repositories.NewRequestRepository()

	a.alerter = services.NewOperatorAlerter(cfg.AdminChatID, a.dispatcher, a.renderer, logger)
	a.notifications = services.NewNotificationService(a.profileRepo, a.dispatcher, a.renderer, logger)
	a.profiles = services.NewProfileService(a.profileRepo, a.catalog, logger)
	a.projects = services.NewProjectService(a.projectRepo, logger)
	quota := services.NewQuotaTracker(a.requestRepo, cfg.Limits.MaxRequestsPerDay, nil)
	a.requests = services.NewRequestService(database.NewTransactor(), a.requestRepo, a.projectRepo, quota, a.notifications, nil, logger)
	a.feeds = services.NewFeedService(a.profileRepo, a.projectRepo, a.requestRepo, a.sessions, a.catalog, cfg.Feed.Size, logger)
	a.reminders = services.NewReminderService(services.ReminderConfig{
		AfterDays: cfg.Reminders.AfterDays,
		Interval:  cfg.Reminders.Interval(),
	}, database.NewScopeProvider(db), a.requestRepo, a.dispatcher, a.renderer, nil, logger)

	return a, nil
}

// Close releases storage connections.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// openMigrationDB opens a database/sql handle, which golang-migrate requires.
func openMigrationDB(cfg *config.Config) (*sql.DB, error) {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	return sqlDB, nil
}
