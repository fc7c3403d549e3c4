package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/integration/mojito"
	"github.com/spec-kit/helpdesk-service/internal/mailer"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// container holds the wired object graph shared by the commands.
type container struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *observability.Metrics
	postgres   *persistence.Postgres
	redis      *persistence.Redis
	dispatcher events.Dispatcher
	hub        *events.Hub
	bridge     *events.RedisBridge

	profiles repository.ProfileRepository
	settings repository.SettingsRepository

	queries       *service.TicketQueryService
	changes       *service.TicketChangeService
	comments      *service.CommentService
	notifications *service.NotificationService
	sla           *service.SLAService
	autoClose     *service.AutoCloseService
	webhook       *service.WebhookService
	sync          *service.SyncService
	email         *service.EmailDispatchService
}

func loadBase() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func newContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*container, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	rdb := persistence.NewRedis(cfg.Redis, logger)

	c := &container{
		cfg:        cfg,
		logger:     logger,
		metrics:    observability.NewMetrics(),
		postgres:   pg,
		redis:      rdb,
		dispatcher: events.NewInMemoryDispatcher(logger),
		hub:        events.NewHub(),
		bridge:     events.NewRedisBridge(rdb.Client, cfg.Redis.RealtimeChannel, logger),
	}
	events.RegisterRealtime(c.dispatcher, c.hub, c.bridge, logger)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	entityRepo := repository.NewEntityRepository(pool)
	labelRepo := repository.NewLabelRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	c.profiles = repository.NewProfileRepository(pool)
	c.settings = repository.NewSettingsRepository(pool)

	mail := mailer.New(cfg.SMTP, logger)
	renderer := mailer.NewRenderer()

	c.queries = service.NewTicketQueryService(service.TicketQueryDependencies{
		TicketRepo:       ticketRepo,
		StageHistoryRepo: repository.NewStageHistoryRepository(pool),
		LabelRepo:        labelRepo,
		AttachmentRepo:   attachmentRepo,
		Cache:            cache.NewTicketCache(rdb.Client, cfg.Redis.TicketCacheTTL),
		Logger:           logger,
	})
	c.changes = service.NewTicketChangeService(service.TicketChangeDependencies{
		TicketRepo:       ticketRepo,
		LabelRepo:        labelRepo,
		EntityRepo:       entityRepo,
		NotificationRepo: notificationRepo,
		Publisher:        c.dispatcher,
	})
	c.comments = service.NewCommentService(service.CommentDependencies{
		TicketRepo:       ticketRepo,
		CommentRepo:      commentRepo,
		NotificationRepo: notificationRepo,
		Publisher:        c.dispatcher,
		Logger:           logger,
	})
	c.sla = service.NewSLAService(repository.NewSLARepository(pool))
	c.autoClose = service.NewAutoCloseService(service.AutoCloseDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		ProfileRepo: c.profiles,
		Mailer:      mail,
		Publisher:   c.dispatcher,
		Metrics:     c.metrics,
		Logger:      logger,
		BaseURL:     cfg.SMTP.BaseURL,
	})
	c.webhook = service.NewWebhookService(service.WebhookDependencies{
		TicketRepo:     ticketRepo,
		EntityRepo:     entityRepo,
		AttachmentRepo: attachmentRepo,
		Sanitizer:      renderer,
		Publisher:      c.dispatcher,
		Metrics:        c.metrics,
		Logger:         logger,
		Source:         cfg.Mojito.Source,
	})
	c.sync = service.NewSyncService(service.SyncDependencies{
		Config:      cfg.Mojito,
		Client:      mojito.NewClient(cfg.Mojito, cfg.App.Origin, logger),
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		ProfileRepo: c.profiles,
		EntityRepo:  entityRepo,
		Publisher:   c.dispatcher,
		Metrics:     c.metrics,
		Logger:      logger,
	})
	c.email = service.NewEmailDispatchService(service.EmailDispatchDependencies{
		NotificationRepo: notificationRepo,
		Renderer:         renderer,
		Mailer:           mail,
		Metrics:          c.metrics,
		Logger:           logger,
		BaseURL:          cfg.SMTP.BaseURL,
	})
	c.notifications = service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		Dispatcher:       c.dispatcher,
		EmailDispatch:    c.email,
		Sync:             c.sync,
		Cache:            c.queries,
		Logger:           logger,
	})
	return c, nil
}

func (c *container) Close() {
	c.redis.Close()
	c.postgres.Close()
}
