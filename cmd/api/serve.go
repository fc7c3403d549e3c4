package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadBase()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c, err := newContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer c.Close()

	go func() {
		err := c.bridge.Run(ctx, func(e events.Event) { c.hub.Broadcast(e) })
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("realtime bridge stopped", zap.Error(err))
		}
	}()

	pool := worker.StartNotificationWorker(ctx, c.notifications, logger)
	defer pool.Stop()

	if cfg.Jobs.AutoCloseEnabled {
		scheduler, err := worker.NewScheduler(logger)
		if err != nil {
			return err
		}
		job := worker.AutoCloseJob{Settings: c.settings, Service: c.autoClose}
		if err := scheduler.RegisterAutoClose(cfg.Jobs.AutoCloseInterval, job); err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				logger.Warn("scheduler shutdown", zap.Error(err))
			}
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, c.metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": c.postgres,
			"redis":    c.redis,
		}),
		Tickets:        handlers.NewTicketsHandler(c.queries, c.changes, c.sla),
		Comments:       handlers.NewCommentsHandler(c.comments),
		Notifications:  handlers.NewNotificationsHandler(c.notifications, c.email),
		Webhook:        handlers.NewWebhookHandler(c.settings, c.webhook, cfg.App.Origin, logger),
		Jobs:           handlers.NewJobsHandler(c.settings, c.autoClose),
		Sync:           handlers.NewSyncHandler(c.sync),
		Realtime:       handlers.NewRealtimeHandler(ctx, c.hub, logger),
		Metrics:        c.metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes), c.profiles),
		WebhookSecret:  cfg.Webhook.Secret,
		JobsSecret:     cfg.Jobs.Secret,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Error("fiber listen", zap.Error(err))
			cancel()
		}
	}()

	waitForShutdown(ctx, logger)
	cancel()
	return app.Shutdown()
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down")
	}
}
