package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

func newAutoCloseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auto-close",
		Short: "Run one auto-close sweep over pending_validation tickets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadBase()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			c, err := newContainer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			settings, err := c.settings.Get(ctx)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			result, err := c.autoClose.Run(ctx, settings)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadBase()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}

func newIssueTokenCommand() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "issue-token <profile-id>",
		Short: "Issue an access token for an existing profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadBase()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			r := domain.Role(role)
			switch r {
			case domain.RoleAdmin, domain.RoleAgent, domain.RoleDeveloper, domain.RoleClient:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
			token, expiresAt, err := tm.GenerateToken(args[0], r)
			if err != nil {
				return err
			}
			logger.Info("token issued", zap.String("profile_id", args[0]), zap.String("role", role))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires %s\n", token, expiresAt.Format(time.RFC3339))
			return err
		},
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAgent), "role claim (admin, agent, developer, client)")
	return cmd
}
