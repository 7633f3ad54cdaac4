package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/kvhuynh79-oss/sda-management-sub004/cmd/app/commands"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/app"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "verify-audit-logs",
			Usage: "Verify the hash chains of the audit log",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "organization",
					Aliases: []string{"o"},
					Usage:   "Organization ID to verify (omit to verify every organization)",
				},
				&cli.StringFlag{
					Name:    "mode",
					Aliases: []string{"m"},
					Value:   "full",
					Usage:   "Verification mode: 'full' or 'incremental'",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				integrityAuditorUseCase, err := container.IntegrityAuditorUseCase()
				if err != nil {
					return err
				}

				return commands.RunVerifyAuditLogs(
					ctx,
					integrityAuditorUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("organization"),
					cmd.String("mode"),
					cmd.String("format"),
				)
			},
		},
	}
}
