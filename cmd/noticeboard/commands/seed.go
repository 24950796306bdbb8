package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/mr-karan/noticeboard/internal/config"
	"github.com/mr-karan/noticeboard/internal/core"
	"github.com/mr-karan/noticeboard/internal/notify"
	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/logger"
	"github.com/urfave/cli/v3"
)

// seedCommand returns the seed subcommand
func (a *App) seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load demo teams, users and alerts",
		Description: `Populate the database with demo data for local evaluation.

Seeding is idempotent: running it against an already seeded database
is a no-op.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return a.runSeed(ctx, cmd)
		},
	}
}

func (a *App) runSeed(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.New(cmd.Bool("debug"))

	db, err := sqlite.New(sqlite.Options{Config: cfg.SQLite, Logger: lg})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	registry := notify.NewRegistry()
	registry.Register(notify.NewInApp(lg))

	if err := core.SeedDemoData(ctx, db, lg, registry, cfg.Alerts.DefaultReminderIntervalHours, time.Now()); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}

	fmt.Printf("%s Demo data seeded into %s\n", successStyle.Render("✓"), cfg.SQLite.Path)
	return nil
}
