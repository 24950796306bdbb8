package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mr-karan/noticeboard/internal/config"
	"github.com/urfave/cli/v3"
)

// configCommand returns the config subcommand
func (a *App) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "manage server configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "show the effective configuration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return a.runConfigShow(ctx, cmd)
				},
			},
			{
				Name:  "init",
				Usage: "generate a config file interactively",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return a.runConfigInit(ctx, cmd)
				},
			},
		},
	}
}

func (a *App) runConfigShow(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	fmt.Printf("Listen:             %s\n", cfg.Server.Listen)
	fmt.Printf("Timezone:           %s\n", cfg.Server.Timezone)
	fmt.Printf("HTTP Timeout:       %s\n", cfg.Server.HTTPServerTimeout)
	fmt.Printf("SQLite Path:        %s\n", cfg.SQLite.Path)
	fmt.Printf("Scheduler Enabled:  %t\n", cfg.Scheduler.Enabled)
	fmt.Printf("Scheduler Interval: %s\n", cfg.Scheduler.Interval)
	fmt.Printf("Retry Enabled:      %t\n", cfg.Scheduler.RetryEnabled)
	fmt.Printf("Reminder Interval:  %dh\n", cfg.Alerts.DefaultReminderIntervalHours)
	fmt.Printf("Log Level:          %s\n", cfg.Logging.Level)

	return nil
}

func (a *App) runConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	cfg := config.Default()
	listen := cfg.Server.Listen
	timezone := cfg.Server.Timezone
	dbPath := cfg.SQLite.Path

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("Address the HTTP server binds to").
				Placeholder(":8080").
				Value(&listen),
			huh.NewInput().
				Title("Timezone").
				Description("IANA zone used for snooze expiry and daily windows").
				Placeholder("UTC").
				Value(&timezone),
			huh.NewInput().
				Title("Database Path").
				Description("Path of the SQLite database file").
				Placeholder("noticeboard.db").
				Value(&dbPath),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	if listen != "" {
		cfg.Server.Listen = listen
	}
	if timezone != "" {
		cfg.Server.Timezone = timezone
	}
	if dbPath != "" {
		cfg.SQLite.Path = dbPath
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("\n%s Configuration written to %s\n", successStyle.Render("✓"), path)
	return nil
}
