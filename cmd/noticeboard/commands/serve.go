package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mr-karan/noticeboard/internal/app"
	"github.com/urfave/cli/v3"
)

// serveCommand returns the serve subcommand
func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the noticeboard API server",
		Description: `Start the HTTP API server together with the reminder scheduler.

Examples:
   noticeboard serve
   noticeboard serve --config /etc/noticeboard/config.toml`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return a.runServe(ctx, cmd)
		},
	}
}

func (a *App) runServe(ctx context.Context, cmd *cli.Command) error {
	instance, err := app.New(app.Options{
		ConfigPath: cmd.String("config"),
		BuildInfo:  fmt.Sprintf("%s (%s)", a.Commit, a.Date),
		Version:    a.Version,
	})
	if err != nil {
		return err
	}

	if err := instance.Initialize(ctx); err != nil {
		return err
	}

	// Tear everything down once the signal context is cancelled. Start
	// returns when the listener closes.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := instance.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	return instance.Start()
}
