package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr-karan/noticeboard/internal/config"
	"github.com/mr-karan/noticeboard/internal/notify"
	"github.com/mr-karan/noticeboard/internal/scheduler"
	"github.com/mr-karan/noticeboard/internal/server"
	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/logger"
)

// App represents the core application context, holding dependencies and configuration.
type App struct {
	Config    *config.Config
	SQLite    *sqlite.DB
	Logger    *slog.Logger
	Registry  *notify.Registry
	Scheduler *scheduler.Manager
	Location  *time.Location
	server    *server.Server
	BuildInfo string
	Version   string
}

// Options contains configuration needed when creating a new App instance.
type Options struct {
	ConfigPath string
	BuildInfo  string
	Version    string
}

// New creates and configures a new App instance.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	app := &App{
		Config:    cfg,
		Logger:    logger.New(cfg.Logging.Level == "debug"),
		BuildInfo: opts.BuildInfo,
		Version:   opts.Version,
	}

	return app, nil
}

// Initialize sets up application components: the database, the notifier
// registry, the reminder scheduler, and the HTTP server.
func (a *App) Initialize(ctx context.Context) error {
	var err error

	// Initialize SQLite database.
	sqliteOpts := sqlite.Options{
		Config: a.Config.SQLite,
		Logger: a.Logger,
	}
	a.SQLite, err = sqlite.New(sqliteOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize sqlite: %w", err)
	}

	// Resolve the timezone used for snooze expiry and daily analytics
	// windows. An unknown zone is a configuration error, not something
	// to paper over at runtime.
	a.Location, err = a.Config.Location()
	if err != nil {
		return err
	}

	// Register delivery channels. In-app is the only built-in channel;
	// additional notifiers plug in here.
	a.Registry = notify.NewRegistry()
	a.Registry.Register(notify.NewInApp(a.Logger))

	a.Scheduler = scheduler.NewManager(scheduler.Options{
		Config:   a.Config.Scheduler,
		DB:       a.SQLite,
		Logger:   a.Logger,
		Registry: a.Registry,
	})

	serverOpts := server.ServerOptions{
		Config:    a.Config,
		SQLite:    a.SQLite,
		Registry:  a.Registry,
		Logger:    a.Logger,
		Location:  a.Location,
		BuildInfo: a.BuildInfo,
		Version:   a.Version,
	}
	a.server = server.New(serverOpts)

	// Start the reminder and retry loop.
	a.Scheduler.Start(ctx)

	return nil
}

// Start begins the application's main execution loop (starts the HTTP server).
func (a *App) Start() error {
	if a.server == nil {
		return fmt.Errorf("server not initialized")
	}
	a.Logger.Info("starting server")
	return a.server.Start()
}

// Shutdown gracefully stops all application components with timeouts.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	// Ensure a shutdown context with timeout exists.
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	serverCtx, serverCancel := context.WithTimeout(ctx, 5*time.Second)
	defer serverCancel()

	// Stop the scheduler first so no new deliveries are created while
	// the server drains.
	if a.Scheduler != nil {
		a.Logger.Info("stopping scheduler")
		a.Scheduler.Stop()
	}

	// Shutdown server to stop accepting new requests.
	if a.server != nil {
		a.Logger.Info("shutting down HTTP server")

		serverDone := make(chan error, 1)
		go func() {
			serverDone <- a.server.Shutdown(serverCtx)
		}()

		select {
		case err := <-serverDone:
			if err != nil {
				a.Logger.Error("error shutting down server", "error", err)
			} else {
				a.Logger.Info("HTTP server shut down successfully")
			}
		case <-serverCtx.Done():
			a.Logger.Warn("timeout shutting down HTTP server, continuing")
		}
	}

	// Close database connections last.
	if a.SQLite != nil {
		a.Logger.Info("closing SQLite connection")
		if err := a.SQLite.Close(); err != nil {
			a.Logger.Error("error closing SQLite", "error", err)
		} else {
			a.Logger.Info("SQLite connection closed successfully")
		}
	}

	a.Logger.Info("application shutdown complete")
	return nil
}
