// Package server implements the HTTP API on top of Fiber. Handlers
// stay thin: they parse transport concerns, call into core, and map
// domain errors to HTTP status codes.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"

	_ "github.com/mr-karan/noticeboard/docs"
	"github.com/mr-karan/noticeboard/internal/config"
	"github.com/mr-karan/noticeboard/internal/metrics"
	"github.com/mr-karan/noticeboard/internal/notify"
	"github.com/mr-karan/noticeboard/internal/sqlite"
)

// ServerOptions holds dependencies for creating a new Server.
type ServerOptions struct {
	Config   *config.Config
	SQLite   *sqlite.DB
	Registry *notify.Registry
	Logger   *slog.Logger

	// Location is the timezone used for day-boundary operations such
	// as snoozing. Defaults to UTC.
	Location *time.Location

	// Now returns the current time. Tests inject a fixed clock here.
	Now func() time.Time

	BuildInfo string
	Version   string
}

// Server hosts the HTTP API.
type Server struct {
	app      *fiber.App
	config   *config.Config
	sqlite   *sqlite.DB
	registry *notify.Registry
	log      *slog.Logger
	loc      *time.Location
	now      func() time.Time

	buildInfo string
	version   string
}

// New creates a Server with all middleware and routes registered. Call
// Start to begin serving.
func New(opts ServerOptions) *Server {
	log := opts.Logger.With("component", "server")

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	timeout := opts.Config.Server.HTTPServerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:               "noticeboard",
		DisableStartupMessage: true,
		ReadTimeout:           timeout,
		WriteTimeout:          timeout,
	})

	s := &Server{
		app:       app,
		config:    opts.Config,
		sqlite:    opts.SQLite,
		registry:  opts.Registry,
		log:       log,
		loc:       loc,
		now:       now,
		buildInfo: opts.BuildInfo,
		version:   opts.Version,
	}

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(s.requestLogger())

	s.registerRoutes()

	return s
}

// registerRoutes wires every endpoint. Groups carry the auth
// middleware; admin-only routes stack requireAdmin on top.
func (s *Server) registerRoutes() {
	s.app.Get("/", s.handleServiceInfo)
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", metrics.Handler())
	s.app.Get("/swagger/*", swagger.HandlerDefault)

	api := s.app.Group("/api/v1")

	// Login maps an email to a user and must stay reachable without an
	// X-User-ID header, so it is registered before the authenticated
	// groups below.
	api.Post("/users/login", s.handleLogin)

	users := api.Group("/users", s.requireAuth)
	users.Get("/me", s.handleGetCurrentUser)
	users.Put("/me", s.handleUpdateCurrentUser)
	users.Post("/", s.requireAdmin, s.handleCreateUser)
	users.Get("/", s.requireAdmin, s.handleListUsers)
	users.Get("/:userID", s.requireAdmin, s.handleGetUser)
	users.Put("/:userID", s.requireAdmin, s.handleUpdateUser)
	users.Delete("/:userID", s.requireAdmin, s.handleDeactivateUser)

	teams := api.Group("/teams", s.requireAuth)
	teams.Post("/", s.requireAdmin, s.handleCreateTeam)
	teams.Get("/", s.handleListTeams)
	teams.Get("/:teamID", s.handleGetTeam)
	teams.Put("/:teamID", s.requireAdmin, s.handleUpdateTeam)
	teams.Delete("/:teamID", s.requireAdmin, s.handleDeleteTeam)
	teams.Get("/:teamID/members", s.handleListTeamMembers)
	teams.Post("/:teamID/members/:userID", s.requireAdmin, s.handleAddTeamMember)
	teams.Delete("/:teamID/members/:userID", s.requireAdmin, s.handleRemoveTeamMember)

	alerts := api.Group("/alerts", s.requireAuth)
	alerts.Get("/", s.handleListMyAlerts)
	alerts.Get("/unread", s.handleListUnreadAlerts)
	alerts.Get("/count", s.handleGetAlertCounts)
	alerts.Post("/", s.requireAdmin, s.handleCreateAlert)
	alerts.Get("/admin", s.requireAdmin, s.handleListAlertsAdmin)
	alerts.Get("/admin/:alertID", s.requireAdmin, s.handleGetAlertAdmin)
	alerts.Put("/:alertID", s.requireAdmin, s.handleUpdateAlert)
	alerts.Delete("/:alertID", s.requireAdmin, s.handleArchiveAlert)
	alerts.Post("/:alertID/read", s.handleMarkAlertRead)
	alerts.Post("/:alertID/snooze", s.handleSnoozeAlert)

	notifications := api.Group("/notifications", s.requireAuth)
	notifications.Get("/", s.handleListNotifications)
	notifications.Get("/unread", s.handleListUnreadNotifications)
	notifications.Post("/:deliveryID/read", s.handleMarkNotificationRead)

	analytics := api.Group("/analytics", s.requireAuth)
	analytics.Get("/me", s.handleGetMyAnalytics)
	analytics.Get("/dashboard", s.requireAdmin, s.handleGetDashboardAnalytics)
	analytics.Get("/alerts/:alertID", s.requireAdmin, s.handleGetAlertAnalytics)
	analytics.Get("/users/:userID", s.requireAdmin, s.handleGetUserAnalytics)
	analytics.Get("/teams/:teamID", s.requireAdmin, s.handleGetTeamAnalytics)
}

// Start begins serving HTTP requests and blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info("http server listening", "address", s.config.Server.Listen)
	return s.app.Listen(s.config.Server.Listen)
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Debug("shutting down http server")
	return s.app.ShutdownWithContext(ctx)
}
