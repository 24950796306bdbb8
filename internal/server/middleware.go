package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mr-karan/noticeboard/internal/core"
	"github.com/mr-karan/noticeboard/internal/metrics"
	"github.com/mr-karan/noticeboard/pkg/models"
)

// userContextKey is the Locals key under which requireAuth stores the
// authenticated user.
const userContextKey = "user"

// requireAuth resolves the calling user from the X-User-ID header and
// stores it in the request context. The header carries a plain user ID;
// there are no tokens to validate.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get("X-User-ID")
	if header == "" {
		return SendErrorWithType(c, fiber.StatusUnauthorized, "X-User-ID header is required", models.AuthenticationErrorType)
	}

	userID, err := core.ParseUserID(header)
	if err != nil {
		return SendErrorWithType(c, fiber.StatusUnauthorized, "Invalid user ID format", models.AuthenticationErrorType)
	}

	user, err := core.GetUser(c.Context(), s.sqlite, s.log, userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return SendErrorWithType(c, fiber.StatusUnauthorized, "User not found or inactive", models.AuthenticationErrorType)
		}
		s.log.Error("failed to resolve authenticated user", "user_id", userID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to authenticate request")
	}
	if !user.IsActive {
		return SendErrorWithType(c, fiber.StatusUnauthorized, "User not found or inactive", models.AuthenticationErrorType)
	}

	c.Locals(userContextKey, user)
	return c.Next()
}

// requireAdmin rejects callers without the admin role. It must run
// after requireAuth.
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	user, ok := c.Locals(userContextKey).(*models.User)
	if !ok {
		s.log.Error("user not found in context despite requireAuth middleware")
		return SendError(c, fiber.StatusInternalServerError, "Failed to authenticate request")
	}
	if !user.IsAdmin() {
		return SendErrorWithType(c, fiber.StatusForbidden, "Admin privileges required", models.AuthorizationErrorType)
	}
	return c.Next()
}

// currentUser fetches the authenticated user stored by requireAuth. The
// bool is false only if the middleware chain is misconfigured.
func (s *Server) currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(userContextKey).(*models.User)
	if !ok {
		s.log.Error("user not found in context despite requireAuth middleware")
		return nil, false
	}
	return user, true
}

// requestLogger emits a debug log line per request and feeds the HTTP
// metrics. The route pattern, not the raw path, is recorded so metric
// cardinality stays bounded.
func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := uuid.NewString()[:8]
		c.Locals("request_id", requestID)

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()
		metrics.RecordHTTPRequest(c.Method(), c.Route().Path, status, duration)
		s.log.Debug("http request",
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", duration.Milliseconds(),
		)
		return err
	}
}
