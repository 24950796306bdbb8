package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/noticeboard/internal/core"
	"github.com/mr-karan/noticeboard/pkg/models"
)

func (s *Server) handleGetDashboardAnalytics(c *fiber.Ctx) error {
	dashboard, err := core.GetDashboardAnalytics(c.Context(), s.sqlite, s.log, s.now(), s.loc)
	if err != nil {
		s.log.Error("failed to compute dashboard analytics", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to compute dashboard analytics")
	}
	return SendSuccess(c, fiber.StatusOK, dashboard)
}

func (s *Server) handleGetAlertAnalytics(c *fiber.Ctx) error {
	alertID, err := s.parseAlertIDParam(c)
	if err != nil {
		return err
	}

	analytics, err := core.GetAlertAnalytics(c.Context(), s.sqlite, s.log, alertID, s.now())
	if err != nil {
		if errors.Is(err, core.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to compute alert analytics", "alert_id", alertID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to compute alert analytics")
	}

	return SendSuccess(c, fiber.StatusOK, analytics)
}

func (s *Server) handleGetMyAnalytics(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to resolve current user")
	}

	analytics, err := core.GetUserAnalytics(c.Context(), s.sqlite, s.log, user.ID, s.now())
	if err != nil {
		s.log.Error("failed to compute user analytics", "user_id", user.ID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to compute user analytics")
	}

	return SendSuccess(c, fiber.StatusOK, analytics)
}

func (s *Server) handleGetUserAnalytics(c *fiber.Ctx) error {
	userID, err := s.parseUserIDParam(c)
	if err != nil {
		return err
	}

	analytics, err := core.GetUserAnalytics(c.Context(), s.sqlite, s.log, userID, s.now())
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to compute user analytics", "user_id", userID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to compute user analytics")
	}

	return SendSuccess(c, fiber.StatusOK, analytics)
}

func (s *Server) handleGetTeamAnalytics(c *fiber.Ctx) error {
	teamID, err := s.parseTeamIDParam(c)
	if err != nil {
		return err
	}

	analytics, err := core.GetTeamAnalytics(c.Context(), s.sqlite, s.log, teamID, s.now())
	if err != nil {
		if errors.Is(err, core.ErrTeamNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to compute team analytics", "team_id", teamID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to compute team analytics")
	}

	return SendSuccess(c, fiber.StatusOK, analytics)
}
