package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/noticeboard/internal/core"
	"github.com/mr-karan/noticeboard/pkg/models"
)

// maxListLimit caps the page size of every listing endpoint.
const maxListLimit = 100

func (s *Server) handleCreateAlert(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to authenticate request")
	}

	var req models.CreateAlertRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	alert, err := core.CreateAlert(c.Context(), s.sqlite, s.log, s.registry, &req, user.ID, s.config.Alerts.DefaultReminderIntervalHours, s.now())
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAlertRequest), errors.Is(err, core.ErrInvalidTarget):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		default:
			s.log.Error("failed to create alert", "created_by", user.ID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to create alert", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusCreated, alert)
}

func (s *Server) handleListAlertsAdmin(c *fiber.Ctx) error {
	var filter models.AlertFilter

	if v := c.Query("severity"); v != "" {
		severity := models.AlertSeverity(v)
		if !severity.IsValid() {
			return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid severity parameter", models.ValidationErrorType)
		}
		filter.Severity = severity
	}
	if v := c.Query("status"); v != "" {
		status := models.AlertStatus(v)
		if !status.IsValid() {
			return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid status parameter", models.ValidationErrorType)
		}
		filter.Status = status
	}
	if v := c.Query("created_by"); v != "" {
		createdBy, err := core.ParseUserID(v)
		if err != nil {
			return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid created_by parameter", models.ValidationErrorType)
		}
		filter.CreatedBy = createdBy
	}
	filter.Limit, filter.Offset = parseListWindow(c)

	alerts, err := core.ListAlerts(c.Context(), s.sqlite, filter)
	if err != nil {
		s.log.Error("failed to list alerts", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list alerts", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, alerts)
}

func (s *Server) handleGetAlertAdmin(c *fiber.Ctx) error {
	alertID, err := s.parseAlertIDParam(c)
	if err != nil {
		return err
	}

	alert, err := core.GetAlertWithStats(c.Context(), s.sqlite, s.log, alertID, s.now())
	if err != nil {
		if errors.Is(err, core.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get alert", "alert_id", alertID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve alert", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, alert)
}

func (s *Server) handleUpdateAlert(c *fiber.Ctx) error {
	alertID, err := s.parseAlertIDParam(c)
	if err != nil {
		return err
	}

	var req models.UpdateAlertRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	updated, err := core.UpdateAlert(c.Context(), s.sqlite, s.log, s.registry, alertID, &req, s.now())
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAlertRequest), errors.Is(err, core.ErrInvalidTarget):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrAlertNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		case errors.Is(err, core.ErrAlertArchived):
			return SendErrorWithType(c, fiber.StatusConflict, "Alert is archived", models.ConflictErrorType)
		default:
			s.log.Error("failed to update alert", "alert_id", alertID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to update alert", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusOK, updated)
}

func (s *Server) handleArchiveAlert(c *fiber.Ctx) error {
	alertID, err := s.parseAlertIDParam(c)
	if err != nil {
		return err
	}

	if _, err := core.ArchiveAlert(c.Context(), s.sqlite, s.log, alertID, s.now()); err != nil {
		switch {
		case errors.Is(err, core.ErrAlertNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		case errors.Is(err, core.ErrAlertArchived):
			return SendErrorWithType(c, fiber.StatusConflict, "Alert is already archived", models.ConflictErrorType)
		default:
			s.log.Error("failed to archive alert", "alert_id", alertID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to archive alert", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Alert archived"})
}

func (s *Server) handleListMyAlerts(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to authenticate request")
	}

	filter, err := s.parseFeedFilter(c)
	if err != nil {
		return err
	}

	feed, err := core.ListRecipientFeed(c.Context(), s.sqlite, user.ID, filter, s.now())
	if err != nil {
		s.log.Error("failed to list alerts for user", "user_id", user.ID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list alerts", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, feed)
}

func (s *Server) handleListUnreadAlerts(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to authenticate request")
	}

	filter, err := s.parseFeedFilter(c)
	if err != nil {
		return err
	}
	unread := true
	filter.Unread = &unread

	feed, err := core.ListRecipientFeed(c.Context(), s.sqlite, user.ID, filter, s.now())
	if err != nil {
		s.log.Error("failed to list unread alerts", "user_id", user.ID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list alerts", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, feed)
}

func (s *Server) handleGetAlertCounts(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to authenticate request")
	}

	counts, err := core.GetRecipientCounts(c.Context(), s.sqlite, user.ID, s.now())
	if err != nil {
		s.log.Error("failed to get alert counts", "user_id", user.ID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to get alert counts", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, counts)
}

func (s *Server) handleMarkAlertRead(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to authenticate request")
	}
	alertID, err := s.parseAlertIDParam(c)
	if err != nil {
		return err
	}

	state, err := core.MarkAlertRead(c.Context(), s.sqlite, s.log, alertID, user.ID, s.now())
	if err != nil {
		if errors.Is(err, core.ErrRecipientStateNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to mark alert read", "alert_id", alertID, "user_id", user.ID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to mark alert read", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, state)
}

func (s *Server) handleSnoozeAlert(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to authenticate request")
	}
	alertID, err := s.parseAlertIDParam(c)
	if err != nil {
		return err
	}

	state, err := core.SnoozeAlert(c.Context(), s.sqlite, s.log, alertID, user.ID, s.now(), s.loc)
	if err != nil {
		if errors.Is(err, core.ErrRecipientStateNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to snooze alert", "alert_id", alertID, "user_id", user.ID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to snooze alert", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, state)
}

func (s *Server) parseAlertIDParam(c *fiber.Ctx) (models.AlertID, error) {
	alertID, err := core.ParseAlertID(c.Params("alertID"))
	if err != nil {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "Invalid alert_id parameter", models.ValidationErrorType)
	}
	return alertID, nil
}

func (s *Server) parseFeedFilter(c *fiber.Ctx) (models.RecipientFeedFilter, error) {
	var filter models.RecipientFeedFilter

	if v := c.Query("severity"); v != "" {
		severity := models.AlertSeverity(v)
		if !severity.IsValid() {
			return filter, SendErrorWithType(c, fiber.StatusBadRequest, "Invalid severity parameter", models.ValidationErrorType)
		}
		filter.Severity = severity
	}
	if v := c.Query("unread"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			filter.Unread = &parsed
		}
	}
	filter.Limit, filter.Offset = parseListWindow(c)
	return filter, nil
}

// parseListWindow reads limit and offset query parameters, clamping the
// limit to maxListLimit. Malformed values fall back to defaults.
func parseListWindow(c *fiber.Ctx) (limit, offset int) {
	limit = models.DefaultAlertListLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}
	return limit, offset
}
