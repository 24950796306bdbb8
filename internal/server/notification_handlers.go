package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/noticeboard/internal/core"
	"github.com/mr-karan/noticeboard/pkg/models"
)

func (s *Server) handleListNotifications(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to resolve current user")
	}

	includeRead := true
	if v := c.Query("include_read"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			includeRead = parsed
		}
	}
	limit, offset := parseListWindow(c)

	items, err := core.ListNotifications(c.Context(), s.sqlite, user.ID, includeRead, limit, offset)
	if err != nil {
		s.log.Error("failed to list notifications", "user_id", user.ID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to list notifications")
	}

	return SendSuccess(c, fiber.StatusOK, items)
}

func (s *Server) handleListUnreadNotifications(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to resolve current user")
	}

	limit, offset := parseListWindow(c)

	items, err := core.ListNotifications(c.Context(), s.sqlite, user.ID, false, limit, offset)
	if err != nil {
		s.log.Error("failed to list unread notifications", "user_id", user.ID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to list notifications")
	}

	return SendSuccess(c, fiber.StatusOK, items)
}

func (s *Server) handleMarkNotificationRead(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to resolve current user")
	}

	deliveryID, err := core.ParseDeliveryID(c.Params("deliveryID"))
	if err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid delivery_id parameter", models.ValidationErrorType)
	}

	delivery, err := core.MarkNotificationRead(c.Context(), s.sqlite, s.log, deliveryID, user.ID, s.now())
	if err != nil {
		if errors.Is(err, core.ErrDeliveryNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Notification not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to mark notification read", "delivery_id", deliveryID, "user_id", user.ID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to mark notification read")
	}

	return SendSuccess(c, fiber.StatusOK, delivery)
}
