package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/noticeboard/internal/core"
	"github.com/mr-karan/noticeboard/pkg/models"
)

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := core.Login(c.Context(), s.sqlite, s.log, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			// Unknown and deactivated accounts get the same answer.
			return SendErrorWithType(c, fiber.StatusUnauthorized, "Invalid credentials or inactive user", models.AuthenticationErrorType)
		}
		s.log.Error("login failed", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to log in", models.GeneralErrorType)
	}

	return SendSuccess(c, fiber.StatusOK, user)
}

func (s *Server) handleGetCurrentUser(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to resolve current user")
	}
	return SendSuccess(c, fiber.StatusOK, user)
}

func (s *Server) handleUpdateCurrentUser(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to resolve current user")
	}

	var req models.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	// Only admins may change role or active status, even on their own
	// account.
	if !user.IsAdmin() {
		req.Role = nil
		req.IsActive = nil
	}

	updated, err := core.UpdateUser(c.Context(), s.sqlite, s.log, user.ID, &req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidUserRequest):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrUserNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		default:
			s.log.Error("failed to update current user", "user_id", user.ID, "error", err)
			return SendError(c, fiber.StatusInternalServerError, "Failed to update user")
		}
	}

	return SendSuccess(c, fiber.StatusOK, updated)
}

func (s *Server) handleCreateUser(c *fiber.Ctx) error {
	var req models.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := core.CreateUser(c.Context(), s.sqlite, s.log, &req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidUserRequest) {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to create user", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to create user")
	}

	return SendSuccess(c, fiber.StatusCreated, user)
}

func (s *Server) handleListUsers(c *fiber.Ctx) error {
	var filter models.UserFilter

	if v := c.Query("team_id"); v != "" {
		teamID, err := core.ParseTeamID(v)
		if err != nil {
			return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid team_id parameter", models.ValidationErrorType)
		}
		filter.TeamID = teamID
	}
	if v := c.Query("role"); v != "" {
		role := models.UserRole(v)
		if !role.IsValid() {
			return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid role parameter", models.ValidationErrorType)
		}
		filter.Role = role
	}

	// Deactivated users are hidden unless explicitly requested.
	activeOnly := true
	if v := c.Query("active_only"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			activeOnly = parsed
		}
	}
	if activeOnly {
		active := true
		filter.IsActive = &active
	}

	users, err := core.ListUsers(c.Context(), s.sqlite, filter)
	if err != nil {
		s.log.Error("failed to list users", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to list users")
	}

	return SendSuccess(c, fiber.StatusOK, users)
}

func (s *Server) handleGetUser(c *fiber.Ctx) error {
	userID, err := s.parseUserIDParam(c)
	if err != nil {
		return err
	}

	user, err := core.GetUser(c.Context(), s.sqlite, s.log, userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get user", "user_id", userID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to get user")
	}

	return SendSuccess(c, fiber.StatusOK, user)
}

func (s *Server) handleUpdateUser(c *fiber.Ctx) error {
	userID, err := s.parseUserIDParam(c)
	if err != nil {
		return err
	}

	var req models.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := core.UpdateUser(c.Context(), s.sqlite, s.log, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidUserRequest):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrUserNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		default:
			s.log.Error("failed to update user", "user_id", userID, "error", err)
			return SendError(c, fiber.StatusInternalServerError, "Failed to update user")
		}
	}

	return SendSuccess(c, fiber.StatusOK, user)
}

func (s *Server) handleDeactivateUser(c *fiber.Ctx) error {
	userID, err := s.parseUserIDParam(c)
	if err != nil {
		return err
	}

	if err := core.DeactivateUser(c.Context(), s.sqlite, s.log, userID); err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to deactivate user", "user_id", userID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to deactivate user")
	}

	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "User deactivated"})
}

func (s *Server) parseUserIDParam(c *fiber.Ctx) (models.UserID, error) {
	userID, err := core.ParseUserID(c.Params("userID"))
	if err != nil {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "Invalid user_id parameter", models.ValidationErrorType)
	}
	return userID, nil
}
