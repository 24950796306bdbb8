package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/noticeboard/internal/core"
	"github.com/mr-karan/noticeboard/pkg/models"
)

func (s *Server) handleCreateTeam(c *fiber.Ctx) error {
	var req models.CreateTeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	team, err := core.CreateTeam(c.Context(), s.sqlite, s.log, &req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidTeamRequest) {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to create team", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to create team")
	}

	return SendSuccess(c, fiber.StatusCreated, team)
}

func (s *Server) handleListTeams(c *fiber.Ctx) error {
	teams, err := core.ListTeams(c.Context(), s.sqlite)
	if err != nil {
		s.log.Error("failed to list teams", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to list teams")
	}
	return SendSuccess(c, fiber.StatusOK, teams)
}

func (s *Server) handleGetTeam(c *fiber.Ctx) error {
	teamID, err := s.parseTeamIDParam(c)
	if err != nil {
		return err
	}

	team, err := core.GetTeam(c.Context(), s.sqlite, s.log, teamID)
	if err != nil {
		if errors.Is(err, core.ErrTeamNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get team", "team_id", teamID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to get team")
	}

	return SendSuccess(c, fiber.StatusOK, team)
}

func (s *Server) handleUpdateTeam(c *fiber.Ctx) error {
	teamID, err := s.parseTeamIDParam(c)
	if err != nil {
		return err
	}

	var req models.UpdateTeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	team, err := core.UpdateTeam(c.Context(), s.sqlite, s.log, teamID, &req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidTeamRequest):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrTeamNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		default:
			s.log.Error("failed to update team", "team_id", teamID, "error", err)
			return SendError(c, fiber.StatusInternalServerError, "Failed to update team")
		}
	}

	return SendSuccess(c, fiber.StatusOK, team)
}

func (s *Server) handleDeleteTeam(c *fiber.Ctx) error {
	teamID, err := s.parseTeamIDParam(c)
	if err != nil {
		return err
	}

	if err := core.DeleteTeam(c.Context(), s.sqlite, s.log, teamID); err != nil {
		if errors.Is(err, core.ErrTeamNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to delete team", "team_id", teamID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to delete team")
	}

	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Team deleted"})
}

func (s *Server) handleListTeamMembers(c *fiber.Ctx) error {
	user, ok := s.currentUser(c)
	if !ok {
		return SendError(c, fiber.StatusInternalServerError, "Failed to resolve current user")
	}

	teamID, err := s.parseTeamIDParam(c)
	if err != nil {
		return err
	}

	// Members can only inspect their own team's roster.
	if !user.IsAdmin() && (user.TeamID == nil || *user.TeamID != teamID) {
		return SendErrorWithType(c, fiber.StatusForbidden, "Can only view your own team members", models.AuthorizationErrorType)
	}

	members, err := core.ListTeamMembers(c.Context(), s.sqlite, teamID)
	if err != nil {
		if errors.Is(err, core.ErrTeamNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to list team members", "team_id", teamID, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to list team members")
	}

	return SendSuccess(c, fiber.StatusOK, members)
}

func (s *Server) handleAddTeamMember(c *fiber.Ctx) error {
	teamID, err := s.parseTeamIDParam(c)
	if err != nil {
		return err
	}
	userID, err := s.parseUserIDParam(c)
	if err != nil {
		return err
	}

	member, err := core.AddTeamMember(c.Context(), s.sqlite, s.log, teamID, userID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTeamNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		case errors.Is(err, core.ErrUserNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		default:
			s.log.Error("failed to add team member", "team_id", teamID, "user_id", userID, "error", err)
			return SendError(c, fiber.StatusInternalServerError, "Failed to add team member")
		}
	}

	return SendSuccess(c, fiber.StatusOK, member)
}

func (s *Server) handleRemoveTeamMember(c *fiber.Ctx) error {
	teamID, err := s.parseTeamIDParam(c)
	if err != nil {
		return err
	}
	userID, err := s.parseUserIDParam(c)
	if err != nil {
		return err
	}

	if err := core.RemoveTeamMember(c.Context(), s.sqlite, s.log, teamID, userID); err != nil {
		switch {
		case errors.Is(err, core.ErrTeamNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		case errors.Is(err, core.ErrUserNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		case errors.Is(err, core.ErrInvalidTeamRequest):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		default:
			s.log.Error("failed to remove team member", "team_id", teamID, "user_id", userID, "error", err)
			return SendError(c, fiber.StatusInternalServerError, "Failed to remove team member")
		}
	}

	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Team member removed"})
}

func (s *Server) parseTeamIDParam(c *fiber.Ctx) (models.TeamID, error) {
	teamID, err := core.ParseTeamID(c.Params("teamID"))
	if err != nil {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "Invalid team_id parameter", models.ValidationErrorType)
	}
	return teamID, nil
}
