package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/models"
)

var (
	// ErrTeamNotFound indicates a team could not be located.
	ErrTeamNotFound = errors.New("team not found")
	// ErrInvalidTeamRequest indicates validation failed for a team payload.
	ErrInvalidTeamRequest = errors.New("invalid team request")
)

// ParseTeamID converts a string identifier, such as a URL parameter,
// to a TeamID.
func ParseTeamID(s string) (models.TeamID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid team id %q", s)
	}
	return models.TeamID(id), nil
}

// CreateTeam registers a new team. Names must be unique.
func CreateTeam(ctx context.Context, db *sqlite.DB, log *slog.Logger, req *models.CreateTeamRequest) (*models.Team, error) {
	if req == nil {
		return nil, ErrInvalidTeamRequest
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTeamRequest)
	}

	team := &models.Team{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := db.CreateTeam(ctx, team); err != nil {
		if errors.Is(err, sqlite.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTeamRequest, err)
		}
		log.Error("failed to create team", "name", team.Name, "error", err)
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	log.Info("team created", "team_id", team.ID, "name", team.Name)
	return team, nil
}

// GetTeam retrieves a single team with its active member count.
func GetTeam(ctx context.Context, db *sqlite.DB, log *slog.Logger, teamID models.TeamID) (*models.Team, error) {
	team, err := db.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		log.Error("failed to get team", "team_id", teamID, "error", err)
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListTeams returns all teams with their active member counts.
func ListTeams(ctx context.Context, db *sqlite.DB) ([]*models.Team, error) {
	teams, err := db.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// UpdateTeam applies the provided fields to an existing team.
func UpdateTeam(ctx context.Context, db *sqlite.DB, log *slog.Logger, teamID models.TeamID, req *models.UpdateTeamRequest) (*models.Team, error) {
	if req == nil {
		return nil, ErrInvalidTeamRequest
	}

	team, err := db.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidTeamRequest)
		}
		team.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		team.Description = strings.TrimSpace(*req.Description)
	}

	if err := db.UpdateTeam(ctx, team); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		if errors.Is(err, sqlite.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTeamRequest, err)
		}
		log.Error("failed to update team", "team_id", teamID, "error", err)
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	updated, err := db.GetTeam(ctx, teamID)
	if err != nil {
		log.Warn("team updated but fetching updated record failed", "team_id", teamID, "error", err)
		return team, nil
	}
	return updated, nil
}

// DeleteTeam removes a team. Members are detached, not deleted; alerts
// previously targeted at the team keep their materialized recipients.
func DeleteTeam(ctx context.Context, db *sqlite.DB, log *slog.Logger, teamID models.TeamID) error {
	if _, err := db.GetTeam(ctx, teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to load team: %w", err)
	}

	if err := db.DeleteTeam(ctx, teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		log.Error("failed to delete team", "team_id", teamID, "error", err)
		return fmt.Errorf("failed to delete team: %w", err)
	}

	log.Info("team deleted", "team_id", teamID)
	return nil
}

// ListTeamMembers returns the active users assigned to a team.
func ListTeamMembers(ctx context.Context, db *sqlite.DB, teamID models.TeamID) ([]*models.User, error) {
	if _, err := db.GetTeam(ctx, teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	active := true
	users, err := db.ListUsers(ctx, models.UserFilter{TeamID: teamID, IsActive: &active})
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return users, nil
}

// AddTeamMember assigns a user to a team. Users belong to at most one
// team, so joining a team replaces any previous assignment.
func AddTeamMember(ctx context.Context, db *sqlite.DB, log *slog.Logger, teamID models.TeamID, userID models.UserID) (*models.User, error) {
	if _, err := db.GetTeam(ctx, teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	user, err := db.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	tid := teamID
	user.TeamID = &tid
	if err := db.UpdateUser(ctx, user); err != nil {
		log.Error("failed to add team member", "team_id", teamID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to add team member: %w", err)
	}

	log.Info("team member added", "team_id", teamID, "user_id", userID)
	return user, nil
}

// RemoveTeamMember clears a user's team assignment. The user must
// currently belong to the given team.
func RemoveTeamMember(ctx context.Context, db *sqlite.DB, log *slog.Logger, teamID models.TeamID, userID models.UserID) error {
	if _, err := db.GetTeam(ctx, teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to load team: %w", err)
	}

	user, err := db.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.TeamID == nil || *user.TeamID != teamID {
		return fmt.Errorf("%w: user %d is not a member of team %d", ErrInvalidTeamRequest, userID, teamID)
	}

	user.TeamID = nil
	if err := db.UpdateUser(ctx, user); err != nil {
		log.Error("failed to remove team member", "team_id", teamID, "user_id", userID, "error", err)
		return fmt.Errorf("failed to remove team member: %w", err)
	}

	log.Info("team member removed", "team_id", teamID, "user_id", userID)
	return nil
}
