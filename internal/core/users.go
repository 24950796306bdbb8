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
	// ErrUserNotFound indicates a user could not be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidUserRequest indicates validation failed for a user payload.
	ErrInvalidUserRequest = errors.New("invalid user request")
)

// ParseUserID converts a string identifier, such as a URL parameter or
// header value, to a UserID.
func ParseUserID(s string) (models.UserID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return models.UserID(id), nil
}

var validRoles = map[models.UserRole]struct{}{
	models.UserRoleAdmin:  {},
	models.UserRoleMember: {},
}

func validateUserRequest(req *models.CreateUserRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", req.Email)
	}
	if req.Role != "" {
		if _, ok := validRoles[req.Role]; !ok {
			return fmt.Errorf("invalid role %q", req.Role)
		}
	}
	return nil
}

// CreateUser registers a new active user. Emails are normalized to
// lower case and must be unique; the role defaults to member.
func CreateUser(ctx context.Context, db *sqlite.DB, log *slog.Logger, req *models.CreateUserRequest) (*models.User, error) {
	if req == nil {
		return nil, ErrInvalidUserRequest
	}
	if err := validateUserRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUserRequest, err)
	}

	if req.TeamID != nil {
		if _, err := db.GetTeam(ctx, *req.TeamID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: team %d not found", ErrInvalidUserRequest, *req.TeamID)
			}
			return nil, fmt.Errorf("failed to verify team: %w", err)
		}
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Role:     req.Role,
		TeamID:   req.TeamID,
		IsActive: true,
	}
	if user.Role == "" {
		user.Role = models.UserRoleMember
	}

	if err := db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, sqlite.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidUserRequest, err)
		}
		log.Error("failed to create user", "email", user.Email, "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// GetUser retrieves a single user by ID.
func GetUser(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID) (*models.User, error) {
	user, err := db.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		log.Error("failed to get user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Login resolves a user by email. Unknown and deactivated accounts are
// indistinguishable to the caller.
func Login(ctx context.Context, db *sqlite.DB, log *slog.Logger, email string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidUserRequest)
	}

	user, err := db.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		log.Error("failed to look up user by email", "error", err)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}

	log.Info("user logged in", "user_id", user.ID)
	return user, nil
}

// ListUsers returns users matching the filter.
func ListUsers(ctx context.Context, db *sqlite.DB, filter models.UserFilter) ([]*models.User, error) {
	users, err := db.ListUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUser applies the provided fields to an existing user.
func UpdateUser(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID, req *models.UpdateUserRequest) (*models.User, error) {
	if req == nil {
		return nil, ErrInvalidUserRequest
	}

	user, err := db.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidUserRequest)
		}
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: invalid email %q", ErrInvalidUserRequest, *req.Email)
		}
		user.Email = email
	}
	if req.Role != nil {
		if _, ok := validRoles[*req.Role]; !ok {
			return nil, fmt.Errorf("%w: invalid role %q", ErrInvalidUserRequest, *req.Role)
		}
		user.Role = *req.Role
	}
	if req.TeamID != nil {
		if _, err := db.GetTeam(ctx, *req.TeamID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: team %d not found", ErrInvalidUserRequest, *req.TeamID)
			}
			return nil, fmt.Errorf("failed to verify team: %w", err)
		}
		user.TeamID = req.TeamID
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := db.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if errors.Is(err, sqlite.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidUserRequest, err)
		}
		log.Error("failed to update user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	updated, err := db.GetUser(ctx, userID)
	if err != nil {
		log.Warn("user updated but fetching updated record failed", "user_id", userID, "error", err)
		return user, nil
	}
	return updated, nil
}

// DeactivateUser soft deletes a user. The record and its recipient
// history remain; the user drops out of targeting and can no longer
// authenticate.
func DeactivateUser(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID) error {
	if err := db.DeactivateUser(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		log.Error("failed to deactivate user", "user_id", userID, "error", err)
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	log.Info("user deactivated", "user_id", userID)
	return nil
}
