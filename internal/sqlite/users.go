package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"github.com/mr-karan/noticeboard/pkg/models"
)

// ErrDuplicate is returned when an insert or update violates a unique
// constraint, such as a user email or team name.
var ErrDuplicate = errors.New("already exists")

const (
	insertUserQuery = `INSERT INTO users (
    name,
    email,
    role,
    team_id,
    is_active
) VALUES (?, ?, ?, ?, ?)
RETURNING id, created_at, updated_at`

	selectUserBase = `SELECT
    id,
    name,
    email,
    role,
    team_id,
    is_active,
    created_at,
    updated_at
FROM users`

	updateUserQuery = `UPDATE users
SET name = ?,
    email = ?,
    role = ?,
    team_id = ?,
    is_active = ?,
    updated_at = datetime('now')
WHERE id = ?`

	deactivateUserQuery = `UPDATE users
SET is_active = 0,
    updated_at = datetime('now')
WHERE id = ?`

	listActiveUserIDsQuery = `SELECT id FROM users WHERE is_active = 1 ORDER BY id`
)

// CreateUser inserts a new user and populates its ID and timestamps.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user payload is required")
	}

	row := db.writeDB.QueryRowContext(ctx, insertUserQuery,
		user.Name,
		user.Email,
		string(user.Role),
		nullableID(user.TeamID),
		boolToInt(user.IsActive),
	)

	var (
		id        int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: user with email %q", ErrDuplicate, user.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID = models.UserID(id)
	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return nil
}

// GetUser retrieves a user by its identifier.
func (db *DB) GetUser(ctx context.Context, userID models.UserID) (*models.User, error) {
	query := selectUserBase + " WHERE id = ?"
	row := db.readDB.QueryRowContext(ctx, query, int64(userID))
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := selectUserBase + " WHERE email = ?"
	row := db.readDB.QueryRowContext(ctx, query, email)
	return scanUser(row)
}

// UpdateUser persists changes to an existing user.
func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user payload is required")
	}

	res, err := db.writeDB.ExecContext(ctx, updateUserQuery,
		user.Name,
		user.Email,
		string(user.Role),
		nullableID(user.TeamID),
		boolToInt(user.IsActive),
		int64(user.ID),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: user with email %q", ErrDuplicate, user.Email)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeactivateUser soft-deletes a user. History is retained but the user
// no longer logs in or receives new alerts.
func (db *DB) DeactivateUser(ctx context.Context, userID models.UserID) error {
	res, err := db.writeDB.ExecContext(ctx, deactivateUserQuery, int64(userID))
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListUsers returns users matching the filter, ordered by ID.
func (db *DB) ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "name", "email", "role", "team_id", "is_active", "created_at", "updated_at").
		From("users")

	if filter.TeamID != 0 {
		sb.Where(sb.Equal("team_id", int64(filter.TeamID)))
	}
	if filter.Role != "" {
		sb.Where(sb.Equal("role", string(filter.Role)))
	}
	if filter.IsActive != nil {
		sb.Where(sb.Equal("is_active", boolToInt(*filter.IsActive)))
	}
	sb.OrderBy("id")

	query, args := sb.Build()
	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// ListUsersByIDs returns the users whose IDs appear in the given set,
// regardless of active status. Callers use this to validate targets.
func (db *DB) ListUsersByIDs(ctx context.Context, userIDs []models.UserID) ([]*models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(selectUserBase+" WHERE id IN (?) ORDER BY id", userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build user id query: %w", err)
	}

	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by ids: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users by ids: %w", err)
	}
	return users, nil
}

// ListActiveUserIDs returns the IDs of every active user.
func (db *DB) ListActiveUserIDs(ctx context.Context) ([]models.UserID, error) {
	rows, err := db.readDB.QueryContext(ctx, listActiveUserIDsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list active user ids: %w", err)
	}
	defer rows.Close()

	var ids []models.UserID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, models.UserID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active user ids: %w", err)
	}
	return ids, nil
}

// ListActiveUserIDsByTeams returns the IDs of active users belonging to
// any of the given teams.
func (db *DB) ListActiveUserIDsByTeams(ctx context.Context, teamIDs []models.TeamID) ([]models.UserID, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT id FROM users WHERE is_active = 1 AND team_id IN (?) ORDER BY id`, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build team member query: %w", err)
	}

	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list team member ids: %w", err)
	}
	defer rows.Close()

	var ids []models.UserID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, models.UserID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team member ids: %w", err)
	}
	return ids, nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*models.User, error) {
	var (
		id        int64
		name      string
		email     string
		role      string
		teamID    sql.NullInt64
		isActive  int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := scanner.Scan(&id, &name, &email, &role, &teamID, &isActive, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user := &models.User{
		ID:       models.UserID(id),
		Name:     name,
		Email:    email,
		Role:     models.UserRole(role),
		IsActive: isActive == 1,
	}
	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	if teamID.Valid {
		tid := models.TeamID(teamID.Int64)
		user.TeamID = &tid
	}
	return user, nil
}

// nullableID converts an optional typed ID into a driver value.
func nullableID[T ~int64](id *T) interface{} {
	if id == nil {
		return nil
	}
	return int64(*id)
}

// isUniqueConstraintError reports whether err is a SQLite unique
// constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
