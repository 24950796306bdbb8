package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mr-karan/noticeboard/pkg/models"
)

const (
	insertTeamQuery = `INSERT INTO teams (
    name,
    description
) VALUES (?, ?)
RETURNING id, created_at, updated_at`

	selectTeamBase = `SELECT
    t.id,
    t.name,
    t.description,
    t.created_at,
    t.updated_at,
    COUNT(u.id) AS member_count
FROM teams t
LEFT JOIN users u ON u.team_id = t.id AND u.is_active = 1`

	updateTeamQuery = `UPDATE teams
SET name = ?,
    description = ?,
    updated_at = datetime('now')
WHERE id = ?`

	deleteTeamQuery = `DELETE FROM teams WHERE id = ?`
)

// CreateTeam inserts a new team and populates its ID and timestamps.
func (db *DB) CreateTeam(ctx context.Context, team *models.Team) error {
	if team == nil {
		return fmt.Errorf("team payload is required")
	}

	row := db.writeDB.QueryRowContext(ctx, insertTeamQuery,
		team.Name,
		nullableString(team.Description),
	)

	var (
		id        int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: team with name %q", ErrDuplicate, team.Name)
		}
		return fmt.Errorf("failed to insert team: %w", err)
	}

	team.ID = models.TeamID(id)
	team.CreatedAt = createdAt
	team.UpdatedAt = updatedAt
	return nil
}

// GetTeam retrieves a team by its identifier, including its active
// member count.
func (db *DB) GetTeam(ctx context.Context, teamID models.TeamID) (*models.Team, error) {
	query := selectTeamBase + " WHERE t.id = ? GROUP BY t.id"
	row := db.readDB.QueryRowContext(ctx, query, int64(teamID))
	return scanTeam(row)
}

// UpdateTeam persists changes to an existing team.
func (db *DB) UpdateTeam(ctx context.Context, team *models.Team) error {
	if team == nil {
		return fmt.Errorf("team payload is required")
	}

	res, err := db.writeDB.ExecContext(ctx, updateTeamQuery,
		team.Name,
		nullableString(team.Description),
		int64(team.ID),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: team with name %q", ErrDuplicate, team.Name)
		}
		return fmt.Errorf("failed to update team: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteTeam removes a team. Members are detached via the foreign key
// rather than deleted.
func (db *DB) DeleteTeam(ctx context.Context, teamID models.TeamID) error {
	res, err := db.writeDB.ExecContext(ctx, deleteTeamQuery, int64(teamID))
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTeams returns all teams ordered by name.
func (db *DB) ListTeams(ctx context.Context) ([]*models.Team, error) {
	query := selectTeamBase + " GROUP BY t.id ORDER BY t.name"
	rows, err := db.readDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}
	return teams, nil
}

// ListTeamsByIDs returns the teams whose IDs appear in the given set.
// Callers use this to validate targets.
func (db *DB) ListTeamsByIDs(ctx context.Context, teamIDs []models.TeamID) ([]*models.Team, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(selectTeamBase+" WHERE t.id IN (?) GROUP BY t.id ORDER BY t.id", teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build team id query: %w", err)
	}

	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams by ids: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams by ids: %w", err)
	}
	return teams, nil
}

func scanTeam(scanner interface{ Scan(dest ...any) error }) (*models.Team, error) {
	var (
		id          int64
		name        string
		description sql.NullString
		createdAt   time.Time
		updatedAt   time.Time
		memberCount int
	)
	if err := scanner.Scan(&id, &name, &description, &createdAt, &updatedAt, &memberCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}

	team := &models.Team{
		ID:          models.TeamID(id),
		Name:        name,
		Description: description.String,
		MemberCount: memberCount,
	}
	team.CreatedAt = createdAt
	team.UpdatedAt = updatedAt
	return team, nil
}
