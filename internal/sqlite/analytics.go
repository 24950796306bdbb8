package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mr-karan/noticeboard/pkg/models"
)

const (
	countAlertsByStatusQuery = `SELECT status, COUNT(*) AS count
FROM alerts
GROUP BY status
ORDER BY status`

	countAlertsBySeverityQuery = `SELECT severity, COUNT(*) AS count
FROM alerts
GROUP BY severity
ORDER BY severity`

	countAlertsSinceQuery = `SELECT COUNT(*) FROM alerts WHERE datetime(created_at) >= ?`

	globalEngagementQuery = `SELECT
    COUNT(*) AS recipients,
    COALESCE(SUM(CASE WHEN is_read = 1 THEN 1 ELSE 0 END), 0) AS read,
    COALESCE(SUM(CASE WHEN is_snoozed = 1 AND datetime(snoozed_until) > ? THEN 1 ELSE 0 END), 0) AS snoozed,
    COALESCE(SUM(snooze_count), 0) AS snooze_count,
    COALESCE(SUM(reminder_count), 0) AS reminder_count
FROM recipient_states`

	teamEngagementQuery = `SELECT
    COUNT(*) AS recipients,
    COALESCE(SUM(CASE WHEN rs.is_read = 1 THEN 1 ELSE 0 END), 0) AS read,
    COALESCE(SUM(CASE WHEN rs.is_snoozed = 1 AND datetime(rs.snoozed_until) > ? THEN 1 ELSE 0 END), 0) AS snoozed,
    COALESCE(SUM(rs.snooze_count), 0) AS snooze_count,
    COALESCE(SUM(rs.reminder_count), 0) AS reminder_count
FROM recipient_states rs
JOIN users u ON u.id = rs.user_id
WHERE u.team_id = ?`

	topReadAlertsQuery = `SELECT
    a.id AS alert_id,
    a.title,
    a.severity,
    COUNT(*) AS count
FROM recipient_states rs
JOIN alerts a ON a.id = rs.alert_id
WHERE rs.is_read = 1
GROUP BY a.id, a.title, a.severity
ORDER BY count DESC, a.id
LIMIT ?`

	topSnoozedAlertsQuery = `SELECT
    a.id AS alert_id,
    a.title,
    a.severity,
    SUM(rs.snooze_count) AS count
FROM recipient_states rs
JOIN alerts a ON a.id = rs.alert_id
WHERE rs.snooze_count > 0
GROUP BY a.id, a.title, a.severity
ORDER BY count DESC, a.id
LIMIT ?`

	deliveryStatsBase = `SELECT
    COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS total_pending,
    COALESCE(SUM(CASE WHEN status IN ('sent', 'delivered', 'read') THEN 1 ELSE 0 END), 0) AS total_sent,
    COALESCE(SUM(CASE WHEN status IN ('delivered', 'read') THEN 1 ELSE 0 END), 0) AS total_delivered,
    COALESCE(SUM(CASE WHEN status = 'read' THEN 1 ELSE 0 END), 0) AS total_read,
    COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS total_failed
FROM deliveries`

	avgSecondsToReadQuery = `SELECT AVG((julianday(rs.read_at) - julianday(a.created_at)) * 86400.0)
FROM recipient_states rs
JOIN alerts a ON a.id = rs.alert_id
WHERE rs.alert_id = ? AND rs.is_read = 1 AND rs.read_at IS NOT NULL`
)

// CountAlertsByStatus returns alert counts grouped by lifecycle status.
func (db *DB) CountAlertsByStatus(ctx context.Context) ([]models.StatusCount, error) {
	var counts []models.StatusCount
	if err := db.readDB.SelectContext(ctx, &counts, countAlertsByStatusQuery); err != nil {
		return nil, fmt.Errorf("failed to count alerts by status: %w", err)
	}
	return counts, nil
}

// CountAlertsBySeverity returns alert counts grouped by severity.
func (db *DB) CountAlertsBySeverity(ctx context.Context) ([]models.SeverityCount, error) {
	var counts []models.SeverityCount
	if err := db.readDB.SelectContext(ctx, &counts, countAlertsBySeverityQuery); err != nil {
		return nil, fmt.Errorf("failed to count alerts by severity: %w", err)
	}
	return counts, nil
}

// CountAlertsCreatedSince returns the number of alerts created at or
// after the given time.
func (db *DB) CountAlertsCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	if err := db.readDB.GetContext(ctx, &count, countAlertsSinceQuery, sqliteTime(since)); err != nil {
		return 0, fmt.Errorf("failed to count alerts since: %w", err)
	}
	return count, nil
}

// GetGlobalEngagement aggregates recipient-state counters across all
// alerts.
func (db *DB) GetGlobalEngagement(ctx context.Context, now time.Time) (*models.EngagementTotals, error) {
	var totals models.EngagementTotals
	if err := db.readDB.GetContext(ctx, &totals, globalEngagementQuery, sqliteTime(now)); err != nil {
		return nil, fmt.Errorf("failed to get global engagement: %w", err)
	}
	return &totals, nil
}

// GetAlertEngagement aggregates recipient-state counters for one alert.
func (db *DB) GetAlertEngagement(ctx context.Context, alertID models.AlertID, now time.Time) (*models.EngagementTotals, error) {
	var totals models.EngagementTotals
	query := globalEngagementQuery + " WHERE alert_id = ?"
	if err := db.readDB.GetContext(ctx, &totals, query, sqliteTime(now), int64(alertID)); err != nil {
		return nil, fmt.Errorf("failed to get alert engagement: %w", err)
	}
	return &totals, nil
}

// GetUserEngagement aggregates recipient-state counters for one user.
func (db *DB) GetUserEngagement(ctx context.Context, userID models.UserID, now time.Time) (*models.EngagementTotals, error) {
	var totals models.EngagementTotals
	query := globalEngagementQuery + " WHERE user_id = ?"
	if err := db.readDB.GetContext(ctx, &totals, query, sqliteTime(now), int64(userID)); err != nil {
		return nil, fmt.Errorf("failed to get user engagement: %w", err)
	}
	return &totals, nil
}

// GetTeamEngagement aggregates recipient-state counters across the
// members of one team.
func (db *DB) GetTeamEngagement(ctx context.Context, teamID models.TeamID, now time.Time) (*models.EngagementTotals, error) {
	var totals models.EngagementTotals
	if err := db.readDB.GetContext(ctx, &totals, teamEngagementQuery, sqliteTime(now), int64(teamID)); err != nil {
		return nil, fmt.Errorf("failed to get team engagement: %w", err)
	}
	return &totals, nil
}

// ListTopReadAlerts returns the alerts with the most reads.
func (db *DB) ListTopReadAlerts(ctx context.Context, limit int) ([]models.AlertEngagement, error) {
	var rows []models.AlertEngagement
	if err := db.readDB.SelectContext(ctx, &rows, topReadAlertsQuery, limit); err != nil {
		return nil, fmt.Errorf("failed to list top read alerts: %w", err)
	}
	return rows, nil
}

// ListTopSnoozedAlerts returns the alerts with the most cumulative
// snoozes.
func (db *DB) ListTopSnoozedAlerts(ctx context.Context, limit int) ([]models.AlertEngagement, error) {
	var rows []models.AlertEngagement
	if err := db.readDB.SelectContext(ctx, &rows, topSnoozedAlertsQuery, limit); err != nil {
		return nil, fmt.Errorf("failed to list top snoozed alerts: %w", err)
	}
	return rows, nil
}

// GetDeliveryStats aggregates delivery outcomes across all alerts.
func (db *DB) GetDeliveryStats(ctx context.Context) (*models.DeliveryStats, error) {
	var stats models.DeliveryStats
	if err := db.readDB.GetContext(ctx, &stats, deliveryStatsBase); err != nil {
		return nil, fmt.Errorf("failed to get delivery stats: %w", err)
	}
	return &stats, nil
}

// GetAlertDeliveryStats aggregates delivery outcomes for one alert.
func (db *DB) GetAlertDeliveryStats(ctx context.Context, alertID models.AlertID) (*models.DeliveryStats, error) {
	var stats models.DeliveryStats
	query := deliveryStatsBase + " WHERE alert_id = ?"
	if err := db.readDB.GetContext(ctx, &stats, query, int64(alertID)); err != nil {
		return nil, fmt.Errorf("failed to get alert delivery stats: %w", err)
	}
	return &stats, nil
}

// GetAvgSecondsToRead returns the mean time from alert creation to read
// for one alert, or nil when nothing has been read yet.
func (db *DB) GetAvgSecondsToRead(ctx context.Context, alertID models.AlertID) (*float64, error) {
	var avg sql.NullFloat64
	row := db.readDB.QueryRowContext(ctx, avgSecondsToReadQuery, int64(alertID))
	if err := row.Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to get avg seconds to read: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}
