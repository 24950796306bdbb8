package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/mr-karan/noticeboard/pkg/models"
)

const (
	insertAlertQuery = `INSERT INTO alerts (
    title,
    message,
    severity,
    status,
    visibility,
    target_team_ids,
    target_user_ids,
    delivery_channel,
    reminders_enabled,
    reminder_interval_hours,
    start_time,
    expiry_time,
    created_by
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, created_at, updated_at`

	selectAlertBase = `SELECT
    id,
    title,
    message,
    severity,
    status,
    visibility,
    target_team_ids,
    target_user_ids,
    delivery_channel,
    reminders_enabled,
    reminder_interval_hours,
    start_time,
    expiry_time,
    created_by,
    archived_at,
    created_at,
    updated_at
FROM alerts`

	updateAlertQuery = `UPDATE alerts
SET title = ?,
    message = ?,
    severity = ?,
    visibility = ?,
    target_team_ids = ?,
    target_user_ids = ?,
    reminders_enabled = ?,
    reminder_interval_hours = ?,
    start_time = ?,
    expiry_time = ?,
    updated_at = datetime('now')
WHERE id = ?`

	archiveAlertQuery = `UPDATE alerts
SET status = 'archived',
    archived_at = ?,
    updated_at = datetime('now')
WHERE id = ? AND status = 'active'`

	listRemindableAlertsQuery = selectAlertBase + `
WHERE status = 'active' AND reminders_enabled = 1
ORDER BY id`
)

// CreateAlert inserts a new alert and populates its ID and timestamps.
func (db *DB) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert payload is required")
	}

	teamIDsJSON, err := marshalIDList(alert.TargetTeamIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal target team ids: %w", err)
	}
	userIDsJSON, err := marshalIDList(alert.TargetUserIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal target user ids: %w", err)
	}

	row := db.writeDB.QueryRowContext(ctx, insertAlertQuery,
		alert.Title,
		alert.Message,
		string(alert.Severity),
		string(alert.Status),
		string(alert.Visibility),
		teamIDsJSON,
		userIDsJSON,
		string(alert.DeliveryChannel),
		boolToInt(alert.RemindersEnabled),
		alert.ReminderIntervalHours,
		alert.StartTime,
		nullableTime(alert.ExpiryTime),
		int64(alert.CreatedBy),
	)

	var (
		id        int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	alert.ID = models.AlertID(id)
	alert.CreatedAt = createdAt
	alert.UpdatedAt = updatedAt
	return nil
}

// GetAlert retrieves an alert by its identifier.
func (db *DB) GetAlert(ctx context.Context, alertID models.AlertID) (*models.Alert, error) {
	query := selectAlertBase + " WHERE id = ?"
	row := db.readDB.QueryRowContext(ctx, query, int64(alertID))
	return scanAlert(row)
}

// UpdateAlert persists changes to an existing alert.
func (db *DB) UpdateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert payload is required")
	}

	teamIDsJSON, err := marshalIDList(alert.TargetTeamIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal target team ids: %w", err)
	}
	userIDsJSON, err := marshalIDList(alert.TargetUserIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal target user ids: %w", err)
	}

	res, err := db.writeDB.ExecContext(ctx, updateAlertQuery,
		alert.Title,
		alert.Message,
		string(alert.Severity),
		string(alert.Visibility),
		teamIDsJSON,
		userIDsJSON,
		boolToInt(alert.RemindersEnabled),
		alert.ReminderIntervalHours,
		alert.StartTime,
		nullableTime(alert.ExpiryTime),
		int64(alert.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ArchiveAlert marks an active alert as archived. Returns sql.ErrNoRows
// when the alert is missing or already archived.
func (db *DB) ArchiveAlert(ctx context.Context, alertID models.AlertID, archivedAt time.Time) error {
	res, err := db.writeDB.ExecContext(ctx, archiveAlertQuery, archivedAt, int64(alertID))
	if err != nil {
		return fmt.Errorf("failed to archive alert: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAlerts returns alerts matching the filter, newest first.
func (db *DB) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"id", "title", "message", "severity", "status", "visibility",
		"target_team_ids", "target_user_ids", "delivery_channel",
		"reminders_enabled", "reminder_interval_hours", "start_time",
		"expiry_time", "created_by", "archived_at", "created_at", "updated_at",
	).From("alerts")

	if filter.Severity != "" {
		sb.Where(sb.Equal("severity", string(filter.Severity)))
	}
	if filter.Status != "" {
		sb.Where(sb.Equal("status", string(filter.Status)))
	}
	if filter.Visibility != "" {
		sb.Where(sb.Equal("visibility", string(filter.Visibility)))
	}
	if filter.CreatedBy != 0 {
		sb.Where(sb.Equal("created_by", int64(filter.CreatedBy)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultAlertListLimit
	}
	sb.OrderBy("created_at DESC", "id DESC").Limit(limit)
	if filter.Offset > 0 {
		sb.Offset(filter.Offset)
	}

	query, args := sb.Build()
	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

// ListRemindableAlerts returns active alerts with reminders enabled.
// Start and expiry window checks are applied by the caller so that time
// remains injectable.
func (db *DB) ListRemindableAlerts(ctx context.Context) ([]*models.Alert, error) {
	rows, err := db.readDB.QueryContext(ctx, listRemindableAlertsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list remindable alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remindable alerts: %w", err)
	}
	return alerts, nil
}

func scanAlert(scanner interface{ Scan(dest ...any) error }) (*models.Alert, error) {
	var (
		id                    int64
		title                 string
		message               string
		severity              string
		status                string
		visibility            string
		targetTeamIDs         sql.NullString
		targetUserIDs         sql.NullString
		deliveryChannel       string
		remindersEnabled      int64
		reminderIntervalHours int
		startTime             time.Time
		expiryTime            sql.NullTime
		createdBy             int64
		archivedAt            sql.NullTime
		createdAt             time.Time
		updatedAt             time.Time
	)
	if err := scanner.Scan(&id, &title, &message, &severity, &status, &visibility, &targetTeamIDs, &targetUserIDs, &deliveryChannel, &remindersEnabled, &reminderIntervalHours, &startTime, &expiryTime, &createdBy, &archivedAt, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	var teamIDs []models.TeamID
	if err := unmarshalIDList(targetTeamIDs, &teamIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target team ids: %w", err)
	}
	var userIDs []models.UserID
	if err := unmarshalIDList(targetUserIDs, &userIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target user ids: %w", err)
	}

	alert := &models.Alert{
		ID:                    models.AlertID(id),
		Title:                 title,
		Message:               message,
		Severity:              models.AlertSeverity(severity),
		Status:                models.AlertStatus(status),
		Visibility:            models.AlertVisibility(visibility),
		TargetTeamIDs:         teamIDs,
		TargetUserIDs:         userIDs,
		DeliveryChannel:       models.DeliveryChannel(deliveryChannel),
		RemindersEnabled:      remindersEnabled == 1,
		ReminderIntervalHours: reminderIntervalHours,
		StartTime:             startTime,
		CreatedBy:             models.UserID(createdBy),
	}
	alert.CreatedAt = createdAt
	alert.UpdatedAt = updatedAt
	if expiryTime.Valid {
		alert.ExpiryTime = &expiryTime.Time
	}
	if archivedAt.Valid {
		alert.ArchivedAt = &archivedAt.Time
	}
	return alert, nil
}

// marshalIDList encodes an ID slice as a JSON column value, storing NULL
// for empty lists.
func marshalIDList[T ~int64](ids []T) (interface{}, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// unmarshalIDList decodes a JSON ID column into the target slice,
// leaving it nil for NULL or empty values.
func unmarshalIDList[T ~int64](col sql.NullString, dst *[]T) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}

func nullableString(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
