package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/mr-karan/noticeboard/pkg/models"
)

const (
	insertRecipientStateQuery = `INSERT OR IGNORE INTO recipient_states (
    alert_id,
    user_id
) VALUES (?, ?)`

	selectRecipientStateBase = `SELECT
    id,
    alert_id,
    user_id,
    is_read,
    read_at,
    is_snoozed,
    snoozed_at,
    snoozed_until,
    snooze_count,
    last_reminded_at,
    reminder_count,
    created_at,
    updated_at
FROM recipient_states`

	markRecipientReadQuery = `UPDATE recipient_states
SET is_read = 1,
    read_at = ?,
    updated_at = datetime('now')
WHERE alert_id = ? AND user_id = ?`

	snoozeRecipientQuery = `UPDATE recipient_states
SET is_snoozed = 1,
    snoozed_at = ?,
    snoozed_until = ?,
    snooze_count = snooze_count + 1,
    updated_at = datetime('now')
WHERE alert_id = ? AND user_id = ?`

	markRecipientRemindedQuery = `UPDATE recipient_states
SET last_reminded_at = ?,
    reminder_count = reminder_count + 1,
    updated_at = datetime('now')
WHERE id = ?`

	listUnreadStatesQuery = selectRecipientStateBase + `
WHERE alert_id = ? AND is_read = 0
ORDER BY user_id`

	listRecipientUserIDsQuery = `SELECT user_id FROM recipient_states WHERE alert_id = ? ORDER BY user_id`

	recipientCountsQuery = `SELECT
    COUNT(*) AS total,
    COALESCE(SUM(CASE WHEN rs.is_read = 0 THEN 1 ELSE 0 END), 0) AS unread,
    COALESCE(SUM(CASE WHEN rs.is_read = 1 THEN 1 ELSE 0 END), 0) AS read,
    COALESCE(SUM(CASE WHEN rs.is_snoozed = 1 AND datetime(rs.snoozed_until) > ? THEN 1 ELSE 0 END), 0) AS snoozed
FROM recipient_states rs
JOIN alerts a ON a.id = rs.alert_id
WHERE rs.user_id = ?
  AND a.status = 'active'
  AND datetime(a.start_time) <= ?
  AND (a.expiry_time IS NULL OR datetime(a.expiry_time) > ?)`
)

// CreateRecipientStates inserts one state row per user for an alert,
// skipping pairs that already exist. Used both at alert creation and
// when retargeting adds recipients.
func (db *DB) CreateRecipientStates(ctx context.Context, alertID models.AlertID, userIDs []models.UserID) error {
	if len(userIDs) == 0 {
		return nil
	}

	tx, err := db.writeDB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin recipient state tx: %w", err)
	}
	defer tx.Rollback()

	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, insertRecipientStateQuery, int64(alertID), int64(userID)); err != nil {
			return fmt.Errorf("failed to insert recipient state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recipient states: %w", err)
	}
	return nil
}

// GetRecipientState retrieves the state row for an (alert, user) pair.
func (db *DB) GetRecipientState(ctx context.Context, alertID models.AlertID, userID models.UserID) (*models.RecipientState, error) {
	query := selectRecipientStateBase + " WHERE alert_id = ? AND user_id = ?"
	row := db.readDB.QueryRowContext(ctx, query, int64(alertID), int64(userID))
	return scanRecipientState(row)
}

// MarkRecipientRead marks the pair's state as read at the given time.
func (db *DB) MarkRecipientRead(ctx context.Context, alertID models.AlertID, userID models.UserID, readAt time.Time) error {
	res, err := db.writeDB.ExecContext(ctx, markRecipientReadQuery, readAt, int64(alertID), int64(userID))
	if err != nil {
		return fmt.Errorf("failed to mark recipient read: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SnoozeRecipient activates the pair's snooze window and bumps the
// cumulative snooze counter.
func (db *DB) SnoozeRecipient(ctx context.Context, alertID models.AlertID, userID models.UserID, snoozedAt, snoozedUntil time.Time) error {
	res, err := db.writeDB.ExecContext(ctx, snoozeRecipientQuery, snoozedAt, snoozedUntil, int64(alertID), int64(userID))
	if err != nil {
		return fmt.Errorf("failed to snooze recipient: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkRecipientReminded records a reminder emission on the state row.
func (db *DB) MarkRecipientReminded(ctx context.Context, stateID models.RecipientStateID, remindedAt time.Time) error {
	res, err := db.writeDB.ExecContext(ctx, markRecipientRemindedQuery, remindedAt, int64(stateID))
	if err != nil {
		return fmt.Errorf("failed to mark recipient reminded: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListUnreadRecipientStates returns the unread state rows for an alert.
// Snooze and reminder interval gating happen in the caller so that time
// remains injectable.
func (db *DB) ListUnreadRecipientStates(ctx context.Context, alertID models.AlertID) ([]*models.RecipientState, error) {
	rows, err := db.readDB.QueryContext(ctx, listUnreadStatesQuery, int64(alertID))
	if err != nil {
		return nil, fmt.Errorf("failed to list unread recipient states: %w", err)
	}
	defer rows.Close()

	var states []*models.RecipientState
	for rows.Next() {
		state, err := scanRecipientState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unread recipient states: %w", err)
	}
	return states, nil
}

// ListRecipientUserIDs returns the user IDs that already have a state
// row for the alert.
func (db *DB) ListRecipientUserIDs(ctx context.Context, alertID models.AlertID) ([]models.UserID, error) {
	rows, err := db.readDB.QueryContext(ctx, listRecipientUserIDsQuery, int64(alertID))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipient user ids: %w", err)
	}
	defer rows.Close()

	var ids []models.UserID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan recipient user id: %w", err)
		}
		ids = append(ids, models.UserID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipient user ids: %w", err)
	}
	return ids, nil
}

// ListRecipientFeed returns the user's active alerts joined with their
// own read and snooze state, newest alerts first.
func (db *DB) ListRecipientFeed(ctx context.Context, userID models.UserID, filter models.RecipientFeedFilter, now time.Time) ([]*models.RecipientAlert, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"a.id", "a.title", "a.message", "a.severity", "a.status", "a.visibility",
		"a.target_team_ids", "a.target_user_ids", "a.delivery_channel",
		"a.reminders_enabled", "a.reminder_interval_hours", "a.start_time",
		"a.expiry_time", "a.created_by", "a.archived_at", "a.created_at", "a.updated_at",
		"rs.is_read", "rs.read_at", "rs.is_snoozed", "rs.snoozed_until", "rs.snooze_count",
	).From("recipient_states rs").
		Join("alerts a", "a.id = rs.alert_id")

	sb.Where(
		sb.Equal("rs.user_id", int64(userID)),
		sb.Equal("a.status", string(models.AlertStatusActive)),
		sb.LessEqualThan("datetime(a.start_time)", sqliteTime(now)),
		sb.Or(
			sb.IsNull("a.expiry_time"),
			sb.GreaterThan("datetime(a.expiry_time)", sqliteTime(now)),
		),
	)
	if filter.Severity != "" {
		sb.Where(sb.Equal("a.severity", string(filter.Severity)))
	}
	if filter.Unread != nil {
		sb.Where(sb.Equal("rs.is_read", boolToInt(!*filter.Unread)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultAlertListLimit
	}
	sb.OrderBy("a.created_at DESC", "a.id DESC").Limit(limit)
	if filter.Offset > 0 {
		sb.Offset(filter.Offset)
	}

	query, args := sb.Build()
	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipient feed: %w", err)
	}
	defer rows.Close()

	var feed []*models.RecipientAlert
	for rows.Next() {
		item, err := scanRecipientAlert(rows)
		if err != nil {
			return nil, err
		}
		feed = append(feed, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipient feed: %w", err)
	}
	return feed, nil
}

// GetRecipientCounts summarizes the user's feed over active alerts.
func (db *DB) GetRecipientCounts(ctx context.Context, userID models.UserID, now time.Time) (*models.RecipientCounts, error) {
	var counts models.RecipientCounts
	err := db.readDB.GetContext(ctx, &counts, recipientCountsQuery,
		sqliteTime(now), int64(userID), sqliteTime(now), sqliteTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient counts: %w", err)
	}
	return &counts, nil
}

func scanRecipientState(scanner interface{ Scan(dest ...any) error }) (*models.RecipientState, error) {
	var (
		id             int64
		alertID        int64
		userID         int64
		isRead         int64
		readAt         sql.NullTime
		isSnoozed      int64
		snoozedAt      sql.NullTime
		snoozedUntil   sql.NullTime
		snoozeCount    int
		lastRemindedAt sql.NullTime
		reminderCount  int
		createdAt      time.Time
		updatedAt      time.Time
	)
	if err := scanner.Scan(&id, &alertID, &userID, &isRead, &readAt, &isSnoozed, &snoozedAt, &snoozedUntil, &snoozeCount, &lastRemindedAt, &reminderCount, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recipient state: %w", err)
	}

	state := &models.RecipientState{
		ID:          models.RecipientStateID(id),
		AlertID:     models.AlertID(alertID),
		UserID:      models.UserID(userID),
		IsRead:      isRead == 1,
		IsSnoozed:   isSnoozed == 1,
		SnoozeCount: snoozeCount,

		ReminderCount: reminderCount,
	}
	state.CreatedAt = createdAt
	state.UpdatedAt = updatedAt
	if readAt.Valid {
		state.ReadAt = &readAt.Time
	}
	if snoozedAt.Valid {
		state.SnoozedAt = &snoozedAt.Time
	}
	if snoozedUntil.Valid {
		state.SnoozedUntil = &snoozedUntil.Time
	}
	if lastRemindedAt.Valid {
		state.LastRemindedAt = &lastRemindedAt.Time
	}
	return state, nil
}

func scanRecipientAlert(scanner interface{ Scan(dest ...any) error }) (*models.RecipientAlert, error) {
	var (
		alert        models.Alert
		expiryTime   sql.NullTime
		archivedAt   sql.NullTime
		teamIDsJSON  sql.NullString
		userIDsJSON  sql.NullString
		severity     string
		status       string
		visibility   string
		channel      string
		reminders    int64
		isRead       int64
		readAt       sql.NullTime
		isSnoozed    int64
		snoozedUntil sql.NullTime
		snoozeCount  int
	)
	var id, createdBy int64
	if err := scanner.Scan(
		&id, &alert.Title, &alert.Message, &severity, &status, &visibility,
		&teamIDsJSON, &userIDsJSON, &channel,
		&reminders, &alert.ReminderIntervalHours, &alert.StartTime,
		&expiryTime, &createdBy, &archivedAt, &alert.CreatedAt, &alert.UpdatedAt,
		&isRead, &readAt, &isSnoozed, &snoozedUntil, &snoozeCount,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recipient alert: %w", err)
	}

	alert.ID = models.AlertID(id)
	alert.Severity = models.AlertSeverity(severity)
	alert.Status = models.AlertStatus(status)
	alert.Visibility = models.AlertVisibility(visibility)
	alert.DeliveryChannel = models.DeliveryChannel(channel)
	alert.RemindersEnabled = reminders == 1
	alert.CreatedBy = models.UserID(createdBy)
	if expiryTime.Valid {
		alert.ExpiryTime = &expiryTime.Time
	}
	if archivedAt.Valid {
		alert.ArchivedAt = &archivedAt.Time
	}
	if err := unmarshalIDList(teamIDsJSON, &alert.TargetTeamIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target team ids: %w", err)
	}
	if err := unmarshalIDList(userIDsJSON, &alert.TargetUserIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target user ids: %w", err)
	}

	item := &models.RecipientAlert{
		Alert:       alert,
		IsRead:      isRead == 1,
		IsSnoozed:   isSnoozed == 1,
		SnoozeCount: snoozeCount,
	}
	if readAt.Valid {
		item.ReadAt = &readAt.Time
	}
	if snoozedUntil.Valid {
		item.SnoozedUntil = &snoozedUntil.Time
	}
	return item, nil
}

// sqliteTime formats a timestamp the way SQLite's datetime() renders
// one: UTC at second precision. Comparing datetime(column) against this
// keeps ordering correct regardless of how the column value was bound.
func sqliteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
