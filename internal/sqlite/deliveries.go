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
	insertDeliveryQuery = `INSERT INTO deliveries (
    alert_id,
    user_id,
    channel,
    status,
    is_reminder,
    reminder_sequence,
    max_retries
) VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, created_at, updated_at`

	selectDeliveryBase = `SELECT
    id,
    alert_id,
    user_id,
    channel,
    status,
    is_reminder,
    reminder_sequence,
    retry_count,
    max_retries,
    next_retry_at,
    error_message,
    sent_at,
    delivered_at,
    read_at,
    created_at,
    updated_at
FROM deliveries`

	markDeliverySentQuery = `UPDATE deliveries
SET status = 'sent',
    sent_at = ?,
    error_message = NULL,
    updated_at = datetime('now')
WHERE id = ?`

	markDeliveryDeliveredQuery = `UPDATE deliveries
SET status = 'delivered',
    delivered_at = ?,
    updated_at = datetime('now')
WHERE id = ?`

	markDeliveryFailedQuery = `UPDATE deliveries
SET status = 'failed',
    retry_count = retry_count + 1,
    next_retry_at = ?,
    error_message = ?,
    updated_at = datetime('now')
WHERE id = ?`

	markDeliveriesReadQuery = `UPDATE deliveries
SET status = 'read',
    read_at = COALESCE(read_at, ?),
    updated_at = datetime('now')
WHERE alert_id = ? AND user_id = ? AND status IN ('sent', 'delivered')`

	markDeliveryReadQuery = `UPDATE deliveries
SET read_at = ?,
    status = CASE WHEN status = 'delivered' THEN 'read' ELSE status END,
    updated_at = datetime('now')
WHERE id = ? AND user_id = ?`

	listRetryableDeliveriesQuery = selectDeliveryBase + `
WHERE status = 'failed'
  AND retry_count < max_retries
  AND (next_retry_at IS NULL OR datetime(next_retry_at) <= ?)
ORDER BY id`

	listNotificationFeedQuery = `SELECT
    d.id,
    d.alert_id,
    d.user_id,
    d.channel,
    d.status,
    d.is_reminder,
    d.reminder_sequence,
    d.retry_count,
    d.max_retries,
    d.next_retry_at,
    d.error_message,
    d.sent_at,
    d.delivered_at,
    d.read_at,
    d.created_at,
    d.updated_at,
    a.title,
    a.message,
    a.severity,
    COALESCE(rs.is_read, 0),
    COALESCE(rs.is_snoozed, 0),
    rs.snoozed_until
FROM deliveries d
JOIN alerts a ON a.id = d.alert_id
LEFT JOIN recipient_states rs ON rs.alert_id = d.alert_id AND rs.user_id = d.user_id
WHERE d.user_id = ?`
)

// CreateDelivery inserts a new delivery attempt in pending state and
// populates its ID and timestamps.
func (db *DB) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	if delivery == nil {
		return fmt.Errorf("delivery payload is required")
	}

	row := db.writeDB.QueryRowContext(ctx, insertDeliveryQuery,
		int64(delivery.AlertID),
		int64(delivery.UserID),
		string(delivery.Channel),
		string(delivery.Status),
		boolToInt(delivery.IsReminder),
		delivery.ReminderSequence,
		delivery.MaxRetries,
	)

	var (
		id        int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		return fmt.Errorf("failed to insert delivery: %w", err)
	}

	delivery.ID = models.DeliveryID(id)
	delivery.CreatedAt = createdAt
	delivery.UpdatedAt = updatedAt
	return nil
}

// GetDelivery retrieves a delivery by its identifier.
func (db *DB) GetDelivery(ctx context.Context, deliveryID models.DeliveryID) (*models.Delivery, error) {
	query := selectDeliveryBase + " WHERE id = ?"
	row := db.readDB.QueryRowContext(ctx, query, int64(deliveryID))
	return scanDelivery(row)
}

// MarkDeliverySent records a successful send.
func (db *DB) MarkDeliverySent(ctx context.Context, deliveryID models.DeliveryID, sentAt time.Time) error {
	res, err := db.writeDB.ExecContext(ctx, markDeliverySentQuery, sentAt, int64(deliveryID))
	if err != nil {
		return fmt.Errorf("failed to mark delivery sent: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkDeliveryDelivered records confirmation that the notification
// reached the recipient.
func (db *DB) MarkDeliveryDelivered(ctx context.Context, deliveryID models.DeliveryID, deliveredAt time.Time) error {
	res, err := db.writeDB.ExecContext(ctx, markDeliveryDeliveredQuery, deliveredAt, int64(deliveryID))
	if err != nil {
		return fmt.Errorf("failed to mark delivery delivered: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkDeliveryFailed records a failed attempt, bumps the retry counter,
// and schedules the next retry.
func (db *DB) MarkDeliveryFailed(ctx context.Context, deliveryID models.DeliveryID, errorMessage string, nextRetryAt *time.Time) error {
	res, err := db.writeDB.ExecContext(ctx, markDeliveryFailedQuery,
		nullableTime(nextRetryAt), nullableString(errorMessage), int64(deliveryID))
	if err != nil {
		return fmt.Errorf("failed to mark delivery failed: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkDeliveriesRead promotes the pair's sent and delivered rows to read
// when the recipient marks the alert read.
func (db *DB) MarkDeliveriesRead(ctx context.Context, alertID models.AlertID, userID models.UserID, readAt time.Time) error {
	if _, err := db.writeDB.ExecContext(ctx, markDeliveriesReadQuery, readAt, int64(alertID), int64(userID)); err != nil {
		return fmt.Errorf("failed to mark deliveries read: %w", err)
	}
	return nil
}

// MarkDeliveryRead stamps a single delivery as read by its recipient.
// The user scope means a delivery addressed to someone else behaves
// like a missing one.
func (db *DB) MarkDeliveryRead(ctx context.Context, deliveryID models.DeliveryID, userID models.UserID, readAt time.Time) error {
	res, err := db.writeDB.ExecContext(ctx, markDeliveryReadQuery, readAt, int64(deliveryID), int64(userID))
	if err != nil {
		return fmt.Errorf("failed to mark delivery read: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListRetryableDeliveries returns failed deliveries whose retry budget
// and backoff window allow another attempt at the given time.
func (db *DB) ListRetryableDeliveries(ctx context.Context, now time.Time) ([]*models.Delivery, error) {
	rows, err := db.readDB.QueryContext(ctx, listRetryableDeliveriesQuery, sqliteTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, delivery)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating retryable deliveries: %w", err)
	}
	return deliveries, nil
}

// ListNotificationFeed returns a user's deliveries joined with alert
// details and the user's own read and snooze state, newest first.
func (db *DB) ListNotificationFeed(ctx context.Context, userID models.UserID, includeRead bool, limit, offset int) ([]*models.NotificationItem, error) {
	query := listNotificationFeedQuery
	if !includeRead {
		query += `
  AND COALESCE(rs.is_read, 0) = 0`
	}
	query += `
ORDER BY d.id DESC LIMIT ? OFFSET ?`

	if limit <= 0 {
		limit = models.DefaultAlertListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := db.readDB.QueryContext(ctx, query, int64(userID), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification feed: %w", err)
	}
	defer rows.Close()

	var items []*models.NotificationItem
	for rows.Next() {
		item, err := scanNotificationItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification feed: %w", err)
	}
	return items, nil
}

// ListDeliveries returns deliveries matching the filter, newest first.
func (db *DB) ListDeliveries(ctx context.Context, filter models.DeliveryFilter) ([]*models.Delivery, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"id", "alert_id", "user_id", "channel", "status", "is_reminder",
		"reminder_sequence", "retry_count", "max_retries", "next_retry_at",
		"error_message", "sent_at", "delivered_at", "read_at", "created_at", "updated_at",
	).From("deliveries")

	if filter.AlertID != 0 {
		sb.Where(sb.Equal("alert_id", int64(filter.AlertID)))
	}
	if filter.UserID != 0 {
		sb.Where(sb.Equal("user_id", int64(filter.UserID)))
	}
	if filter.Channel != "" {
		sb.Where(sb.Equal("channel", string(filter.Channel)))
	}
	if filter.Status != "" {
		sb.Where(sb.Equal("status", string(filter.Status)))
	}
	if filter.IsReminder != nil {
		sb.Where(sb.Equal("is_reminder", boolToInt(*filter.IsReminder)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultAlertListLimit
	}
	sb.OrderBy("id DESC").Limit(limit)
	if filter.Offset > 0 {
		sb.Offset(filter.Offset)
	}

	query, args := sb.Build()
	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, delivery)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deliveries: %w", err)
	}
	return deliveries, nil
}

func scanDelivery(scanner interface{ Scan(dest ...any) error }) (*models.Delivery, error) {
	var (
		id               int64
		alertID          int64
		userID           int64
		channel          string
		status           string
		isReminder       int64
		reminderSequence int
		retryCount       int
		maxRetries       int
		nextRetryAt      sql.NullTime
		errorMessage     sql.NullString
		sentAt           sql.NullTime
		deliveredAt      sql.NullTime
		readAt           sql.NullTime
		createdAt        time.Time
		updatedAt        time.Time
	)
	if err := scanner.Scan(&id, &alertID, &userID, &channel, &status, &isReminder, &reminderSequence, &retryCount, &maxRetries, &nextRetryAt, &errorMessage, &sentAt, &deliveredAt, &readAt, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}

	delivery := &models.Delivery{
		ID:               models.DeliveryID(id),
		AlertID:          models.AlertID(alertID),
		UserID:           models.UserID(userID),
		Channel:          models.DeliveryChannel(channel),
		Status:           models.DeliveryStatus(status),
		IsReminder:       isReminder == 1,
		ReminderSequence: reminderSequence,
		RetryCount:       retryCount,
		MaxRetries:       maxRetries,
		ErrorMessage:     errorMessage.String,
	}
	delivery.CreatedAt = createdAt
	delivery.UpdatedAt = updatedAt
	if nextRetryAt.Valid {
		delivery.NextRetryAt = &nextRetryAt.Time
	}
	if sentAt.Valid {
		delivery.SentAt = &sentAt.Time
	}
	if deliveredAt.Valid {
		delivery.DeliveredAt = &deliveredAt.Time
	}
	if readAt.Valid {
		delivery.ReadAt = &readAt.Time
	}
	return delivery, nil
}

func scanNotificationItem(scanner interface{ Scan(dest ...any) error }) (*models.NotificationItem, error) {
	var (
		id               int64
		alertID          int64
		userID           int64
		channel          string
		status           string
		isReminder       int64
		reminderSequence int
		retryCount       int
		maxRetries       int
		nextRetryAt      sql.NullTime
		errorMessage     sql.NullString
		sentAt           sql.NullTime
		deliveredAt      sql.NullTime
		readAt           sql.NullTime
		createdAt        time.Time
		updatedAt        time.Time
		alertTitle       string
		alertMessage     string
		alertSeverity    string
		isRead           int64
		isSnoozed        int64
		snoozedUntil     sql.NullTime
	)
	if err := scanner.Scan(&id, &alertID, &userID, &channel, &status, &isReminder, &reminderSequence, &retryCount, &maxRetries, &nextRetryAt, &errorMessage, &sentAt, &deliveredAt, &readAt, &createdAt, &updatedAt, &alertTitle, &alertMessage, &alertSeverity, &isRead, &isSnoozed, &snoozedUntil); err != nil {
		return nil, fmt.Errorf("failed to scan notification item: %w", err)
	}

	item := &models.NotificationItem{
		Delivery: models.Delivery{
			ID:               models.DeliveryID(id),
			AlertID:          models.AlertID(alertID),
			UserID:           models.UserID(userID),
			Channel:          models.DeliveryChannel(channel),
			Status:           models.DeliveryStatus(status),
			IsReminder:       isReminder == 1,
			ReminderSequence: reminderSequence,
			RetryCount:       retryCount,
			MaxRetries:       maxRetries,
			ErrorMessage:     errorMessage.String,
		},
		AlertTitle:    alertTitle,
		AlertMessage:  alertMessage,
		AlertSeverity: models.AlertSeverity(alertSeverity),
		IsRead:        isRead == 1,
		IsSnoozed:     isSnoozed == 1,
	}
	item.CreatedAt = createdAt
	item.UpdatedAt = updatedAt
	if nextRetryAt.Valid {
		item.NextRetryAt = &nextRetryAt.Time
	}
	if sentAt.Valid {
		item.SentAt = &sentAt.Time
	}
	if deliveredAt.Valid {
		item.DeliveredAt = &deliveredAt.Time
	}
	if readAt.Valid {
		item.ReadAt = &readAt.Time
	}
	if snoozedUntil.Valid {
		item.SnoozedUntil = &snoozedUntil.Time
	}
	return item, nil
}
