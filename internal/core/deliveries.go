package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mr-karan/noticeboard/internal/metrics"
	"github.com/mr-karan/noticeboard/internal/notify"
	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/models"
)

// ErrDeliveryNotFound is returned when a delivery doesn't exist.
var ErrDeliveryNotFound = errors.New("delivery not found")

// ParseDeliveryID converts a string identifier, such as a URL
// parameter, to a DeliveryID.
func ParseDeliveryID(s string) (models.DeliveryID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid delivery id %q", s)
	}
	return models.DeliveryID(id), nil
}

// GetDelivery retrieves a single delivery by ID.
func GetDelivery(ctx context.Context, db *sqlite.DB, id models.DeliveryID) (*models.Delivery, error) {
	delivery, err := db.GetDelivery(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrDeliveryNotFound, id)
		}
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	return delivery, nil
}

// ListDeliveries retrieves deliveries matching the filter.
func ListDeliveries(ctx context.Context, db *sqlite.DB, filter models.DeliveryFilter) ([]*models.Delivery, error) {
	deliveries, err := db.ListDeliveries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	return deliveries, nil
}

// ListNotifications returns a user's delivery feed, newest first. Each
// item carries the alert's title, message and severity alongside the
// viewer's read and snooze state.
func ListNotifications(ctx context.Context, db *sqlite.DB, userID models.UserID, includeRead bool, limit, offset int) ([]*models.NotificationItem, error) {
	items, err := db.ListNotificationFeed(ctx, userID, includeRead, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

// MarkNotificationRead stamps one delivery as read by its recipient and
// promotes a delivered status to read. A delivery addressed to someone
// else is reported as not found.
func MarkNotificationRead(ctx context.Context, db *sqlite.DB, log *slog.Logger, deliveryID models.DeliveryID, userID models.UserID, now time.Time) (*models.Delivery, error) {
	delivery, err := db.GetDelivery(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrDeliveryNotFound, deliveryID)
		}
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	if delivery.UserID != userID {
		return nil, fmt.Errorf("%w: id %d", ErrDeliveryNotFound, deliveryID)
	}

	if err := db.MarkDeliveryRead(ctx, deliveryID, userID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrDeliveryNotFound, deliveryID)
		}
		log.Error("failed to mark notification read", "delivery_id", deliveryID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}

	updated, err := db.GetDelivery(ctx, deliveryID)
	if err != nil {
		log.Warn("notification marked read but fetching updated record failed", "delivery_id", deliveryID, "error", err)
		delivery.ReadAt = &now
		if delivery.Status == models.DeliveryStatusDelivered {
			delivery.Status = models.DeliveryStatusRead
		}
		return delivery, nil
	}
	return updated, nil
}

// CreateAndDispatchDelivery records a delivery row for one recipient
// and immediately runs it through the channel's notifier. Dispatch
// failures are recorded on the delivery for the retry pass and do not
// propagate; only failures to write the row itself return an error.
func CreateAndDispatchDelivery(ctx context.Context, db *sqlite.DB, log *slog.Logger, registry *notify.Registry, alert *models.Alert, userID models.UserID, isReminder bool, reminderSequence int, now time.Time) (*models.Delivery, error) {
	delivery := &models.Delivery{
		AlertID:          alert.ID,
		UserID:           userID,
		Channel:          alert.DeliveryChannel,
		Status:           models.DeliveryStatusPending,
		IsReminder:       isReminder,
		ReminderSequence: reminderSequence,
		MaxRetries:       models.DefaultMaxRetries,
	}

	if err := db.CreateDelivery(ctx, delivery); err != nil {
		return nil, fmt.Errorf("failed to create delivery: %w", err)
	}

	if err := DispatchDelivery(ctx, db, log, registry, alert, delivery, now); err != nil {
		log.Warn("delivery dispatch failed", "delivery_id", delivery.ID, "alert_id", alert.ID, "user_id", userID, "error", err)
	}
	return delivery, nil
}

// DispatchDelivery runs one attempt of a delivery through its
// channel's notifier and records the outcome. A failed attempt marks
// the delivery failed with the next retry time; attempts past the
// retry budget are left failed with no retry scheduled.
func DispatchDelivery(ctx context.Context, db *sqlite.DB, log *slog.Logger, registry *notify.Registry, alert *models.Alert, delivery *models.Delivery, now time.Time) error {
	notifier, ok := registry.Get(delivery.Channel)
	if !ok {
		err := fmt.Errorf("no notifier registered for channel %q", delivery.Channel)
		recordDeliveryFailure(ctx, db, log, delivery, err, now)
		metrics.RecordDelivery(delivery.Channel.String(), "failed")
		return err
	}

	confirmed, err := notifier.Send(ctx, alert, delivery.UserID)
	if err != nil {
		recordDeliveryFailure(ctx, db, log, delivery, err, now)
		metrics.RecordDelivery(delivery.Channel.String(), "failed")
		return err
	}

	if err := db.MarkDeliverySent(ctx, delivery.ID, now); err != nil {
		return fmt.Errorf("failed to mark delivery sent: %w", err)
	}
	if confirmed {
		if err := db.MarkDeliveryDelivered(ctx, delivery.ID, now); err != nil {
			return fmt.Errorf("failed to mark delivery delivered: %w", err)
		}
		metrics.RecordDelivery(delivery.Channel.String(), "delivered")
		return nil
	}
	metrics.RecordDelivery(delivery.Channel.String(), "sent")
	return nil
}

// recordDeliveryFailure writes the failure onto the delivery row,
// scheduling a retry with linear backoff while attempts remain.
func recordDeliveryFailure(ctx context.Context, db *sqlite.DB, log *slog.Logger, delivery *models.Delivery, cause error, now time.Time) {
	var nextRetry *time.Time
	if delivery.RetryCount+1 < delivery.MaxRetries {
		next := now.Add(models.RetryBackoff * time.Duration(delivery.RetryCount+1))
		nextRetry = &next
	}
	if err := db.MarkDeliveryFailed(ctx, delivery.ID, cause.Error(), nextRetry); err != nil {
		log.Error("failed to record delivery failure", "delivery_id", delivery.ID, "error", err)
	}
}
