package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/models"
)

// ErrRecipientStateNotFound is returned when a user has no recipient
// state for an alert, i.e. the alert was never addressed to them.
var ErrRecipientStateNotFound = errors.New("recipient state not found")

// EndOfDay returns 23:59:59 of t's calendar day in loc. Snoozes expire
// at this boundary so a snoozed alert resurfaces the next day.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)
}

// GetRecipientState retrieves the per-user state for one alert.
func GetRecipientState(ctx context.Context, db *sqlite.DB, alertID models.AlertID, userID models.UserID) (*models.RecipientState, error) {
	state, err := db.GetRecipientState(ctx, alertID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecipientStateNotFound
		}
		return nil, fmt.Errorf("failed to get recipient state: %w", err)
	}
	return state, nil
}

// MarkAlertRead marks an alert read for one recipient and promotes the
// recipient's outstanding deliveries to read. Marking an already read
// alert is a no-op; a user who never received the alert gets
// ErrRecipientStateNotFound.
func MarkAlertRead(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID, userID models.UserID, now time.Time) (*models.RecipientState, error) {
	state, err := GetRecipientState(ctx, db, alertID, userID)
	if err != nil {
		return nil, err
	}
	if state.IsRead {
		return state, nil
	}

	if err := db.MarkRecipientRead(ctx, alertID, userID, now); err != nil {
		log.Error("failed to mark alert read", "alert_id", alertID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to mark alert read: %w", err)
	}
	if err := db.MarkDeliveriesRead(ctx, alertID, userID, now); err != nil {
		log.Error("failed to mark deliveries read", "alert_id", alertID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to mark deliveries read: %w", err)
	}

	updated, err := db.GetRecipientState(ctx, alertID, userID)
	if err != nil {
		log.Warn("alert marked read but fetching updated state failed", "alert_id", alertID, "user_id", userID, "error", err)
		state.IsRead = true
		state.ReadAt = &now
		return state, nil
	}

	log.Info("alert marked read", "alert_id", alertID, "user_id", userID)
	return updated, nil
}

// SnoozeAlert suppresses reminders for one recipient until the end of
// the current day in loc. Snoozing repeatedly extends nothing but
// increments the snooze counter.
func SnoozeAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID, userID models.UserID, now time.Time, loc *time.Location) (*models.RecipientState, error) {
	state, err := GetRecipientState(ctx, db, alertID, userID)
	if err != nil {
		return nil, err
	}

	until := EndOfDay(now, loc)
	if err := db.SnoozeRecipient(ctx, alertID, userID, now, until); err != nil {
		log.Error("failed to snooze alert", "alert_id", alertID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to snooze alert: %w", err)
	}

	updated, err := db.GetRecipientState(ctx, alertID, userID)
	if err != nil {
		log.Warn("alert snoozed but fetching updated state failed", "alert_id", alertID, "user_id", userID, "error", err)
		state.IsSnoozed = true
		state.SnoozedAt = &now
		state.SnoozedUntil = &until
		state.SnoozeCount++
		return state, nil
	}

	log.Info("alert snoozed", "alert_id", alertID, "user_id", userID, "snoozed_until", until)
	return updated, nil
}

// ListRecipientFeed returns the active alerts addressed to a user,
// newest first, joined with the user's read and snooze state.
func ListRecipientFeed(ctx context.Context, db *sqlite.DB, userID models.UserID, filter models.RecipientFeedFilter, now time.Time) ([]*models.RecipientAlert, error) {
	feed, err := db.ListRecipientFeed(ctx, userID, filter, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipient feed: %w", err)
	}
	return feed, nil
}

// GetRecipientCounts returns total, unread, read and snoozed counts
// over the user's active alerts.
func GetRecipientCounts(ctx context.Context, db *sqlite.DB, userID models.UserID, now time.Time) (*models.RecipientCounts, error) {
	counts, err := db.GetRecipientCounts(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient counts: %w", err)
	}
	return counts, nil
}
