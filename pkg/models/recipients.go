package models

import "time"

// RecipientStateID identifies a per-recipient alert state row.
type RecipientStateID int64

// RecipientState tracks one user's read and snooze position for one
// alert. Exactly one row exists per (alert, user) pair.
type RecipientState struct {
	ID             RecipientStateID `db:"id" json:"id"`
	AlertID        AlertID          `db:"alert_id" json:"alert_id"`
	UserID         UserID           `db:"user_id" json:"user_id"`
	IsRead         bool             `db:"is_read" json:"is_read"`
	ReadAt         *time.Time       `db:"read_at" json:"read_at,omitempty"`
	IsSnoozed      bool             `db:"is_snoozed" json:"is_snoozed"`
	SnoozedAt      *time.Time       `db:"snoozed_at" json:"snoozed_at,omitempty"`
	SnoozedUntil   *time.Time       `db:"snoozed_until" json:"snoozed_until,omitempty"`
	SnoozeCount    int              `db:"snooze_count" json:"snooze_count"`
	LastRemindedAt *time.Time       `db:"last_reminded_at" json:"last_reminded_at,omitempty"`
	ReminderCount  int              `db:"reminder_count" json:"reminder_count"`
	Timestamps
}

// IsSnoozedAt reports whether the snooze window covers the given instant.
// An expired snooze no longer mutes reminders even though the flag is
// still set on the row.
func (rs *RecipientState) IsSnoozedAt(now time.Time) bool {
	return rs.IsSnoozed && rs.SnoozedUntil != nil && now.Before(*rs.SnoozedUntil)
}

// RecipientAlert pairs an alert with the viewer's own read and snooze
// state for notification feed listings.
type RecipientAlert struct {
	Alert
	IsRead       bool       `db:"is_read" json:"is_read"`
	ReadAt       *time.Time `db:"read_at" json:"read_at,omitempty"`
	IsSnoozed    bool       `db:"is_snoozed" json:"is_snoozed"`
	SnoozedUntil *time.Time `db:"snoozed_until" json:"snoozed_until,omitempty"`
	SnoozeCount  int        `db:"snooze_count" json:"snooze_count"`
}

// RecipientFeedFilter narrows a user's notification feed.
type RecipientFeedFilter struct {
	Severity AlertSeverity
	Unread   *bool
	Limit    int
	Offset   int
}

// RecipientCounts summarizes a user's notification feed.
type RecipientCounts struct {
	Total   int `db:"total" json:"total"`
	Unread  int `db:"unread" json:"unread"`
	Read    int `db:"read" json:"read"`
	Snoozed int `db:"snoozed" json:"snoozed"`
}
