package models

import "time"

// DeliveryID identifies a delivery attempt.
type DeliveryID int64

// DeliveryChannel enumerates supported notification channels.
type DeliveryChannel string

const (
	DeliveryChannelInApp DeliveryChannel = "in_app"
	DeliveryChannelEmail DeliveryChannel = "email"
	DeliveryChannelSMS   DeliveryChannel = "sms"
)

func (c DeliveryChannel) String() string {
	return string(c)
}

func (c DeliveryChannel) IsValid() bool {
	switch c {
	case DeliveryChannelInApp, DeliveryChannelEmail, DeliveryChannelSMS:
		return true
	default:
		return false
	}
}

// DeliveryStatus tracks the progress of a delivery attempt.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusRead      DeliveryStatus = "read"
)

func (s DeliveryStatus) String() string {
	return string(s)
}

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusSent, DeliveryStatusDelivered,
		DeliveryStatusFailed, DeliveryStatusRead:
		return true
	default:
		return false
	}
}

// DefaultMaxRetries is the retry budget assigned to new deliveries.
const DefaultMaxRetries = 3

// RetryBackoff is the delay added per prior attempt when scheduling a
// failed delivery for retry.
const RetryBackoff = 5 * time.Minute

// Delivery records a single attempt to notify one user about one alert
// over one channel, including reminder re-sends.
type Delivery struct {
	ID               DeliveryID      `db:"id" json:"id"`
	AlertID          AlertID         `db:"alert_id" json:"alert_id"`
	UserID           UserID          `db:"user_id" json:"user_id"`
	Channel          DeliveryChannel `db:"channel" json:"channel"`
	Status           DeliveryStatus  `db:"status" json:"status"`
	IsReminder       bool            `db:"is_reminder" json:"is_reminder"`
	ReminderSequence int             `db:"reminder_sequence" json:"reminder_sequence"`
	RetryCount       int             `db:"retry_count" json:"retry_count"`
	MaxRetries       int             `db:"max_retries" json:"max_retries"`
	NextRetryAt      *time.Time      `db:"next_retry_at" json:"next_retry_at,omitempty"`
	ErrorMessage     string          `db:"error_message" json:"error_message,omitempty"`
	SentAt           *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt      *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
	ReadAt           *time.Time      `db:"read_at" json:"read_at,omitempty"`
	Timestamps
}

// CanRetry reports whether a failed delivery still has retry budget and
// its backoff window has elapsed.
func (d *Delivery) CanRetry(now time.Time) bool {
	if d.Status != DeliveryStatusFailed {
		return false
	}
	if d.RetryCount >= d.MaxRetries {
		return false
	}
	return d.NextRetryAt == nil || !d.NextRetryAt.After(now)
}

// DeliveryFilter narrows admin delivery listings.
type DeliveryFilter struct {
	AlertID    AlertID
	UserID     UserID
	Channel    DeliveryChannel
	Status     DeliveryStatus
	IsReminder *bool
	Limit      int
	Offset     int
}

// NotificationItem is one row of a user's notification feed: a delivery
// joined with its alert and the viewer's read and snooze state.
type NotificationItem struct {
	Delivery
	AlertTitle    string        `db:"alert_title" json:"alert_title"`
	AlertMessage  string        `db:"alert_message" json:"alert_message"`
	AlertSeverity AlertSeverity `db:"alert_severity" json:"alert_severity"`
	IsRead        bool          `db:"is_read" json:"is_read"`
	IsSnoozed     bool          `db:"is_snoozed" json:"is_snoozed"`
	SnoozedUntil  *time.Time    `db:"snoozed_until" json:"snoozed_until,omitempty"`
}
