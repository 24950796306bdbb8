package models

import "time"

// AlertID identifies an alert.
type AlertID int64

// AlertSeverity indicates how urgent an alert is for its recipients.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

func (s AlertSeverity) String() string {
	return string(s)
}

func (s AlertSeverity) IsValid() bool {
	switch s {
	case AlertSeverityInfo, AlertSeverityWarning, AlertSeverityCritical:
		return true
	default:
		return false
	}
}

// AlertStatus captures the lifecycle state of an alert. Archived is terminal.
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusArchived AlertStatus = "archived"
)

func (s AlertStatus) String() string {
	return string(s)
}

func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusActive, AlertStatusArchived:
		return true
	default:
		return false
	}
}

// AlertVisibility selects the audience an alert is addressed to.
type AlertVisibility string

const (
	AlertVisibilityOrganization AlertVisibility = "organization"
	AlertVisibilityTeam         AlertVisibility = "team"
	AlertVisibilityUser         AlertVisibility = "user"
)

func (v AlertVisibility) String() string {
	return string(v)
}

func (v AlertVisibility) IsValid() bool {
	switch v {
	case AlertVisibilityOrganization, AlertVisibilityTeam, AlertVisibilityUser:
		return true
	default:
		return false
	}
}

// Alert is an admin-authored announcement fanned out to the recipients
// resolved from its visibility and targets.
type Alert struct {
	ID                    AlertID         `db:"id" json:"id"`
	Title                 string          `db:"title" json:"title"`
	Message               string          `db:"message" json:"message"`
	Severity              AlertSeverity   `db:"severity" json:"severity"`
	Status                AlertStatus     `db:"status" json:"status"`
	Visibility            AlertVisibility `db:"visibility" json:"visibility"`
	TargetTeamIDs         []TeamID        `db:"target_team_ids" json:"target_team_ids,omitempty"`
	TargetUserIDs         []UserID        `db:"target_user_ids" json:"target_user_ids,omitempty"`
	DeliveryChannel       DeliveryChannel `db:"delivery_channel" json:"delivery_channel"`
	RemindersEnabled      bool            `db:"reminders_enabled" json:"reminders_enabled"`
	ReminderIntervalHours int             `db:"reminder_interval_hours" json:"reminder_interval_hours"`
	StartTime             time.Time       `db:"start_time" json:"start_time"`
	ExpiryTime            *time.Time      `db:"expiry_time" json:"expiry_time,omitempty"`
	CreatedBy             UserID          `db:"created_by" json:"created_by"`
	ArchivedAt            *time.Time      `db:"archived_at" json:"archived_at,omitempty"`
	Timestamps
}

// IsActiveAt reports whether the alert is live for recipients at the given
// instant, taking status, start time, and expiry into account.
func (a *Alert) IsActiveAt(now time.Time) bool {
	if a.Status != AlertStatusActive {
		return false
	}
	if a.StartTime.After(now) {
		return false
	}
	if a.ExpiryTime != nil && !a.ExpiryTime.After(now) {
		return false
	}
	return true
}

// CreateAlertRequest defines the payload required to create a new alert.
type CreateAlertRequest struct {
	Title                 string          `json:"title" validate:"required,min=1,max=200"`
	Message               string          `json:"message" validate:"required"`
	Severity              AlertSeverity   `json:"severity" validate:"omitempty,oneof=info warning critical"`
	Visibility            AlertVisibility `json:"visibility" validate:"required,oneof=organization team user"`
	TargetTeamIDs         []TeamID        `json:"target_team_ids"`
	TargetUserIDs         []UserID        `json:"target_user_ids"`
	DeliveryChannel       DeliveryChannel `json:"delivery_channel" validate:"omitempty,oneof=in_app email sms"`
	RemindersEnabled      *bool           `json:"reminders_enabled"`
	ReminderIntervalHours int             `json:"reminder_interval_hours" validate:"omitempty,min=1,max=168"`
	StartTime             *time.Time      `json:"start_time"`
	ExpiryTime            *time.Time      `json:"expiry_time"`
}

// UpdateAlertRequest defines updatable fields for an alert. Nil fields are
// left unchanged.
type UpdateAlertRequest struct {
	Title                 *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Message               *string          `json:"message"`
	Severity              *AlertSeverity   `json:"severity" validate:"omitempty,oneof=info warning critical"`
	Visibility            *AlertVisibility `json:"visibility" validate:"omitempty,oneof=organization team user"`
	TargetTeamIDs         *[]TeamID        `json:"target_team_ids"`
	TargetUserIDs         *[]UserID        `json:"target_user_ids"`
	DeliveryChannel       *DeliveryChannel `json:"delivery_channel" validate:"omitempty,oneof=in_app email sms"`
	RemindersEnabled      *bool            `json:"reminders_enabled"`
	ReminderIntervalHours *int             `json:"reminder_interval_hours" validate:"omitempty,min=1,max=168"`
	StartTime             *time.Time       `json:"start_time"`
	ExpiryTime            *time.Time       `json:"expiry_time"`
}

// AlertWithStats pairs an alert with recipient engagement counts for
// the admin detail view.
type AlertWithStats struct {
	Alert
	TotalRecipients int `json:"total_recipients"`
	ReadCount       int `json:"read_count"`
	SnoozedCount    int `json:"snoozed_count"`
}

// AlertFilter narrows admin alert listings.
type AlertFilter struct {
	Severity   AlertSeverity
	Status     AlertStatus
	Visibility AlertVisibility
	CreatedBy  UserID
	Limit      int
	Offset     int
}

// DefaultAlertListLimit controls the number of alerts returned when unspecified.
const DefaultAlertListLimit = 50
