package models

import "time"

// SeverityCount is one row of a severity breakdown.
type SeverityCount struct {
	Severity AlertSeverity `db:"severity" json:"severity"`
	Count    int           `db:"count" json:"count"`
}

// StatusCount is one row of a status breakdown.
type StatusCount struct {
	Status AlertStatus `db:"status" json:"status"`
	Count  int         `db:"count" json:"count"`
}

// AlertEngagement ranks an alert by a single engagement metric, such as
// reads or snoozes.
type AlertEngagement struct {
	AlertID  AlertID       `db:"alert_id" json:"alert_id"`
	Title    string        `db:"title" json:"title"`
	Severity AlertSeverity `db:"severity" json:"severity"`
	Count    int           `db:"count" json:"count"`
}

// DeliveryStats aggregates delivery outcomes. Sent counts include every
// attempt that reached at least the sent state.
type DeliveryStats struct {
	TotalPending   int     `db:"total_pending" json:"total_pending"`
	TotalSent      int     `db:"total_sent" json:"total_sent"`
	TotalDelivered int     `db:"total_delivered" json:"total_delivered"`
	TotalRead      int     `db:"total_read" json:"total_read"`
	TotalFailed    int     `db:"total_failed" json:"total_failed"`
	DeliveryRate   float64 `db:"-" json:"delivery_rate"`
	ReadRate       float64 `db:"-" json:"read_rate"`
}

// EngagementTotals aggregates recipient-state counters over some scope,
// such as one alert, one user, or a whole team.
type EngagementTotals struct {
	Recipients    int `db:"recipients" json:"recipients"`
	Read          int `db:"read" json:"read"`
	Snoozed       int `db:"snoozed" json:"snoozed"`
	SnoozeCount   int `db:"snooze_count" json:"snooze_count"`
	ReminderCount int `db:"reminder_count" json:"reminder_count"`
}

// DashboardAnalytics is the admin overview, recomputed on each request.
type DashboardAnalytics struct {
	TotalAlerts    int `json:"total_alerts"`
	ActiveAlerts   int `json:"active_alerts"`
	ArchivedAlerts int `json:"archived_alerts"`

	AlertsToday     int `json:"alerts_today"`
	AlertsThisWeek  int `json:"alerts_this_week"`
	AlertsThisMonth int `json:"alerts_this_month"`

	BySeverity []SeverityCount `json:"by_severity"`
	ByStatus   []StatusCount   `json:"by_status"`

	TotalRecipients int     `json:"total_recipients"`
	TotalRead       int     `json:"total_read"`
	TotalSnoozed    int     `json:"total_snoozed"`
	TotalSnoozes    int     `json:"total_snoozes"`
	ReadRate        float64 `json:"read_rate"`
	SnoozeRate      float64 `json:"snooze_rate"`

	MostRead    []AlertEngagement `json:"most_read"`
	MostSnoozed []AlertEngagement `json:"most_snoozed"`

	Delivery DeliveryStats `json:"delivery"`

	GeneratedAt time.Time `json:"generated_at"`
}

// AlertAnalytics reports engagement for a single alert.
type AlertAnalytics struct {
	AlertID          AlertID       `json:"alert_id"`
	Title            string        `json:"title"`
	Severity         AlertSeverity `json:"severity"`
	Status           AlertStatus   `json:"status"`
	Recipients       int           `json:"recipients"`
	Read             int           `json:"read"`
	Unread           int           `json:"unread"`
	Snoozed          int           `json:"snoozed"`
	SnoozeCount      int           `json:"snooze_count"`
	ReminderCount    int           `json:"reminder_count"`
	ReadRate         float64       `json:"read_rate"`
	AvgSecondsToRead *float64      `json:"avg_seconds_to_read,omitempty"`
	Delivery         DeliveryStats `json:"delivery"`
	GeneratedAt      time.Time     `json:"generated_at"`
}

// UserAnalytics reports one user's engagement across their feed.
type UserAnalytics struct {
	UserID        UserID    `json:"user_id"`
	Name          string    `json:"name"`
	Total         int       `json:"total"`
	Read          int       `json:"read"`
	Unread        int       `json:"unread"`
	Snoozed       int       `json:"snoozed"`
	SnoozeCount   int       `json:"snooze_count"`
	ReminderCount int       `json:"reminder_count"`
	ReadRate      float64   `json:"read_rate"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// TeamAnalytics aggregates engagement over one team's active members.
type TeamAnalytics struct {
	TeamID      TeamID    `json:"team_id"`
	Name        string    `json:"name"`
	Members     int       `json:"members"`
	Total       int       `json:"total"`
	Read        int       `json:"read"`
	Unread      int       `json:"unread"`
	Snoozed     int       `json:"snoozed"`
	ReadRate    float64   `json:"read_rate"`
	GeneratedAt time.Time `json:"generated_at"`
}
