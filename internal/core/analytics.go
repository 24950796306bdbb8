package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/models"
)

// topAlertsLimit caps the most-read and most-snoozed rankings on the
// dashboard.
const topAlertsLimit = 5

// GetDashboardAnalytics assembles the admin overview. Everything is
// recomputed from the live tables on each call; nothing is cached.
func GetDashboardAnalytics(ctx context.Context, db *sqlite.DB, log *slog.Logger, now time.Time, loc *time.Location) (*models.DashboardAnalytics, error) {
	statusCounts, err := db.CountAlertsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts by status: %w", err)
	}
	severityCounts, err := db.CountAlertsBySeverity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts by severity: %w", err)
	}

	out := &models.DashboardAnalytics{
		ByStatus:    statusCounts,
		BySeverity:  severityCounts,
		GeneratedAt: now,
	}
	for _, sc := range statusCounts {
		out.TotalAlerts += sc.Count
		switch sc.Status {
		case models.AlertStatusActive:
			out.ActiveAlerts = sc.Count
		case models.AlertStatusArchived:
			out.ArchivedAlerts = sc.Count
		}
	}

	local := now.In(loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if out.AlertsToday, err = db.CountAlertsCreatedSince(ctx, startOfDay); err != nil {
		return nil, fmt.Errorf("failed to count alerts created today: %w", err)
	}
	if out.AlertsThisWeek, err = db.CountAlertsCreatedSince(ctx, now.AddDate(0, 0, -7)); err != nil {
		return nil, fmt.Errorf("failed to count alerts created this week: %w", err)
	}
	if out.AlertsThisMonth, err = db.CountAlertsCreatedSince(ctx, now.AddDate(0, -1, 0)); err != nil {
		return nil, fmt.Errorf("failed to count alerts created this month: %w", err)
	}

	engagement, err := db.GetGlobalEngagement(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get engagement totals: %w", err)
	}
	out.TotalRecipients = engagement.Recipients
	out.TotalRead = engagement.Read
	out.TotalSnoozed = engagement.Snoozed
	out.TotalSnoozes = engagement.SnoozeCount
	out.ReadRate = ratio(engagement.Read, engagement.Recipients)
	out.SnoozeRate = ratio(engagement.Snoozed, engagement.Recipients)

	if out.MostRead, err = db.ListTopReadAlerts(ctx, topAlertsLimit); err != nil {
		return nil, fmt.Errorf("failed to rank alerts by reads: %w", err)
	}
	if out.MostSnoozed, err = db.ListTopSnoozedAlerts(ctx, topAlertsLimit); err != nil {
		return nil, fmt.Errorf("failed to rank alerts by snoozes: %w", err)
	}

	stats, err := db.GetDeliveryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery stats: %w", err)
	}
	computeDeliveryRates(stats)
	out.Delivery = *stats

	return out, nil
}

// GetAlertAnalytics reports engagement for one alert.
func GetAlertAnalytics(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID, now time.Time) (*models.AlertAnalytics, error) {
	alert, err := GetAlert(ctx, db, log, alertID)
	if err != nil {
		return nil, err
	}

	engagement, err := db.GetAlertEngagement(ctx, alertID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert engagement: %w", err)
	}
	avgSeconds, err := db.GetAvgSecondsToRead(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to get average time to read: %w", err)
	}
	stats, err := db.GetAlertDeliveryStats(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert delivery stats: %w", err)
	}
	computeDeliveryRates(stats)

	return &models.AlertAnalytics{
		AlertID:          alert.ID,
		Title:            alert.Title,
		Severity:         alert.Severity,
		Status:           alert.Status,
		Recipients:       engagement.Recipients,
		Read:             engagement.Read,
		Unread:           engagement.Recipients - engagement.Read,
		Snoozed:          engagement.Snoozed,
		SnoozeCount:      engagement.SnoozeCount,
		ReminderCount:    engagement.ReminderCount,
		ReadRate:         ratio(engagement.Read, engagement.Recipients),
		AvgSecondsToRead: avgSeconds,
		Delivery:         *stats,
		GeneratedAt:      now,
	}, nil
}

// GetUserAnalytics reports one user's engagement across every alert
// addressed to them, active or archived.
func GetUserAnalytics(ctx context.Context, db *sqlite.DB, log *slog.Logger, userID models.UserID, now time.Time) (*models.UserAnalytics, error) {
	user, err := GetUser(ctx, db, log, userID)
	if err != nil {
		return nil, err
	}

	engagement, err := db.GetUserEngagement(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get user engagement: %w", err)
	}

	return &models.UserAnalytics{
		UserID:        user.ID,
		Name:          user.Name,
		Total:         engagement.Recipients,
		Read:          engagement.Read,
		Unread:        engagement.Recipients - engagement.Read,
		Snoozed:       engagement.Snoozed,
		SnoozeCount:   engagement.SnoozeCount,
		ReminderCount: engagement.ReminderCount,
		ReadRate:      ratio(engagement.Read, engagement.Recipients),
		GeneratedAt:   now,
	}, nil
}

// GetTeamAnalytics aggregates engagement over a team's members.
func GetTeamAnalytics(ctx context.Context, db *sqlite.DB, log *slog.Logger, teamID models.TeamID, now time.Time) (*models.TeamAnalytics, error) {
	team, err := GetTeam(ctx, db, log, teamID)
	if err != nil {
		return nil, err
	}

	engagement, err := db.GetTeamEngagement(ctx, teamID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get team engagement: %w", err)
	}

	return &models.TeamAnalytics{
		TeamID:      team.ID,
		Name:        team.Name,
		Members:     team.MemberCount,
		Total:       engagement.Recipients,
		Read:        engagement.Read,
		Unread:      engagement.Recipients - engagement.Read,
		Snoozed:     engagement.Snoozed,
		ReadRate:    ratio(engagement.Read, engagement.Recipients),
		GeneratedAt: now,
	}, nil
}

// ratio returns part/whole, or zero when the denominator is zero.
func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

// computeDeliveryRates fills the derived rate fields in place.
func computeDeliveryRates(s *models.DeliveryStats) {
	if s.TotalSent > 0 {
		s.DeliveryRate = float64(s.TotalDelivered) / float64(s.TotalSent)
	}
	if s.TotalDelivered > 0 {
		s.ReadRate = float64(s.TotalRead) / float64(s.TotalDelivered)
	}
}
