package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr-karan/noticeboard/internal/notify"
	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/models"
)

// SeedDemoData populates an empty database with demo teams, users and
// alerts, routed through the same creation paths the API uses so
// recipient states and deliveries materialize normally. Running it
// against an already seeded database is a no-op.
func SeedDemoData(ctx context.Context, db *sqlite.DB, log *slog.Logger, registry *notify.Registry, defaultReminderHours int, now time.Time) error {
	seeded, err := db.GetUserByEmail(ctx, "alice@company.com")
	if err == nil && seeded != nil {
		log.Info("seed data already present, skipping")
		return nil
	}

	teamSpecs := []models.CreateTeamRequest{
		{Name: "Engineering", Description: "Software development team"},
		{Name: "Marketing", Description: "Marketing and growth team"},
		{Name: "Operations", Description: "Operations and infrastructure team"},
		{Name: "Design", Description: "Product design team"},
	}
	teams := make(map[string]models.TeamID, len(teamSpecs))
	for i := range teamSpecs {
		team, err := CreateTeam(ctx, db, log, &teamSpecs[i])
		if err != nil {
			return fmt.Errorf("failed to seed team %q: %w", teamSpecs[i].Name, err)
		}
		teams[team.Name] = team.ID
	}

	userSpecs := []struct {
		name  string
		email string
		role  models.UserRole
		team  string
	}{
		{"Alice Admin", "alice@company.com", models.UserRoleAdmin, "Engineering"},
		{"Bob Manager", "bob@company.com", models.UserRoleAdmin, "Marketing"},
		{"Charlie Developer", "charlie@company.com", models.UserRoleMember, "Engineering"},
		{"Diana Designer", "diana@company.com", models.UserRoleMember, "Design"},
		{"Eve Engineer", "eve@company.com", models.UserRoleMember, "Engineering"},
		{"Frank Marketer", "frank@company.com", models.UserRoleMember, "Marketing"},
		{"Grace Ops", "grace@company.com", models.UserRoleMember, "Operations"},
		{"Henry Developer", "henry@company.com", models.UserRoleMember, "Engineering"},
	}
	users := make(map[string]models.UserID, len(userSpecs))
	for _, spec := range userSpecs {
		teamID := teams[spec.team]
		user, err := CreateUser(ctx, db, log, &models.CreateUserRequest{
			Name:   spec.name,
			Email:  spec.email,
			Role:   spec.role,
			TeamID: &teamID,
		})
		if err != nil {
			return fmt.Errorf("failed to seed user %q: %w", spec.email, err)
		}
		users[spec.name] = user.ID
	}

	alertSpecs := []struct {
		req       models.CreateAlertRequest
		createdBy models.UserID
	}{
		{
			req: models.CreateAlertRequest{
				Title:                 "System Maintenance Window",
				Message:               "Scheduled maintenance will occur this weekend. Please save your work.",
				Severity:              models.AlertSeverityWarning,
				Visibility:            models.AlertVisibilityOrganization,
				ReminderIntervalHours: 2,
				ExpiryTime:            timePtr(now.AddDate(0, 0, 7)),
			},
			createdBy: users["Alice Admin"],
		},
		{
			req: models.CreateAlertRequest{
				Title:                 "Security Update Required",
				Message:               "Please update your passwords and enable 2FA by end of week.",
				Severity:              models.AlertSeverityCritical,
				Visibility:            models.AlertVisibilityOrganization,
				ReminderIntervalHours: 4,
				ExpiryTime:            timePtr(now.AddDate(0, 0, 14)),
			},
			createdBy: users["Alice Admin"],
		},
		{
			req: models.CreateAlertRequest{
				Title:         "Engineering Team Meeting",
				Message:       "Sprint planning meeting tomorrow at 10 AM in conference room A.",
				Severity:      models.AlertSeverityInfo,
				Visibility:    models.AlertVisibilityTeam,
				TargetTeamIDs: []models.TeamID{teams["Engineering"]},
				ExpiryTime:    timePtr(now.AddDate(0, 0, 1)),
			},
			createdBy: users["Alice Admin"],
		},
		{
			req: models.CreateAlertRequest{
				Title:         "Marketing Campaign Launch",
				Message:       "New product launch campaign goes live next Monday. All hands on deck!",
				Severity:      models.AlertSeverityWarning,
				Visibility:    models.AlertVisibilityTeam,
				TargetTeamIDs: []models.TeamID{teams["Marketing"]},
				ExpiryTime:    timePtr(now.AddDate(0, 0, 3)),
			},
			createdBy: users["Bob Manager"],
		},
		{
			req: models.CreateAlertRequest{
				Title:         "Personal Task Reminder",
				Message:       "Don't forget to submit your quarterly review by Friday.",
				Severity:      models.AlertSeverityInfo,
				Visibility:    models.AlertVisibilityUser,
				TargetUserIDs: []models.UserID{users["Charlie Developer"]},
				ExpiryTime:    timePtr(now.AddDate(0, 0, 5)),
			},
			createdBy: users["Alice Admin"],
		},
	}
	alerts := make([]*models.Alert, 0, len(alertSpecs))
	for i := range alertSpecs {
		alert, err := CreateAlert(ctx, db, log, registry, &alertSpecs[i].req, alertSpecs[i].createdBy, defaultReminderHours, now)
		if err != nil {
			return fmt.Errorf("failed to seed alert %q: %w", alertSpecs[i].req.Title, err)
		}
		alerts = append(alerts, alert)
	}

	// A little interaction history so analytics have something to show.
	if _, err := MarkAlertRead(ctx, db, log, alerts[0].ID, users["Charlie Developer"], now); err != nil {
		return fmt.Errorf("failed to seed read state: %w", err)
	}
	if _, err := MarkAlertRead(ctx, db, log, alerts[0].ID, users["Eve Engineer"], now); err != nil {
		return fmt.Errorf("failed to seed read state: %w", err)
	}
	if _, err := SnoozeAlert(ctx, db, log, alerts[1].ID, users["Diana Designer"], now, time.UTC); err != nil {
		return fmt.Errorf("failed to seed snooze state: %w", err)
	}

	log.Info("seed data created", "teams", len(teamSpecs), "users", len(userSpecs), "alerts", len(alertSpecs))
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
