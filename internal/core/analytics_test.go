package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mr-karan/noticeboard/pkg/models"
)

func TestGetDashboardAnalytics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admin := createTestAdmin(t, db, "Admin", "admin@example.com")
	alice := createTestUser(t, db, "Alice", "alice@example.com", nil)
	bob := createTestUser(t, db, "Bob", "bob@example.com", nil)

	infoAlert := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "Routine notice",
		Message:    "m",
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)
	criticalAlert := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "Major outage",
		Message:    "m",
		Severity:   models.AlertSeverityCritical,
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)

	if _, err := MarkAlertRead(ctx, db, testLogger(), infoAlert.ID, alice.ID, testNow.Add(5*time.Minute)); err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}
	if _, err := SnoozeAlert(ctx, db, testLogger(), criticalAlert.ID, bob.ID, testNow, time.UTC); err != nil {
		t.Fatalf("SnoozeAlert() error = %v", err)
	}
	if _, err := ArchiveAlert(ctx, db, testLogger(), criticalAlert.ID, testNow.Add(time.Hour)); err != nil {
		t.Fatalf("ArchiveAlert() error = %v", err)
	}

	now := testNow.Add(2 * time.Hour)
	dash, err := GetDashboardAnalytics(ctx, db, testLogger(), now, time.UTC)
	if err != nil {
		t.Fatalf("GetDashboardAnalytics() error = %v", err)
	}

	if dash.TotalAlerts != 2 {
		t.Errorf("TotalAlerts = %d, want 2", dash.TotalAlerts)
	}
	if dash.ActiveAlerts != 1 {
		t.Errorf("ActiveAlerts = %d, want 1", dash.ActiveAlerts)
	}
	if dash.ArchivedAlerts != 1 {
		t.Errorf("ArchivedAlerts = %d, want 1", dash.ArchivedAlerts)
	}

	severities := make(map[models.AlertSeverity]int)
	for _, sc := range dash.BySeverity {
		severities[sc.Severity] = sc.Count
	}
	if severities[models.AlertSeverityInfo] != 1 || severities[models.AlertSeverityCritical] != 1 {
		t.Errorf("BySeverity = %v, want one info and one critical", dash.BySeverity)
	}

	// Both alerts were created after every window boundary.
	if dash.AlertsToday != 2 || dash.AlertsThisWeek != 2 || dash.AlertsThisMonth != 2 {
		t.Errorf("window counts = %d/%d/%d, want 2/2/2",
			dash.AlertsToday, dash.AlertsThisWeek, dash.AlertsThisMonth)
	}

	if dash.TotalRecipients != 6 {
		t.Errorf("TotalRecipients = %d, want 6", dash.TotalRecipients)
	}
	if dash.TotalRead != 1 {
		t.Errorf("TotalRead = %d, want 1", dash.TotalRead)
	}
	if dash.TotalSnoozed != 1 {
		t.Errorf("TotalSnoozed = %d, want 1", dash.TotalSnoozed)
	}
	if dash.TotalSnoozes != 1 {
		t.Errorf("TotalSnoozes = %d, want 1", dash.TotalSnoozes)
	}
	if want := 1.0 / 6.0; dash.ReadRate != want {
		t.Errorf("ReadRate = %v, want %v", dash.ReadRate, want)
	}

	if len(dash.MostRead) != 1 || dash.MostRead[0].AlertID != infoAlert.ID {
		t.Errorf("MostRead = %v, want only alert %d", dash.MostRead, infoAlert.ID)
	}
	if len(dash.MostSnoozed) != 1 || dash.MostSnoozed[0].AlertID != criticalAlert.ID {
		t.Errorf("MostSnoozed = %v, want only alert %d", dash.MostSnoozed, criticalAlert.ID)
	}

	if dash.Delivery.TotalSent != 6 {
		t.Errorf("Delivery.TotalSent = %d, want 6", dash.Delivery.TotalSent)
	}
	if dash.Delivery.TotalDelivered != 6 {
		t.Errorf("Delivery.TotalDelivered = %d, want 6", dash.Delivery.TotalDelivered)
	}
	if dash.Delivery.TotalRead != 1 {
		t.Errorf("Delivery.TotalRead = %d, want 1", dash.Delivery.TotalRead)
	}
	if dash.Delivery.DeliveryRate != 1.0 {
		t.Errorf("Delivery.DeliveryRate = %v, want 1", dash.Delivery.DeliveryRate)
	}
	if !dash.GeneratedAt.Equal(now) {
		t.Errorf("GeneratedAt = %v, want %v", dash.GeneratedAt, now)
	}
}

func TestGetAlertAnalytics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admin := createTestAdmin(t, db, "Admin", "admin@example.com")
	alice := createTestUser(t, db, "Alice", "alice@example.com", nil)
	bob := createTestUser(t, db, "Bob", "bob@example.com", nil)

	alert := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "Cert rotation",
		Message:    "m",
		Severity:   models.AlertSeverityWarning,
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)

	if _, err := MarkAlertRead(ctx, db, testLogger(), alert.ID, alice.ID, testNow.Add(5*time.Minute)); err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}
	if _, err := SnoozeAlert(ctx, db, testLogger(), alert.ID, bob.ID, testNow, time.UTC); err != nil {
		t.Fatalf("SnoozeAlert() error = %v", err)
	}

	got, err := GetAlertAnalytics(ctx, db, testLogger(), alert.ID, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetAlertAnalytics() error = %v", err)
	}
	if got.AlertID != alert.ID || got.Title != "Cert rotation" || got.Severity != models.AlertSeverityWarning {
		t.Errorf("alert identity = %d/%q/%q, want %d/%q/%q",
			got.AlertID, got.Title, got.Severity, alert.ID, "Cert rotation", models.AlertSeverityWarning)
	}
	if got.Recipients != 3 {
		t.Errorf("Recipients = %d, want 3", got.Recipients)
	}
	if got.Read != 1 || got.Unread != 2 {
		t.Errorf("Read/Unread = %d/%d, want 1/2", got.Read, got.Unread)
	}
	if got.Snoozed != 1 || got.SnoozeCount != 1 {
		t.Errorf("Snoozed/SnoozeCount = %d/%d, want 1/1", got.Snoozed, got.SnoozeCount)
	}
	if got.ReminderCount != 0 {
		t.Errorf("ReminderCount = %d, want 0", got.ReminderCount)
	}
	if want := 1.0 / 3.0; got.ReadRate != want {
		t.Errorf("ReadRate = %v, want %v", got.ReadRate, want)
	}
	if got.AvgSecondsToRead == nil {
		t.Error("AvgSecondsToRead = nil with one read recipient")
	}
	if got.Delivery.TotalSent != 3 || got.Delivery.TotalRead != 1 {
		t.Errorf("Delivery = %+v, want 3 sent and 1 read", got.Delivery)
	}

	if _, err := GetAlertAnalytics(ctx, db, testLogger(), models.AlertID(9999), testNow); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("GetAlertAnalytics(unknown alert) error = %v, want ErrAlertNotFound", err)
	}
}

func TestGetUserAnalytics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admin := createTestAdmin(t, db, "Admin", "admin@example.com")
	alice := createTestUser(t, db, "Alice", "alice@example.com", nil)

	first := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "First",
		Message:    "m",
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)
	createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "Second",
		Message:    "m",
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)

	if _, err := MarkAlertRead(ctx, db, testLogger(), first.ID, alice.ID, testNow.Add(time.Minute)); err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}

	got, err := GetUserAnalytics(ctx, db, testLogger(), alice.ID, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetUserAnalytics() error = %v", err)
	}
	if got.UserID != alice.ID || got.Name != "Alice" {
		t.Errorf("user identity = %d/%q, want %d/Alice", got.UserID, got.Name, alice.ID)
	}
	if got.Total != 2 || got.Read != 1 || got.Unread != 1 {
		t.Errorf("Total/Read/Unread = %d/%d/%d, want 2/1/1", got.Total, got.Read, got.Unread)
	}
	if got.ReadRate != 0.5 {
		t.Errorf("ReadRate = %v, want 0.5", got.ReadRate)
	}

	if _, err := GetUserAnalytics(ctx, db, testLogger(), models.UserID(9999), testNow); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserAnalytics(unknown user) error = %v, want ErrUserNotFound", err)
	}
}

func TestGetTeamAnalytics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admin := createTestAdmin(t, db, "Admin", "admin@example.com")
	team := createTestTeam(t, db, "Platform")
	alice := createTestUser(t, db, "Alice", "alice@example.com", &team.ID)
	createTestUser(t, db, "Bob", "bob@example.com", &team.ID)

	alert := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:         "Team notice",
		Message:       "m",
		Visibility:    models.AlertVisibilityTeam,
		TargetTeamIDs: []models.TeamID{team.ID},
	}, admin.ID)

	if _, err := MarkAlertRead(ctx, db, testLogger(), alert.ID, alice.ID, testNow.Add(time.Minute)); err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}

	got, err := GetTeamAnalytics(ctx, db, testLogger(), team.ID, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetTeamAnalytics() error = %v", err)
	}
	if got.TeamID != team.ID || got.Name != "Platform" {
		t.Errorf("team identity = %d/%q, want %d/Platform", got.TeamID, got.Name, team.ID)
	}
	if got.Members != 2 {
		t.Errorf("Members = %d, want 2", got.Members)
	}
	if got.Total != 2 || got.Read != 1 || got.Unread != 1 {
		t.Errorf("Total/Read/Unread = %d/%d/%d, want 2/1/1", got.Total, got.Read, got.Unread)
	}
	if got.ReadRate != 0.5 {
		t.Errorf("ReadRate = %v, want 0.5", got.ReadRate)
	}

	if _, err := GetTeamAnalytics(ctx, db, testLogger(), models.TeamID(9999), testNow); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("GetTeamAnalytics(unknown team) error = %v, want ErrTeamNotFound", err)
	}
}
