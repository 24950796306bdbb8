package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mr-karan/noticeboard/pkg/models"
)

func TestEndOfDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)

	tests := []struct {
		name string
		at   time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			"utc morning",
			time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
			time.UTC,
			time.Date(2025, 6, 2, 23, 59, 59, 0, time.UTC),
		},
		{
			"utc midnight",
			time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			time.UTC,
			time.Date(2025, 6, 2, 23, 59, 59, 0, time.UTC),
		},
		{
			"late utc evening is already the next day in ist",
			time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC),
			ist,
			time.Date(2025, 6, 3, 23, 59, 59, 0, ist),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EndOfDay(tt.at, tt.loc); !got.Equal(tt.want) {
				t.Errorf("EndOfDay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkAlertRead(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admin := createTestAdmin(t, db, "Admin", "admin@example.com")
	alice := createTestUser(t, db, "Alice", "alice@example.com", nil)

	alert := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "Security patch",
		Message:    "Reboot hosts tonight",
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)

	readAt := testNow.Add(10 * time.Minute)
	state, err := MarkAlertRead(ctx, db, testLogger(), alert.ID, alice.ID, readAt)
	if err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}
	if !state.IsRead {
		t.Error("IsRead = false after marking read")
	}
	if state.ReadAt == nil || !state.ReadAt.Equal(readAt) {
		t.Errorf("ReadAt = %v, want %v", state.ReadAt, readAt)
	}

	deliveries, err := ListDeliveries(ctx, db, models.DeliveryFilter{AlertID: alert.ID, UserID: alice.ID})
	if err != nil {
		t.Fatalf("ListDeliveries() error = %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("ListDeliveries() returned %d deliveries, want 1", len(deliveries))
	}
	if deliveries[0].Status != models.DeliveryStatusRead {
		t.Errorf("delivery status = %q after read, want %q", deliveries[0].Status, models.DeliveryStatusRead)
	}
	if deliveries[0].ReadAt == nil {
		t.Error("delivery ReadAt is nil after read")
	}

	// Marking again later must not move the original read time.
	again, err := MarkAlertRead(ctx, db, testLogger(), alert.ID, alice.ID, readAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("second MarkAlertRead() error = %v", err)
	}
	if again.ReadAt == nil || !again.ReadAt.Equal(readAt) {
		t.Errorf("ReadAt after repeat = %v, want %v", again.ReadAt, readAt)
	}

	outsider := createTestUser(t, db, "Late", "late@example.com", nil)
	if _, err := MarkAlertRead(ctx, db, testLogger(), alert.ID, outsider.ID, readAt); !errors.Is(err, ErrRecipientStateNotFound) {
		t.Errorf("MarkAlertRead(non-recipient) error = %v, want ErrRecipientStateNotFound", err)
	}
}

func TestSnoozeAlert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admin := createTestAdmin(t, db, "Admin", "admin@example.com")
	alice := createTestUser(t, db, "Alice", "alice@example.com", nil)

	alert := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "Noisy alert",
		Message:    "Known flapping check",
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)

	endOfDay := time.Date(2025, 6, 2, 23, 59, 59, 0, time.UTC)

	state, err := SnoozeAlert(ctx, db, testLogger(), alert.ID, alice.ID, testNow, time.UTC)
	if err != nil {
		t.Fatalf("SnoozeAlert() error = %v", err)
	}
	if !state.IsSnoozed {
		t.Error("IsSnoozed = false after snooze")
	}
	if state.SnoozedUntil == nil || !state.SnoozedUntil.Equal(endOfDay) {
		t.Errorf("SnoozedUntil = %v, want %v", state.SnoozedUntil, endOfDay)
	}
	if state.SnoozeCount != 1 {
		t.Errorf("SnoozeCount = %d, want 1", state.SnoozeCount)
	}

	// Snoozing again on the same day keeps the expiry and bumps the counter.
	state, err = SnoozeAlert(ctx, db, testLogger(), alert.ID, alice.ID, testNow.Add(time.Hour), time.UTC)
	if err != nil {
		t.Fatalf("second SnoozeAlert() error = %v", err)
	}
	if state.SnoozeCount != 2 {
		t.Errorf("SnoozeCount = %d, want 2", state.SnoozeCount)
	}
	if state.SnoozedUntil == nil || !state.SnoozedUntil.Equal(endOfDay) {
		t.Errorf("SnoozedUntil = %v, want %v", state.SnoozedUntil, endOfDay)
	}

	if !state.IsSnoozedAt(testNow.Add(2 * time.Hour)) {
		t.Error("IsSnoozedAt() = false inside the snooze window")
	}
	if state.IsSnoozedAt(time.Date(2025, 6, 3, 0, 0, 1, 0, time.UTC)) {
		t.Error("IsSnoozedAt() = true after the end of the day")
	}

	outsider := createTestUser(t, db, "Late", "late@example.com", nil)
	if _, err := SnoozeAlert(ctx, db, testLogger(), alert.ID, outsider.ID, testNow, time.UTC); !errors.Is(err, ErrRecipientStateNotFound) {
		t.Errorf("SnoozeAlert(non-recipient) error = %v, want ErrRecipientStateNotFound", err)
	}
}

func TestRecipientFeed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admin := createTestAdmin(t, db, "Admin", "admin@example.com")
	alice := createTestUser(t, db, "Alice", "alice@example.com", nil)

	first := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "First",
		Message:    "m",
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)
	second := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "Second",
		Message:    "m",
		Severity:   models.AlertSeverityCritical,
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)
	archived := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "Archived",
		Message:    "m",
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)
	if _, err := ArchiveAlert(ctx, db, testLogger(), archived.ID, testNow.Add(time.Minute)); err != nil {
		t.Fatalf("ArchiveAlert() error = %v", err)
	}

	if _, err := MarkAlertRead(ctx, db, testLogger(), first.ID, alice.ID, testNow.Add(time.Minute)); err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}

	now := testNow.Add(5 * time.Minute)
	feed, err := ListRecipientFeed(ctx, db, alice.ID, models.RecipientFeedFilter{}, now)
	if err != nil {
		t.Fatalf("ListRecipientFeed() error = %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("ListRecipientFeed() returned %d alerts, want 2", len(feed))
	}
	if feed[0].ID != second.ID {
		t.Errorf("feed[0].ID = %d, want newest %d", feed[0].ID, second.ID)
	}
	for _, item := range feed {
		if item.ID == first.ID && !item.IsRead {
			t.Error("read alert not flagged read in feed")
		}
		if item.ID == second.ID && item.IsRead {
			t.Error("unread alert flagged read in feed")
		}
	}

	unread := true
	unreadFeed, err := ListRecipientFeed(ctx, db, alice.ID, models.RecipientFeedFilter{Unread: &unread}, now)
	if err != nil {
		t.Fatalf("ListRecipientFeed(unread) error = %v", err)
	}
	if len(unreadFeed) != 1 || unreadFeed[0].ID != second.ID {
		t.Errorf("unread feed = %d alerts, want only alert %d", len(unreadFeed), second.ID)
	}

	criticalFeed, err := ListRecipientFeed(ctx, db, alice.ID, models.RecipientFeedFilter{Severity: models.AlertSeverityCritical}, now)
	if err != nil {
		t.Fatalf("ListRecipientFeed(critical) error = %v", err)
	}
	if len(criticalFeed) != 1 || criticalFeed[0].ID != second.ID {
		t.Errorf("critical feed = %d alerts, want only alert %d", len(criticalFeed), second.ID)
	}
}

func TestGetRecipientCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admin := createTestAdmin(t, db, "Admin", "admin@example.com")
	alice := createTestUser(t, db, "Alice", "alice@example.com", nil)

	first := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "First",
		Message:    "m",
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)
	second := createTestAlert(t, db, &models.CreateAlertRequest{
		Title:      "Second",
		Message:    "m",
		Visibility: models.AlertVisibilityOrganization,
	}, admin.ID)

	if _, err := MarkAlertRead(ctx, db, testLogger(), first.ID, alice.ID, testNow.Add(time.Minute)); err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}
	if _, err := SnoozeAlert(ctx, db, testLogger(), second.ID, alice.ID, testNow, time.UTC); err != nil {
		t.Fatalf("SnoozeAlert() error = %v", err)
	}

	counts, err := GetRecipientCounts(ctx, db, alice.ID, testNow.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("GetRecipientCounts() error = %v", err)
	}
	if counts.Total != 2 {
		t.Errorf("Total = %d, want 2", counts.Total)
	}
	if counts.Read != 1 {
		t.Errorf("Read = %d, want 1", counts.Read)
	}
	if counts.Unread != 1 {
		t.Errorf("Unread = %d, want 1", counts.Unread)
	}
	if counts.Snoozed != 1 {
		t.Errorf("Snoozed = %d, want 1", counts.Snoozed)
	}

	// The snooze no longer counts once its window has lapsed.
	nextDay := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)
	counts, err = GetRecipientCounts(ctx, db, alice.ID, nextDay)
	if err != nil {
		t.Fatalf("GetRecipientCounts(next day) error = %v", err)
	}
	if counts.Snoozed != 0 {
		t.Errorf("Snoozed = %d the next day, want 0", counts.Snoozed)
	}
}
