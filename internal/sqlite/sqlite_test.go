package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/mr-karan/noticeboard/internal/config"
	"github.com/mr-karan/noticeboard/pkg/models"
)

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Options{
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, name, email string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     name,
		Email:    email,
		Role:     models.UserRoleMember,
		IsActive: true,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%q) error = %v", email, err)
	}
	return user
}

func seedAlert(t *testing.T, db *DB, createdBy models.UserID) *models.Alert {
	t.Helper()
	alert := &models.Alert{
		Title:                 "Fixture",
		Message:               "m",
		Severity:              models.AlertSeverityInfo,
		Status:                models.AlertStatusActive,
		Visibility:            models.AlertVisibilityOrganization,
		DeliveryChannel:       models.DeliveryChannelInApp,
		RemindersEnabled:      true,
		ReminderIntervalHours: 2,
		StartTime:             testNow,
		CreatedBy:             createdBy,
	}
	if err := db.CreateAlert(context.Background(), alert); err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}
	return alert
}

func seedDelivery(t *testing.T, db *DB, alertID models.AlertID, userID models.UserID) *models.Delivery {
	t.Helper()
	delivery := &models.Delivery{
		AlertID:    alertID,
		UserID:     userID,
		Channel:    models.DeliveryChannelInApp,
		Status:     models.DeliveryStatusPending,
		MaxRetries: models.DefaultMaxRetries,
	}
	if err := db.CreateDelivery(context.Background(), delivery); err != nil {
		t.Fatalf("CreateDelivery() error = %v", err)
	}
	return delivery
}

func fetchDelivery(t *testing.T, db *DB, id models.DeliveryID) *models.Delivery {
	t.Helper()
	delivery, err := db.GetDelivery(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDelivery(%d) error = %v", id, err)
	}
	return delivery
}

func TestAlertTargetIDRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	creator := seedUser(t, db, "Creator", "creator@example.com")

	expiry := testNow.Add(48 * time.Hour)
	alert := &models.Alert{
		Title:                 "Targeted",
		Message:               "m",
		Severity:              models.AlertSeverityWarning,
		Status:                models.AlertStatusActive,
		Visibility:            models.AlertVisibilityTeam,
		TargetTeamIDs:         []models.TeamID{3, 7},
		TargetUserIDs:         []models.UserID{42},
		DeliveryChannel:       models.DeliveryChannelInApp,
		RemindersEnabled:      true,
		ReminderIntervalHours: 4,
		StartTime:             testNow,
		ExpiryTime:            &expiry,
		CreatedBy:             creator.ID,
	}
	if err := db.CreateAlert(ctx, alert); err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}
	if alert.ID == 0 {
		t.Fatal("CreateAlert() did not populate ID")
	}
	if alert.CreatedAt.IsZero() || alert.UpdatedAt.IsZero() {
		t.Error("CreateAlert() did not populate timestamps")
	}

	got, err := db.GetAlert(ctx, alert.ID)
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if !reflect.DeepEqual(got.TargetTeamIDs, []models.TeamID{3, 7}) {
		t.Errorf("TargetTeamIDs = %v, want [3 7]", got.TargetTeamIDs)
	}
	if !reflect.DeepEqual(got.TargetUserIDs, []models.UserID{42}) {
		t.Errorf("TargetUserIDs = %v, want [42]", got.TargetUserIDs)
	}
	if !got.StartTime.Equal(testNow) {
		t.Errorf("StartTime = %v, want %v", got.StartTime, testNow)
	}
	if got.ExpiryTime == nil || !got.ExpiryTime.Equal(expiry) {
		t.Errorf("ExpiryTime = %v, want %v", got.ExpiryTime, expiry)
	}

	// Empty target lists are stored as NULL and come back nil.
	plain := seedAlert(t, db, creator.ID)
	got, err = db.GetAlert(ctx, plain.ID)
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if got.TargetTeamIDs != nil || got.TargetUserIDs != nil {
		t.Errorf("empty targets round-tripped as %v / %v, want nil / nil", got.TargetTeamIDs, got.TargetUserIDs)
	}
	if got.ExpiryTime != nil {
		t.Errorf("ExpiryTime = %v, want nil", got.ExpiryTime)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "First", "dup@example.com")

	err := db.CreateUser(ctx, &models.User{
		Name:     "Second",
		Email:    "dup@example.com",
		Role:     models.UserRoleMember,
		IsActive: true,
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("CreateUser(duplicate email) error = %v, want ErrDuplicate", err)
	}

	other := seedUser(t, db, "Other", "other@example.com")
	other.Email = "dup@example.com"
	if err := db.UpdateUser(ctx, other); !errors.Is(err, ErrDuplicate) {
		t.Errorf("UpdateUser(duplicate email) error = %v, want ErrDuplicate", err)
	}
}

func TestCreateTeamDuplicateName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateTeam(ctx, &models.Team{Name: "Platform"}); err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}
	err := db.CreateTeam(ctx, &models.Team{Name: "Platform"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("CreateTeam(duplicate name) error = %v, want ErrDuplicate", err)
	}
}

func TestCreateRecipientStatesIgnoresExisting(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	creator := seedUser(t, db, "Creator", "creator@example.com")
	alice := seedUser(t, db, "Alice", "alice@example.com")
	bob := seedUser(t, db, "Bob", "bob@example.com")
	alert := seedAlert(t, db, creator.ID)

	if err := db.CreateRecipientStates(ctx, alert.ID, []models.UserID{alice.ID}); err != nil {
		t.Fatalf("CreateRecipientStates() error = %v", err)
	}
	if err := db.MarkRecipientRead(ctx, alert.ID, alice.ID, testNow); err != nil {
		t.Fatalf("MarkRecipientRead() error = %v", err)
	}

	// Re-inserting an existing pair must not reset its state.
	if err := db.CreateRecipientStates(ctx, alert.ID, []models.UserID{alice.ID, bob.ID}); err != nil {
		t.Fatalf("CreateRecipientStates(retarget) error = %v", err)
	}

	state, err := db.GetRecipientState(ctx, alert.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetRecipientState(alice) error = %v", err)
	}
	if !state.IsRead {
		t.Error("existing recipient state was reset by re-insert")
	}

	state, err = db.GetRecipientState(ctx, alert.ID, bob.ID)
	if err != nil {
		t.Fatalf("GetRecipientState(bob) error = %v", err)
	}
	if state.IsRead || state.SnoozeCount != 0 {
		t.Errorf("new recipient state = read %v, snoozes %d, want fresh", state.IsRead, state.SnoozeCount)
	}

	ids, err := db.ListRecipientUserIDs(ctx, alert.ID)
	if err != nil {
		t.Fatalf("ListRecipientUserIDs() error = %v", err)
	}
	if want := []models.UserID{alice.ID, bob.ID}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ListRecipientUserIDs() = %v, want %v", ids, want)
	}
}

func TestMarkDeliveriesReadScoping(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	creator := seedUser(t, db, "Creator", "creator@example.com")
	alice := seedUser(t, db, "Alice", "alice@example.com")
	bob := seedUser(t, db, "Bob", "bob@example.com")
	alert := seedAlert(t, db, creator.ID)

	pending := seedDelivery(t, db, alert.ID, alice.ID)

	failed := seedDelivery(t, db, alert.ID, alice.ID)
	retry := testNow.Add(5 * time.Minute)
	if err := db.MarkDeliveryFailed(ctx, failed.ID, "boom", &retry); err != nil {
		t.Fatalf("MarkDeliveryFailed() error = %v", err)
	}

	sent := seedDelivery(t, db, alert.ID, alice.ID)
	if err := db.MarkDeliverySent(ctx, sent.ID, testNow); err != nil {
		t.Fatalf("MarkDeliverySent() error = %v", err)
	}

	delivered := seedDelivery(t, db, alert.ID, alice.ID)
	if err := db.MarkDeliverySent(ctx, delivered.ID, testNow); err != nil {
		t.Fatalf("MarkDeliverySent() error = %v", err)
	}
	if err := db.MarkDeliveryDelivered(ctx, delivered.ID, testNow); err != nil {
		t.Fatalf("MarkDeliveryDelivered() error = %v", err)
	}

	other := seedDelivery(t, db, alert.ID, bob.ID)
	if err := db.MarkDeliverySent(ctx, other.ID, testNow); err != nil {
		t.Fatalf("MarkDeliverySent() error = %v", err)
	}

	// The sent row already carries an earlier per-delivery read stamp;
	// the bulk promotion must not overwrite it.
	earlier := testNow.Add(-10 * time.Minute)
	if err := db.MarkDeliveryRead(ctx, sent.ID, alice.ID, earlier); err != nil {
		t.Fatalf("MarkDeliveryRead() error = %v", err)
	}

	readAt := testNow.Add(time.Hour)
	if err := db.MarkDeliveriesRead(ctx, alert.ID, alice.ID, readAt); err != nil {
		t.Fatalf("MarkDeliveriesRead() error = %v", err)
	}

	if got := fetchDelivery(t, db, sent.ID); got.Status != models.DeliveryStatusRead {
		t.Errorf("sent delivery status = %q, want %q", got.Status, models.DeliveryStatusRead)
	} else if got.ReadAt == nil || !got.ReadAt.Equal(earlier) {
		t.Errorf("sent delivery ReadAt = %v, want earlier stamp %v", got.ReadAt, earlier)
	}

	if got := fetchDelivery(t, db, delivered.ID); got.Status != models.DeliveryStatusRead {
		t.Errorf("delivered delivery status = %q, want %q", got.Status, models.DeliveryStatusRead)
	} else if got.ReadAt == nil || !got.ReadAt.Equal(readAt) {
		t.Errorf("delivered delivery ReadAt = %v, want %v", got.ReadAt, readAt)
	}

	if got := fetchDelivery(t, db, pending.ID); got.Status != models.DeliveryStatusPending || got.ReadAt != nil {
		t.Errorf("pending delivery = %q/%v, want untouched", got.Status, got.ReadAt)
	}
	if got := fetchDelivery(t, db, failed.ID); got.Status != models.DeliveryStatusFailed {
		t.Errorf("failed delivery status = %q, want untouched", got.Status)
	}
	if got := fetchDelivery(t, db, other.ID); got.Status != models.DeliveryStatusSent {
		t.Errorf("other user's delivery status = %q, want untouched", got.Status)
	}
}

func TestMarkDeliveryReadUserScope(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	creator := seedUser(t, db, "Creator", "creator@example.com")
	alice := seedUser(t, db, "Alice", "alice@example.com")
	bob := seedUser(t, db, "Bob", "bob@example.com")
	alert := seedAlert(t, db, creator.ID)

	delivery := seedDelivery(t, db, alert.ID, alice.ID)
	if err := db.MarkDeliverySent(ctx, delivery.ID, testNow); err != nil {
		t.Fatalf("MarkDeliverySent() error = %v", err)
	}
	if err := db.MarkDeliveryDelivered(ctx, delivery.ID, testNow); err != nil {
		t.Fatalf("MarkDeliveryDelivered() error = %v", err)
	}

	if err := db.MarkDeliveryRead(ctx, delivery.ID, bob.ID, testNow); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("MarkDeliveryRead(other user) error = %v, want sql.ErrNoRows", err)
	}
	if got := fetchDelivery(t, db, delivery.ID); got.Status != models.DeliveryStatusDelivered {
		t.Errorf("delivery status = %q after foreign read attempt, want untouched", got.Status)
	}

	if err := db.MarkDeliveryRead(ctx, delivery.ID, alice.ID, testNow); err != nil {
		t.Fatalf("MarkDeliveryRead() error = %v", err)
	}
	if got := fetchDelivery(t, db, delivery.ID); got.Status != models.DeliveryStatusRead {
		t.Errorf("delivery status = %q, want %q", got.Status, models.DeliveryStatusRead)
	}

	// A pending delivery records the read stamp without skipping ahead in
	// the status lifecycle.
	pending := seedDelivery(t, db, alert.ID, alice.ID)
	if err := db.MarkDeliveryRead(ctx, pending.ID, alice.ID, testNow); err != nil {
		t.Fatalf("MarkDeliveryRead(pending) error = %v", err)
	}
	got := fetchDelivery(t, db, pending.ID)
	if got.Status != models.DeliveryStatusPending {
		t.Errorf("pending delivery status = %q, want %q", got.Status, models.DeliveryStatusPending)
	}
	if got.ReadAt == nil || !got.ReadAt.Equal(testNow) {
		t.Errorf("pending delivery ReadAt = %v, want %v", got.ReadAt, testNow)
	}
}

func TestListRetryableDeliveries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	creator := seedUser(t, db, "Creator", "creator@example.com")
	alice := seedUser(t, db, "Alice", "alice@example.com")
	alert := seedAlert(t, db, creator.ID)

	due := seedDelivery(t, db, alert.ID, alice.ID)
	dueAt := testNow
	if err := db.MarkDeliveryFailed(ctx, due.ID, "boom", &dueAt); err != nil {
		t.Fatalf("MarkDeliveryFailed(due) error = %v", err)
	}

	future := seedDelivery(t, db, alert.ID, alice.ID)
	futureAt := testNow.Add(time.Second)
	if err := db.MarkDeliveryFailed(ctx, future.ID, "boom", &futureAt); err != nil {
		t.Fatalf("MarkDeliveryFailed(future) error = %v", err)
	}

	immediate := seedDelivery(t, db, alert.ID, alice.ID)
	if err := db.MarkDeliveryFailed(ctx, immediate.ID, "boom", nil); err != nil {
		t.Fatalf("MarkDeliveryFailed(immediate) error = %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want []models.DeliveryID
	}{
		{"at the due instant", testNow, []models.DeliveryID{due.ID, immediate.ID}},
		{"before anything is due", testNow.Add(-time.Minute), []models.DeliveryID{immediate.ID}},
		{"after the future backoff", testNow.Add(time.Second), []models.DeliveryID{due.ID, future.ID, immediate.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListRetryableDeliveries(ctx, tt.now)
			if err != nil {
				t.Fatalf("ListRetryableDeliveries() error = %v", err)
			}
			ids := make([]models.DeliveryID, 0, len(got))
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("ListRetryableDeliveries() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestListRetryableDeliveriesExcludesSpent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	creator := seedUser(t, db, "Creator", "creator@example.com")
	alice := seedUser(t, db, "Alice", "alice@example.com")
	alert := seedAlert(t, db, creator.ID)

	spent := &models.Delivery{
		AlertID:    alert.ID,
		UserID:     alice.ID,
		Channel:    models.DeliveryChannelInApp,
		Status:     models.DeliveryStatusPending,
		MaxRetries: 1,
	}
	if err := db.CreateDelivery(ctx, spent); err != nil {
		t.Fatalf("CreateDelivery() error = %v", err)
	}
	if err := db.MarkDeliveryFailed(ctx, spent.ID, "boom", nil); err != nil {
		t.Fatalf("MarkDeliveryFailed() error = %v", err)
	}

	// retry_count now equals max_retries, so the delivery is out of budget.
	got, err := db.ListRetryableDeliveries(ctx, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListRetryableDeliveries() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListRetryableDeliveries() returned %d deliveries, want 0", len(got))
	}
}

func TestNotificationFeed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	creator := seedUser(t, db, "Creator", "creator@example.com")
	alice := seedUser(t, db, "Alice", "alice@example.com")
	bob := seedUser(t, db, "Bob", "bob@example.com")
	alert := seedAlert(t, db, creator.ID)

	if err := db.CreateRecipientStates(ctx, alert.ID, []models.UserID{alice.ID}); err != nil {
		t.Fatalf("CreateRecipientStates() error = %v", err)
	}

	first := seedDelivery(t, db, alert.ID, alice.ID)
	if err := db.MarkDeliverySent(ctx, first.ID, testNow); err != nil {
		t.Fatalf("MarkDeliverySent() error = %v", err)
	}
	second := seedDelivery(t, db, alert.ID, alice.ID)
	seedDelivery(t, db, alert.ID, bob.ID)

	items, err := db.ListNotificationFeed(ctx, alice.ID, false, 50, 0)
	if err != nil {
		t.Fatalf("ListNotificationFeed() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d feed items, want 2", len(items))
	}
	if items[0].ID != second.ID {
		t.Errorf("first feed item = delivery %d, want newest %d", items[0].ID, second.ID)
	}
	if items[0].AlertTitle != alert.Title || items[0].AlertSeverity != alert.Severity {
		t.Errorf("feed item alert fields = %q/%q, want %q/%q",
			items[0].AlertTitle, items[0].AlertSeverity, alert.Title, alert.Severity)
	}
	for _, item := range items {
		if item.IsRead {
			t.Errorf("feed item %d IsRead = true before the alert was read", item.ID)
		}
	}

	until := testNow.Add(8 * time.Hour)
	if err := db.SnoozeRecipient(ctx, alert.ID, alice.ID, testNow, until); err != nil {
		t.Fatalf("SnoozeRecipient() error = %v", err)
	}
	items, err = db.ListNotificationFeed(ctx, alice.ID, false, 50, 0)
	if err != nil {
		t.Fatalf("ListNotificationFeed() error = %v", err)
	}
	if len(items) == 0 || !items[0].IsSnoozed || items[0].SnoozedUntil == nil {
		t.Error("feed items do not reflect the snooze state")
	}

	// Reading the alert hides its deliveries from the unread feed.
	if err := db.MarkRecipientRead(ctx, alert.ID, alice.ID, testNow); err != nil {
		t.Fatalf("MarkRecipientRead() error = %v", err)
	}
	items, err = db.ListNotificationFeed(ctx, alice.ID, false, 50, 0)
	if err != nil {
		t.Fatalf("ListNotificationFeed() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("unread feed has %d items after reading, want 0", len(items))
	}
	items, err = db.ListNotificationFeed(ctx, alice.ID, true, 50, 0)
	if err != nil {
		t.Fatalf("ListNotificationFeed(includeRead) error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("full feed has %d items, want 2", len(items))
	}
	for _, item := range items {
		if !item.IsRead {
			t.Errorf("feed item %d IsRead = false after reading", item.ID)
		}
	}

	// Bob never got a recipient state row; the feed still lists his
	// delivery as unread.
	items, err = db.ListNotificationFeed(ctx, bob.ID, false, 50, 0)
	if err != nil {
		t.Fatalf("ListNotificationFeed(bob) error = %v", err)
	}
	if len(items) != 1 || items[0].IsRead {
		t.Errorf("feed without state = %d items (read %v), want 1 unread", len(items), len(items) > 0 && items[0].IsRead)
	}

	items, err = db.ListNotificationFeed(ctx, alice.ID, true, 1, 0)
	if err != nil {
		t.Fatalf("ListNotificationFeed(limit) error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("limited feed = %d items, want 1", len(items))
	}
	if items[0].ID != second.ID {
		t.Errorf("limited feed starts at delivery %d, want newest %d", items[0].ID, second.ID)
	}
}
