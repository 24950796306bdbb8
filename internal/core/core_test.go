package core

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-karan/noticeboard/internal/config"
	"github.com/mr-karan/noticeboard/internal/notify"
	"github.com/mr-karan/noticeboard/internal/sqlite"
	"github.com/mr-karan/noticeboard/pkg/models"
)

// testNow is a fixed Monday morning so day-boundary and interval
// assertions are deterministic.
var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(sqlite.Options{
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRegistry() *notify.Registry {
	registry := notify.NewRegistry()
	registry.Register(notify.NewInApp(testLogger()))
	return registry
}

func createTestTeam(t *testing.T, db *sqlite.DB, name string) *models.Team {
	t.Helper()
	team, err := CreateTeam(context.Background(), db, testLogger(), &models.CreateTeamRequest{Name: name})
	if err != nil {
		t.Fatalf("CreateTeam(%q) error = %v", name, err)
	}
	return team
}

func createTestUser(t *testing.T, db *sqlite.DB, name, email string, teamID *models.TeamID) *models.User {
	t.Helper()
	user, err := CreateUser(context.Background(), db, testLogger(), &models.CreateUserRequest{
		Name:   name,
		Email:  email,
		TeamID: teamID,
	})
	if err != nil {
		t.Fatalf("CreateUser(%q) error = %v", email, err)
	}
	return user
}

func createTestAdmin(t *testing.T, db *sqlite.DB, name, email string) *models.User {
	t.Helper()
	user, err := CreateUser(context.Background(), db, testLogger(), &models.CreateUserRequest{
		Name:  name,
		Email: email,
		Role:  models.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUser(%q) error = %v", email, err)
	}
	return user
}

func createTestAlert(t *testing.T, db *sqlite.DB, req *models.CreateAlertRequest, createdBy models.UserID) *models.Alert {
	t.Helper()
	alert, err := CreateAlert(context.Background(), db, testLogger(), newTestRegistry(), req, createdBy, 2, testNow)
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}
	return alert
}

// userIDSet collapses a slice of user IDs for order-insensitive
// comparisons.
func userIDSet(ids []models.UserID) map[models.UserID]bool {
	set := make(map[models.UserID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
