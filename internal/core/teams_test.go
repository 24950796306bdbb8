package core

import (
	"context"
	"errors"
	"testing"

	"github.com/mr-karan/noticeboard/pkg/models"
)

func TestCreateTeam(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	team, err := CreateTeam(ctx, db, testLogger(), &models.CreateTeamRequest{
		Name:        "  Platform  ",
		Description: " Keeps the lights on ",
	})
	if err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}
	if team.Name != "Platform" {
		t.Errorf("Name = %q, want %q", team.Name, "Platform")
	}
	if team.Description != "Keeps the lights on" {
		t.Errorf("Description = %q, want trimmed", team.Description)
	}

	if _, err := CreateTeam(ctx, db, testLogger(), &models.CreateTeamRequest{Name: "Platform"}); !errors.Is(err, ErrInvalidTeamRequest) {
		t.Errorf("CreateTeam(duplicate name) error = %v, want ErrInvalidTeamRequest", err)
	}
	if _, err := CreateTeam(ctx, db, testLogger(), &models.CreateTeamRequest{Name: "   "}); !errors.Is(err, ErrInvalidTeamRequest) {
		t.Errorf("CreateTeam(blank name) error = %v, want ErrInvalidTeamRequest", err)
	}
}

func TestGetTeamMemberCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	team := createTestTeam(t, db, "Platform")
	createTestUser(t, db, "Alice", "alice@example.com", &team.ID)
	bob := createTestUser(t, db, "Bob", "bob@example.com", &team.ID)
	if err := DeactivateUser(ctx, db, testLogger(), bob.ID); err != nil {
		t.Fatalf("DeactivateUser() error = %v", err)
	}

	got, err := GetTeam(ctx, db, testLogger(), team.ID)
	if err != nil {
		t.Fatalf("GetTeam() error = %v", err)
	}
	if got.MemberCount != 1 {
		t.Errorf("MemberCount = %d, want 1 active member", got.MemberCount)
	}

	if _, err := GetTeam(ctx, db, testLogger(), models.TeamID(9999)); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("GetTeam(unknown team) error = %v, want ErrTeamNotFound", err)
	}
}

func TestUpdateTeam(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	team := createTestTeam(t, db, "Platform")
	createTestTeam(t, db, "Payments")

	name := "Infra"
	desc := "Renamed"
	updated, err := UpdateTeam(ctx, db, testLogger(), team.ID, &models.UpdateTeamRequest{Name: &name, Description: &desc})
	if err != nil {
		t.Fatalf("UpdateTeam() error = %v", err)
	}
	if updated.Name != "Infra" || updated.Description != "Renamed" {
		t.Errorf("UpdateTeam() = %q/%q, want Infra/Renamed", updated.Name, updated.Description)
	}

	taken := "Payments"
	if _, err := UpdateTeam(ctx, db, testLogger(), team.ID, &models.UpdateTeamRequest{Name: &taken}); !errors.Is(err, ErrInvalidTeamRequest) {
		t.Errorf("UpdateTeam(taken name) error = %v, want ErrInvalidTeamRequest", err)
	}

	if _, err := UpdateTeam(ctx, db, testLogger(), models.TeamID(9999), &models.UpdateTeamRequest{Name: &name}); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("UpdateTeam(unknown team) error = %v, want ErrTeamNotFound", err)
	}
}

func TestDeleteTeamDetachesMembers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	team := createTestTeam(t, db, "Platform")
	alice := createTestUser(t, db, "Alice", "alice@example.com", &team.ID)

	if err := DeleteTeam(ctx, db, testLogger(), team.ID); err != nil {
		t.Fatalf("DeleteTeam() error = %v", err)
	}

	if _, err := GetTeam(ctx, db, testLogger(), team.ID); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("GetTeam() after delete error = %v, want ErrTeamNotFound", err)
	}

	got, err := GetUser(ctx, db, testLogger(), alice.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.TeamID != nil {
		t.Errorf("member TeamID = %d after team delete, want nil", *got.TeamID)
	}
	if !got.IsActive {
		t.Error("member deactivated by team delete")
	}

	if err := DeleteTeam(ctx, db, testLogger(), models.TeamID(9999)); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("DeleteTeam(unknown team) error = %v, want ErrTeamNotFound", err)
	}
}

func TestTeamMembers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	teamA := createTestTeam(t, db, "Platform")
	teamB := createTestTeam(t, db, "Payments")
	alice := createTestUser(t, db, "Alice", "alice@example.com", nil)

	added, err := AddTeamMember(ctx, db, testLogger(), teamA.ID, alice.ID)
	if err != nil {
		t.Fatalf("AddTeamMember() error = %v", err)
	}
	if added.TeamID == nil || *added.TeamID != teamA.ID {
		t.Errorf("TeamID = %v after add, want %d", added.TeamID, teamA.ID)
	}

	members, err := ListTeamMembers(ctx, db, teamA.ID)
	if err != nil {
		t.Fatalf("ListTeamMembers() error = %v", err)
	}
	if len(members) != 1 || members[0].ID != alice.ID {
		t.Errorf("ListTeamMembers() = %d members, want only alice", len(members))
	}

	// Joining another team replaces the assignment.
	if _, err := AddTeamMember(ctx, db, testLogger(), teamB.ID, alice.ID); err != nil {
		t.Fatalf("AddTeamMember(second team) error = %v", err)
	}
	members, err = ListTeamMembers(ctx, db, teamA.ID)
	if err != nil {
		t.Fatalf("ListTeamMembers() error = %v", err)
	}
	if len(members) != 0 {
		t.Errorf("original team still has %d members after move, want 0", len(members))
	}

	// Removing from a team the user does not belong to is rejected.
	if err := RemoveTeamMember(ctx, db, testLogger(), teamA.ID, alice.ID); !errors.Is(err, ErrInvalidTeamRequest) {
		t.Errorf("RemoveTeamMember(wrong team) error = %v, want ErrInvalidTeamRequest", err)
	}

	if err := RemoveTeamMember(ctx, db, testLogger(), teamB.ID, alice.ID); err != nil {
		t.Fatalf("RemoveTeamMember() error = %v", err)
	}
	got, err := GetUser(ctx, db, testLogger(), alice.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.TeamID != nil {
		t.Errorf("TeamID = %d after removal, want nil", *got.TeamID)
	}

	if _, err := AddTeamMember(ctx, db, testLogger(), models.TeamID(9999), alice.ID); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("AddTeamMember(unknown team) error = %v, want ErrTeamNotFound", err)
	}
	if _, err := AddTeamMember(ctx, db, testLogger(), teamA.ID, models.UserID(9999)); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("AddTeamMember(unknown user) error = %v, want ErrUserNotFound", err)
	}
	if err := RemoveTeamMember(ctx, db, testLogger(), teamA.ID, models.UserID(9999)); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("RemoveTeamMember(unknown user) error = %v, want ErrUserNotFound", err)
	}
}
