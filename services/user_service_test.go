package services

import (
	"context"
	"errors"
	"testing"

	"github.com/bbasli/bdrive/models"
)

func newTestUserService() (*fakeUserRepo, UserService) {
	users := newFakeUserRepo()
	return users, NewUserService(fakeTxManager{}, users)
}

func TestCreateUserIsIdempotent(t *testing.T) {
	users, svc := newTestUserService()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "iss|alice", "Alice", "https://img.test/a.png")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if created.ID == 0 || created.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", created)
	}

	again, err := svc.CreateUser(ctx, "iss|alice", "Alice B", "")
	if err != nil {
		t.Fatalf("repeated CreateUser failed: %v", err)
	}
	if again.ID != created.ID || again.Name != "Alice B" {
		t.Fatalf("expected existing user to be refreshed, got %+v", again)
	}
	if len(users.usersByID) != 1 {
		t.Fatalf("expected a single user record, got %d", len(users.usersByID))
	}

	if _, err := svc.CreateUser(ctx, " ", "x", ""); err == nil {
		t.Fatalf("expected empty token identifier to be rejected")
	}
}

func TestUpdateUserRequiresExistingUser(t *testing.T) {
	users, svc := newTestUserService()
	ctx := context.Background()
	users.add("iss|bob")

	if err := svc.UpdateUser(ctx, "iss|bob", "Robert", "img"); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	user, _ := svc.GetUser(ctx, "iss|bob")
	if user.Name != "Robert" || user.Image != "img" {
		t.Fatalf("profile not updated: %+v", user)
	}

	err := svc.UpdateUser(ctx, "iss|ghost", "x", "")
	if appErr, ok := expectAppError(err, 404); !ok || appErr.Message != "expected user to be defined" {
		t.Fatalf("expected HTTP 404 expected user to be defined, got %v", err)
	}
}

func TestMembershipLifecycle(t *testing.T) {
	users, svc := newTestUserService()
	ctx := context.Background()
	users.add("iss|carol")

	if err := svc.AddOrgIDToUser(ctx, "iss|carol", "org_a", models.RoleMember); err != nil {
		t.Fatalf("AddOrgIDToUser failed: %v", err)
	}
	user, _ := svc.GetUser(ctx, "iss|carol")
	if role, ok := user.RoleIn("org_a"); !ok || role != models.RoleMember {
		t.Fatalf("expected member role, got %q %v", role, ok)
	}

	if err := svc.AddOrgIDToUser(ctx, "iss|carol", "org_a", models.RoleAdmin); err != nil {
		t.Fatalf("re-adding membership should upsert the role: %v", err)
	}
	user, _ = svc.GetUser(ctx, "iss|carol")
	if !user.IsAdminOf("org_a") || len(user.Memberships) != 1 {
		t.Fatalf("expected a single admin membership, got %+v", user.Memberships)
	}

	if err := svc.UpdateRoleInOrgForUser(ctx, "iss|carol", "org_a", models.RoleMember); err != nil {
		t.Fatalf("UpdateRoleInOrgForUser failed: %v", err)
	}
	user, _ = svc.GetUser(ctx, "iss|carol")
	if user.IsAdminOf("org_a") {
		t.Fatalf("expected role to be downgraded")
	}

	if err := svc.RemoveOrgIDFromUser(ctx, "iss|carol", "org_a"); err != nil {
		t.Fatalf("RemoveOrgIDFromUser failed: %v", err)
	}
	user, _ = svc.GetUser(ctx, "iss|carol")
	if len(user.Memberships) != 0 {
		t.Fatalf("expected membership to be removed, got %+v", user.Memberships)
	}
}

func TestUpdateRoleInOrgForUserUnknownOrg(t *testing.T) {
	users, svc := newTestUserService()
	users.add("iss|dave")

	err := svc.UpdateRoleInOrgForUser(context.Background(), "iss|dave", "org_x", models.RoleAdmin)
	if appErr, ok := expectAppError(err, 404); !ok || appErr.Message != "expected org to be defined" {
		t.Fatalf("expected HTTP 404 expected org to be defined, got %v", err)
	}
}

func TestAddOrgIDToUserValidation(t *testing.T) {
	users, svc := newTestUserService()
	users.add("iss|erin")
	ctx := context.Background()

	if err := svc.AddOrgIDToUser(ctx, "iss|erin", "", models.RoleMember); err == nil {
		t.Fatalf("expected empty org id to be rejected")
	}
	if err := svc.AddOrgIDToUser(ctx, "iss|erin", "org_a", "owner"); err == nil {
		t.Fatalf("expected unknown role to be rejected")
	}
	if err := svc.AddOrgIDToUser(ctx, "iss|ghost", "org_a", models.RoleMember); err == nil {
		t.Fatalf("expected unknown user to be rejected")
	}
}

func TestGetMe(t *testing.T) {
	users, svc := newTestUserService()
	ctx := context.Background()
	users.add("iss|frank", models.Membership{OrgID: "org_a", Role: models.RoleAdmin})

	me, err := svc.GetMe(ctx, nil)
	if err != nil || me != nil {
		t.Fatalf("expected nil for anonymous caller, got %+v, %v", me, err)
	}

	me, err = svc.GetMe(ctx, &Identity{TokenIdentifier: "iss|frank"})
	if err != nil || me == nil || len(me.Memberships) != 1 {
		t.Fatalf("expected current user with memberships, got %+v, %v", me, err)
	}

	me, err = svc.GetMe(ctx, &Identity{TokenIdentifier: "iss|new"})
	if err != nil || me != nil {
		t.Fatalf("expected nil for unprovisioned identity, got %+v, %v", me, err)
	}
}

func TestGetUserProfile(t *testing.T) {
	users, svc := newTestUserService()
	ctx := context.Background()
	grace := users.add("iss|grace")

	profile, err := svc.GetUserProfile(ctx, grace.ID)
	if err != nil {
		t.Fatalf("GetUserProfile failed: %v", err)
	}
	if profile.Name != "iss|grace" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	_, err = svc.GetUserProfile(ctx, 999)
	if _, ok := expectAppError(err, 404); !ok {
		t.Fatalf("expected HTTP 404, got %v", err)
	}

	users.getErr = errors.New("db timeout")
	_, err = svc.GetUserProfile(ctx, grace.ID)
	if _, ok := expectAppError(err, 500); !ok {
		t.Fatalf("expected HTTP 500, got %v", err)
	}
}
