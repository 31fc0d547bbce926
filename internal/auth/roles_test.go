package auth

import (
	"testing"

	"github.com/hi-events/hi-events-api/internal/models"
)

func TestHasRequiredRole(t *testing.T) {
	user := AuthUser{ID: "u", Role: models.RoleOrganizer}

	if !HasRequiredRole(user, models.RoleOrganizer, models.RoleAdmin) {
		t.Error("expected organizer to be allowed")
	}
	if HasRequiredRole(user, models.RoleAdmin) {
		t.Error("expected organizer to be rejected for admin-only")
	}
	if HasRequiredRole(user) {
		t.Error("an empty allow-list admits nobody")
	}
}

func TestPermissionsFor(t *testing.T) {
	if PermissionsFor(models.RoleUser).Events.Create {
		t.Error("users must not create events")
	}
	if !PermissionsFor(models.RoleOrganizer).Events.Create {
		t.Error("organizers create events")
	}
	if PermissionsFor(models.RoleOrganizer).Categories.Create {
		t.Error("only admins create categories")
	}
	if !PermissionsFor(models.RoleAdmin).Users.Delete {
		t.Error("admins manage users")
	}
	if PermissionsFor("GUEST").Events.Read {
		t.Error("unknown roles get no permissions")
	}
}

func TestCanManageEvent(t *testing.T) {
	organizer := AuthUser{ID: "org", Role: models.RoleOrganizer}
	admin := AuthUser{ID: "adm", Role: models.RoleAdmin}
	user := AuthUser{ID: "usr", Role: models.RoleUser}

	if !CanManageEvent(organizer, "org") {
		t.Error("organizer manages own event")
	}
	if CanManageEvent(organizer, "someone-else") {
		t.Error("organizer must not manage others' events")
	}
	if !CanManageEvent(admin, "someone-else") {
		t.Error("admin manages every event")
	}
	if CanManageEvent(user, "usr") {
		t.Error("plain users cannot manage events even if listed as organizer")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secret123!")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if err := ComparePassword("Secret123!", hash); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if err := ComparePassword("wrong", hash); err != ErrPasswordMismatch {
		t.Errorf("expected ErrPasswordMismatch, got %v", err)
	}
	if err := ComparePassword("anything", ""); err != ErrPasswordMismatch {
		t.Errorf("expected mismatch for users without password, got %v", err)
	}
	if _, err := HashPassword(""); err != ErrEmptyPassword {
		t.Errorf("expected ErrEmptyPassword, got %v", err)
	}
}
