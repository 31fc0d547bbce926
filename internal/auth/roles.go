package auth

import (
	"slices"

	"github.com/hi-events/hi-events-api/internal/models"
)

// AuthUser is the identity attached to an authenticated request. It is built
// from token claims only; name and avatar are filled from the database by the
// handlers that need them.
type AuthUser struct {
	ID     string      `json:"id"`
	Email  string      `json:"email"`
	Name   *string     `json:"name"`
	Avatar *string     `json:"avatar"`
	Role   models.Role `json:"role"`
}

// HasRequiredRole reports whether user's role is in the allow-list.
func HasRequiredRole(user AuthUser, roles ...models.Role) bool {
	return slices.Contains(roles, user.Role)
}

type CRUD struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

type RolePermissions struct {
	Events     CRUD `json:"events"`
	Users      CRUD `json:"users"`
	Categories CRUD `json:"categories"`
}

var (
	readOnly = CRUD{Read: true}
	full     = CRUD{Create: true, Read: true, Update: true, Delete: true}
)

var permissions = map[models.Role]RolePermissions{
	models.RoleUser: {
		Events:     readOnly,
		Users:      readOnly,
		Categories: readOnly,
	},
	models.RoleOrganizer: {
		Events:     full,
		Users:      readOnly,
		Categories: readOnly,
	},
	models.RoleAdmin: {
		Events:     full,
		Users:      full,
		Categories: full,
	},
}

// PermissionsFor returns the permission matrix of role; unknown roles get
// nothing.
func PermissionsFor(role models.Role) RolePermissions {
	return permissions[role]
}

// CanManageEvent allows admins everywhere and organizers on their own events.
func CanManageEvent(user AuthUser, organizerID string) bool {
	if user.Role == models.RoleAdmin {
		return true
	}
	return PermissionsFor(user.Role).Events.Update && user.ID == organizerID
}
