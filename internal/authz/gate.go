// Package authz evaluates whether an acting principal may perform an
// operation. Checks are capability-based over the actor's flat role set; no
// role hierarchy exists.
package authz

import (
	"campusfind/internal/models"
)

// Actor is the acting principal resolved by the transport layer. A zero
// Actor (ID == 0) represents an anonymous caller.
type Actor struct {
	ID    uint
	Roles models.RoleList
}

// Anonymous reports whether the actor is unauthenticated.
func (a Actor) Anonymous() bool {
	return a.ID == 0
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Roles.Has(models.RoleAdmin)
}

// RequireAuthenticated rejects anonymous actors.
func RequireAuthenticated(a Actor) error {
	if a.Anonymous() {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}

// RequireAdmin rejects actors without the admin role.
func RequireAdmin(a Actor) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if !a.IsAdmin() {
		return models.NewUnauthorizedError("Admin access required")
	}
	return nil
}

// RequireOwnerOrAdmin rejects actors that neither own the resource nor
// carry the admin role.
func RequireOwnerOrAdmin(a Actor, ownerID uint) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if a.ID != ownerID && !a.IsAdmin() {
		return models.NewUnauthorizedError("You can only manage your own resources")
	}
	return nil
}
