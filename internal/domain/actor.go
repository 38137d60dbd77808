package domain

import "github.com/google/uuid"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// Anonymous is the zero actor used for unauthenticated reads.
var Anonymous = Actor{}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil
}

// Ownable is implemented by every entity that has a single owning user.
type Ownable interface {
	OwnerID() uuid.UUID
}

// CanModify reports whether actor may change or delete obj.
func CanModify(actor Actor, obj Ownable) bool {
	if !actor.Authenticated() {
		return false
	}
	return actor.IsAdmin() || obj.OwnerID() == actor.UserID
}

// RequireOwnerOrAdmin returns ErrNotOwner unless actor may modify obj.
func RequireOwnerOrAdmin(actor Actor, obj Ownable) error {
	if !CanModify(actor, obj) {
		return ErrNotOwner
	}
	return nil
}

// RequireAdmin returns ErrAdminOnly unless actor has the admin role.
func RequireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

// RequireAuthenticated returns ErrAuthRequired for the anonymous actor.
func RequireAuthenticated(actor Actor) error {
	if !actor.Authenticated() {
		return ErrAuthRequired
	}
	return nil
}
