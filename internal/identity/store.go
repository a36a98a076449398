package identity

import (
	"context"
	"time"
)

// Decision records who resolved a pending registration and when.
type Decision struct {
	Actor  string
	At     time.Time
	Reason string
}

// RegistrationFilter narrows ListRegistrations. Zero values mean "any".
type RegistrationFilter struct {
	Status     RegistrationStatus
	Department string
	Role       Role
	// Search matches login id, email, first or last name (case-insensitive
	// substring).
	Search string
	Limit  int
	Offset int
}

// Store describes persistence for registrations and identities.
//
// ApproveRegistration is the promotion step of the registration state machine
// and must be atomic: the status flip and the identity insert either both
// happen or neither does. It returns ErrNotFound when no registration exists
// with the given id, and ErrInvalidState when the registration is no longer
// PENDING, including when a concurrent approval won the race.
type Store interface {
	CreateRegistration(ctx context.Context, reg *PendingRegistration) error
	GetRegistration(ctx context.Context, id string) (*PendingRegistration, error)
	ListRegistrations(ctx context.Context, f RegistrationFilter) ([]*PendingRegistration, error)
	ApproveRegistration(ctx context.Context, id string, d Decision) (*PendingRegistration, *Identity, error)
	RejectRegistration(ctx context.Context, id string, d Decision) (*PendingRegistration, error)

	GetIdentity(ctx context.Context, id string) (*Identity, error)
	FindIdentityByLogin(ctx context.Context, loginID string) (*Identity, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SetIdentityActive(ctx context.Context, id string, active bool) (*Identity, error)

	// IdentifierTaken reports whether the login id or email is already used
	// by any registration or identity. Exact, case-sensitive match; the
	// database unique indexes remain the authority under concurrency.
	IdentifierTaken(ctx context.Context, loginID, email string) (loginTaken, emailTaken bool, err error)
}

// PromotedIdentity builds the Identity that mirrors an approved registration.
// Shared by the store implementations so the copy rules live in one place.
func PromotedIdentity(id string, reg *PendingRegistration, d Decision) *Identity {
	at := d.At
	return &Identity{
		ID:           id,
		LoginID:      reg.LoginID,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Email:        reg.Email,
		Phone:        reg.Phone,
		Department:   reg.Department,
		Role:         reg.Role,
		PasswordHash: reg.PasswordHash,
		Active:       true,
		ApprovedBy:   d.Actor,
		ApprovedAt:   &at,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}
