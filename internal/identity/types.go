package identity

import "time"

// RegistrationStatus tracks a signup request through its lifecycle.
// PENDING is the only non-terminal status for a pending registration;
// SUSPENDED and DEACTIVATED describe post-approval identities and are never
// set on a PendingRegistration directly.
type RegistrationStatus string

const (
	StatusPending     RegistrationStatus = "PENDING"
	StatusApproved    RegistrationStatus = "APPROVED"
	StatusRejected    RegistrationStatus = "REJECTED"
	StatusSuspended   RegistrationStatus = "SUSPENDED"
	StatusDeactivated RegistrationStatus = "DEACTIVATED"
)

// PendingRegistration is a signup request awaiting an administrative decision.
// Records are never physically deleted; terminal rows remain as audit trail.
type PendingRegistration struct {
	ID            string             `json:"id"`
	LoginID       string             `json:"login_id"`
	FirstName     string             `json:"first_name"`
	LastName      string             `json:"last_name"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone"`
	Department    string             `json:"department"`
	Role          Role               `json:"role"`
	PasswordHash  string             `json:"-"`
	Justification string             `json:"justification,omitempty"`
	SupervisorID  string             `json:"supervisor_id,omitempty"`
	Status        RegistrationStatus `json:"status"`
	DecidedBy     string             `json:"decided_by,omitempty"`
	DecidedAt     *time.Time         `json:"decided_at,omitempty"`
	RejectReason  string             `json:"reject_reason,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Identity is an approved account that can authenticate. Exactly one Identity
// exists per approved PendingRegistration; the approval decision fields are
// copied over for audit continuity.
type Identity struct {
	ID           string     `json:"id"`
	LoginID      string     `json:"login_id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Department   string     `json:"department"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	ApprovedBy   string     `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DisplayName is the human-readable name shown in login responses.
func (i *Identity) DisplayName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	default:
		return i.LoginID
	}
}
