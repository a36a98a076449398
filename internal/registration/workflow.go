// Package registration implements the signup approval workflow: a submitted
// request is stored as a PENDING record, and an administrator later approves
// it (promoting it into an Identity) or rejects it. Both outcomes are
// terminal.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"opsdesk.org/internal/auth"
	"opsdesk.org/internal/identity"
	"opsdesk.org/internal/ids"
	"opsdesk.org/internal/notify"
	"opsdesk.org/internal/obs"
)

const (
	defaultMinPasswordLen = 10
	defaultPageSize       = 50
	maxPageSize           = 200
)

// SubmitInput is a raw signup request as received from the wire.
type SubmitInput struct {
	LoginID       string `json:"login_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Department    string `json:"department"`
	Role          string `json:"role"`
	Password      string `json:"password"`
	Justification string `json:"justification"`
	SupervisorID  string `json:"supervisor_id"`
}

// Workflow drives the registration state machine.
type Workflow struct {
	store          identity.Store
	mailer         notify.Sender
	minPasswordLen int
	now            func() time.Time
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithMailer sets the notification sender.
func WithMailer(sender notify.Sender) Option {
	return func(w *Workflow) {
		if sender != nil {
			w.mailer = sender
		}
	}
}

// WithMinPasswordLen overrides the minimum accepted password length.
func WithMinPasswordLen(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.minPasswordLen = n
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(w *Workflow) {
		if fn != nil {
			w.now = fn
		}
	}
}

// NewWorkflow wires a Workflow around the given store.
func NewWorkflow(store identity.Store, opts ...Option) *Workflow {
	w := &Workflow{
		store:          store,
		mailer:         notify.Noop{},
		minPasswordLen: defaultMinPasswordLen,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Submit validates a signup request and stores it as PENDING. No identity is
// created yet; that happens on approval.
func (w *Workflow) Submit(ctx context.Context, in SubmitInput) (*identity.PendingRegistration, error) {
	reg, err := w.buildRegistration(in)
	if err != nil {
		return nil, err
	}

	// Pre-check closes the common UX case; the store's unique indexes close
	// the race between concurrent submissions.
	loginTaken, emailTaken, err := w.store.IdentifierTaken(ctx, reg.LoginID, reg.Email)
	if err != nil {
		return nil, err
	}
	if loginTaken {
		return nil, identity.ErrDuplicateLogin
	}
	if emailTaken {
		return nil, identity.ErrDuplicateEmail
	}

	if err := w.store.CreateRegistration(ctx, reg); err != nil {
		return nil, err
	}

	obs.CountRegistration("submitted")
	w.send(notify.RegistrationReceived(reg.Email, reg.FirstName))
	return reg, nil
}

// Approve transitions a PENDING registration to APPROVED and atomically
// promotes it into an Identity. Exactly one concurrent approval can succeed;
// the loser observes ErrInvalidState.
func (w *Workflow) Approve(ctx context.Context, id, actor string) (*identity.PendingRegistration, *identity.Identity, error) {
	id = strings.TrimSpace(id)
	actor = strings.TrimSpace(actor)
	if id == "" || actor == "" {
		return nil, nil, fmt.Errorf("%w: registration id and actor are required", identity.ErrInvalidInput)
	}

	reg, ident, err := w.store.ApproveRegistration(ctx, id, identity.Decision{
		Actor: actor,
		At:    w.now().UTC(),
	})
	if err != nil {
		return nil, nil, err
	}

	obs.CountRegistration("approved")
	w.send(notify.RegistrationApproved(reg.Email, reg.FirstName, reg.LoginID))
	return reg, ident, nil
}

// Reject transitions a PENDING registration to REJECTED, recording the
// reason. No identity is created.
func (w *Workflow) Reject(ctx context.Context, id, actor, reason string) (*identity.PendingRegistration, error) {
	id = strings.TrimSpace(id)
	actor = strings.TrimSpace(actor)
	if id == "" || actor == "" {
		return nil, fmt.Errorf("%w: registration id and actor are required", identity.ErrInvalidInput)
	}

	reg, err := w.store.RejectRegistration(ctx, id, identity.Decision{
		Actor:  actor,
		At:     w.now().UTC(),
		Reason: strings.TrimSpace(reason),
	})
	if err != nil {
		return nil, err
	}

	obs.CountRegistration("rejected")
	w.send(notify.RegistrationRejected(reg.Email, reg.FirstName, reg.RejectReason))
	return reg, nil
}

// ListPending returns the review queue, newest submissions first.
func (w *Workflow) ListPending(ctx context.Context, f identity.RegistrationFilter) ([]*identity.PendingRegistration, error) {
	if f.Status == "" {
		f.Status = identity.StatusPending
	}
	if f.Role != "" && !f.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", identity.ErrInvalidInput, f.Role)
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return w.store.ListRegistrations(ctx, f)
}

func (w *Workflow) buildRegistration(in SubmitInput) (*identity.PendingRegistration, error) {
	loginID := strings.TrimSpace(in.LoginID)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	department := strings.TrimSpace(in.Department)

	switch {
	case loginID == "":
		return nil, fmt.Errorf("%w: login id is required", identity.ErrInvalidInput)
	case firstName == "":
		return nil, fmt.Errorf("%w: first name is required", identity.ErrInvalidInput)
	case lastName == "":
		return nil, fmt.Errorf("%w: last name is required", identity.ErrInvalidInput)
	case email == "":
		return nil, fmt.Errorf("%w: email is required", identity.ErrInvalidInput)
	case phone == "":
		return nil, fmt.Errorf("%w: phone is required", identity.ErrInvalidInput)
	case department == "":
		return nil, fmt.Errorf("%w: department is required", identity.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: malformed email address", identity.ErrInvalidInput)
	}
	if len(in.Password) < w.minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", identity.ErrInvalidInput, w.minPasswordLen)
	}
	role, err := identity.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := w.now().UTC()
	return &identity.PendingRegistration{
		ID:            ids.New(),
		LoginID:       loginID,
		FirstName:     firstName,
		LastName:      lastName,
		Email:         email,
		Phone:         phone,
		Department:    department,
		Role:          role,
		PasswordHash:  hash,
		Justification: strings.TrimSpace(in.Justification),
		SupervisorID:  strings.TrimSpace(in.SupervisorID),
		Status:        identity.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (w *Workflow) send(msg notify.Message) {
	if err := w.mailer.Send(msg); err != nil {
		slog.Warn("notification delivery failed", "subject", msg.Subject, "error", err)
	}
}
