// Package memstore is an in-memory identity.Store. It backs tests and the
// local demo mode; production runs on the pg store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"opsdesk.org/internal/identity"
	"opsdesk.org/internal/ids"
)

// Store keeps registrations and identities in maps behind one mutex.
type Store struct {
	mu            sync.Mutex
	registrations map[string]*identity.PendingRegistration
	identities    map[string]*identity.Identity
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		registrations: make(map[string]*identity.PendingRegistration),
		identities:    make(map[string]*identity.Identity),
	}
}

func (s *Store) CreateRegistration(_ context.Context, reg *identity.PendingRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registrations {
		if r.LoginID == reg.LoginID {
			return identity.ErrDuplicateLogin
		}
		if r.Email == reg.Email {
			return identity.ErrDuplicateEmail
		}
	}
	for _, id := range s.identities {
		if id.LoginID == reg.LoginID {
			return identity.ErrDuplicateLogin
		}
		if id.Email == reg.Email {
			return identity.ErrDuplicateEmail
		}
	}
	cp := *reg
	s.registrations[reg.ID] = &cp
	return nil
}

func (s *Store) GetRegistration(_ context.Context, id string) (*identity.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (s *Store) ListRegistrations(_ context.Context, f identity.RegistrationFilter) ([]*identity.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*identity.PendingRegistration
	for _, reg := range s.registrations {
		if f.Status != "" && reg.Status != f.Status {
			continue
		}
		if f.Department != "" && reg.Department != f.Department {
			continue
		}
		if f.Role != "" && reg.Role != f.Role {
			continue
		}
		if f.Search != "" && !matches(reg, f.Search) {
			continue
		}
		cp := *reg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(reg *identity.PendingRegistration, q string) bool {
	q = strings.ToLower(q)
	for _, s := range []string{reg.LoginID, reg.Email, reg.FirstName, reg.LastName} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func (s *Store) ApproveRegistration(_ context.Context, id string, d identity.Decision) (*identity.PendingRegistration, *identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[id]
	if !ok {
		return nil, nil, identity.ErrNotFound
	}
	if reg.Status != identity.StatusPending {
		return nil, nil, identity.ErrInvalidState
	}

	reg.Status = identity.StatusApproved
	reg.DecidedBy = d.Actor
	at := d.At
	reg.DecidedAt = &at
	reg.UpdatedAt = d.At

	ident := identity.PromotedIdentity(ids.New(), reg, d)
	s.identities[ident.ID] = ident

	regCp := *reg
	identCp := *ident
	return &regCp, &identCp, nil
}

func (s *Store) RejectRegistration(_ context.Context, id string, d identity.Decision) (*identity.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	if reg.Status != identity.StatusPending {
		return nil, identity.ErrInvalidState
	}

	reg.Status = identity.StatusRejected
	reg.DecidedBy = d.Actor
	at := d.At
	reg.DecidedAt = &at
	reg.RejectReason = d.Reason
	reg.UpdatedAt = d.At

	cp := *reg
	return &cp, nil
}

func (s *Store) GetIdentity(_ context.Context, id string) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.identities[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *ident
	return &cp, nil
}

func (s *Store) FindIdentityByLogin(_ context.Context, loginID string) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ident := range s.identities {
		if ident.LoginID == loginID {
			cp := *ident
			return &cp, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *Store) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.identities[id]
	if !ok {
		return identity.ErrNotFound
	}
	ident.LastLoginAt = &at
	ident.UpdatedAt = at
	return nil
}

func (s *Store) SetIdentityActive(_ context.Context, id string, active bool) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.identities[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	if ident.Active == active {
		return nil, identity.ErrInvalidState
	}
	ident.Active = active
	ident.UpdatedAt = time.Now().UTC()
	cp := *ident
	return &cp, nil
}

func (s *Store) IdentifierTaken(_ context.Context, loginID, email string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var loginTaken, emailTaken bool
	for _, r := range s.registrations {
		loginTaken = loginTaken || r.LoginID == loginID
		emailTaken = emailTaken || r.Email == email
	}
	for _, ident := range s.identities {
		loginTaken = loginTaken || ident.LoginID == loginID
		emailTaken = emailTaken || ident.Email == email
	}
	return loginTaken, emailTaken, nil
}

// SeedIdentity inserts an identity directly, bypassing the registration
// workflow. Test and demo helper.
func (s *Store) SeedIdentity(ident *identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ident
	s.identities[ident.ID] = &cp
}
