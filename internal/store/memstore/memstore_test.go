package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"opsdesk.org/internal/identity"
)

func seedPending(t *testing.T, s *Store, id, login string) {
	t.Helper()
	now := time.Now().UTC()
	err := s.CreateRegistration(context.Background(), &identity.PendingRegistration{
		ID:        id,
		LoginID:   login,
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     login + "@example.com",
		Phone:     "+1-555-0100",
		Role:      identity.RoleEmployee,
		Status:    identity.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRegistration: %v", err)
	}
}

func TestConcurrentApprovalsOnlyOneWins(t *testing.T) {
	s := New()
	seedPending(t, s, "reg-1", "jdoe")

	const workers = 16
	var (
		wg        sync.WaitGroup
		successes int
		conflicts int
		mu        sync.Mutex
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := s.ApproveRegistration(context.Background(), "reg-1", identity.Decision{
				Actor: "admin-1",
				At:    time.Now().UTC(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, identity.ErrInvalidState):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	if conflicts != workers-1 {
		t.Fatalf("conflicts = %d, want %d", conflicts, workers-1)
	}

	// Exactly one identity came out of the race.
	if _, err := s.FindIdentityByLogin(context.Background(), "jdoe"); err != nil {
		t.Fatalf("promoted identity missing: %v", err)
	}
}

func TestDuplicateChecksSpanBothTables(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPending(t, s, "reg-1", "jdoe")

	// Same login in a second registration.
	err := s.CreateRegistration(ctx, &identity.PendingRegistration{
		ID: "reg-2", LoginID: "jdoe", Email: "other@example.com",
		Role: identity.RoleClient, Status: identity.StatusPending,
	})
	if !errors.Is(err, identity.ErrDuplicateLogin) {
		t.Fatalf("err = %v, want ErrDuplicateLogin", err)
	}

	// Same email as an existing identity.
	s.SeedIdentity(&identity.Identity{
		ID: "id-1", LoginID: "existing", Email: "used@example.com",
		Role: identity.RoleClient, Active: true,
	})
	err = s.CreateRegistration(ctx, &identity.PendingRegistration{
		ID: "reg-3", LoginID: "fresh", Email: "used@example.com",
		Role: identity.RoleClient, Status: identity.StatusPending,
	})
	if !errors.Is(err, identity.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}

	loginTaken, emailTaken, err := s.IdentifierTaken(ctx, "existing", "jdoe@example.com")
	if err != nil {
		t.Fatalf("IdentifierTaken: %v", err)
	}
	if !loginTaken || !emailTaken {
		t.Fatalf("got login=%v email=%v, want both true", loginTaken, emailTaken)
	}
}

func TestListRegistrationsFiltersAndPaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	logins := []string{"alpha", "beta", "gamma", "delta"}
	for i, login := range logins {
		reg := &identity.PendingRegistration{
			ID:         login,
			LoginID:    login,
			FirstName:  "Jane",
			LastName:   "Doe",
			Email:      login + "@example.com",
			Department: "operations",
			Role:       identity.RoleEmployee,
			Status:     identity.StatusPending,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if login == "delta" {
			reg.Department = "finance"
			reg.Role = identity.RoleClient
		}
		if err := s.CreateRegistration(ctx, reg); err != nil {
			t.Fatalf("CreateRegistration %s: %v", login, err)
		}
	}

	// Newest first.
	got, err := s.ListRegistrations(ctx, identity.RegistrationFilter{Status: identity.StatusPending})
	if err != nil {
		t.Fatalf("ListRegistrations: %v", err)
	}
	if len(got) != 4 || got[0].LoginID != "delta" || got[3].LoginID != "alpha" {
		t.Fatalf("unexpected order: %+v", got)
	}

	// Department filter.
	got, err = s.ListRegistrations(ctx, identity.RegistrationFilter{Department: "finance"})
	if err != nil {
		t.Fatalf("ListRegistrations: %v", err)
	}
	if len(got) != 1 || got[0].LoginID != "delta" {
		t.Fatalf("department filter: %+v", got)
	}

	// Search matches substrings of login and email.
	got, err = s.ListRegistrations(ctx, identity.RegistrationFilter{Search: "GAMM"})
	if err != nil {
		t.Fatalf("ListRegistrations: %v", err)
	}
	if len(got) != 1 || got[0].LoginID != "gamma" {
		t.Fatalf("search filter: %+v", got)
	}

	// Paging.
	got, err = s.ListRegistrations(ctx, identity.RegistrationFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListRegistrations: %v", err)
	}
	if len(got) != 2 || got[0].LoginID != "beta" {
		t.Fatalf("paging: %+v", got)
	}
	got, err = s.ListRegistrations(ctx, identity.RegistrationFilter{Offset: 10})
	if err != nil || got != nil {
		t.Fatalf("offset beyond end: got=%v err=%v", got, err)
	}
}
