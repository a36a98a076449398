package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"opsdesk.org/internal/identity"
)

var registrationCols = []string{
	"id", "login_id", "first_name", "last_name", "email", "phone", "department",
	"role", "password_hash", "justification", "supervisor_id", "status",
	"decided_by", "decided_at", "reject_reason", "created_at", "updated_at",
}

var identityCols = []string{
	"id", "login_id", "first_name", "last_name", "email", "phone", "department",
	"role", "password_hash", "active", "last_login_at", "approved_by", "approved_at",
	"created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestCreateRegistrationMapsUniqueViolations(t *testing.T) {
	store, mock := newMockStore(t)
	reg := &identity.PendingRegistration{
		ID: "reg-1", LoginID: "jdoe", Email: "jane@example.com",
		Role: identity.RoleEmployee, Status: identity.StatusPending,
	}

	mock.ExpectExec("insert into pending_registrations").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "pending_registrations_email_key"})
	if err := store.CreateRegistration(context.Background(), reg); !errors.Is(err, identity.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}

	mock.ExpectExec("insert into pending_registrations").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "pending_registrations_login_id_key"})
	if err := store.CreateRegistration(context.Background(), reg); !errors.Is(err, identity.ErrDuplicateLogin) {
		t.Fatalf("err = %v, want ErrDuplicateLogin", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApproveRegistrationPromotes(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	approved := sqlmock.NewRows(registrationCols).AddRow(
		"reg-1", "jdoe", "Jane", "Doe", "jane@example.com", "+1-555-0100", "operations",
		"EMPLOYEE", "$2a$10$hash", "new hire", nil, "APPROVED",
		"admin-1", now, "", now.Add(-time.Hour), now,
	)
	mock.ExpectQuery("update pending_registrations").
		WithArgs("reg-1", "APPROVED", "admin-1", now, "PENDING").
		WillReturnRows(approved)
	mock.ExpectExec("insert into identities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reg, ident, err := store.ApproveRegistration(context.Background(), "reg-1", identity.Decision{Actor: "admin-1", At: now})
	if err != nil {
		t.Fatalf("ApproveRegistration: %v", err)
	}
	if reg.Status != identity.StatusApproved || reg.DecidedBy != "admin-1" {
		t.Fatalf("unexpected registration: %+v", reg)
	}
	if !ident.Active || ident.LoginID != "jdoe" || ident.Role != identity.RoleEmployee {
		t.Fatalf("unexpected identity: %+v", ident)
	}
	if ident.ID == reg.ID || ident.ID == "" {
		t.Fatalf("identity id %q should be freshly generated", ident.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApproveRegistrationLostRace(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("update pending_registrations").
		WillReturnError(sql.ErrNoRows)
	// Row exists but is already decided, so the conditional update matched
	// nothing: invalid state rather than not found.
	decided := sqlmock.NewRows(registrationCols).AddRow(
		"reg-1", "jdoe", "Jane", "Doe", "jane@example.com", "+1-555-0100", "operations",
		"EMPLOYEE", "$2a$10$hash", "new hire", nil, "REJECTED",
		"admin-2", now, "no", now.Add(-time.Hour), now,
	)
	mock.ExpectQuery("select (.+) from pending_registrations").
		WithArgs("reg-1").
		WillReturnRows(decided)
	mock.ExpectRollback()

	_, _, err := store.ApproveRegistration(context.Background(), "reg-1", identity.Decision{Actor: "admin-1", At: now})
	if !errors.Is(err, identity.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestApproveRegistrationNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("update pending_registrations").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("select (.+) from pending_registrations").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := store.ApproveRegistration(context.Background(), "ghost", identity.Decision{Actor: "admin-1", At: now})
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRejectRegistration(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rejected := sqlmock.NewRows(registrationCols).AddRow(
		"reg-1", "jdoe", "Jane", "Doe", "jane@example.com", "+1-555-0100", "operations",
		"EMPLOYEE", "$2a$10$hash", "new hire", nil, "REJECTED",
		"admin-1", now, "unverifiable supervisor", now.Add(-time.Hour), now,
	)
	mock.ExpectQuery("update pending_registrations").
		WithArgs("reg-1", "REJECTED", "admin-1", now, "unverifiable supervisor", "PENDING").
		WillReturnRows(rejected)

	reg, err := store.RejectRegistration(context.Background(), "reg-1", identity.Decision{
		Actor: "admin-1", At: now, Reason: "unverifiable supervisor",
	})
	if err != nil {
		t.Fatalf("RejectRegistration: %v", err)
	}
	if reg.Status != identity.StatusRejected || reg.RejectReason != "unverifiable supervisor" {
		t.Fatalf("unexpected registration: %+v", reg)
	}
}

func TestFindIdentityByLogin(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(identityCols).AddRow(
		"id-1", "jdoe", "Jane", "Doe", "jane@example.com", "+1-555-0100", "operations",
		"ADMIN", "$2a$10$hash", true, nil, "admin-0", now, now, now,
	)
	mock.ExpectQuery("select (.+) from identities").
		WithArgs("jdoe").
		WillReturnRows(rows)

	ident, err := store.FindIdentityByLogin(context.Background(), "jdoe")
	if err != nil {
		t.Fatalf("FindIdentityByLogin: %v", err)
	}
	if ident.Role != identity.RoleAdmin || !ident.Active || ident.LastLoginAt != nil {
		t.Fatalf("unexpected identity: %+v", ident)
	}

	mock.ExpectQuery("select (.+) from identities").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	if _, err := store.FindIdentityByLogin(context.Background(), "ghost"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTouchLastLoginMissingIdentity(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Now().UTC()

	mock.ExpectExec("update identities set last_login_at").
		WithArgs("ghost", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.TouchLastLogin(context.Background(), "ghost", at); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestIdentifierTaken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select").
		WithArgs("jdoe", "jane@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"login", "email"}).AddRow(true, false))

	loginTaken, emailTaken, err := store.IdentifierTaken(context.Background(), "jdoe", "jane@example.com")
	if err != nil {
		t.Fatalf("IdentifierTaken: %v", err)
	}
	if !loginTaken || emailTaken {
		t.Fatalf("got login=%v email=%v", loginTaken, emailTaken)
	}
}
