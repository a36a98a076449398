// Package pg is the Postgres identity.Store, driven through database/sql over
// the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"opsdesk.org/internal/identity"
	"opsdesk.org/internal/ids"
)

const pgErrUniqueViolation = "23505"

const registrationColumns = `id, login_id, first_name, last_name, email, phone, department,
	role, password_hash, justification, supervisor_id, status,
	coalesce(decided_by,''), decided_at, coalesce(reject_reason,''), created_at, updated_at`

const identityColumns = `id, login_id, first_name, last_name, email, phone, department,
	role, password_hash, active, last_login_at, coalesce(approved_by,''), approved_at,
	created_at, updated_at`

type Store struct {
	db *sql.DB
}

var _ identity.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle. Used by tests with sqlmock.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) CreateRegistration(ctx context.Context, reg *identity.PendingRegistration) error {
	_, err := s.db.ExecContext(ctx, `
		insert into pending_registrations
			(id, login_id, first_name, last_name, email, phone, department,
			 role, password_hash, justification, supervisor_id, status, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,nullif($10,''),nullif($11,''),$12,$13,$14)
	`, reg.ID, reg.LoginID, reg.FirstName, reg.LastName, reg.Email, reg.Phone, reg.Department,
		string(reg.Role), reg.PasswordHash, reg.Justification, reg.SupervisorID,
		string(reg.Status), reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (s *Store) GetRegistration(ctx context.Context, id string) (*identity.PendingRegistration, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+registrationColumns+`
		from pending_registrations
		where id = $1
	`, id)
	return scanRegistration(row)
}

func (s *Store) ListRegistrations(ctx context.Context, f identity.RegistrationFilter) ([]*identity.PendingRegistration, error) {
	var (
		where []string
		args  []any
		idx   = 1
	)
	add := func(clause string, val any) {
		where = append(where, fmt.Sprintf(clause, idx))
		args = append(args, val)
		idx++
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Department != "" {
		add("department = $%d", f.Department)
	}
	if f.Role != "" {
		add("role = $%d", string(f.Role))
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf(
			"(login_id ilike $%d or email ilike $%d or first_name ilike $%d or last_name ilike $%d)",
			idx, idx, idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	query := `select ` + registrationColumns + ` from pending_registrations`
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by created_at desc, id desc"
	if f.Limit > 0 {
		query += fmt.Sprintf(" limit $%d", idx)
		args = append(args, f.Limit)
		idx++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" offset $%d", idx)
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*identity.PendingRegistration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveRegistration flips status and inserts the identity in one
// transaction. The conditional update is the concurrency gate: whichever
// transaction flips the row first wins, everyone else scans no row back and
// gets ErrInvalidState.
func (s *Store) ApproveRegistration(ctx context.Context, id string, d identity.Decision) (*identity.PendingRegistration, *identity.Identity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		update pending_registrations
		set status = $2, decided_by = $3, decided_at = $4, updated_at = $4
		where id = $1 and status = $5
		returning `+registrationColumns+`
	`, id, string(identity.StatusApproved), d.Actor, d.At, string(identity.StatusPending))
	reg, err := scanRegistration(row)
	if errors.Is(err, identity.ErrNotFound) {
		// Row exists but is no longer PENDING, or does not exist at all.
		if _, getErr := s.GetRegistration(ctx, id); getErr == nil {
			return nil, nil, identity.ErrInvalidState
		}
		return nil, nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	ident := identity.PromotedIdentity(ids.New(), reg, d)
	if _, err := tx.ExecContext(ctx, `
		insert into identities
			(id, login_id, first_name, last_name, email, phone, department,
			 role, password_hash, active, approved_by, approved_at, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, ident.ID, ident.LoginID, ident.FirstName, ident.LastName, ident.Email, ident.Phone,
		ident.Department, string(ident.Role), ident.PasswordHash, ident.Active,
		ident.ApprovedBy, ident.ApprovedAt, ident.CreatedAt, ident.UpdatedAt); err != nil {
		return nil, nil, mapUniqueViolation(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return reg, ident, nil
}

func (s *Store) RejectRegistration(ctx context.Context, id string, d identity.Decision) (*identity.PendingRegistration, error) {
	row := s.db.QueryRowContext(ctx, `
		update pending_registrations
		set status = $2, decided_by = $3, decided_at = $4, reject_reason = nullif($5,''), updated_at = $4
		where id = $1 and status = $6
		returning `+registrationColumns+`
	`, id, string(identity.StatusRejected), d.Actor, d.At, d.Reason, string(identity.StatusPending))
	reg, err := scanRegistration(row)
	if errors.Is(err, identity.ErrNotFound) {
		if _, getErr := s.GetRegistration(ctx, id); getErr == nil {
			return nil, identity.ErrInvalidState
		}
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Store) GetIdentity(ctx context.Context, id string) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+identityColumns+`
		from identities
		where id = $1
	`, id)
	return scanIdentity(row)
}

func (s *Store) FindIdentityByLogin(ctx context.Context, loginID string) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+identityColumns+`
		from identities
		where login_id = $1
	`, loginID)
	return scanIdentity(row)
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update identities set last_login_at = $2, updated_at = $2 where id = $1
	`, id, at)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *Store) SetIdentityActive(ctx context.Context, id string, active bool) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		update identities
		set active = $2, updated_at = now()
		where id = $1 and active <> $2
		returning `+identityColumns+`
	`, id, active)
	ident, err := scanIdentity(row)
	if errors.Is(err, identity.ErrNotFound) {
		if _, getErr := s.GetIdentity(ctx, id); getErr == nil {
			return nil, identity.ErrInvalidState
		}
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ident, nil
}

func (s *Store) IdentifierTaken(ctx context.Context, loginID, email string) (bool, bool, error) {
	var loginTaken, emailTaken bool
	err := s.db.QueryRowContext(ctx, `
		select
			exists (select 1 from pending_registrations where login_id = $1
				union all select 1 from identities where login_id = $1),
			exists (select 1 from pending_registrations where email = $2
				union all select 1 from identities where email = $2)
	`, loginID, email).Scan(&loginTaken, &emailTaken)
	if err != nil {
		return false, false, err
	}
	return loginTaken, emailTaken, nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*identity.PendingRegistration, error) {
	var (
		reg           identity.PendingRegistration
		role, status  string
		justification sql.NullString
		supervisorID  sql.NullString
		decidedAt     sql.NullTime
	)
	err := row.Scan(&reg.ID, &reg.LoginID, &reg.FirstName, &reg.LastName, &reg.Email,
		&reg.Phone, &reg.Department, &role, &reg.PasswordHash, &justification,
		&supervisorID, &status, &reg.DecidedBy, &decidedAt, &reg.RejectReason,
		&reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	reg.Role = identity.Role(role)
	reg.Status = identity.RegistrationStatus(status)
	reg.Justification = justification.String
	reg.SupervisorID = supervisorID.String
	if decidedAt.Valid {
		at := decidedAt.Time
		reg.DecidedAt = &at
	}
	return &reg, nil
}

func scanIdentity(row rowScanner) (*identity.Identity, error) {
	var (
		ident       identity.Identity
		role        string
		lastLoginAt sql.NullTime
		approvedAt  sql.NullTime
	)
	err := row.Scan(&ident.ID, &ident.LoginID, &ident.FirstName, &ident.LastName,
		&ident.Email, &ident.Phone, &ident.Department, &role, &ident.PasswordHash,
		&ident.Active, &lastLoginAt, &ident.ApprovedBy, &approvedAt,
		&ident.CreatedAt, &ident.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ident.Role = identity.Role(role)
	if lastLoginAt.Valid {
		at := lastLoginAt.Time
		ident.LastLoginAt = &at
	}
	if approvedAt.Valid {
		at := approvedAt.Time
		ident.ApprovedAt = &at
	}
	return &ident, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return identity.ErrDuplicateEmail
		}
		return identity.ErrDuplicateLogin
	}
	return err
}
