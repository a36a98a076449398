package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"opsdesk.org/internal/identity"
	"opsdesk.org/internal/obs"
)

// IdentityDirectory is the slice of the store the authenticator needs.
type IdentityDirectory interface {
	FindIdentityByLogin(ctx context.Context, loginID string) (*identity.Identity, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// Profile is the minimal account summary returned alongside a fresh token.
type Profile struct {
	LoginID     string        `json:"login_id"`
	DisplayName string        `json:"display_name"`
	Role        identity.Role `json:"role"`
}

// LoginResult carries a signed token and the authenticated profile.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   Profile   `json:"profile"`
}

// Authenticator verifies credentials against the identity directory and
// issues tokens.
type Authenticator struct {
	dir    IdentityDirectory
	tokens *TokenService
	now    func() time.Time
}

// NewAuthenticator wires an Authenticator.
func NewAuthenticator(dir IdentityDirectory, tokens *TokenService) *Authenticator {
	return &Authenticator{dir: dir, tokens: tokens, now: time.Now}
}

// Login authenticates a login id and password pair. Unknown ids, wrong
// passwords and inactive accounts all fail with the identical
// ErrInvalidCredentials so the response cannot be used to enumerate
// accounts.
func (a *Authenticator) Login(ctx context.Context, loginID, password string) (LoginResult, error) {
	if loginID == "" || password == "" {
		obs.CountLogin("failure")
		return LoginResult{}, ErrInvalidCredentials
	}

	ident, err := a.dir.FindIdentityByLogin(ctx, loginID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			obs.CountLogin("failure")
			return LoginResult{}, ErrInvalidCredentials
		}
		// A broken directory is not a credential failure.
		obs.CountLogin("error")
		return LoginResult{}, fmt.Errorf("auth: look up identity: %w", err)
	}
	if !ident.Active {
		obs.CountLogin("failure")
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(ident.PasswordHash, password); err != nil {
		obs.CountLogin("failure")
		return LoginResult{}, ErrInvalidCredentials
	}

	now := a.now().UTC()
	if err := a.dir.TouchLastLogin(ctx, ident.ID, now); err != nil {
		// Login stays valid even if the bookkeeping write fails.
		slog.Warn("could not record last login", "login_id", ident.LoginID, "error", err)
	}

	token, expiresAt, err := a.tokens.Issue(ident.LoginID, ident.Role)
	if err != nil {
		return LoginResult{}, err
	}

	obs.CountLogin("success")
	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile: Profile{
			LoginID:     ident.LoginID,
			DisplayName: ident.DisplayName(),
			Role:        ident.Role,
		},
	}, nil
}
