package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"opsdesk.org/internal/audit"
	"opsdesk.org/internal/auth"
)

type loginRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Profile   auth.Profile `json:"profile"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.authn.Login(r.Context(), strings.TrimSpace(req.LoginID), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// One answer for every failure mode; no hints about which part
			// was wrong.
			unauthorized(w, r, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"login_id":   res.Profile.LoginID,
		"expires_at": res.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Profile:   res.Profile,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := requireAuthenticated(r.Context()); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	ident, _ := auth.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, ident)
}
