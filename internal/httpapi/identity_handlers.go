package httpapi

import (
	"net/http"
	"strings"

	"opsdesk.org/internal/audit"
	"opsdesk.org/internal/auth"
	"opsdesk.org/internal/identity"
)

func (a *API) handleIdentityResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/identities/")
	id, action, ok := strings.Cut(path, "/")
	if !ok || id == "" || strings.Contains(action, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	switch action {
	case "deactivate":
		a.setIdentityActive(w, r, id, false)
	case "reactivate":
		a.setIdentityActive(w, r, id, true)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) setIdentityActive(w http.ResponseWriter, r *http.Request, id string, active bool) {
	if err := requireRole(r.Context(), identity.RoleAdmin); err != nil {
		handleAuthzError(w, r, err)
		return
	}

	// Admins cannot lock themselves out.
	if !active {
		if ident, ok := auth.IdentityFromContext(r.Context()); ok && ident.ID == id {
			writeError(w, r, http.StatusConflict, "cannot deactivate own identity")
			return
		}
	}

	ident, err := a.store.SetIdentityActive(r.Context(), id, active)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	event := "identity.deactivate"
	if active {
		event = "identity.reactivate"
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"identity_id": ident.ID,
		"login_id":    ident.LoginID,
	})

	writeJSON(w, http.StatusOK, ident)
}
