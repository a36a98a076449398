package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"opsdesk.org/internal/audit"
	"opsdesk.org/internal/identity"
	"opsdesk.org/internal/registration"
)

type listRegistrationsResponse struct {
	Items []*identity.PendingRegistration `json:"items"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (a *API) handleRegistrationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.submitRegistration(w, r)
	case http.MethodGet:
		a.listRegistrations(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRegistrationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/registrations/")
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
	case "approve":
		a.approveRegistration(w, r, id)
	case "reject":
		a.rejectRegistration(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) submitRegistration(w http.ResponseWriter, r *http.Request) {
	var req registration.SubmitInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := a.workflow.Submit(r.Context(), req)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "registration.submit", map[string]any{
		"registration_id": reg.ID,
		"login_id":        reg.LoginID,
		"role":            string(reg.Role),
	})

	w.Header().Set("Location", "/v1/registrations/"+reg.ID)
	writeJSON(w, http.StatusCreated, reg)
}

func (a *API) listRegistrations(w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r.Context(), identity.RoleAdmin); err != nil {
		handleAuthzError(w, r, err)
		return
	}

	q := r.URL.Query()
	limit, err := parsePositiveInt("limit", q.Get("limit"), 50, 1, 200)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parsePositiveInt("offset", q.Get("offset"), 0, 0, 1<<20)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	f := identity.RegistrationFilter{
		Status:     identity.RegistrationStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Department: strings.TrimSpace(q.Get("department")),
		Role:       identity.Role(strings.ToUpper(strings.TrimSpace(q.Get("role")))),
		Search:     strings.TrimSpace(q.Get("search")),
		Limit:      limit,
		Offset:     offset,
	}

	items, err := a.workflow.ListPending(r.Context(), f)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	if items == nil {
		items = []*identity.PendingRegistration{}
	}
	writeJSON(w, http.StatusOK, listRegistrationsResponse{Items: items})
}

func (a *API) approveRegistration(w http.ResponseWriter, r *http.Request, id string) {
	if err := requireRole(r.Context(), identity.RoleAdmin); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	actor := actorID(r)

	reg, ident, err := a.workflow.Approve(r.Context(), id, actor)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "registration.approve", map[string]any{
		"registration_id": reg.ID,
		"identity_id":     ident.ID,
		"login_id":        ident.LoginID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"registration": reg,
		"identity":     ident,
	})
}

func (a *API) rejectRegistration(w http.ResponseWriter, r *http.Request, id string) {
	if err := requireRole(r.Context(), identity.RoleAdmin); err != nil {
		handleAuthzError(w, r, err)
		return
	}

	// The reason is optional; rejecting with no body at all is fine.
	var req rejectRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := a.workflow.Reject(r.Context(), id, actorID(r), req.Reason)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "registration.reject", map[string]any{
		"registration_id": reg.ID,
		"reason":          reg.RejectReason,
	})

	writeJSON(w, http.StatusOK, reg)
}

func handleIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrDuplicateLogin), errors.Is(err, identity.ErrDuplicateEmail):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrInvalidState):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
