// Package httpapi is the HTTP layer: routing, the access guard and the
// per-route role gates.
package httpapi

import (
	"context"
	"net/http"

	"opsdesk.org/internal/auth"
	"opsdesk.org/internal/identity"
	"opsdesk.org/internal/obs"
	"opsdesk.org/internal/registration"
)

// Pinger is implemented by stores with a live backend to probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks backing-store readiness for /readyz.
type ReadyProbe struct {
	Store Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	return rp.Store.Ping(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	store      identity.Store
	workflow   *registration.Workflow
	authn      *auth.Authenticator
	tokens     *auth.TokenService
	readyProbe ReadyProbe
	version    string
}

// Options bundles the constructor dependencies.
type Options struct {
	Store      identity.Store
	Workflow   *registration.Workflow
	Authn      *auth.Authenticator
	Tokens     *auth.TokenService
	ReadyProbe ReadyProbe
	Version    string
}

func New(opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		store:      opts.Store,
		workflow:   opts.Workflow,
		authn:      opts.Authn,
		tokens:     opts.Tokens,
		readyProbe: opts.ReadyProbe,
		version:    opts.Version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/me", a.handleMe)
	a.mux.HandleFunc("/v1/registrations", a.handleRegistrationsCollection)
	a.mux.HandleFunc("/v1/registrations/", a.handleRegistrationResource)
	a.mux.HandleFunc("/v1/identities/", a.handleIdentityResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = Logging(h)
	h = RequestID(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "opsdesk-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
