package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/v1/registrations":               "/v1/registrations",
		"/v1/registrations/01ABC":         "/v1/registrations/:id",
		"/v1/registrations/01ABC/approve": "/v1/registrations/:id/approve",
		"/v1/registrations/01ABC/reject":  "/v1/registrations/:id/reject",
		"/v1/registrations/01ABC/extra":   "/v1/registrations/01ABC/extra",
		"/v1/identities/01XYZ/deactivate": "/v1/identities/:id/deactivate",
		"/v1/identities/01XYZ/reactivate": "/v1/identities/:id/reactivate",
		"/v1/auth/login":                  "/v1/auth/login",
		"/v1/registrations?page=2":        "/v1/registrations",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
