package identity

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"ADMIN":    RoleAdmin,
		"admin":    RoleAdmin,
		" Employee ": RoleEmployee,
		"client":   RoleClient,
	}
	for input, want := range cases {
		got, err := ParseRole(input)
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseRole(%q)=%q, want %q", input, got, want)
		}
	}
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "root", "CLIENTS", "super-admin"} {
		if _, err := ParseRole(input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseRole(%q): expected ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestDisplayName(t *testing.T) {
	id := &Identity{LoginID: "ZP100"}
	if got := id.DisplayName(); got != "ZP100" {
		t.Fatalf("expected login id fallback, got %q", got)
	}
	id.FirstName = "Ada"
	if got := id.DisplayName(); got != "Ada" {
		t.Fatalf("expected first name, got %q", got)
	}
	id.LastName = "Lovelace"
	if got := id.DisplayName(); got != "Ada Lovelace" {
		t.Fatalf("expected full name, got %q", got)
	}
}
