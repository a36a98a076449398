package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParsePositiveInt(t *testing.T) {
	cases := []struct {
		name    string
		param   string
		raw     string
		want    int
		wantErr string
	}{
		{"empty uses default", "limit", "", 50, ""},
		{"in range", "limit", "7", 7, ""},
		{"not a number", "limit", "abc", 0, "limit must be an integer"},
		{"too large", "limit", "9000", 0, "limit must be between 1 and 200"},
		{"offset names itself", "offset", "x", 0, "offset must be an integer"},
		{"offset out of range", "offset", "-1", 0, "offset must be between 0 and 1048576"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			min, max := 1, 200
			if tc.param == "offset" {
				min, max = 0, 1<<20
			}
			got, err := parsePositiveInt(tc.param, tc.raw, 50, min, max)
			if tc.wantErr != "" {
				if err == nil || err.Error() != tc.wantErr {
					t.Fatalf("error = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("value = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDecodeOptionalJSONToleratesEmptyBody(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", strings.NewReader(""))

	var dst rejectRequest
	if err := decodeOptionalJSON(w, r, &dst); err != nil {
		t.Fatalf("empty body: %v", err)
	}
	if dst.Reason != "" {
		t.Fatalf("reason = %q, want empty", dst.Reason)
	}

	// A required body still refuses to be absent.
	r = httptest.NewRequest("POST", "/", strings.NewReader(""))
	if err := decodeJSON(w, r, &dst); err == nil {
		t.Fatal("expected error for missing required body")
	}

	// A present body still decodes normally through the optional path.
	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"reason":"no"}`))
	if err := decodeOptionalJSON(w, r, &dst); err != nil {
		t.Fatalf("present body: %v", err)
	}
	if dst.Reason != "no" {
		t.Fatalf("reason = %q, want %q", dst.Reason, "no")
	}
}
