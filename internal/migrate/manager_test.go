package migrate

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	cases := []struct {
		name string
		sql  string
		want int
	}{
		{"single", "create table t (id text);", 1},
		{"two", "create table a (id text); create table b (id text);", 2},
		{"semicolon in string", "insert into t values ('a;b'); select 1;", 2},
		{"trailing without semicolon", "select 1", 1},
		{"empty", "   \n ", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitStatements(tc.sql)
			if len(got) != tc.want {
				t.Fatalf("got %d statements, want %d: %q", len(got), tc.want, got)
			}
		})
	}
}

func TestSplitStatementsPreservesContent(t *testing.T) {
	sql := "insert into t values ('x;y');"
	got := splitStatements(sql)
	if len(got) != 1 || !strings.Contains(got[0], "'x;y'") {
		t.Fatalf("quoted semicolon mangled: %q", got)
	}
}

func TestCollectSQLMissingDir(t *testing.T) {
	files, err := collectSQL("", ".up.sql")
	if err != nil || files != nil {
		t.Fatalf("empty dir: files=%v err=%v", files, err)
	}
	files, err = collectSQL("does/not/exist", ".up.sql")
	if err != nil || files != nil {
		t.Fatalf("missing dir: files=%v err=%v", files, err)
	}
}
