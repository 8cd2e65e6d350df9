package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsLiveDefaultsClosed(t *testing.T) {
	r := New(Table{
		"bob":   {"dev": true, "staging": true, "prod": false},
		"alice": {"dev": true},
	})

	tests := []struct {
		role, env string
		want      bool
	}{
		{"bob", "dev", true},
		{"bob", "staging", true},
		{"bob", "prod", false},
		{"alice", "dev", true},
		{"alice", "prod", false},
		{"carol", "dev", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := r.IsLive(tt.role, tt.env); got != tt.want {
			t.Errorf("IsLive(%q, %q) = %v, want %v", tt.role, tt.env, got, tt.want)
		}
	}
}

func TestNilTableIsAllDisabled(t *testing.T) {
	r := New(nil)
	for _, role := range []string{"bob", "alice", "orchestrator"} {
		for _, env := range []string{"dev", "staging", "prod"} {
			if r.IsLive(role, env) {
				t.Errorf("IsLive(%q, %q) should default to false", role, env)
			}
		}
	}
}

func TestNewCopiesTable(t *testing.T) {
	table := Table{"bob": {"dev": true}}
	r := New(table)
	table["bob"]["prod"] = true
	if r.IsLive("bob", "prod") {
		t.Error("resolver observed a write to the source table")
	}
}

func TestEnabled(t *testing.T) {
	r := New(Table{
		"zed": {"prod": true},
		"bob": {"prod": true, "dev": true},
		"amy": {"dev": true},
	})
	if got := strings.Join(r.Enabled("prod"), ","); got != "bob,zed" {
		t.Errorf("unexpected prod roles: %s", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.yaml")
	content := `
roles:
  bob:
    dev: true
    staging: true
  carol:
    prod: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsLive("bob", "staging") {
		t.Error("expected bob live in staging")
	}
	if r.IsLive("bob", "prod") || r.IsLive("carol", "prod") {
		t.Error("unlisted or false pairs must be disabled")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	r, err := LoadFromFile("/nonexistent/features.yaml")
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if r.IsLive("bob", "dev") {
		t.Error("missing file must disable everything")
	}
}

func TestLoadFromFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.yaml")
	if err := os.WriteFile(path, []byte("roles: [not, a, map]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}
