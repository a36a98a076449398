package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  secret: sekrit\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.ListenAddr != DefaultListenAddr {
		t.Fatalf("listen addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Auth.TokenTTL != DefaultTokenTTL {
		t.Fatalf("token ttl = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.Issuer != DefaultIssuer {
		t.Fatalf("issuer = %q", cfg.Auth.Issuer)
	}
	if cfg.Registration.PasswordMinLen != DefaultPasswordMinLen {
		t.Fatalf("password min len = %d", cfg.Registration.PasswordMinLen)
	}
}

func TestLoadConfigExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  listenAddr: ":9090"
auth:
  secret: sekrit
  issuer: opsdesk-stage
  tokenTTL: 2h
registration:
  passwordMinLen: 16
db:
  dsn: postgres://localhost/opsdesk
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Fatalf("listen addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Fatalf("token ttl = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Registration.PasswordMinLen != 16 {
		t.Fatalf("password min len = %d", cfg.Registration.PasswordMinLen)
	}
	if cfg.DB.DSN != "postgres://localhost/opsdesk" {
		t.Fatalf("dsn = %q", cfg.DB.DSN)
	}
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  listenAddr: \":9090\"\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing auth secret")
	}
}
