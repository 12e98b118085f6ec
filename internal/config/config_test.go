package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, "")
	for name := range envMappings {
		t.Setenv(strings.ToUpper(name), "")
		os.Unsetenv(strings.ToUpper(name))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.KV.Backend != "memory" || cfg.KV.HistoryKey != "quizHistory" || cfg.KV.BookmarkKey != "bookmarkedConditions" {
		t.Errorf("kv = %+v", cfg.KV)
	}
	if cfg.Security.AuthMode != AuthModeNone || cfg.NeedsDatabase() {
		t.Errorf("security = %+v", cfg.Security)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server:
  port: 9000
kv:
  backend: sqlite
  sqlite_path: /tmp/abx
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9100")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("COACH_TIMEOUT", "15s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.KV.Backend != "sqlite" || cfg.KV.SQLitePath != "/tmp/abx" {
		t.Errorf("kv = %+v", cfg.KV)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Coach.Timeout != 15*time.Second {
		t.Errorf("coach timeout = %v", cfg.Coach.Timeout)
	}
}

func TestConfigPathEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "abx.yaml")
	if err := os.WriteFile(path, []byte("catalog:\n  path: /srv/catalog.yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.Path != "/srv/catalog.yaml" {
		t.Errorf("catalog path = %q", cfg.Catalog.Path)
	}
}

func TestValidate(t *testing.T) {
	secret := strings.Repeat("s", 32)
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad backend", func(c *Config) { c.KV.Backend = "etcd" }, "Backend"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "Port"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "Format"},
		{"jwt without secret", func(c *Config) {
			c.Security.AuthMode = AuthModeJWT
			c.KV.Backend = "postgres"
		}, "jwt_secret"},
		{"jwt without postgres", func(c *Config) {
			c.Security.AuthMode = AuthModeJWT
			c.Security.JWTSecret = secret
		}, "requires kv.backend postgres"},
		{"jwt ok", func(c *Config) {
			c.Security.AuthMode = AuthModeJWT
			c.Security.JWTSecret = secret
			c.KV.Backend = "postgres"
		}, ""},
		{"redis without addr", func(c *Config) {
			c.KV.Backend = "redis"
			c.KV.RedisAddr = ""
		}, "redis_addr"},
	}
	for _, tt := range tests {
		cfg := defaultConfig()
		tt.mutate(cfg)
		err := cfg.Validate()
		switch {
		case tt.wantErr == "" && err != nil:
			t.Errorf("%s: unexpected error %v", tt.name, err)
		case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
			t.Errorf("%s: err = %v, want containing %q", tt.name, err, tt.wantErr)
		}
	}
}

func TestDSN(t *testing.T) {
	d := defaultConfig().Database
	want := "host=localhost port=5432 user=abx_user password=abx_password dbname=abx_learn sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
