package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configEnv = []string{"CONFIG_FILE", "PORT", "DB_PATH", "JWT_SECRET", "TOKEN_DURATION", "LOG_LEVEL", "SETTLED_DELETE_POLICY"}

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_Layering(t *testing.T) {
	clearEnv(t)

	yamlPath := writeFile(t, "config.yaml", `
port: 9090
db_path: /srv/ledger.db
jwt_secret: from-file
token_duration: 2h
settled_delete_policy: reject-settled
`)
	envPath := writeFile(t, ".env", "JWT_SECRET=from-dotenv\nLOG_LEVEL=debug\n")

	t.Setenv("CONFIG_FILE", yamlPath)
	t.Setenv("PORT", "7070")

	cfg, err := Load(envPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("LOG_LEVEL")
	})

	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want env override 7070", cfg.Port)
	}
	if cfg.DBPath != "/srv/ledger.db" {
		t.Errorf("DBPath = %q, want file value", cfg.DBPath)
	}
	if cfg.JWTSecret != "from-dotenv" {
		t.Errorf("JWTSecret = %q, want .env value", cfg.JWTSecret)
	}
	if cfg.TokenDuration != 2*time.Hour {
		t.Errorf("TokenDuration = %v, want 2h", cfg.TokenDuration)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.SettledDeletePolicy != PolicyRejectSettled {
		t.Errorf("SettledDeletePolicy = %q", cfg.SettledDeletePolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing env file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
			t.Error("expected error for missing .env file")
		}
	})

	t.Run("bad port", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "eighty")
		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PORT") {
			t.Errorf("expected PORT error, got %v", err)
		}
	})

	t.Run("bad yaml", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeFile(t, "bad.yaml", "port: [1, 2"))
		if _, err := Load(); err == nil {
			t.Error("expected YAML parse error")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "jwt_secret"},
		{name: "bad port", mutate: func(c *Config) { c.Port = 0 }, wantErr: "port"},
		{name: "unknown policy", mutate: func(c *Config) { c.SettledDeletePolicy = "keep" }, wantErr: "settled_delete_policy"},
		{name: "zero token duration", mutate: func(c *Config) { c.TokenDuration = 0 }, wantErr: "token_duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.JWTSecret = "secret"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
