package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: "60s"

database:
  driver: "postgres"
  dsn: "postgres://depot@localhost/depot?sslmode=disable"

auth:
  token_secret: "`+testSecret+`"
  token_ttl: "2h"
  api_keys:
    - key: "telematics-key-0000001"
      name: "telematics"
      role: "technician"
      enabled: true

maintenance:
  schedule: "*/15 * * * *"
  lead_days: 3

inspections:
  auto_work_order: false

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9090", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout %v, got %v", 60*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected driver postgres, got %q", cfg.Database.Driver)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("expected token ttl 2h, got %v", cfg.Auth.TokenTTL)
	}
	if len(cfg.Auth.APIKeys) != 1 || cfg.Auth.APIKeys[0].Role != "technician" {
		t.Errorf("unexpected api keys: %+v", cfg.Auth.APIKeys)
	}
	if cfg.Maintenance.LeadDays != 3 {
		t.Errorf("expected lead days 3, got %d", cfg.Maintenance.LeadDays)
	}
	if cfg.Inspections.AutoWorkOrder {
		t.Error("expected inspections.auto_work_order to be disabled")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_DefaultsForOmittedKeys(t *testing.T) {
	path := writeConfig(t, `
auth:
  token_secret: "`+testSecret+`"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Driver != DefaultDatabaseDriver {
		t.Errorf("driver = %q, want %q", cfg.Database.Driver, DefaultDatabaseDriver)
	}
	if !cfg.Database.WALMode || !cfg.Database.AutoMigrate {
		t.Error("boolean database defaults should be on when omitted")
	}
	if !cfg.Maintenance.Enabled {
		t.Error("maintenance should default to enabled")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics should default to enabled")
	}
	if got := cfg.OBD.CriticalPrefixes; len(got) != len(DefaultOBDCriticalPrefixes) {
		t.Errorf("critical prefixes = %v, want %v", got, DefaultOBDCriticalPrefixes)
	}
	if cfg.Server.CORS.MaxAge != DefaultCORSMaxAge {
		t.Errorf("cors max age = %d, want %d", cfg.Server.CORS.MaxAge, DefaultCORSMaxAge)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "server: [unclosed")
		_, err := LoadConfig(path)
		if err == nil || !strings.Contains(err.Error(), "parse") {
			t.Fatalf("expected parse error, got %v", err)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		path := writeConfig(t, `
database:
  driver: "oracle"
`)
		_, err := LoadConfig(path)
		var verr ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(verr.Errors) < 2 {
			t.Errorf("expected driver and token secret errors, got %v", verr.Errors)
		}
	})
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  token_secret: "`+testSecret+`"
server:
  listen_address: "127.0.0.1:8080"
`)

	t.Setenv("DEPOT_SERVER_LISTEN_ADDRESS", "0.0.0.0:7000")
	t.Setenv("DEPOT_DATABASE_DRIVER", "sqlite")
	t.Setenv("DEPOT_MAINTENANCE_ENABLED", "false")
	t.Setenv("DEPOT_AUTH_TOKEN_TTL", "30m")
	t.Setenv("DEPOT_OBD_CRITICAL_PREFIXES", "P03, P06 ,")
	t.Setenv("DEPOT_SERVER_MAX_HEADER_BYTES", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7000" {
		t.Errorf("listen address = %q, want env override", cfg.Server.ListenAddress)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Maintenance.Enabled {
		t.Error("maintenance should be disabled by env override")
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Errorf("token ttl = %v, want 30m", cfg.Auth.TokenTTL)
	}
	if got := cfg.OBD.CriticalPrefixes; len(got) != 2 || got[1] != "P06" {
		t.Errorf("critical prefixes = %v, want [P03 P06]", got)
	}
	if cfg.Server.MaxHeaderBytes != DefaultMaxHeaderBytes {
		t.Errorf("invalid int override should be ignored, got %d", cfg.Server.MaxHeaderBytes)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("DEPOT_TEST_DOTENV_VALUE=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DEPOT_TEST_DOTENV_VALUE") })

	LoadDotEnv(envFile, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("DEPOT_TEST_DOTENV_VALUE"); got != "from-file" {
		t.Errorf("DEPOT_TEST_DOTENV_VALUE = %q, want from-file", got)
	}
}

func TestInitializeAndReload(t *testing.T) {
	defer SetConfig(nil)

	path := writeConfig(t, `
auth:
  token_secret: "`+testSecret+`"
telemetry:
  logging:
    level: "warn"
`)

	cfg, err := Initialize(path)
	if err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if GetConfig() != cfg {
		t.Fatal("GetConfig() should return the initialized configuration")
	}

	if err := os.WriteFile(path, []byte("auth:\n  token_secret: short\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if _, err := ReloadConfig(path); err == nil {
		t.Fatal("ReloadConfig() accepted an invalid configuration")
	}
	if GetConfig() != cfg {
		t.Error("a failed reload must keep the previous configuration")
	}

	if err := os.WriteFile(path, []byte("auth:\n  token_secret: \""+testSecret+"\"\ntelemetry:\n  logging:\n    level: debug\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	next, err := ReloadConfig(path)
	if err != nil {
		t.Fatalf("ReloadConfig() failed: %v", err)
	}
	if GetConfig() != next || next.Telemetry.Logging.Level != "debug" {
		t.Errorf("reloaded level = %q", GetConfig().Telemetry.Logging.Level)
	}
}
