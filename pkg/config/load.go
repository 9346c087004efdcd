package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "DEPOT_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The YAML is decoded on top of Default(), so omitted keys keep their
// defaults. The configuration is validated before it is returned.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration bytes on top of the defaults without
// validating the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// DEPOT_SECTION_FIELD (e.g., DEPOT_SERVER_LISTEN_ADDRESS). A .env file in
// the working directory is loaded first; variables already present in the
// process environment win over .env entries.
//
// The loading sequence is:
// 1. Load YAML from file on top of defaults
// 2. Load .env (if present)
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	LoadDotEnv()
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("failed to load env file", "file", f, "error", err)
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)

	// Database overrides
	envString("DATABASE_DRIVER", &cfg.Database.Driver)
	envString("DATABASE_DSN", &cfg.Database.DSN)
	envInt("DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	envInt("DATABASE_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	envBool("DATABASE_AUTO_MIGRATE", &cfg.Database.AutoMigrate)

	// Auth overrides
	envString("AUTH_TOKEN_SECRET", &cfg.Auth.TokenSecret)
	envDuration("AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL)
	envString("AUTH_ISSUER", &cfg.Auth.Issuer)
	envInt("AUTH_BCRYPT_COST", &cfg.Auth.BcryptCost)

	// Documents overrides
	envString("DOCUMENTS_ROOT", &cfg.Documents.Root)

	// Maintenance overrides
	envBool("MAINTENANCE_ENABLED", &cfg.Maintenance.Enabled)
	envString("MAINTENANCE_SCHEDULE", &cfg.Maintenance.Schedule)
	envInt("MAINTENANCE_LEAD_DAYS", &cfg.Maintenance.LeadDays)

	envBool("INSPECTIONS_AUTO_WORK_ORDER", &cfg.Inspections.AutoWorkOrder)
	envBool("OBD_AUTO_WORK_ORDER", &cfg.OBD.AutoWorkOrder)
	if val := os.Getenv(EnvPrefix + "OBD_CRITICAL_PREFIXES"); val != "" {
		cfg.OBD.CriticalPrefixes = splitList(val)
	}

	envBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
