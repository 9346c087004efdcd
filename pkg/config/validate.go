package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

var (
	validDrivers   = []string{"sqlite3", "sqlite", "postgres"}
	validRoles     = []string{"admin", "manager", "technician", "viewer"}
	validPriority  = []string{"low", "medium", "high", "critical"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validLogFormat = []string{"json", "text", "console"}
)

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateDatabase(&cfg.Database)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateDocuments(&cfg.Documents)...)
	errs = append(errs, validateMaintenance(&cfg.Maintenance)...)
	errs = append(errs, validateFeatures(cfg)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("must be host:port, got %q", cfg.ListenAddress),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must not be negative"})
	}

	return errs
}

func validateDatabase(cfg *DatabaseConfig) []FieldError {
	var errs []FieldError

	if !oneOf(cfg.Driver, validDrivers) {
		errs = append(errs, FieldError{
			Field:   "database.driver",
			Message: fmt.Sprintf("must be one of %s, got %q", strings.Join(validDrivers, ", "), cfg.Driver),
		})
	}
	if cfg.DSN == "" {
		errs = append(errs, FieldError{Field: "database.dsn", Message: "is required"})
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns && cfg.MaxOpenConns > 0 {
		errs = append(errs, FieldError{
			Field:   "database.max_idle_conns",
			Message: "must not exceed max_open_conns",
		})
	}

	return errs
}

func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError

	if len(cfg.TokenSecret) < MinTokenSecretLen {
		errs = append(errs, FieldError{
			Field:   "auth.token_secret",
			Message: fmt.Sprintf("must be at least %d bytes", MinTokenSecretLen),
		})
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, FieldError{Field: "auth.token_ttl", Message: "must be positive"})
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errs = append(errs, FieldError{Field: "auth.bcrypt_cost", Message: "must be between 4 and 31"})
	}

	seen := make(map[string]bool)
	for i, key := range cfg.APIKeys {
		prefix := fmt.Sprintf("auth.api_keys[%d]", i)
		if len(key.Key) < 16 {
			errs = append(errs, FieldError{Field: prefix + ".key", Message: "must be at least 16 characters"})
		}
		if seen[key.Key] {
			errs = append(errs, FieldError{Field: prefix + ".key", Message: "duplicate key"})
		}
		seen[key.Key] = true
		if key.Name == "" {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: "is required"})
		}
		if !oneOf(key.Role, validRoles) {
			errs = append(errs, FieldError{
				Field:   prefix + ".role",
				Message: fmt.Sprintf("must be one of %s", strings.Join(validRoles, ", ")),
			})
		}
	}

	return errs
}

func validateDocuments(cfg *DocumentsConfig) []FieldError {
	var errs []FieldError

	if cfg.Root == "" {
		errs = append(errs, FieldError{Field: "documents.root", Message: "is required"})
	}
	if cfg.MaxUploadBytes <= 0 {
		errs = append(errs, FieldError{Field: "documents.max_upload_bytes", Message: "must be positive"})
	}

	return errs
}

func validateMaintenance(cfg *MaintenanceConfig) []FieldError {
	var errs []FieldError

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "maintenance.schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}
	if cfg.LeadDays < 0 {
		errs = append(errs, FieldError{Field: "maintenance.lead_days", Message: "must not be negative"})
	}
	if cfg.LeadMiles < 0 {
		errs = append(errs, FieldError{Field: "maintenance.lead_miles", Message: "must not be negative"})
	}
	if cfg.LeadHours < 0 {
		errs = append(errs, FieldError{Field: "maintenance.lead_hours", Message: "must not be negative"})
	}

	return errs
}

func validateFeatures(cfg *Config) []FieldError {
	var errs []FieldError

	if !oneOf(cfg.Inspections.FailedPriority, validPriority) {
		errs = append(errs, FieldError{
			Field:   "inspections.failed_priority",
			Message: fmt.Sprintf("must be one of %s", strings.Join(validPriority, ", ")),
		})
	}
	if cfg.Geofence.MaxVertices < 3 {
		errs = append(errs, FieldError{Field: "geofence.max_vertices", Message: "must be at least 3"})
	}
	if cfg.Geofence.MaxRadiusMeters <= 0 {
		errs = append(errs, FieldError{Field: "geofence.max_radius_meters", Message: "must be positive"})
	}
	if cfg.Forms.MaxFields <= 0 {
		errs = append(errs, FieldError{Field: "forms.max_fields", Message: "must be positive"})
	}
	if cfg.Audit.AsyncBuffer < 0 {
		errs = append(errs, FieldError{Field: "audit.async_buffer", Message: "must not be negative"})
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, FieldError{Field: "rate_limit.requests_per_second", Message: "must be positive"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if !oneOf(cfg.Logging.Level, validLogLevels) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be one of %s, got %q", strings.Join(validLogLevels, ", "), cfg.Logging.Level),
		})
	}
	if !oneOf(cfg.Logging.Format, validLogFormat) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be one of %s, got %q", strings.Join(validLogFormat, ", "), cfg.Logging.Format),
		})
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0 and 1"})
	}

	return errs
}

func oneOf(val string, allowed []string) bool {
	for _, a := range allowed {
		if val == a {
			return true
		}
	}
	return false
}
