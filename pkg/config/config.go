package config

import "time"

// Config is the root configuration structure for depot.
// It contains all configuration sections for the HTTP server, database,
// authentication, domain features and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts and CORS.
	Server ServerConfig `yaml:"server"`

	// Database selects the SQL driver and connection settings.
	Database DatabaseConfig `yaml:"database"`

	// Auth contains session token and integration API key settings.
	Auth AuthConfig `yaml:"auth"`

	// Documents controls where uploaded documents are stored.
	Documents DocumentsConfig `yaml:"documents"`

	// Maintenance controls the schedule materializer.
	Maintenance MaintenanceConfig `yaml:"maintenance"`

	// Inspections controls inspection follow-up behaviour.
	Inspections InspectionsConfig `yaml:"inspections"`

	// Geofence contains geofence limits.
	Geofence GeofenceConfig `yaml:"geofence"`

	// OBD controls diagnostic trouble code ingestion.
	OBD OBDConfig `yaml:"obd"`

	// Forms contains custom form limits.
	Forms FormsConfig `yaml:"forms"`

	// Audit controls the audit log recorder.
	Audit AuditConfig `yaml:"audit"`

	// RateLimit controls per-actor request rate limiting.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits JSON request bodies. Document uploads use
	// Documents.MaxUploadBytes instead.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	MaxAge           int      `yaml:"max_age"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// DatabaseConfig contains relational database settings.
type DatabaseConfig struct {
	// Driver is the database/sql driver name.
	// Options: "sqlite3" (mattn, cgo), "sqlite" (modernc, pure Go), "postgres"
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// DSN is the driver-specific data source name. For the SQLite drivers
	// this is a file path.
	// Default: "data/depot.db"
	DSN string `yaml:"dsn"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetime bounds how long a connection is reused.
	// Default: 30m
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	// WALMode enables SQLite write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// AutoMigrate applies schema migrations at startup.
	// Default: true
	AutoMigrate bool `yaml:"auto_migrate"`
}

// AuthConfig contains session and API key settings.
type AuthConfig struct {
	// TokenSecret is the HS256 signing secret for session tokens.
	// Required; at least 32 bytes.
	TokenSecret string `yaml:"token_secret"`

	// TokenTTL is the lifetime of a session token.
	// Default: 12h
	TokenTTL time.Duration `yaml:"token_ttl"`

	// Issuer is the JWT issuer claim.
	// Default: "depot"
	Issuer string `yaml:"issuer"`

	// BcryptCost is the bcrypt work factor for new password hashes.
	// Default: 12
	BcryptCost int `yaml:"bcrypt_cost"`

	// APIKeys are integration keys (telematics, ETL) accepted via the
	// X-API-Key header.
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

// APIKeyConfig describes one integration API key.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	Role    string `yaml:"role"`
	Enabled bool   `yaml:"enabled"`
}

// DocumentsConfig controls the document blob store.
type DocumentsConfig struct {
	// Root is the directory documents are written under.
	// Default: "data/documents"
	Root string `yaml:"root"`

	// MaxUploadBytes limits a single upload.
	// Default: 26214400 (25MB)
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// ExpiringWindowDays is the default look-ahead for the expiring
	// documents listing.
	// Default: 30
	ExpiringWindowDays int `yaml:"expiring_window_days"`
}

// MaintenanceConfig controls the maintenance schedule materializer.
type MaintenanceConfig struct {
	// Enabled turns on the background scheduler in `depot run`.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is the cron expression for generator runs.
	// Default: "0 * * * *" (hourly)
	Schedule string `yaml:"schedule"`

	// LeadDays generates work orders this many days before the due date.
	// Default: 7
	LeadDays int `yaml:"lead_days"`

	// LeadMiles generates work orders this many miles before the due reading.
	// Default: 250
	LeadMiles float64 `yaml:"lead_miles"`

	// LeadHours generates work orders this many engine hours before due.
	// Default: 10
	LeadHours float64 `yaml:"lead_hours"`
}

// InspectionsConfig controls inspection follow-up.
type InspectionsConfig struct {
	// AutoWorkOrder creates a work order when an inspection has failed items.
	// Default: true
	AutoWorkOrder bool `yaml:"auto_work_order"`

	// FailedPriority is the priority of generated work orders.
	// Default: "high"
	FailedPriority string `yaml:"failed_priority"`
}

// GeofenceConfig contains geofence limits.
type GeofenceConfig struct {
	// MaxVertices caps the number of polygon vertices.
	// Default: 500
	MaxVertices int `yaml:"max_vertices"`

	// MaxRadiusMeters caps the radius of circular geofences.
	// Default: 500000
	MaxRadiusMeters float64 `yaml:"max_radius_meters"`
}

// OBDConfig controls diagnostic trouble code ingestion.
type OBDConfig struct {
	// AutoWorkOrder creates a work order for critical codes.
	// Default: true
	AutoWorkOrder bool `yaml:"auto_work_order"`

	// CriticalPrefixes lists code prefixes treated as critical.
	// Default: ["P03", "P02", "P07", "U0"]
	CriticalPrefixes []string `yaml:"critical_prefixes"`
}

// FormsConfig contains custom form limits.
type FormsConfig struct {
	// MaxFields limits the number of fields on one form.
	// Default: 200
	MaxFields int `yaml:"max_fields"`

	// MaxConditionsPerField limits conditions across all groups of a field.
	// Default: 50
	MaxConditionsPerField int `yaml:"max_conditions_per_field"`
}

// AuditConfig controls the audit recorder.
type AuditConfig struct {
	// AsyncBuffer is the size of the audit write queue.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single audit insert.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// QueryMaxLimit caps the page size of audit queries.
	// Default: 1000
	QueryMaxLimit int `yaml:"query_max_limit"`
}

// RateLimitConfig controls per-actor request rate limiting.
type RateLimitConfig struct {
	// Enabled turns on rate limiting.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained rate per actor.
	// Default: 20
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the token bucket size.
	// Default: 40
	Burst int `yaml:"burst"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// Redact enables redaction of credential attributes.
	// Default: true
	Redact bool `yaml:"redact"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "depot"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces sampled (0.0-1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "depot"
	ServiceName string `yaml:"service_name"`
}
