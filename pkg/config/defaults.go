package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = int64(1048576)

	// CORS defaults
	DefaultCORSMaxAge = 3600

	// Database defaults
	DefaultDatabaseDriver       = "sqlite3"
	DefaultDatabaseDSN          = "data/depot.db"
	DefaultDatabaseMaxOpenConns = 10
	DefaultDatabaseMaxIdleConns = 5
	DefaultDatabaseConnLifetime = 30 * time.Minute
	DefaultDatabaseBusyTimeout  = 5 * time.Second

	// Auth defaults
	DefaultTokenTTL   = 12 * time.Hour
	DefaultIssuer     = "depot"
	DefaultBcryptCost = 12
	MinTokenSecretLen = 32

	// Documents defaults
	DefaultDocumentsRoot         = "data/documents"
	DefaultDocumentsMaxUpload    = int64(25 << 20)
	DefaultDocumentsExpiringDays = 30

	// Maintenance defaults
	DefaultMaintenanceSchedule  = "0 * * * *"
	DefaultMaintenanceLeadDays  = 7
	DefaultMaintenanceLeadMiles = 250.0
	DefaultMaintenanceLeadHours = 10.0

	// Inspection defaults
	DefaultInspectionFailedPriority = "high"

	// Geofence defaults
	DefaultGeofenceMaxVertices = 500
	DefaultGeofenceMaxRadius   = 500000.0

	// Forms defaults
	DefaultFormsMaxFields     = 200
	DefaultFormsMaxConditions = 50

	// Audit defaults
	DefaultAuditAsyncBuffer   = 1000
	DefaultAuditWriteTimeout  = 5 * time.Second
	DefaultAuditQueryMaxLimit = 1000

	// Rate limit defaults
	DefaultRateLimitRPS   = 20.0
	DefaultRateLimitBurst = 40

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "depot"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingService     = "depot"
)

// DefaultOBDCriticalPrefixes are the code prefixes that open a work order
// when OBD auto work orders are enabled: misfires, injector circuits,
// transmission and lost-communication network codes.
var DefaultOBDCriticalPrefixes = []string{"P03", "P02", "P07", "U0"}

// Default returns a configuration populated with every default, including
// the boolean switches that default to on. LoadConfig unmarshals YAML on top
// of this value so that omitted keys keep their defaults.
func Default() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			WALMode:     true,
			AutoMigrate: true,
		},
		Server: ServerConfig{
			CORS: CORSConfig{Enabled: true},
		},
		Maintenance: MaintenanceConfig{Enabled: true},
		Inspections: InspectionsConfig{AutoWorkOrder: true},
		OBD:         OBDConfig{AutoWorkOrder: true},
		RateLimit:   RateLimitConfig{Enabled: true},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{Redact: true},
			Metrics: MetricsConfig{Enabled: true},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	applyCORSDefaults(&cfg.Server.CORS)

	// Database defaults
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDatabaseDriver
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = DefaultDatabaseDSN
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDatabaseMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDatabaseMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultDatabaseConnLifetime
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = DefaultDatabaseBusyTimeout
	}

	// Auth defaults
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = DefaultTokenTTL
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = DefaultIssuer
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = DefaultBcryptCost
	}

	// Documents defaults
	if cfg.Documents.Root == "" {
		cfg.Documents.Root = DefaultDocumentsRoot
	}
	if cfg.Documents.MaxUploadBytes == 0 {
		cfg.Documents.MaxUploadBytes = DefaultDocumentsMaxUpload
	}
	if cfg.Documents.ExpiringWindowDays == 0 {
		cfg.Documents.ExpiringWindowDays = DefaultDocumentsExpiringDays
	}

	// Maintenance defaults
	if cfg.Maintenance.Schedule == "" {
		cfg.Maintenance.Schedule = DefaultMaintenanceSchedule
	}
	if cfg.Maintenance.LeadDays == 0 {
		cfg.Maintenance.LeadDays = DefaultMaintenanceLeadDays
	}
	if cfg.Maintenance.LeadMiles == 0 {
		cfg.Maintenance.LeadMiles = DefaultMaintenanceLeadMiles
	}
	if cfg.Maintenance.LeadHours == 0 {
		cfg.Maintenance.LeadHours = DefaultMaintenanceLeadHours
	}

	if cfg.Inspections.FailedPriority == "" {
		cfg.Inspections.FailedPriority = DefaultInspectionFailedPriority
	}
	if cfg.Geofence.MaxVertices == 0 {
		cfg.Geofence.MaxVertices = DefaultGeofenceMaxVertices
	}
	if cfg.Geofence.MaxRadiusMeters == 0 {
		cfg.Geofence.MaxRadiusMeters = DefaultGeofenceMaxRadius
	}
	if len(cfg.OBD.CriticalPrefixes) == 0 {
		cfg.OBD.CriticalPrefixes = append([]string(nil), DefaultOBDCriticalPrefixes...)
	}

	// Forms defaults
	if cfg.Forms.MaxFields == 0 {
		cfg.Forms.MaxFields = DefaultFormsMaxFields
	}
	if cfg.Forms.MaxConditionsPerField == 0 {
		cfg.Forms.MaxConditionsPerField = DefaultFormsMaxConditions
	}

	// Audit defaults
	if cfg.Audit.AsyncBuffer == 0 {
		cfg.Audit.AsyncBuffer = DefaultAuditAsyncBuffer
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = DefaultAuditWriteTimeout
	}
	if cfg.Audit.QueryMaxLimit == 0 {
		cfg.Audit.QueryMaxLimit = DefaultAuditQueryMaxLimit
	}

	// Rate limit defaults
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateLimitBurst
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
}

// applyCORSDefaults fills empty CORS lists.
func applyCORSDefaults(cors *CORSConfig) {
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID", "X-API-Key"}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}
