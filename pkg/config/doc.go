// Package config provides configuration management for depot.
//
// Configuration is read from a YAML file, layered over built-in defaults,
// then overridden from the environment, then validated:
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. .env file entries (github.com/joho/godotenv), never overriding
//     variables that are already set
//  4. Environment variable overrides (DEPOT_SECTION_FIELD)
//  5. Validation (all field errors are reported together)
//
// # Environment Variable Overrides
//
//   - DEPOT_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - DEPOT_DATABASE_DRIVER overrides database.driver
//   - DEPOT_AUTH_TOKEN_SECRET overrides auth.token_secret
//   - DEPOT_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Singleton Pattern
//
//	cfg, err := config.Initialize("depot.yaml")
//	if err != nil {
//	    return err
//	}
//	// elsewhere
//	cfg = config.GetConfig()
//
// # Hot Reload
//
// Watcher watches the configuration file with fsnotify and swaps the global
// configuration when a valid new version is written. Components that can
// react at runtime (currently the log level) subscribe through the reload
// callback; everything else picks up changes on restart.
package config
