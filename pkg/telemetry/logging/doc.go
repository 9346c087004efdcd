// Package logging configures log/slog for depot.
//
// # Overview
//
// The logging package builds the process-wide slog logger:
//   - JSON, text, and console output formats
//   - A slog.LevelVar so the level follows configuration reloads
//   - Redaction of credential attributes (password, token, api_key, ...)
//   - request_id and actor_id copied from the context onto each record
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	logger.Install()
//
//	log := logging.Component("workorders")
//	log.InfoContext(ctx, "work order created", "number", wo.Number)
//
// Components never hold on to the *Logger; they derive from slog.Default so
// SetLevel applies everywhere.
package logging
