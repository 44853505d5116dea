// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to stderr, leaving stdout for command output
//   - Also logs to the systemd journal when enabled and journald is running
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:   "info", // Global log level: debug, info, warn, error
//		Format:  "text", // Output format: text or json
//		Journal: true,   // Mirror to journald when available
//		Modules: map[string]string{
//			"encoder": "debug", // Per-module overrides
//			"ffmpeg":  "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("mymodule")
//	logger.Info("Starting up", "port", 8080)
//	logger.Debug("Details", "config", cfg)
//	logger.Warn("Something unusual", "error", err)
//	logger.Error("Failed", "error", err)
//
// Add contextual attributes:
//
//	logger := logging.GetLogger("encoder").With("clip", clip.Name)
//	logger.Info("Encode started")  // Includes clip in all logs
//
// # Log Levels
//
//	debug - Verbose debugging information
//	info  - General operational messages
//	warn  - Warning conditions
//	error - Error conditions
//
// # Output Destinations
//
//	Journal enabled and available → Tee(stderr, journal)
//	Otherwise                     → TextHandler or JSONHandler on stderr
//
// Journal availability is checked via [github.com/coreos/go-systemd/v22/journal.Enabled].
//
// # Output Tails
//
// RingBuffer keeps the last lines of a subprocess's output. It implements the
// line handler used by the process package, so an encode failure can report
// what the encoder printed last.
//
// # Viewing Logs
//
// With journal output enabled, e.g. for scheduled regression runs:
//
//	journalctl -t enctests              # All logs
//	journalctl -t enctests -p err       # Errors only
//	journalctl -t enctests MODULE=encoder TEST=test_h264
//
// # Configuration
//
// Log levels can be set globally or per-module. Module-specific levels
// override the global level for that module only.
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	journal = false
//
//	[logging.modules]
//	encoder = "debug"
//	ffmpeg = "warn"
package logging
