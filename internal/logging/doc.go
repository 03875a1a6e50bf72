// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"dispatcher": "debug",  // Per-module overrides
//			"netlink":    "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("dispatcher")
//	logger.Info("Starting up", "max_children", 20)
//	logger.Debug("Details", "config", cfg)
//	logger.Warn("Something unusual", "error", err)
//	logger.Error("Failed", "error", err)
//
// Add contextual attributes:
//
//	logger := logging.GetLogger("dispatcher").With("seqnum", seqnum)
//	logger.Info("event admitted")  // Includes seqnum in all logs
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
// The system automatically detects available outputs. A BufferHandler
// feeding the in-memory ring buffer is always part of the chain:
//
//	Journal available + stdout available → MultiHandler (stdout, journal, buffer)
//	Journal available only              → MultiHandler (journal, buffer)
//	Stdout available only               → MultiHandler (Text/JSON handler, buffer)
//	Neither available                   → BufferHandler only
//
// Journal availability is checked via [github.com/coreos/go-systemd/v22/journal.Enabled].
//
// # Viewing Logs
//
// When running as a systemd service or on a system with journald:
//
//	journalctl -t hotplugd              # All hotplugd logs
//	journalctl -t hotplugd -f           # Follow live
//	journalctl -t hotplugd --since "5m" # Last 5 minutes
//	journalctl -t hotplugd -p err       # Errors only
//
// Filter by structured fields:
//
//	journalctl -t hotplugd MODULE=dispatcher
//	journalctl -t hotplugd DEVPATH=/devices/pci0000:00/.../video4linux/video0
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
//	dispatcher = "debug"
//	netlink = "warn"
//	signals = "info"
package logging
