package logger

import "github.com/ArdentAILabs/benchlock/types"

// Logger defines the structured, leveled logging interface used throughout
// benchlock. Implementations must be safe for concurrent use.
type Logger interface {
	// Debugw logs a debug-level message with optional structured context.
	Debugw(msg string, keysAndValues ...any)

	// Infow logs an info-level message with optional structured context.
	Infow(msg string, keysAndValues ...any)

	// Warnw logs a warning-level message with optional structured context.
	Warnw(msg string, keysAndValues ...any)

	// Errorw logs an error-level message with optional structured context.
	Errorw(msg string, keysAndValues ...any)

	// Fatalw logs a fatal-level message with optional structured context and then terminates the application.
	Fatalw(msg string, keysAndValues ...any)

	// Context enrichment methods return a new logger instance with additional persistent context.

	// With adds arbitrary key-value pairs to the logger's context.
	With(keysAndValues ...any) Logger

	// WithHolderID adds the holder identity to the logger's context
	// (used to distinguish workers contending for the same resources).
	WithHolderID(id types.HolderID) Logger

	// WithResource adds a resource name to the logger's context.
	WithResource(id types.ResourceID) Logger

	// WithComponent adds a component label (e.g., "client", "postgres") to categorize log output.
	WithComponent(name string) Logger
}
