package core

// Logger logs app events to one or more destinations.
// Implementations may inspect args for known types (errors, users) and
// attach them as structured metadata.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
