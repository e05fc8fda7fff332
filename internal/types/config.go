package types

type RunMode string

const (
	// ModeLocal runs the API server with debug instrumentation
	ModeLocal RunMode = "local"
	// ModeAPI runs the API server in release mode
	ModeAPI RunMode = "api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
)
