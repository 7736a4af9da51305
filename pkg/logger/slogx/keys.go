package slogx

const (
	// ErrorKey is the attribute key used by [Error].
	ErrorKey = "error"

	// Added to error records when debug logging is on.
	ErrorVerboseKey = "error_verbose"
	ErrorStackKey   = "error_stacktrace"
)
