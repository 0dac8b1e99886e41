package model

//
// Logging
//

// DebugLogger is the subset of [Logger] used by the handshake and
// key-log code paths, which never emit above the debug level.
type DebugLogger interface {
	Debug(msg string)
	Debugf(format string, v ...any)
}

// Logger is what the registry and the socket table log through. The
// `log.Log` singleton of `apex/log` satisfies it, and so does the
// scrubbing logger in the scrubber package.
type Logger interface {
	DebugLogger
	Info(msg string)
	Infof(format string, v ...any)
	Warn(msg string)
	Warnf(format string, v ...any)
}

// DiscardLogger swallows every message. It is what a registry or a
// table created with a nil logger ends up using.
var DiscardLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debug(string)          {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Info(string)           {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warn(string)           {}
func (nopLogger) Warnf(string, ...any)  {}

// ValidLoggerOrDefault returns logger unless it is nil, in which
// case it returns [DiscardLogger].
func ValidLoggerOrDefault(logger Logger) Logger {
	if logger == nil {
		return DiscardLogger
	}
	return logger
}
