package scrubber

import (
	"fmt"

	"github.com/ooni/btls/internal/model"
)

// Logger wraps a [model.Logger] and removes IP addresses from every
// message before passing it on. Formatting happens before scrubbing,
// so addresses in the arguments are removed as well.
type Logger struct {
	Logger model.Logger
}

var _ model.Logger = &Logger{}

func (sl *Logger) Debug(message string) {
	sl.Logger.Debug(Scrub(message))
}

func (sl *Logger) Debugf(format string, v ...any) {
	sl.Logger.Debug(Scrub(fmt.Sprintf(format, v...)))
}

func (sl *Logger) Info(message string) {
	sl.Logger.Info(Scrub(message))
}

func (sl *Logger) Infof(format string, v ...any) {
	sl.Logger.Info(Scrub(fmt.Sprintf(format, v...)))
}

func (sl *Logger) Warn(message string) {
	sl.Logger.Warn(Scrub(message))
}

func (sl *Logger) Warnf(format string, v ...any) {
	sl.Logger.Warn(Scrub(fmt.Sprintf(format, v...)))
}
