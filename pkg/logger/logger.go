package logx

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voxcrm/server/internal/core"
)

// Init configures the global zerolog logger for the given environment.
// Production emits structured JSON at info level; everything else gets a
// console writer with caller information at debug level.
func Init(env core.Environment) {
	if env.IsProduction() {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
		return
	}
	log.Logger = zerolog.New(zerolog.NewConsoleWriter()).
		With().Timestamp().Caller().Logger().
		Level(zerolog.DebugLevel)
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}

// With returns a sub-logger carrying a preset string field, for components
// that log many events under the same key (e.g. a conversation id).
func With(key, value string) zerolog.Logger {
	return log.With().Str(key, value).Logger()
}
