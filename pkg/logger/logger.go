package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/research-agent/internal/core"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
	Level:       "debug",
}

type LoggerOpts struct {
	Environment core.Environment
	Level       string
}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return DefaultLoggerOpts
	}
	return &opts[0]
}

func Init(opts ...LoggerOpts) {
	o := safe(opts...)

	level, err := zerolog.ParseLevel(o.Level)
	if err != nil || o.Level == "" {
		level = zerolog.InfoLevel
		if !o.Environment.IsProduction() {
			level = zerolog.DebugLevel
		}
	}

	if o.Environment.UsesConsoleLogs() {
		log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	log.Logger = log.Logger.Level(level)
}

// Conversation returns a child logger tagged with the conversation id.
func Conversation(conversationID string) zerolog.Logger {
	return log.Logger.With().Str("conversation_id", conversationID).Logger()
}

func Trace() *zerolog.Event {
	return log.Trace()
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

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
