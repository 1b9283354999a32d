// Package zerolog adapts rs/zerolog to the logger.Logger interface with a
// colored console writer.
package zerolog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"

	"github.com/hodlsim/hodlsim/pkg/logger"
)

// Logger wraps a zerolog.Logger behind the logger.Logger interface.
type Logger struct {
	zl zerolog.Logger
}

// New creates a console logger at the given level. Levels follow zerolog
// naming: trace, debug, info, warn, error, fatal.
func New(level string, colored bool) (*Logger, error) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	output := zerolog.ConsoleWriter{
		Out:         os.Stdout,
		NoColor:     !colored,
		TimeFormat:  time.RFC3339,
		FormatLevel: formatLevel,
	}

	zl := zerolog.New(output).Level(parsed).With().Timestamp().Logger()
	return &Logger{zl: zl}, nil
}

func formatLevel(i any) string {
	level, ok := i.(string)
	if !ok {
		return "[???]"
	}

	switch level {
	case zerolog.LevelTraceValue:
		return term.Cyanf("[TRC]")
	case zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WAR]")
	case zerolog.LevelErrorValue:
		return term.Redf("[ERR]")
	case zerolog.LevelFatalValue:
		return term.Redf("[FTL]")
	default:
		return fmt.Sprintf("[%s]", strings.ToUpper(level))
	}
}

func (l *Logger) WithField(key string, value any) logger.Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) WithFields(fields map[string]any) logger.Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) WithError(err error) logger.Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

func (l *Logger) Debug(args ...any) { l.zl.Debug().Msg(fmt.Sprint(args...)) }
func (l *Logger) Info(args ...any)  { l.zl.Info().Msg(fmt.Sprint(args...)) }
func (l *Logger) Warn(args ...any)  { l.zl.Warn().Msg(fmt.Sprint(args...)) }
func (l *Logger) Error(args ...any) { l.zl.Error().Msg(fmt.Sprint(args...)) }
func (l *Logger) Fatal(args ...any) { l.zl.Fatal().Msg(fmt.Sprint(args...)) }

func (l *Logger) Debugf(format string, args ...any) { l.zl.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.zl.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zl.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.zl.Error().Msgf(format, args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.zl.Fatal().Msgf(format, args...) }

func (l *Logger) SetLevel(level logger.Level) {
	l.zl = l.zl.Level(toZerologLevel(level))
}

func (l *Logger) GetLevel() logger.Level {
	return fromZerologLevel(l.zl.GetLevel())
}

func toZerologLevel(level logger.Level) zerolog.Level {
	switch level {
	case logger.Disabled:
		return zerolog.Disabled
	case logger.TraceLevel:
		return zerolog.TraceLevel
	case logger.DebugLevel:
		return zerolog.DebugLevel
	case logger.InfoLevel:
		return zerolog.InfoLevel
	case logger.WarnLevel:
		return zerolog.WarnLevel
	case logger.ErrorLevel:
		return zerolog.ErrorLevel
	case logger.FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func fromZerologLevel(level zerolog.Level) logger.Level {
	switch level {
	case zerolog.Disabled:
		return logger.Disabled
	case zerolog.TraceLevel:
		return logger.TraceLevel
	case zerolog.DebugLevel:
		return logger.DebugLevel
	case zerolog.InfoLevel:
		return logger.InfoLevel
	case zerolog.WarnLevel:
		return logger.WarnLevel
	case zerolog.ErrorLevel:
		return logger.ErrorLevel
	case zerolog.FatalLevel:
		return logger.FatalLevel
	default:
		return logger.InfoLevel
	}
}
