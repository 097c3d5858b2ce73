package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// InitLogger configures the global logger to write to a rotated file.
// Unparseable levels fall back to info.
func InitLogger(file string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level string) {
	writer := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	logger = zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
}

// SetLogLevel adjusts the level of the current logger. Unparseable levels
// fall back to info.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	logger = logger.Level(lvl)
}

// SetLoggerForTest replaces the global logger. Tests use this to capture
// output in a buffer.
func SetLoggerForTest(l zerolog.Logger) {
	logger = l
}

// Debug logs at debug level with alternating key/value pairs.
func Debug(msg string, kv ...interface{}) {
	withFields(logger.Debug(), kv).Msg(msg)
}

// Info logs at info level with alternating key/value pairs.
func Info(msg string, kv ...interface{}) {
	withFields(logger.Info(), kv).Msg(msg)
}

// Warn logs at warn level with alternating key/value pairs.
func Warn(msg string, kv ...interface{}) {
	withFields(logger.Warn(), kv).Msg(msg)
}

// Error logs at error level with alternating key/value pairs.
func Error(msg string, kv ...interface{}) {
	withFields(logger.Error(), kv).Msg(msg)
}

// Fatal logs at fatal level and exits the process.
func Fatal(msg string, kv ...interface{}) {
	withFields(logger.Fatal(), kv).Msg(msg)
}

// withFields attaches key/value pairs to the event. A dangling key without a
// value is dropped.
func withFields(ev *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		ev = ev.Interface(key, kv[i+1])
	}
	return ev
}
