// Package log provides structured logging for the pay2phone daemon.
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// logFile is the file opened by the last Init, closed on re-init and by Close.
var logFile *os.File

func init() {
	Logger = NewConsoleLogger(os.Stdout, "info")
}

// Init configures the global logger. When file is non-empty, logs go to both
// the console and the file, the file always receiving JSON.
func Init(level string, jsonOutput bool, file string) error {
	var console io.Writer = os.Stdout
	if !jsonOutput {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	if file == "" {
		Logger = zerolog.New(console).Level(parseLevel(level)).With().Timestamp().Logger()
		return Close()
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	Logger = zerolog.New(zerolog.MultiLevelWriter(console, f)).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
	prev := logFile
	logFile = f
	if prev != nil {
		return prev.Close()
	}
	return nil
}

// Close closes the log file opened by Init, if any. Callers should stop
// logging through the file-backed Logger first.
func Close() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// NewConsoleLogger creates a human-readable console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// NewJSONLogger creates a JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a logger tagged with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
