package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: human-readable text on stderr
// plus JSON records appended to logFile, so extract and build runs leave
// a machine-parseable trail. The returned cleanup closes the file.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	stderr := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// An unwritable log file is not fatal; the run continues on
		// stderr alone.
		slog.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		return slog.New(stderr), func() error { return nil }
	}

	logger := slog.New(slogmulti.Fanout(
		stderr,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	))
	return logger, file.Close
}

// SetupLoggerWithWriters is SetupLogger with injectable writers and no
// file handling.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	))
}
