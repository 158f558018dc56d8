package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging points the global logger at a console writer on stderr and,
// when LogDir is set, a JSON log file at <LogDir>/app.log. Closing the
// returned closer points the logger back at the console and releases the
// file.
func SetupLogging(cfg Config) (io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(logLevel(cfg))

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if strings.TrimSpace(cfg.LogDir) == "" {
		log.Logger = log.Output(console)
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		log.Logger = log.Output(console)
		return io.NopCloser(nil), fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(cfg.LogDir, "app.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Logger = log.Output(console)
		return io.NopCloser(nil), fmt.Errorf("open log file: %w", err)
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, f)).With().Timestamp().Logger()
	return &logFile{f: f, console: console}, nil
}

type logFile struct {
	f       *os.File
	console zerolog.ConsoleWriter
}

func (l *logFile) Close() error {
	log.Logger = log.Output(l.console)
	return l.f.Close()
}

func logLevel(cfg Config) zerolog.Level {
	if cfg.Verbose {
		return zerolog.DebugLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
