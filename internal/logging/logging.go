// Package logging sets up the process-wide slog logger: console output
// plus rotated log files, with warnings and errors duplicated into a
// separate file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	Level   string         `yaml:"level"`  // debug, info, warn, error
	Format  string         `yaml:"format"` // text, json
	Dir     string         `yaml:"dir"`
	Console bool           `yaml:"console"`
	File    bool           `yaml:"file"`
	Rotate  RotationConfig `yaml:"rotation"`
}

// RotationConfig holds log rotation settings.
type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"` // MB
	MaxBackups int  `yaml:"max_backups"`
	MaxAge     int  `yaml:"max_age"` // days
	Compress   bool `yaml:"compress"`
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Dir == "" {
		c.Dir = "logs"
	}
	if c.Rotate.MaxSize == 0 {
		c.Rotate.MaxSize = 100
	}
	if c.Rotate.MaxBackups == 0 {
		c.Rotate.MaxBackups = 10
	}
	if c.Rotate.MaxAge == 0 {
		c.Rotate.MaxAge = 30
	}
}

var (
	logFiles   []*lumberjack.Logger
	logFilesMu sync.Mutex
)

// Initialize builds the logger from configuration and installs it as
// the slog default.
func Initialize(cfg Config) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	slog.SetDefault(logger)

	slog.Info("Logging initialized",
		"level", cfg.Level,
		"format", cfg.Format,
		"dir", cfg.Dir,
		"console", cfg.Console,
		"file", cfg.File,
	)
	return nil
}

// NewLogger creates a logger instance with the given configuration.
func NewLogger(cfg Config) (*slog.Logger, error) {
	cfg.ApplyDefaults()

	var handlers []slog.Handler

	if cfg.Console {
		handlers = append(handlers, createHandler(os.Stdout, cfg.Format, parseLevel(cfg.Level)))
	}

	if cfg.File {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		mainFile := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "grimdex.log"),
			MaxSize:    cfg.Rotate.MaxSize,
			MaxBackups: cfg.Rotate.MaxBackups,
			MaxAge:     cfg.Rotate.MaxAge,
			Compress:   cfg.Rotate.Compress,
		}
		registerLogFile(mainFile)
		handlers = append(handlers, createHandler(mainFile, cfg.Format, parseLevel(cfg.Level)))

		// Warnings and errors are duplicated into their own file.
		errorFile := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "errors.log"),
			MaxSize:    cfg.Rotate.MaxSize,
			MaxBackups: cfg.Rotate.MaxBackups,
			MaxAge:     cfg.Rotate.MaxAge,
			Compress:   cfg.Rotate.Compress,
		}
		registerLogFile(errorFile)
		handlers = append(handlers, createHandler(errorFile, cfg.Format, slog.LevelWarn))
	}

	if len(handlers) == 0 {
		handlers = append(handlers, createHandler(os.Stdout, cfg.Format, parseLevel(cfg.Level)))
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), nil
	}
	return slog.New(newMultiHandler(handlers...)), nil
}

// Shutdown closes all registered log files.
func Shutdown() error {
	logFilesMu.Lock()
	defer logFilesMu.Unlock()

	for _, logFile := range logFiles {
		if err := logFile.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
	}
	logFiles = nil
	return nil
}

func registerLogFile(logFile *lumberjack.Logger) {
	logFilesMu.Lock()
	defer logFilesMu.Unlock()
	logFiles = append(logFiles, logFile)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func createHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
