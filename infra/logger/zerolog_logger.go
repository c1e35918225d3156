package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger with the default configuration.
// APP_ENV=dev switches to the human readable console writer. All logs include
// the provided component field.
func NewZerologLogger(component string) Logger {
	cfg := Config{}
	cfg.SetDefaults()
	return NewWithConfig(component, cfg)
}

// NewWithConfig builds a zerolog logger from cfg.
func NewWithConfig(component string, cfg Config) Logger {
	var out io.Writer = os.Stderr
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		out = os.Stdout
	case "file":
		if w, err := rotating(cfg.File); err == nil {
			out = w
		}
	}
	return newZerolog(out, component, cfg)
}

var (
	filesMu sync.Mutex
	files   = map[string]*lumberjack.Logger{}
)

// rotating returns the shared rotated writer of a log file. Every component
// logger writing to the same path goes through one lumberjack.Logger.
func rotating(fc FileConfig) (io.Writer, error) {
	path := filepath.Clean(fc.Path)
	filesMu.Lock()
	defer filesMu.Unlock()
	if w, ok := files[path]; ok {
		return w, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fc.MaxSizeMB,
		MaxBackups: fc.MaxBackups,
		MaxAge:     fc.MaxAgeDays,
		Compress:   fc.Compress,
	}
	files[path] = w
	return w, nil
}

// CloseFiles closes the rotated log files opened so far.
func CloseFiles() error {
	filesMu.Lock()
	defer filesMu.Unlock()
	var first error
	for path, w := range files {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
		delete(files, path)
	}
	return first
}

func newZerolog(out io.Writer, component string, cfg Config) *ZerologLogger {
	format := strings.ToLower(cfg.Format)
	if format == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		format = "console"
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}
	z := zerolog.New(out).Level(lvl).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Infow(msg string, fields map[string]any) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
