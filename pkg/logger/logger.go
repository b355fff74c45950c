package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a thin zerolog wrapper. Field constructors keep call sites free
// of zerolog types so the backend stays swappable.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or a file path
	TimeFormat string

	// File rotation, used when Output is a file path.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	zl := zerolog.New(writerFor(cfg)).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()
	return &Logger{zl: zl}, nil
}

// writerFor resolves the output target. File paths rotate via lumberjack so
// a long-running simulator does not fill the disk.
func writerFor(cfg *Config) io.Writer {
	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		out = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}
	return out
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		f(e)
	}
	e.Msg(msg)
}

// Field attaches one key/value pair to an event.
type Field func(*zerolog.Event)

func String(key, value string) Field {
	return func(e *zerolog.Event) { e.Str(key, value) }
}

func Int(key string, value int) Field {
	return func(e *zerolog.Event) { e.Int(key, value) }
}

func Error(err error) Field {
	return func(e *zerolog.Event) { e.Err(err) }
}

func Any(key string, value interface{}) Field {
	return func(e *zerolog.Event) { e.Interface(key, value) }
}

func Duration(key string, value time.Duration) Field {
	return String(key, value.String())
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}
