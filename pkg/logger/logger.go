package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation bounds the log file on disk. Zero fields take the defaults below.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var defaultRotation = Rotation{MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 30}

// Options tune the process logger. The zero value logs debug and above to
// stdout in console format.
type Options struct {
	Level    string
	Console  io.Writer
	Rotation Rotation
}

// NewLogger builds the process logger. Every event carries the service name
// and goes to the console; when filePath is set it is also appended as JSON
// to a rotated, gzip-compressed file.
func NewLogger(filePath, serviceName string, opts Options) (zerolog.Logger, error) {
	level := zerolog.DebugLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}}

	if filePath != "" {
		writers = append(writers, opts.Rotation.writer(filePath))
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger()

	l.Info().
		Str("file", filePath).
		Stringer("level", level).
		Msg("logger ready")
	return l, nil
}

func (r Rotation) writer(filePath string) *lumberjack.Logger {
	if r.MaxSizeMB <= 0 {
		r.MaxSizeMB = defaultRotation.MaxSizeMB
	}
	if r.MaxBackups <= 0 {
		r.MaxBackups = defaultRotation.MaxBackups
	}
	if r.MaxAgeDays <= 0 {
		r.MaxAgeDays = defaultRotation.MaxAgeDays
	}
	return &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   true,
	}
}
