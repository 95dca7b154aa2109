// pkg/utils/logger.go
package utils

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logger settings coming from the YAML config
type Config struct {
	LogLevel  string
	LogFormat string // "text" or "json"
	Pretty    bool
	// File enables a rotated log file next to stdout when set
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Output replaces stdout when set
	Output io.Writer
}

// Logger wraps logrus so services share one configured instance
type Logger struct {
	*logrus.Logger
}

// NewLogger builds a logger from the given config, falling back to info/text
func NewLogger(cfg Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.ToLower(cfg.LogFormat) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			PrettyPrint: cfg.Pretty && level == logrus.DebugLevel,
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   cfg.Pretty,
		})
	}

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}
	if cfg.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		})
	}
	l.SetOutput(out)

	return &Logger{Logger: l}
}

// NewNopLogger returns a logger that discards everything, handy in tests
func NewNopLogger() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}

// WithFunc tags the entry with the name of the calling function
func (l *Logger) WithFunc() *logrus.Entry {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return logrus.NewEntry(l.Logger)
	}
	name := runtime.FuncForPC(pc).Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return l.Logger.WithField("func", name)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
