package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(message string)
	Info(message string)
	Warning(message string)
	Error(message string)
	Fatal(message string)
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
}

// LoggingConfig controls the application and GORM log output.
type LoggingConfig struct {
	Level              string
	ProductionMode     bool
	DisableGORMLogging bool
}

type LogrusLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewLogger builds a JSON logger writing to stdout. The level defaults to debug,
// or info in production mode, unless cfg.Level names a valid logrus level.
func NewLogger(cfg LoggingConfig) Logger {
	return newLogger(os.Stdout, cfg)
}

// NewNopLogger discards all output. Used by tests.
func NewNopLogger() Logger {
	return newLogger(io.Discard, LoggingConfig{})
}

func newLogger(out io.Writer, cfg LoggingConfig) Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})

	if cfg.ProductionMode {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	if cfg.Level != "" {
		if level, err := logrus.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			logger.SetLevel(level)
		}
	}

	return &LogrusLogger{
		logger: logger,
		entry:  nil,
	}
}

func (l *LogrusLogger) Debug(message string) {
	if l.entry != nil {
		l.entry.Debug(message)
		return
	}
	l.logger.Debug(message)
}

func (l *LogrusLogger) Info(message string) {
	if l.entry != nil {
		l.entry.Info(message)
		return
	}
	l.logger.Info(message)
}

func (l *LogrusLogger) Warning(message string) {
	if l.entry != nil {
		l.entry.Warning(message)
		return
	}
	l.logger.Warning(message)
}

func (l *LogrusLogger) Error(message string) {
	if l.entry != nil {
		l.entry.Error(message)
		return
	}
	l.logger.Error(message)
}

func (l *LogrusLogger) Fatal(message string) {
	if l.entry != nil {
		l.entry.Fatal(message)
		return
	}
	l.logger.Fatal(message)
}

func (l *LogrusLogger) WithField(key string, value interface{}) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.base().WithField(key, value),
	}
}

func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.base().WithFields(logrus.Fields(fields)),
	}
}

func (l *LogrusLogger) WithError(err error) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.base().WithError(err),
	}
}

func (l *LogrusLogger) base() *logrus.Entry {
	if l.entry == nil {
		return logrus.NewEntry(l.logger)
	}
	return l.entry
}
