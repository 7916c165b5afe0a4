// Package logging builds the logrus loggers used across the service.
package logging

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. Packages without an injected logger write here.
var Log = logrus.New()

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// New creates a logger with the given level and format ("text" or "json").
func New(level, format string) (*logrus.Logger, error) {
	l := logrus.New()
	if err := setLevel(l, level); err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
	return l, nil
}

// SetLevel changes the level of the process-wide logger.
func SetLevel(level string) error {
	return setLevel(Log, level)
}

func setLevel(l *logrus.Logger, level string) error {
	switch strings.ToLower(level) {
	case "trace":
		l.SetLevel(logrus.TraceLevel)
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "", "info":
		l.SetLevel(logrus.InfoLevel)
	case "warning", "warn":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		return fmt.Errorf("bad log level %q", level)
	}
	return nil
}
