// Package logging builds the logrus logger shared by the CLI, the runner and
// the HTTP server.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rustyeddy/tradebook/config"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to w with the level and format from cfg.
func New(cfg config.LogConfig, w io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log format %q: want text or json", cfg.Format)
	}
	return log, nil
}

// Setup is New writing to stderr.
func Setup(cfg config.LogConfig) (*logrus.Logger, error) {
	return New(cfg, os.Stderr)
}

// Component returns an entry tagged with the component name.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}

// Discard returns an entry that drops everything, for tests and library
// callers that pass no logger.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
