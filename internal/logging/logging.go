// Package logging builds the structured logger threaded through
// internal/engine, internal/index, and internal/artifact. GoClode itself
// never adopted a logging library; this follows mdzesseis-log_capturer_go's
// JSON-formatter setup, the one example repo that wires logrus end to end.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options configures New. The zero value produces an info-level JSON
// logger writing to stderr.
type Options struct {
	Level  string // logrus level name; defaults to "info" on parse failure
	Format string // "json" (default) or "text"
	Output io.Writer
}

// New builds a *logrus.Logger per opts, matching the level/format/output
// wiring of mdzesseis-log_capturer_go's App constructor.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if opts.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stderr)
	}

	return log
}
