package config

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger writing to out (stderr when nil).
func NewLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	if out == nil {
		out = os.Stderr
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log, nil
}

// Logger builds the logger described by the config.
func (c Config) Logger() (*logrus.Logger, error) {
	return NewLogger(c.LogLevel, c.LogFormat, nil)
}
