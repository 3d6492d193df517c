package utils

import (
	"fmt" // Error wrapping

	"github.com/sirupsen/logrus" // Structured logging
)

// SetupLogger configures the standard logrus logger. Production logs are JSON.
func SetupLogger(level string, json bool) error {
	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(lvl)
	return nil
}
