// Package logs holds the application-wide logrus logger. Auth and
// lockout events are logged with the unit/technician identity and
// outcome only; credential and PIN values never appear in log fields.
package logs

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the shared application logger. It is usable before Init so
// tests and early startup code do not need configuration.
var Logger = logrus.New()

// Options configures the logger from the application config.
type Options struct {
	Level  string // trace|debug|info|warn|error
	Format string // text|json
}

// Init reconfigures the shared logger.
func Init(opts Options) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)

	if opts.Format == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	}
	Logger.SetOutput(os.Stdout)
}
