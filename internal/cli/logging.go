package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnvLogLevel overrides the default log level.
const EnvLogLevel = "DJV_LOG_LEVEL"

// DefaultLogLevel keeps the tools quiet unless something goes wrong.
const DefaultLogLevel = logrus.WarnLevel

// LogOptions are the logging flags every tool accepts.
type LogOptions struct {
	// Level is empty to use DJV_LOG_LEVEL or DefaultLogLevel.
	Level string
	JSON  bool
}

// ParseFlag consumes -log_level and -log_json. It reports whether flag was
// one of them.
func (o *LogOptions) ParseFlag(flag string, args *Args) (bool, error) {
	switch flag {
	case "-log_level":
		level, err := args.String(flag)
		if err != nil {
			return true, err
		}
		if _, err := logrus.ParseLevel(level); err != nil {
			return true, fmt.Errorf("%s: %w: %q", flag, ErrBadValue, level)
		}
		o.Level = level
		return true, nil
	case "-log_json":
		o.JSON = true
		return true, nil
	}
	return false, nil
}

// ConfigureLogging sets up the global logrus logger writing to w.
func ConfigureLogging(o LogOptions, w io.Writer) {
	level := DefaultLogLevel
	name := o.Level
	if name == "" {
		name = os.Getenv(EnvLogLevel)
	}
	if name != "" {
		parsed, err := logrus.ParseLevel(strings.TrimSpace(name))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "ConfigureLogging",
				"env_var":     EnvLogLevel,
				"value":       name,
				"using_value": level.String(),
			}).Warn("Invalid log level, using default")
		} else {
			level = parsed
		}
	}

	logrus.SetOutput(w)
	logrus.SetLevel(level)
	if o.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	}
}
