// Package flags manages command-line flags and environment variables for
// Lighthouse configuration.
package flags

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// defaultSchedule runs a scan once a day when no schedule is configured.
const defaultSchedule = "@every 24h"

// defaultRequestTimeout bounds each registry request.
const defaultRequestTimeout = 30 * time.Second

// errInvalidLogFormat indicates an invalid log format was specified.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
var errInvalidLogLevel = errors.New("invalid log level specified")

// RegisterSystemFlags adds the flags controlling Lighthouse's program flow
// to the root command. Every flag reads its default from a LIGHTHOUSE_*
// environment variable.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"schedule",
		"s",
		envString("LIGHTHOUSE_SCHEDULE"),
		"Cron expression which defines when to scan for stale images")

	flags.BoolP(
		"run-once",
		"R",
		envBool("LIGHTHOUSE_RUN_ONCE"),
		"Run a single scan and exit")

	flags.Bool(
		"scan-on-start",
		envBool("LIGHTHOUSE_SCAN_ON_START"),
		"Run a scan immediately on startup, then follow the schedule")

	flags.StringSlice(
		"notification-url",
		envStringSlice("LIGHTHOUSE_NOTIFICATION_URL"),
		"Shoutrrr service URLs to send notifications to")

	flags.Duration(
		"request-timeout",
		envDurationOr("LIGHTHOUSE_REQUEST_TIMEOUT", defaultRequestTimeout),
		"Timeout for each registry request")

	flags.Bool(
		"http-api",
		envBool("LIGHTHOUSE_HTTP_API"),
		"Serve metrics and health endpoints over HTTP")

	flags.String(
		"http-api-addr",
		envStringOr("LIGHTHOUSE_HTTP_API_ADDR", ":8080"),
		"Address for the HTTP API to listen on")

	flags.StringP(
		"log-level",
		"l",
		envStringOr("LIGHTHOUSE_LOG_LEVEL", "info"),
		"Log level (trace, debug, info, warn, error, fatal, panic)")

	flags.String(
		"log-format",
		envStringOr("LIGHTHOUSE_LOG_FORMAT", "auto"),
		"Log format (auto, logfmt, json, pretty)")

	flags.BoolP(
		"debug",
		"d",
		envBool("LIGHTHOUSE_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.Bool(
		"trace",
		envBool("LIGHTHOUSE_TRACE"),
		"Enable trace mode (caution: logs sensitive information)")
}

// GetSchedule resolves the effective cron schedule from the flags,
// falling back to the daily default.
func GetSchedule(flags *pflag.FlagSet) string {
	schedule, _ := flags.GetString("schedule")
	if schedule == "" {
		schedule = defaultSchedule
	}

	return schedule
}

// SetupLogging applies the log level and format flags to the global
// logrus instance. Debug and trace shortcuts override the level flag.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, _ := flags.GetString("log-format")

	switch logFormat {
	case "auto":
		// Logrus default: pretty when attached to a terminal.
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   true,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	rawLogLevel, _ := flags.GetString("log-level")
	if debug, _ := flags.GetBool("debug"); debug {
		rawLogLevel = "debug"
	}

	if trace, _ := flags.GetBool("trace"); trace {
		rawLogLevel = "trace"
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %s", errInvalidLogLevel, rawLogLevel)
	}

	logrus.SetLevel(logLevel)

	return nil
}

func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

func envStringOr(key, def string) string {
	viper.MustBindEnv(key)
	viper.SetDefault(key, def)

	return viper.GetString(key)
}

func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

func envDurationOr(key string, def time.Duration) time.Duration {
	viper.MustBindEnv(key)
	viper.SetDefault(key, def)

	return viper.GetDuration(key)
}
