// Package cmd provides the Lighthouse command-line interface.
package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lighthouse-dev/lighthouse/internal/actions"
	"github.com/lighthouse-dev/lighthouse/internal/flags"
	"github.com/lighthouse-dev/lighthouse/internal/logging"
	"github.com/lighthouse-dev/lighthouse/internal/scheduling"
	"github.com/lighthouse-dev/lighthouse/pkg/api"
	"github.com/lighthouse-dev/lighthouse/pkg/container"
	"github.com/lighthouse-dev/lighthouse/pkg/metrics"
	"github.com/lighthouse-dev/lighthouse/pkg/notifications"
	"github.com/lighthouse-dev/lighthouse/pkg/registry"
	"github.com/lighthouse-dev/lighthouse/pkg/types"
)

// version is the Lighthouse version, set at build time via linker flags.
var version = "dev"

var rootCmd = newRootCommand()

// newRootCommand creates the root command for Lighthouse.
func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lighthouse",
		Short: "Reports stale container images",
		Long: `Lighthouse checks whether the images of locally running containers are
stale relative to their registries, and notifies when drift is found.`,
		PersistentPreRunE: preRun,
		RunE:              run,
		SilenceUsage:      true,
	}
}

func init() {
	flags.RegisterSystemFlags(rootCmd)
}

// Execute runs the root command and exits on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Lighthouse failed")
	}
}

func preRun(cmd *cobra.Command, _ []string) error {
	viper.AutomaticEnv()

	return flags.SetupLogging(cmd.PersistentFlags())
}

func run(cmd *cobra.Command, _ []string) error {
	f := cmd.PersistentFlags()

	runOnce, _ := f.GetBool("run-once")
	scanOnStart, _ := f.GetBool("scan-on-start")
	notificationURLs, _ := f.GetStringSlice("notification-url")
	requestTimeout, _ := f.GetDuration("request-timeout")
	httpAPI, _ := f.GetBool("http-api")
	httpAPIAddr, _ := f.GetString("http-api-addr")

	dockerClient, err := container.NewClient()
	if err != nil {
		return err
	}

	registryClient := registry.NewClient(&http.Client{Timeout: requestTimeout})

	notifier, err := notifications.NewNotifier(notificationURLs...)
	if err != nil {
		return err
	}

	scanMetrics := metrics.Default()

	runScan := func(ctx context.Context) {
		started := time.Now()

		containers, err := dockerClient.ListContainers(ctx)
		if err != nil {
			logrus.WithError(err).Error("Failed to list containers")

			return
		}

		report := actions.CheckImages(ctx, containers, registryClient)
		scanMetrics.RegisterScan(report)

		if len(report.Stale) > 0 && notifier != nil {
			if err := notifier.Notify(report.Stale); err != nil {
				logrus.WithError(err).Error("Failed to send notifications")
			}
		}

		logrus.WithField("duration", time.Since(started).Round(time.Millisecond)).
			Debug("Scan finished")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if httpAPI {
		go func() {
			if err := api.New(httpAPIAddr).Start(ctx); err != nil {
				logrus.WithError(err).Error("HTTP API stopped")
			}
		}()
	}

	// A nil *Notifier must not become a non-nil Notifier interface.
	var startupNotifier types.Notifier
	if notifier != nil {
		startupNotifier = notifier
	}

	logging.WriteStartupMessage(version, time.Time{}, runOnce, startupNotifier)

	if runOnce {
		runScan(ctx)

		return nil
	}

	return scheduling.RunScansOnSchedule(ctx, flags.GetSchedule(f), scanOnStart, runScan)
}
