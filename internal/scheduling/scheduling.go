// Package scheduling runs the image scan on a cron schedule and handles
// graceful shutdown.
package scheduling

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// scanWaitTimeout bounds how long shutdown waits for an in-flight scan.
const scanWaitTimeout = 60 * time.Second

// RunScansOnSchedule executes runScan according to the cron specification
// until the context is canceled or an interrupt signal arrives. A lock
// channel ensures only one scan runs at a time; a tick that finds a scan
// already running is skipped. If scanOnStart is set, one scan runs
// immediately before the scheduler starts.
func RunScansOnSchedule(
	ctx context.Context,
	scheduleSpec string,
	scanOnStart bool,
	runScan func(context.Context),
) error {
	lock := make(chan bool, 1)
	lock <- true

	scheduler := cron.New()

	scanFunc := func() {
		select {
		case v := <-lock:
			defer func() { lock <- v }()

			runScan(ctx)
			logrus.Debug("Scan completed")
		default:
			logrus.Debug("Skipped scan, another one is already running")
		}

		entries := scheduler.Entries()
		if len(entries) > 0 {
			logrus.Debug("Scheduled next run: " + entries[0].Next.String())
		}
	}

	if scheduleSpec != "" {
		if err := scheduler.AddFunc(scheduleSpec, scanFunc); err != nil {
			return fmt.Errorf("failed to schedule scans: %w", err)
		}
	}

	if len(scheduler.Entries()) > 0 {
		firstRun := scheduler.Entries()[0].Schedule.Next(time.Now())
		logrus.Info("Scheduling first run: " + firstRun.Format("2006-01-02 15:04:05 -0700 MST"))
	}

	if scanOnStart {
		scanFunc()
	}

	scheduler.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		logrus.Debug("Context canceled, stopping scheduler")
	case <-interrupt:
		logrus.Debug("Received interrupt signal, stopping scheduler")
	}

	scheduler.Stop()
	waitForRunningScan(ctx, lock)

	logrus.Debug("Scheduler stopped")

	return nil
}

// waitForRunningScan blocks until any in-flight scan releases the lock,
// bounded by a timeout and context cancellation.
func waitForRunningScan(ctx context.Context, lock chan bool) {
	select {
	case <-lock:
		logrus.Debug("No scan running, shutting down")
	case <-time.After(scanWaitTimeout):
		logrus.Warn("Timeout waiting for running scan to finish, proceeding with shutdown")
	case <-ctx.Done():
		logrus.Warn("Context canceled while waiting for running scan")
	}
}
