// Package logging writes Lighthouse's startup information.
package logging

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lighthouse-dev/lighthouse/pkg/types"
)

// WriteStartupMessage logs the version, notification setup, and schedule
// information once at startup.
func WriteStartupMessage(version string, firstRun time.Time, runOnce bool, notifier types.Notifier) {
	logrus.Info("Lighthouse ", version)

	if notifier != nil {
		logrus.Info("Using notifications: " + strings.Join(notifier.GetNames(), ", "))
	} else {
		logrus.Info("Using no notifications")
	}

	switch {
	case runOnce:
		logrus.Info("Running a one time scan.")
	case !firstRun.IsZero():
		logrus.Info("Scheduling first run: " + firstRun.Format("2006-01-02 15:04:05 -0700 MST"))
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Warn("Trace level enabled: log will include sensitive information such as tokens")
	}
}
