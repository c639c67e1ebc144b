package main

import (
	"github.com/sirupsen/logrus"

	"github.com/lighthouse-dev/lighthouse/cmd"
)

// init sets the default logging level before flag parsing runs.
func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

func main() {
	cmd.Execute()
}
