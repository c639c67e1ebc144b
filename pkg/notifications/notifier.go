// Package notifications delivers scan results to external services via
// Shoutrrr. It is the notify(updates) sink: it formats a plain-text
// summary of stale images and fans it out to every configured service URL.
package notifications

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/lighthouse-dev/lighthouse/pkg/types"
)

// errSendFailed indicates at least one notification service rejected the
// message.
var errSendFailed = errors.New("failed to send notification")

// router abstracts the Shoutrrr service router for tests.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// Notifier sends stale-image summaries through Shoutrrr.
type Notifier struct {
	urls   []string
	router router
	params *shoutrrrTypes.Params
}

// NewNotifier creates a notifier for the given Shoutrrr service URLs. An
// empty URL list yields a nil notifier, which callers treat as
// notifications disabled.
func NewNotifier(urls ...string) (*Notifier, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	sender, err := shoutrrr.NewSender(log.New(os.Stderr, "Shoutrrr: ", 0), urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification sender: %w", err)
	}

	params := &shoutrrrTypes.Params{}
	params.SetTitle("Lighthouse")

	return &Notifier{
		urls:   urls,
		router: sender,
		params: params,
	}, nil
}

// Notify sends a summary of the given updates to every configured service.
func (n *Notifier) Notify(updates []types.ImageUpdate) error {
	message := buildMessage(updates)

	errs := n.router.Send(message, n.params)

	failed := 0

	for i, err := range errs {
		if err != nil {
			scheme := "unknown"
			if i < len(n.urls) {
				scheme = GetScheme(n.urls[i])
			}

			logrus.WithError(err).WithField("service", scheme).
				Error("Failed to send notification")

			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d services failed", errSendFailed, failed, len(errs))
	}

	logrus.WithField("services", len(n.urls)).Debug("Sent notifications")

	return nil
}

// GetNames returns the service names derived from the configured URLs.
func (n *Notifier) GetNames() []string {
	names := make([]string, len(n.urls))
	for i, u := range n.urls {
		names[i] = GetScheme(u)
	}

	return names
}

// GetScheme extracts the scheme part of a Shoutrrr URL. It returns
// "invalid" if no scheme is found.
func GetScheme(url string) string {
	schemeEnd := strings.Index(url, ":")
	if schemeEnd <= 0 {
		return "invalid"
	}

	return url[:schemeEnd]
}

// buildMessage renders the stale-image summary sent to notification
// services.
func buildMessage(updates []types.ImageUpdate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Found %d stale image(s):\n", len(updates))

	for _, update := range updates {
		fmt.Fprintf(
			&b,
			"- %s (%s): local %s, remote %s\n",
			update.Image,
			update.Container,
			update.LocalDigest,
			update.RemoteDigest,
		)
	}

	return strings.TrimRight(b.String(), "\n")
}
