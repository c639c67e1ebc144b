// Package registry exposes the two operations Lighthouse needs from a
// container registry: obtaining an Authorization header for an image, and
// looking up the current content digest of an image's manifest. Every
// digest lookup performs the full challenge, token, and manifest round
// trip; no state is shared between calls beyond the transport client.
package registry

import (
	"context"
	"net/http"
	"time"

	"github.com/distribution/reference"
	"github.com/sirupsen/logrus"

	"github.com/lighthouse-dev/lighthouse/pkg/registry/auth"
	"github.com/lighthouse-dev/lighthouse/pkg/registry/digest"
	"github.com/lighthouse-dev/lighthouse/pkg/registry/manifest"
)

// defaultRequestTimeout bounds each registry request when no transport
// client is supplied by the caller.
const defaultRequestTimeout = 30 * time.Second

// Client performs authenticated digest lookups against container
// registries. The underlying HTTP client is shared and safe for use by
// concurrent lookups; each lookup is otherwise self-contained.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a registry client around the given HTTP client. A nil
// client gets a default one with a request timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &Client{httpClient: httpClient}
}

// GetAuthHeader returns the Authorization header value to use when
// communicating with the registry hosting the given image. It discovers
// the registry's challenge, exchanges it for a bearer token, and returns
// the token in "Bearer <token>" form.
func (c *Client) GetAuthHeader(ctx context.Context, image string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "", err
	}

	return auth.GetToken(ctx, normalizedRef, c.httpClient)
}

// GetDigest fetches the content digest the registry currently serves for
// the given image and tag. The digest is read from the manifest HEAD
// response header, as HEAD lookups do not count against registry pull
// quotas. The digest is returned verbatim (e.g. "sha256:...").
func (c *Client) GetDigest(ctx context.Context, image, tag string) (string, error) {
	logrus.WithFields(logrus.Fields{
		"image": image,
		"tag":   tag,
	}).Debug("Fetching digest")

	manifestURL, err := manifest.BuildManifestURL(image, tag)
	if err != nil {
		return "", err
	}

	authHeader, err := c.GetAuthHeader(ctx, image)
	if err != nil {
		return "", err
	}

	return digest.FetchDigest(ctx, c.httpClient, manifestURL, authHeader)
}
