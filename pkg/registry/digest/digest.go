// Package digest retrieves image manifest digests from container
// registries. Lookups use HEAD requests so that digest-only checks do not
// count against registry pull quotas the way GET manifest requests do.
package digest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/lighthouse-dev/lighthouse/pkg/registry/auth"
)

// ContentDigestHeader is the response header carrying the manifest digest.
const ContentDigestHeader = "Docker-Content-Digest"

// Accepted manifest media types. Registries pick the most specific type
// they support and may answer with any of the three.
const (
	manifestListV2MediaType = "application/vnd.docker.distribution.manifest.list.v2+json"
	manifestV1MediaType     = "application/vnd.docker.distribution.manifest.v1+json"
	manifestV2MediaType     = "application/vnd.docker.distribution.manifest.v2+json"
)

// ErrMissingDigestHeader indicates a 200 manifest response without a
// Docker-Content-Digest header, a defect in the registry's response.
var ErrMissingDigestHeader = errors.New("registry response did not include a content digest header")

// FetchError indicates a manifest request that did not return 200. It
// carries the status code so callers can classify the failure (404 means
// image or tag not found, 401 means the token was rejected). The response
// body is logged at the point of failure, not surfaced in the error.
type FetchError struct {
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("registry responded with status %d to manifest request", e.StatusCode)
}

// FetchDigest retrieves the content digest of a manifest via an
// authenticated HEAD request. The digest is taken verbatim from the
// response header (e.g. "sha256:..."), trusted without further validation.
func FetchDigest(ctx context.Context, client auth.Client, manifestURL, authHeader string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, manifestURL, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", authHeader)
	req.Header.Add("Accept", manifestListV2MediaType)
	req.Header.Add("Accept", manifestV1MediaType)
	req.Header.Add("Accept", manifestV2MediaType)
	req.Header.Set("User-Agent", auth.UserAgent)

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		logrus.WithFields(logrus.Fields{
			"url":    manifestURL,
			"status": res.Status,
			"body":   string(body),
		}).Info("Failed to fetch image digest")

		return "", &FetchError{StatusCode: res.StatusCode}
	}

	digest := res.Header.Get(ContentDigestHeader)
	if digest == "" {
		logrus.WithFields(logrus.Fields{
			"url":    manifestURL,
			"status": res.Status,
		}).Debug("Manifest response missing content digest header")

		return "", fmt.Errorf("%w: %s", ErrMissingDigestHeader, manifestURL)
	}

	logrus.WithFields(logrus.Fields{
		"url":    manifestURL,
		"digest": digest,
	}).Debug("Fetched remote digest")

	return digest, nil
}
