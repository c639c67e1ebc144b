// Package manifest constructs the registry URLs under which image
// manifests are served.
package manifest

import (
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/lighthouse-dev/lighthouse/pkg/registry/helpers"
)

// BuildManifestURL constructs the URL of an image's manifest for a given
// tag, in the form "https://<host>/v2/<path>/manifests/<tag>".
func BuildManifestURL(image, tag string) (string, error) {
	host, err := helpers.GetRegistryAddress(image)
	if err != nil {
		return "", err
	}

	path, err := helpers.GetRepositoryPath(image)
	if err != nil {
		return "", err
	}

	manifestURL := url.URL{
		Scheme: "https",
		Host:   host,
		Path:   fmt.Sprintf("/v2/%s/manifests/%s", path, tag),
	}
	urlStr := manifestURL.String()

	logrus.WithFields(logrus.Fields{
		"image": image,
		"tag":   tag,
		"url":   urlStr,
	}).Debug("Built manifest URL")

	return urlStr, nil
}
