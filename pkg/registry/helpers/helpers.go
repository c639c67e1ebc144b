// Package helpers provides utility functions for resolving image references
// into the registry host, repository path, and pull scope used by the
// registry client, plus digest normalization for comparisons.
package helpers

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// Domains for Docker Hub, the default registry.
const (
	DefaultRegistryDomain = "docker.io"
	DefaultRegistryHost   = "index.docker.io"
)

// GetRegistryAddress extracts the registry address from an image reference.
// The address is the domain part of the normalized reference, port included
// and any path component dropped. Docker Hub's vanity domain is mapped to
// its canonical host.
func GetRegistryAddress(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference: %w", err)
	}

	address := reference.Domain(normalizedRef)
	if address == DefaultRegistryDomain {
		address = DefaultRegistryHost
	}

	return address, nil
}

// GetRepositoryPath returns the repository path of an image reference with
// the registry host stripped. Shorthand Docker Hub names expand to their
// "library/" form (e.g. "nginx" becomes "library/nginx").
func GetRepositoryPath(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference: %w", err)
	}

	return reference.Path(normalizedRef), nil
}

// GetPullScope returns the token scope granting pull access to the image's
// repository, in the form "repository:<path>:pull".
func GetPullScope(imageRef string) (string, error) {
	path, err := GetRepositoryPath(imageRef)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("repository:%s:pull", path), nil
}

// NormalizeDigest standardizes a digest string for comparison by trimming
// the algorithm prefix. Digests returned by the registry client itself are
// left verbatim; normalization only happens at comparison time.
func NormalizeDigest(digest string) string {
	return strings.TrimPrefix(digest, "sha256:")
}
