// Package actions implements the scan that compares locally running images
// against the digests their registries currently serve.
package actions

import (
	"context"
	"strings"

	"github.com/distribution/reference"
	"github.com/sirupsen/logrus"

	"github.com/lighthouse-dev/lighthouse/pkg/container"
	"github.com/lighthouse-dev/lighthouse/pkg/registry/helpers"
	"github.com/lighthouse-dev/lighthouse/pkg/types"
)

// defaultTag is assumed when a container's image carries no explicit tag.
const defaultTag = "latest"

// DigestFetcher looks up the digest a registry currently serves for an
// image and tag. It is satisfied by *registry.Client.
type DigestFetcher interface {
	GetDigest(ctx context.Context, image, tag string) (string, error)
}

// CheckImages looks up the remote digest for each container's image and
// reports the ones whose local digests no longer match. Lookups are
// independent; a failed lookup counts as failed and does not abort the
// scan.
func CheckImages(
	ctx context.Context,
	containers []container.Container,
	fetcher DigestFetcher,
) types.Report {
	report := types.Report{}

	for _, cont := range containers {
		fields := logrus.Fields{
			"container": cont.Name,
			"image":     cont.ImageName,
		}

		image, tag, err := splitImageTag(cont.ImageName)
		if err != nil {
			logrus.WithError(err).WithFields(fields).Warn("Failed to parse image name")
			report.Failed++

			continue
		}

		report.Scanned++

		remoteDigest, err := fetcher.GetDigest(ctx, image, tag)
		if err != nil {
			logrus.WithError(err).WithFields(fields).Warn("Failed to fetch remote digest")
			report.Failed++

			continue
		}

		if localDigest, match := matchDigest(cont.RepoDigests, remoteDigest); !match {
			logrus.WithFields(fields).WithFields(logrus.Fields{
				"local_digest":  localDigest,
				"remote_digest": remoteDigest,
			}).Info("Image is stale")

			report.Stale = append(report.Stale, types.ImageUpdate{
				Container:    cont.Name,
				Image:        image + ":" + tag,
				LocalDigest:  localDigest,
				RemoteDigest: remoteDigest,
			})
		} else {
			logrus.WithFields(fields).Debug("Image is up to date")
		}
	}

	logrus.WithFields(logrus.Fields{
		"scanned": report.Scanned,
		"stale":   len(report.Stale),
		"failed":  report.Failed,
	}).Info("Completed image scan")

	return report
}

// splitImageTag separates an image name from its tag, defaulting to
// "latest" when no tag is present. Digest-pinned references keep their
// name and get the default tag; the scan then reports against the tag's
// current digest.
func splitImageTag(imageName string) (string, string, error) {
	ref, err := reference.ParseNormalizedNamed(imageName)
	if err != nil {
		return "", "", err
	}

	tag := defaultTag
	if tagged, ok := ref.(reference.NamedTagged); ok {
		tag = tagged.Tag()
	}

	return ref.Name(), tag, nil
}

// matchDigest reports whether any of the local repo@digest entries matches
// the remote digest, comparing with the algorithm prefix stripped from
// both sides. It also returns the first local digest for reporting.
func matchDigest(repoDigests []string, remoteDigest string) (string, bool) {
	normalizedRemote := helpers.NormalizeDigest(remoteDigest)
	firstLocal := ""

	for _, repoDigest := range repoDigests {
		_, localDigest, found := strings.Cut(repoDigest, "@")
		if !found {
			continue
		}

		normalizedLocal := helpers.NormalizeDigest(localDigest)
		if firstLocal == "" {
			firstLocal = normalizedLocal
		}

		if normalizedLocal == normalizedRemote {
			return normalizedLocal, true
		}
	}

	return firstLocal, false
}
