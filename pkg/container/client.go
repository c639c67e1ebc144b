// Package container provides the local image source for Lighthouse: it
// lists running containers through the Docker API together with the image
// metadata needed for digest comparison.
package container

import (
	"context"
	"errors"
	"fmt"

	dockerContainer "github.com/docker/docker/api/types/container"
	dockerClient "github.com/docker/docker/client"
	"github.com/sirupsen/logrus"
)

// errListContainers indicates a failure to list containers from the
// Docker daemon.
var errListContainers = errors.New("failed to list containers")

// Container is the locally-known state of a running container's image.
type Container struct {
	// Name is the container name without the leading slash.
	Name string
	// ImageName is the image the container was created from, as given to
	// the daemon (e.g. "nginx:1.25" or "ghcr.io/user/app:latest").
	ImageName string
	// RepoDigests are the repo@digest entries of the local image, used to
	// decide whether the remote digest has drifted.
	RepoDigests []string
}

// Client lists running containers from the Docker daemon.
type Client struct {
	api dockerClient.APIClient
}

// NewClient creates a Docker client from the environment (DOCKER_HOST and
// friends) with API version negotiation enabled.
func NewClient() (*Client, error) {
	cli, err := dockerClient.NewClientWithOpts(
		dockerClient.FromEnv,
		dockerClient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &Client{api: cli}, nil
}

// NewClientWithAPI wraps an existing Docker API client, primarily for
// tests.
func NewClientWithAPI(api dockerClient.APIClient) *Client {
	return &Client{api: api}
}

// ListContainers returns the running containers together with the repo
// digests of their images. Containers whose image cannot be inspected are
// returned without digests rather than dropped, so the scan can still
// report them as failed lookups.
func (c *Client) ListContainers(ctx context.Context) ([]Container, error) {
	list, err := c.api.ContainerList(ctx, dockerContainer.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListContainers, err)
	}

	containers := make([]Container, 0, len(list))

	for _, summary := range list {
		name := ""
		if len(summary.Names) > 0 {
			name = summary.Names[0]
			if name[0] == '/' {
				name = name[1:]
			}
		}

		container := Container{
			Name:      name,
			ImageName: summary.Image,
		}

		imageInfo, err := c.api.ImageInspect(ctx, summary.ImageID)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"container": name,
				"image":     summary.Image,
			}).Warn("Failed to inspect image, continuing without repo digests")
		} else {
			container.RepoDigests = imageInfo.RepoDigests
		}

		containers = append(containers, container)
	}

	logrus.WithField("count", len(containers)).Debug("Listed running containers")

	return containers, nil
}
