package types

// ImageUpdate describes a single image whose remote digest no longer
// matches any of the digests known locally.
type ImageUpdate struct {
	// Container is the name of the local container running the image.
	Container string
	// Image is the image name, including the tag (e.g. "nginx:1.25").
	Image string
	// LocalDigest is the digest the local image was pulled as, without the
	// algorithm prefix. Empty if the local image carries no repo digest.
	LocalDigest string
	// RemoteDigest is the digest currently served by the registry for the
	// image's tag, taken verbatim from the registry response.
	RemoteDigest string
}

// Report summarizes the outcome of a single scan over all local containers.
type Report struct {
	// Scanned is the number of containers whose images were checked.
	Scanned int
	// Failed is the number of containers whose digest lookup failed.
	Failed int
	// Stale holds one entry per image that has drifted from its registry.
	Stale []ImageUpdate
}
