package types

// Notifier is the outbound sink for scan results. Implementations format
// and deliver the list of stale images to their configured destinations.
type Notifier interface {
	// Notify delivers the given updates. It is only called when at least
	// one image is stale.
	Notify(updates []ImageUpdate) error
	// GetNames returns the names of the configured notification services,
	// for startup logging.
	GetNames() []string
}
