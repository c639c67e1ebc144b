// Package types defines the shared data structures and interfaces used
// across Lighthouse's registry client, scan loop, and notification system.
package types
