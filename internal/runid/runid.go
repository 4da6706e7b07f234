// Package runid mints the per-invocation identifier used in log file
// names and notification subjects.
package runid

import "github.com/google/uuid"

// New returns a fresh run identifier.
func New() string {
	return uuid.New().String()
}
