// internal/stats/stats.go
package stats

import (
	"context"

	"github.com/gridclash/arena/internal/models"
)

// Provider is the external read-only profile/stat lookup consumed by the
// core. Lookups are keyed by nickname; the core never writes through it.
type Provider interface {
	// Lookup returns the stored profile for a nickname. The second return
	// reports whether a profile was found; a lookup miss is not an error.
	Lookup(ctx context.Context, nickname string) (models.Profile, bool, error)
}

// Noop is a Provider that never finds anything. It keeps the server fully
// functional when no stats backend is configured.
type Noop struct{}

func (Noop) Lookup(context.Context, string) (models.Profile, bool, error) {
	return models.Profile{}, false, nil
}
