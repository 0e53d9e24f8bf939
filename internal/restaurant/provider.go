// internal/restaurant/provider.go
package restaurant

import (
	"context"

	"github.com/jason-s-yu/menupick/internal/models"
)

// Provider discovers restaurants around a point and enriches them one by one.
// Implementations must be safe for concurrent Detail calls.
type Provider interface {
	// Discover returns coarse records keyed by restaurant id.
	Discover(ctx context.Context, lat, lng float64, radius int) (map[string]models.Restaurant, error)
	// Detail returns enrichment for a single restaurant; its ID matches the argument.
	Detail(ctx context.Context, id, address, name string, lat, lng float64) (models.Restaurant, error)
}
