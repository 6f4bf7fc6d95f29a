package reference

import (
	"context"
	"sync"
	"time"

	"github.com/catalog-harvester/pkg/harvest/models"
)

// GeoZones is an in-memory geozone registry.
type GeoZones struct {
	mu    sync.RWMutex
	zones []models.GeoZone
}

// NewGeoZones returns a registry over the given zones.
func NewGeoZones(zones ...models.GeoZone) *GeoZones {
	return &GeoZones{zones: zones}
}

// Add registers more zones.
func (g *GeoZones) Add(zones ...models.GeoZone) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.zones = append(g.zones, zones...)
}

// Find returns every zone named or slugged exactly q and valid at validAt.
func (g *GeoZones) Find(_ context.Context, q string, validAt time.Time) ([]models.GeoZone, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return MatchZones(g.zones, q, validAt), nil
}

// MatchZones filters zones by exact name or slug and validity.
func MatchZones(zones []models.GeoZone, q string, validAt time.Time) []models.GeoZone {
	var out []models.GeoZone
	for _, z := range zones {
		if (z.Name == q || z.Slug == q) && z.ValidAt(validAt) {
			out = append(out, z)
		}
	}
	return out
}
