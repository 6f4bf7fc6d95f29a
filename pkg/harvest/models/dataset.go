package models

import (
	"time"

	"github.com/google/uuid"
)

// Dataset is the local representation of a harvested remote dataset.
// A dataset belongs to exactly one (source, remote id) pair.
type Dataset struct {
	ID               uuid.UUID        `json:"id"`
	SourceID         string           `json:"source_id"`
	RemoteID         string           `json:"remote_id"`
	Slug             string           `json:"slug"`
	Title            string           `json:"title"`
	Description      *string          `json:"description"`
	License          *License         `json:"license,omitempty"`
	Tags             []string         `json:"tags"`
	CreatedAt        time.Time        `json:"created_at"`
	LastModified     time.Time        `json:"last_modified"`
	Extras           map[string]any   `json:"extras"`
	Spatial          *SpatialCoverage `json:"spatial,omitempty"`
	TemporalCoverage *DateRange       `json:"temporal_coverage,omitempty"`
	Frequency        Frequency        `json:"frequency,omitempty"`
	Resources        []*Resource      `json:"resources"`
}

// NewDataset returns an empty dataset bound to a source and remote id.
func NewDataset(sourceID, remoteID string) *Dataset {
	return &Dataset{
		ID:       uuid.New(),
		SourceID: sourceID,
		RemoteID: remoteID,
		Extras:   make(map[string]any),
	}
}

// ResourceByID returns the resource with the given id, or nil.
func (d *Dataset) ResourceByID(id uuid.UUID) *Resource {
	for _, r := range d.Resources {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Resource is a downloadable distribution of a dataset.
type Resource struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	FileType    string     `json:"filetype"`
	Format      string     `json:"format"`
	Mime        *string    `json:"mime,omitempty"`
	Checksum    *Checksum  `json:"checksum,omitempty"`
	Created     time.Time  `json:"created"`
	Modified    *time.Time `json:"modified,omitempty"`
	Published   *time.Time `json:"published,omitempty"`
}

// Checksum is a typed content hash.
type Checksum struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// SpatialCoverage links a dataset to a geometry and/or reference zones.
type SpatialCoverage struct {
	Geom  *MultiPolygon `json:"geom,omitempty"`
	Zones []GeoZone     `json:"zones,omitempty"`
}

// MultiPolygon is a GeoJSON MultiPolygon geometry.
type MultiPolygon struct {
	Type        string          `json:"type"`
	Coordinates [][][][]float64 `json:"coordinates"`
}

// DateRange is an inclusive date interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// License is a reference license a dataset can be published under.
type License struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	URL             string   `json:"url,omitempty"`
	AlternateIDs    []string `json:"alternate_ids,omitempty"`
	AlternateTitles []string `json:"alternate_titles,omitempty"`
}

// GeoZone is a reference geographic zone with an optional validity window.
type GeoZone struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Name          string     `json:"name"`
	Level         string     `json:"level"`
	ValidityStart *time.Time `json:"validity_start,omitempty"`
	ValidityEnd   *time.Time `json:"validity_end,omitempty"`
}

// ValidAt reports whether the zone is valid at t.
func (z GeoZone) ValidAt(t time.Time) bool {
	if z.ValidityStart != nil && t.Before(*z.ValidityStart) {
		return false
	}
	if z.ValidityEnd != nil && !t.Before(*z.ValidityEnd) {
		return false
	}
	return true
}
