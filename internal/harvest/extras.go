package harvest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/catalog-harvester/internal/harvest/filters"
	"github.com/catalog-harvester/pkg/harvest/models"
)

// Provenance extras written by the harvester.
const (
	ExtraRemoteID    = "harvest:remote_id"
	ExtraDomain      = "harvest:domain"
	ExtraSourceID    = "harvest:source_id"
	ExtraLastUpdate  = "harvest:last_update"
	ExtraName        = "ckan:name"
	ExtraSource      = "ckan:source"
	ExtraSpatialText = "ckan:spatial-text"
	ExtraSpatialURI  = "ckan:spatial-uri"
	ExtraFrequency   = "ckan:frequency"
	ExtraRemoteURL   = "remote_url"
)

// conditionalExtras are only written when a value could not be resolved
// and are cleared before each mapping pass.
var conditionalExtras = []string{ExtraSource, ExtraSpatialText, ExtraSpatialURI, ExtraFrequency}

// ExtraKind is the outcome of dispatching one remote extra.
type ExtraKind int

const (
	ExtraIgnore ExtraKind = iota
	ExtraSetGeometry
	ExtraResolveZone
	ExtraSetProvenance
	ExtraResolveFrequency
	ExtraTemporalStart
	ExtraTemporalEnd
	ExtraSetGeneric
)

// ExtraAction tells the processor what to do with one remote extra.
type ExtraAction struct {
	Kind     ExtraKind
	Key      string
	Value    any
	Text     string
	Geometry *models.MultiPolygon
	Date     time.Time
}

// DispatchExtra classifies a remote extra. It does no lookups: zone and
// frequency resolution are left to the caller.
func DispatchExtra(key string, value any) (ExtraAction, error) {
	if isBlank(value) {
		return ExtraAction{Kind: ExtraIgnore, Key: key}, nil
	}

	switch key {
	case "spatial":
		geom, err := ParseGeometry(value)
		if err != nil {
			return ExtraAction{}, err
		}
		return ExtraAction{Kind: ExtraSetGeometry, Key: key, Geometry: geom}, nil
	case "spatial-text":
		return ExtraAction{Kind: ExtraResolveZone, Key: ExtraSpatialText, Text: text(value)}, nil
	case "spatial-uri":
		return ExtraAction{Kind: ExtraSetProvenance, Key: ExtraSpatialURI, Value: value, Text: text(value)}, nil
	case "frequency":
		return ExtraAction{Kind: ExtraResolveFrequency, Key: ExtraFrequency, Text: text(value)}, nil
	case "temporal_start":
		d, err := filters.DateRangeStart(text(value))
		if err != nil {
			return ExtraAction{}, fmt.Errorf("invalid temporal start: %w", err)
		}
		return ExtraAction{Kind: ExtraTemporalStart, Key: key, Date: d}, nil
	case "temporal_end":
		d, err := filters.DateRangeEnd(text(value))
		if err != nil {
			return ExtraAction{}, fmt.Errorf("invalid temporal end: %w", err)
		}
		return ExtraAction{Kind: ExtraTemporalEnd, Key: key, Date: d}, nil
	}
	return ExtraAction{Kind: ExtraSetGeneric, Key: key, Value: value}, nil
}

// ParseGeometry reads a GeoJSON Polygon or MultiPolygon, given either as
// a JSON string or an already decoded object, into a MultiPolygon.
func ParseGeometry(value any) (*models.MultiPolygon, error) {
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding spatial value: %w", err)
		}
		raw = b
	}

	var geom struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &geom); err != nil {
		return nil, fmt.Errorf("invalid spatial GeoJSON: %w", err)
	}

	switch geom.Type {
	case "Polygon":
		var polygon [][][]float64
		if err := json.Unmarshal(geom.Coordinates, &polygon); err != nil {
			return nil, fmt.Errorf("invalid Polygon coordinates: %w", err)
		}
		return &models.MultiPolygon{Type: "MultiPolygon", Coordinates: [][][][]float64{polygon}}, nil
	case "MultiPolygon":
		var polygons [][][][]float64
		if err := json.Unmarshal(geom.Coordinates, &polygons); err != nil {
			return nil, fmt.Errorf("invalid MultiPolygon coordinates: %w", err)
		}
		return &models.MultiPolygon{Type: "MultiPolygon", Coordinates: polygons}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, geom.Type)
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}

func text(value any) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(value)
}
