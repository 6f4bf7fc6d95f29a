package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/catalog-harvester/internal/common/logger"
	"github.com/catalog-harvester/internal/harvest/filters"
	"github.com/catalog-harvester/internal/harvest/schema"
	"github.com/catalog-harvester/pkg/harvest/models"
)

// RemoteFileType marks resources that live on the remote catalog.
const RemoteFileType = "remote"

// Processor fetches, validates and maps single remote datasets.
type Processor struct {
	source      models.Source
	catalog     Catalog
	schema      *schema.Schema
	datasets    DatasetStore
	licenses    LicenseRegistry
	zones       GeoZoneRegistry
	frequencies FrequencyVocabulary
	logger      logger.Logger
	now         func() time.Time
}

// ProcessorDeps groups the collaborators of a Processor.
type ProcessorDeps struct {
	Catalog     Catalog
	Datasets    DatasetStore
	Licenses    LicenseRegistry
	Zones       GeoZoneRegistry
	Frequencies FrequencyVocabulary
	Logger      logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewProcessor returns a processor for one source.
func NewProcessor(source models.Source, deps ProcessorDeps) (*Processor, error) {
	s, err := schema.ForBackend(string(source.Backend))
	if err != nil {
		return nil, err
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		source:      source,
		catalog:     deps.Catalog,
		schema:      s,
		datasets:    deps.Datasets,
		licenses:    deps.Licenses,
		zones:       deps.Zones,
		frequencies: deps.Frequencies,
		logger:      deps.Logger.With("source", source.ID),
		now:         now,
	}, nil
}

// Fetch retrieves and validates one remote record. The returned remote id
// is the canonical record id when it can be read, even on failure, and the
// requested name otherwise. Records without resources yield a *SkipError.
func (p *Processor) Fetch(ctx context.Context, name string) (*schema.Dataset, string, error) {
	raw, err := p.catalog.Show(ctx, name)
	if err != nil {
		return nil, name, fmt.Errorf("fetching %s: %w", name, err)
	}

	record, err := p.schema.Decode(raw)
	if err != nil {
		return nil, salvageID(raw, name), err
	}

	if len(record.Resources) == 0 {
		return record, record.ID, &SkipError{RemoteID: record.ID, Reason: "dataset has no resources"}
	}
	return record, record.ID, nil
}

// salvageID reads the id of a record that failed validation.
func salvageID(raw any, fallback string) string {
	if list, ok := raw.([]any); ok && len(list) > 0 {
		raw = list[0]
	}
	if m, ok := raw.(map[string]any); ok {
		if id, ok := m["id"].(string); ok && id != "" {
			return id
		}
	}
	return fallback
}

// Apply maps a validated record onto its local dataset and returns it
// unsaved.
func (p *Processor) Apply(ctx context.Context, record *schema.Dataset) (*models.Dataset, error) {
	log := p.logger.With("remote_id", record.ID)

	dataset, err := p.datasets.FindOrCreate(ctx, p.source.ID, record.ID)
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", record.ID, err)
	}
	if dataset.Extras == nil {
		dataset.Extras = make(map[string]any)
	}

	if dataset.Slug == "" {
		dataset.Slug = filters.Slugify(record.Name)
	}
	dataset.Title = record.Title
	dataset.Description = record.Notes

	def := dataset.License
	if def == nil {
		def = p.licenses.Default(ctx)
	}
	dataset.License = p.licenses.Guess(ctx, record.LicenseID, deref(record.LicenseTitle), def)

	dataset.Tags = uniqueTags(record.Tags)
	dataset.CreatedAt = record.MetadataCreated
	dataset.LastModified = record.MetadataModified

	now := p.now().UTC()
	for _, key := range conditionalExtras {
		delete(dataset.Extras, key)
	}
	reserved := map[string]bool{
		ExtraRemoteID:   true,
		ExtraDomain:     true,
		ExtraSourceID:   true,
		ExtraLastUpdate: true,
		ExtraName:       true,
		ExtraSource:     true,
		ExtraRemoteURL:  true,
	}
	dataset.Extras[ExtraRemoteID] = record.ID
	dataset.Extras[ExtraDomain] = p.source.Domain()
	dataset.Extras[ExtraSourceID] = p.source.ID
	dataset.Extras[ExtraLastUpdate] = now.Format(time.RFC3339)
	dataset.Extras[ExtraName] = record.Name

	if err := p.applyExtras(ctx, log, dataset, record.Extras, reserved, now); err != nil {
		return nil, err
	}

	p.applyRemoteURL(dataset, record)
	p.applyResources(log, dataset, record.Resources)

	return dataset, nil
}

func (p *Processor) applyExtras(ctx context.Context, log logger.Logger, dataset *models.Dataset, extras []schema.Extra, reserved map[string]bool, now time.Time) error {
	var (
		geom       *models.MultiPolygon
		zone       *models.GeoZone
		start, end *time.Time
		generic    = make(map[string]any)
		provenance = make(map[string]any)
	)

	for _, extra := range extras {
		action, err := DispatchExtra(extra.Key, extra.Value)
		if err != nil {
			return fmt.Errorf("extra %s: %w", extra.Key, err)
		}

		switch action.Kind {
		case ExtraIgnore:
		case ExtraSetGeometry:
			geom = action.Geometry
		case ExtraResolveZone:
			zones, err := p.zones.Find(ctx, action.Text, now)
			if err != nil {
				return fmt.Errorf("looking up zone %q: %w", action.Text, err)
			}
			if len(zones) == 1 {
				zone = &zones[0]
				delete(provenance, action.Key)
			} else {
				provenance[action.Key] = action.Text
				log.Debug("spatial-text value not handled", "value", action.Text, "matches", len(zones))
			}
		case ExtraSetProvenance:
			provenance[action.Key] = action.Value
			log.Debug("spatial-uri value not handled", "value", action.Text)
		case ExtraResolveFrequency:
			if f, ok := p.frequencies.FromURI(action.Text); ok {
				dataset.Frequency = f
			} else if f, ok := p.frequencies.Lookup(action.Text); ok {
				dataset.Frequency = f
			} else {
				provenance[action.Key] = action.Text
				log.Debug("frequency value not handled", "value", action.Text)
			}
		case ExtraTemporalStart:
			d := action.Date
			start = &d
		case ExtraTemporalEnd:
			d := action.Date
			end = &d
		case ExtraSetGeneric:
			generic[action.Key] = action.Value
		}
	}

	for key, value := range provenance {
		dataset.Extras[key] = value
		reserved[key] = true
	}
	for key, value := range generic {
		if reserved[key] {
			log.Warn("Ignoring extra overriding a harvester key", "key", key)
			continue
		}
		dataset.Extras[key] = value
	}

	if geom != nil || zone != nil {
		dataset.Spatial = &models.SpatialCoverage{Geom: geom}
		if zone != nil {
			dataset.Spatial.Zones = []models.GeoZone{*zone}
		}
	}

	if start != nil && end != nil {
		dataset.TemporalCoverage = &models.DateRange{Start: *start, End: *end}
	}
	return nil
}

// applyRemoteURL stores the canonical remote URL when the record declares
// one. A url that is not a valid URI is kept as a source label next to the
// catalog dataset page.
func (p *Processor) applyRemoteURL(dataset *models.Dataset, record *schema.Dataset) {
	raw := deref(record.URL)
	if raw == "" {
		return
	}
	if u, err := filters.URL(raw); err == nil {
		dataset.Extras[ExtraRemoteURL] = u
		return
	}
	dataset.Extras[ExtraRemoteURL] = p.catalog.DatasetURL(record.Name)
	dataset.Extras[ExtraSource] = raw
}

func (p *Processor) applyResources(log logger.Logger, dataset *models.Dataset, resources []schema.Resource) {
	for _, res := range resources {
		if !res.ResourceType.Harvestable() {
			continue
		}
		id, err := uuid.Parse(res.ID)
		if err != nil {
			log.Error("Unable to parse resource ID", "resource_id", res.ID, "error", err)
			continue
		}

		resource := dataset.ResourceByID(id)
		if resource == nil {
			resource = &models.Resource{ID: id}
			dataset.Resources = append(dataset.Resources, resource)
		}

		resource.Title = res.Name
		resource.Description = res.Description
		resource.URL = res.URL
		resource.FileType = RemoteFileType
		resource.Format = res.Format
		resource.Mime = res.MimeType
		resource.Checksum = res.Hash
		resource.Created = res.Created
		resource.Modified = res.LastModified
		if resource.Published == nil {
			published := res.Created
			resource.Published = &published
		}
	}
}

// uniqueTags keeps the first occurrence of every non blank tag.
func uniqueTags(tags []schema.Tag) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Name == "" || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		out = append(out, t.Name)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
