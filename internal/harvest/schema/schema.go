// Package schema validates and normalizes raw dataset records returned by
// CKAN-family catalogs.
package schema

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/catalog-harvester/internal/harvest/filters"
)

// NotSpecifiedLicense is used when a record carries no license.
const NotSpecifiedLicense = "not-specified"

// Schema validates one variant of the dataset record.
type Schema struct {
	name string
	root Validator
	// DKAN wraps the record in a single element list.
	wrapped bool
}

// Name returns the variant name.
func (s *Schema) Name() string {
	return s.name
}

// Validate checks raw against the schema and returns the normalized
// record as a generic map.
func (s *Schema) Validate(raw any) (map[string]any, error) {
	out, err := s.root(raw)
	if err != nil {
		return nil, &ValidationError{Errors: flatten(err, "")}
	}
	if s.wrapped {
		list := out.([]any)
		if len(list) == 0 {
			return nil, &ValidationError{Errors: []*Invalid{{Message: "empty result list"}}}
		}
		out = list[0]
	}
	return out.(map[string]any), nil
}

// Decode validates raw and decodes it into a typed record.
func (s *Schema) Decode(raw any) (*Dataset, error) {
	validated, err := s.Validate(raw)
	if err != nil {
		return nil, err
	}

	var record Dataset
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &record,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}
	if err := decoder.Decode(validated); err != nil {
		return nil, &ValidationError{Errors: []*Invalid{{Message: err.Error()}}}
	}
	return &record, nil
}

// ForBackend returns the schema for a catalog backend name.
func ForBackend(backend string) (*Schema, error) {
	switch backend {
	case "ckan":
		return CKAN(), nil
	case "dkan":
		return DKAN(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

func nilDefault() any  { return nil }
func listDefault() any { return []any{} }

var (
	normalizedString = Chain(String(), Transform(filters.NormalizeString))
	lowerString      = Chain(String(), Transform(filters.Lower))
	urlString        = Chain(String(), Parse(filters.URL))
	email            = Chain(EmptyNone(), Nullable(Chain(String(), Parse(filters.Email))))
	resourceType     = Chain(EmptyNone(), Default(string(ResourceFile)), String(), OneOf(resourceTypes...))
	extraValue       = Nullable(AnyOf(String(), Number(), StrictBool(), Map(), Slice()))
)

func hash() Validator {
	return Nullable(Chain(String(), func(v any) (any, error) {
		if checksum := filters.Hash(v.(string)); checksum != nil {
			return checksum, nil
		}
		return nil, nil
	}))
}

var tagFields = Fields{
	Optional("id", String()),
	Optional("vocabulary_id", Nullable(String())),
	Optional("display_name", String()),
	Required("name", Chain(String(), Transform(filters.NormalizeTag))),
	Optional("state", String()),
}

var extraFields = Fields{
	Required("key", String()),
	OptionalDefault("value", nilDefault, extraValue),
}

var resourceFields = Fields{
	Required("id", String()),
	Optional("position", Nullable(Int())),
	OptionalDefault("name", nilDefault, Chain(Default(""), String())),
	OptionalDefault("description", nilDefault, Chain(Default(""), normalizedString)),
	OptionalDefault("format", nilDefault, Chain(Default(""), lowerString)),
	Optional("mimetype", Nullable(lowerString)),
	Optional("size", Nullable(CoerceInt())),
	Optional("hash", hash()),
	Required("created", Date(filters.ToDate)),
	Optional("last_modified", Nullable(Date(filters.ToDate))),
	Required("url", urlString),
	OptionalDefault("resource_type", nilDefault, resourceType),
}

var organizationFields = Fields{
	Required("id", String()),
	Required("name", Chain(String(), Transform(filters.Slugify))),
	Optional("title", String()),
	Optional("description", String()),
	Optional("created", Nullable(Date(filters.ToDate))),
	Optional("revision_timestamp", Nullable(Date(filters.ToDate))),
	Optional("is_organization", Nullable(Bool())),
	Optional("state", String()),
	Optional("image_url", String()),
	Optional("revision_id", String()),
	Optional("type", Literal("organization")),
	Optional("approval_status", Literal("approved")),
}

// datasetFields are shared by every variant; resources and type are
// supplied per variant.
func datasetFields(resource Validator, datasetType string) Fields {
	return Fields{
		Required("id", String()),
		Required("name", String()),
		Required("title", String()),
		OptionalDefault("notes", nilDefault, Nullable(normalizedString)),
		OptionalDefault("license_id", nilDefault, Chain(Default(NotSpecifiedLicense), String())),
		OptionalDefault("license_title", nilDefault, Nullable(String())),
		Required("tags", List(Object(tagFields, true))),
		Required("metadata_created", Date(filters.ToDate)),
		Required("metadata_modified", Date(filters.ToDate)),
		Required("resources", List(resource)),
		OptionalDefault("extras", listDefault, List(Object(extraFields, true))),
		OptionalDefault("private", func() any { return false }, Chain(Default(false), Bool())),
		Optional("type", Literal(datasetType)),
		Optional("url", Nullable(String())),
		Optional("revision_id", Nullable(String())),
		Optional("author", Nullable(String())),
		Optional("author_email", email),
		Optional("maintainer", Nullable(String())),
		Optional("maintainer_email", email),
		Optional("state", Nullable(String())),
	}
}

// CKAN returns the schema of a CKAN package_show result.
func CKAN() *Schema {
	fields := datasetFields(Object(resourceFields, true), "dataset").With(
		Optional("organization", Nullable(Object(organizationFields, true))),
	)
	return &Schema{name: "ckan", root: Object(fields, true)}
}
