package schema

import (
	"github.com/catalog-harvester/internal/harvest/filters"
)

var dkanResourceFields = resourceFields.Without("position").With(
	Optional("size", Nullable(Parse(filters.ParseSize))),
	Optional("last_modified", Nullable(Date(filters.DKANToDate))),
)

var dkanGroupFields = Fields{
	Required("id", String()),
	Required("name", Chain(String(), Transform(filters.Slugify))),
	Optional("title", String()),
	Optional("description", String()),
	Optional("image_display_url", String()),
}

// DKAN returns the schema of a DKAN package_show result, which wraps the
// dataset in a one element list.
func DKAN() *Schema {
	fields := datasetFields(Object(dkanResourceFields, true), "Dataset").With(
		OptionalDefault("tags", listDefault, List(Object(tagFields, true))),
		Optional("groups", List(Nullable(Object(dkanGroupFields, true)))),
	)
	return &Schema{name: "dkan", root: List(Object(fields, true)), wrapped: true}
}
