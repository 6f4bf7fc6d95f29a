package harvest

import (
	"context"
	"strings"

	"github.com/catalog-harvester/pkg/harvest/models"
)

// SearchRows is the page size requested from package_search.
const SearchRows = 1000

// SearchQuery joins the filter clauses of a source into a q parameter.
// The fq parameter is not used since it misbehaves with several filters.
func SearchQuery(filters []models.Filter) string {
	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		clauses = append(clauses, f.Clause())
	}
	return strings.Join(clauses, " AND ")
}

// ListIdentifiers returns the ordered, deduplicated identifiers to harvest
// for a source. Any failure is returned as a *ListingError.
func ListIdentifiers(ctx context.Context, catalog Catalog, source models.Source) ([]string, error) {
	var (
		names []string
		err   error
	)
	if len(source.Filters) > 0 {
		names, err = catalog.Search(ctx, SearchQuery(source.Filters), SearchRows)
	} else {
		names, err = catalog.List(ctx)
	}
	if err != nil {
		return nil, &ListingError{SourceID: source.ID, Err: err}
	}

	seen := make(map[string]bool, len(names))
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		ids = append(ids, name)
	}

	if source.MaxItems > 0 && len(ids) > source.MaxItems {
		ids = ids[:source.MaxItems]
	}
	return ids, nil
}
