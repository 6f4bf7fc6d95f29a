// Package reference holds the read-only reference data the harvester
// resolves remote values against: licenses, update frequencies and
// geographic zones.
package reference

import (
	"context"
	"strings"
	"sync"

	"github.com/catalog-harvester/internal/harvest/filters"
	"github.com/catalog-harvester/pkg/harvest/models"
)

// DefaultLicenseID is the license used when nothing matches.
const DefaultLicenseID = "notspecified"

// Licenses is an in-memory license registry.
type Licenses struct {
	mu        sync.RWMutex
	licenses  []*models.License
	defaultID string
}

// NewLicenses returns a registry over the given licenses. defaultID names
// the global fallback license.
func NewLicenses(licenses []*models.License, defaultID string) *Licenses {
	return &Licenses{licenses: licenses, defaultID: defaultID}
}

// Replace swaps the registry content, e.g. after a reload from the database.
func (l *Licenses) Replace(licenses []*models.License) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.licenses = licenses
}

// All returns the registered licenses.
func (l *Licenses) All() []*models.License {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*models.License(nil), l.licenses...)
}

// Guess resolves a remote license from its identifier and title and
// returns def when neither matches.
func (l *Licenses) Guess(_ context.Context, id, title string, def *models.License) *models.License {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if license := GuessLicense(l.licenses, id, title); license != nil {
		return license
	}
	return def
}

// Default returns the global fallback license, or nil when it is not
// registered.
func (l *Licenses) Default(_ context.Context) *models.License {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, license := range l.licenses {
		if license.ID == l.defaultID {
			return license
		}
	}
	return nil
}

// GuessLicense returns the first license matching one of the candidate
// strings. Each candidate is tried, in order, against the exact id, the id
// ignoring case, the alternate ids, the title and the alternate titles.
func GuessLicense(licenses []*models.License, candidates ...string) *models.License {
	for _, text := range candidates {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		for _, match := range matchers {
			for _, license := range licenses {
				if match(license, text) {
					return license
				}
			}
		}
	}
	return nil
}

var matchers = []func(*models.License, string) bool{
	func(l *models.License, s string) bool { return l.ID == s },
	func(l *models.License, s string) bool { return strings.EqualFold(l.ID, s) },
	func(l *models.License, s string) bool { return containsFold(l.AlternateIDs, s) },
	func(l *models.License, s string) bool { return sameTitle(l.Title, s) },
	func(l *models.License, s string) bool {
		for _, alt := range l.AlternateTitles {
			if sameTitle(alt, s) {
				return true
			}
		}
		return false
	},
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// sameTitle compares titles ignoring case, accents and punctuation.
func sameTitle(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	sa := filters.Slugify(a)
	return sa != "" && sa == filters.Slugify(b)
}

// DefaultLicenses is the license set seeded into an empty registry.
func DefaultLicenses() []*models.License {
	return []*models.License{
		{
			ID:              "cc-by",
			Title:           "Creative Commons Attribution",
			URL:             "http://www.opendefinition.org/licenses/cc-by",
			AlternateIDs:    []string{"cc-by-4.0", "CC-BY-4.0"},
			AlternateTitles: []string{"Creative Commons Attribution 4.0", "CC BY 4.0"},
		},
		{
			ID:              "cc-by-sa",
			Title:           "Creative Commons Attribution Share-Alike",
			URL:             "http://www.opendefinition.org/licenses/cc-by-sa",
			AlternateIDs:    []string{"cc-by-sa-4.0"},
			AlternateTitles: []string{"CC BY-SA 4.0"},
		},
		{
			ID:              "cc-zero",
			Title:           "Creative Commons CCZero",
			URL:             "http://www.opendefinition.org/licenses/cc-zero",
			AlternateIDs:    []string{"cc0", "cc0-1.0"},
			AlternateTitles: []string{"CC0 1.0"},
		},
		{
			ID:    "odc-by",
			Title: "Open Data Commons Attribution License",
			URL:   "http://opendatacommons.org/licenses/by/summary/",
		},
		{
			ID:              "odc-odbl",
			Title:           "Open Data Commons Open Database License (ODbL)",
			URL:             "http://opendatacommons.org/licenses/odbl/summary/",
			AlternateIDs:    []string{"odbl", "ODbL-1.0"},
			AlternateTitles: []string{"ODbL"},
		},
		{
			ID:    "odc-pddl",
			Title: "Open Data Commons Public Domain Dedication and Licence (PDDL)",
			URL:   "http://opendatacommons.org/licenses/pddl/summary/",
		},
		{
			ID:              "fr-lo",
			Title:           "Licence Ouverte / Open Licence",
			URL:             "https://www.etalab.gouv.fr/licence-ouverte-open-licence",
			AlternateIDs:    []string{"etalab-2.0", "lov2"},
			AlternateTitles: []string{"Licence Ouverte", "Open Licence"},
		},
		{
			ID:    "other-at",
			Title: "Other (Attribution)",
		},
		{
			ID:    "other-open",
			Title: "Other (Open)",
		},
		{
			ID:    "other-pd",
			Title: "Other (Public Domain)",
		},
		{
			ID:    "other-nc",
			Title: "Other (Non-Commercial)",
		},
		{
			ID:    "other-closed",
			Title: "Other (Not Open)",
		},
		{
			ID:              DefaultLicenseID,
			Title:           "License Not Specified",
			AlternateIDs:    []string{"not-specified"},
			AlternateTitles: []string{"Not specified"},
		},
	}
}
