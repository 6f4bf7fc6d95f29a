package models

import (
	"fmt"
	"net/url"
)

// Backend names a catalog flavour.
type Backend string

const (
	BackendCKAN Backend = "ckan"
	BackendDKAN Backend = "dkan"
)

// FilterType tells whether a filter keeps or removes matching datasets.
type FilterType string

const (
	FilterInclude FilterType = "include"
	FilterExclude FilterType = "exclude"
)

// FilterKeys are the dataset attributes a listing can be filtered on.
var FilterKeys = []string{"organization", "tags"}

// Filter restricts the listing of a source.
type Filter struct {
	Key   string     `yaml:"key" json:"key"`
	Value string     `yaml:"value" json:"value"`
	Type  FilterType `yaml:"type" json:"type"`
}

// Source is a remote catalog harvested into the local store.
type Source struct {
	ID       string   `yaml:"id" json:"id"`
	URL      string   `yaml:"url" json:"url"`
	Backend  Backend  `yaml:"backend" json:"backend"`
	APIKey   string   `yaml:"api_key" json:"-"`
	Filters  []Filter `yaml:"filters" json:"filters,omitempty"`
	MaxItems int      `yaml:"max_items" json:"max_items,omitempty"`
}

// Domain returns the host of the source URL.
func (s Source) Domain() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Validate checks the source definition.
func (s Source) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("source id is required")
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("source %s: invalid url %q", s.ID, s.URL)
	}
	switch s.Backend {
	case BackendCKAN, BackendDKAN:
	default:
		return fmt.Errorf("source %s: unknown backend %q", s.ID, s.Backend)
	}
	if s.MaxItems < 0 {
		return fmt.Errorf("source %s: max_items must not be negative", s.ID)
	}
	for _, f := range s.Filters {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("source %s: %w", s.ID, err)
		}
	}
	return nil
}

// Validate checks the filter key and type.
func (f Filter) Validate() error {
	known := false
	for _, k := range FilterKeys {
		if f.Key == k {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown filter key %q", f.Key)
	}
	if f.Value == "" {
		return fmt.Errorf("filter %s has no value", f.Key)
	}
	switch f.Type {
	case FilterInclude, FilterExclude:
		return nil
	}
	return fmt.Errorf("filter %s: unknown type %q", f.Key, f.Type)
}

// Clause renders the filter as a search query clause.
func (f Filter) Clause() string {
	clause := f.Key + ":" + f.Value
	if f.Type == FilterExclude {
		clause = "-" + clause
	}
	return clause
}
