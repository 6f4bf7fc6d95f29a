package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/catalog-harvester/pkg/harvest/models"
)

func TestParseFilters(t *testing.T) {
	filters, err := ParseFilters("organization=include:org-1, tags=exclude:tag-2")
	if err != nil {
		t.Fatalf("ParseFilters() error = %v", err)
	}

	want := []models.Filter{
		{Key: "organization", Value: "org-1", Type: models.FilterInclude},
		{Key: "tags", Value: "tag-2", Type: models.FilterExclude},
	}
	if len(filters) != len(want) {
		t.Fatalf("Expected %d filters, got %d", len(want), len(filters))
	}
	for i := range want {
		if filters[i] != want[i] {
			t.Errorf("filter %d = %+v, want %+v", i, filters[i], want[i])
		}
	}
}

func TestParseFiltersErrors(t *testing.T) {
	tests := []string{
		"organization",
		"organization=org-1",
		"license=include:cc-by",
		"tags=maybe:tag-2",
		"tags=include:",
	}

	for _, raw := range tests {
		if _, err := ParseFilters(raw); err == nil {
			t.Errorf("ParseFilters(%q) expected error", raw)
		}
	}

	if filters, err := ParseFilters(""); err != nil || len(filters) != 0 {
		t.Errorf("ParseFilters(\"\") = %v, %v", filters, err)
	}
}

func TestParseSources(t *testing.T) {
	data := []byte(`
sources:
  - id: demo
    url: https://demo.ckan.org
    max_items: 50
    filters:
      - key: organization
        value: org-1
        type: include
  - id: dkan
    url: https://data.example.gov
    backend: dkan
    api_key: secret
`)

	sources, err := ParseSources(data)
	if err != nil {
		t.Fatalf("ParseSources() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(sources))
	}
	if sources[0].Backend != models.BackendCKAN {
		t.Errorf("Expected default ckan backend, got %q", sources[0].Backend)
	}
	if sources[0].MaxItems != 50 || len(sources[0].Filters) != 1 {
		t.Errorf("Unexpected first source: %+v", sources[0])
	}
	if sources[1].Backend != models.BackendDKAN || sources[1].APIKey != "secret" {
		t.Errorf("Unexpected second source: %+v", sources[1])
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HARVEST_SOURCE_URL", "https://demo.ckan.org/")
	t.Setenv("HARVEST_SOURCE_ID", "demo")
	t.Setenv("HARVEST_FILTERS", "tags=exclude:tag-2")
	t.Setenv("HARVEST_MAX_ITEMS", "25")
	t.Setenv("HARVEST_CONCURRENCY", "8")
	t.Setenv("HARVEST_TIMEOUT", "5s")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("HARVEST_DRY_RUN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Sources) != 1 {
		t.Fatalf("Expected 1 source, got %d", len(cfg.Sources))
	}
	s := cfg.Sources[0]
	if s.ID != "demo" || s.URL != "https://demo.ckan.org" || s.MaxItems != 25 || len(s.Filters) != 1 {
		t.Errorf("Unexpected source: %+v", s)
	}
	if cfg.Harvest.Concurrency != 8 || cfg.Harvest.Timeout != 5*time.Second {
		t.Errorf("Unexpected harvest config: %+v", cfg.Harvest)
	}
	if !cfg.Harvest.DryRun {
		t.Error("Expected dry run")
	}
	if cfg.Harvest.KeepJobs != 10 {
		t.Errorf("Expected default keep jobs 10, got %d", cfg.Harvest.KeepJobs)
	}
	want := "host=localhost port=5432 user=postgres password= dbname=harvester sslmode=require"
	if got := cfg.Database.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	content := "sources:\n  - id: a\n    url: https://a.example.org\n  - id: b\n    url: https://b.example.org\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HARVEST_SOURCES_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ids := cfg.SourceIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("SourceIDs() = %v", ids)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Harvest: HarvestConfig{Concurrency: 1, KeepJobs: 1, RateLimit: 1},
			Sources: []models.Source{{ID: "a", URL: "https://a.example.org", Backend: models.BackendCKAN}},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no sources", mutate: func(c *Config) { c.Sources = nil }},
		{name: "duplicate id", mutate: func(c *Config) { c.Sources = append(c.Sources, c.Sources[0]) }},
		{name: "bad backend", mutate: func(c *Config) { c.Sources[0].Backend = "socrata" }},
		{name: "relative url", mutate: func(c *Config) { c.Sources[0].URL = "/api" }},
		{name: "zero concurrency", mutate: func(c *Config) { c.Harvest.Concurrency = 0 }},
		{name: "zero keep", mutate: func(c *Config) { c.Harvest.KeepJobs = 0 }},
		{name: "zero rate", mutate: func(c *Config) { c.Harvest.RateLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
