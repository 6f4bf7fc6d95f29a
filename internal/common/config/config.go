package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/catalog-harvester/pkg/harvest/models"
)

type Config struct {
	Database DatabaseConfig
	Harvest  HarvestConfig
	Sources  []models.Source
	Logging  LoggingConfig
	Discord  DiscordConfig
	Metrics  MetricsConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// HarvestConfig for the run coordinator and catalog client
type HarvestConfig struct {
	Concurrency int
	Timeout     time.Duration
	RateLimit   float64       // Requests per second per source
	KeepJobs    int           // Jobs kept per source when pruning
	Interval    time.Duration // Zero runs a single pass and exits
	SourcesFile string
	DryRun      bool // Keep datasets and jobs in memory instead of PostgreSQL
}

type LoggingConfig struct {
	Level    string
	FilePath string
}

type DiscordConfig struct {
	WebhookURL string
}

type MetricsConfig struct {
	Addr string // Empty disables the metrics server
}

// sourcesFile is the layout of HARVEST_SOURCES_FILE.
type sourcesFile struct {
	Sources []models.Source `yaml:"sources"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "harvester"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Harvest: HarvestConfig{
			Concurrency: getIntEnv("HARVEST_CONCURRENCY", 4),
			Timeout:     getDurationEnv("HARVEST_TIMEOUT", 30*time.Second),
			RateLimit:   getFloatEnv("HARVEST_RATE_LIMIT", 5),
			KeepJobs:    getIntEnv("HARVEST_KEEP_JOBS", 10),
			Interval:    getDurationEnv("HARVEST_INTERVAL", 0),
			SourcesFile: getEnv("HARVEST_SOURCES_FILE", ""),
			DryRun:      getBoolEnv("HARVEST_DRY_RUN", false),
		},
		Logging: LoggingConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: getEnv("LOG_FILE", "harvester.log"),
		},
		Discord: DiscordConfig{
			WebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
	}

	sources, err := loadSources(cfg.Harvest.SourcesFile)
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the harvester cannot run without.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no sources configured: set HARVEST_SOURCES_FILE or HARVEST_SOURCE_URL")
	}
	seen := make(map[string]bool)
	for _, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
	}
	if c.Harvest.Concurrency < 1 {
		return fmt.Errorf("HARVEST_CONCURRENCY must be at least 1")
	}
	if c.Harvest.KeepJobs < 1 {
		return fmt.Errorf("HARVEST_KEEP_JOBS must be at least 1")
	}
	if c.Harvest.RateLimit <= 0 {
		return fmt.Errorf("HARVEST_RATE_LIMIT must be positive")
	}
	return nil
}

// SourceIDs returns the ids of all configured sources.
func (c *Config) SourceIDs() []string {
	ids := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		ids[i] = s.ID
	}
	return ids
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func loadSources(path string) ([]models.Source, error) {
	if path == "" {
		return singleSource()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes a YAML sources document.
func ParseSources(data []byte) ([]models.Source, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing sources file: %w", err)
	}
	for i := range file.Sources {
		if file.Sources[i].Backend == "" {
			file.Sources[i].Backend = models.BackendCKAN
		}
	}
	return file.Sources, nil
}

// singleSource builds a source from HARVEST_SOURCE_* variables.
func singleSource() ([]models.Source, error) {
	url := getEnv("HARVEST_SOURCE_URL", "")
	if url == "" {
		return nil, nil
	}

	filters, err := ParseFilters(getEnv("HARVEST_FILTERS", ""))
	if err != nil {
		return nil, err
	}

	source := models.Source{
		ID:       getEnv("HARVEST_SOURCE_ID", "default"),
		URL:      strings.TrimRight(url, "/"),
		Backend:  models.Backend(getEnv("HARVEST_BACKEND", string(models.BackendCKAN))),
		APIKey:   getEnv("HARVEST_API_KEY", ""),
		Filters:  filters,
		MaxItems: getIntEnv("HARVEST_MAX_ITEMS", 0),
	}
	return []models.Source{source}, nil
}

// ParseFilters parses "key=type:value" pairs separated by commas, e.g.
// "organization=include:org-1,tags=exclude:tag-2".
func ParseFilters(raw string) ([]models.Filter, error) {
	var filters []models.Filter
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, rest, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: expected key=type:value", part)
		}
		typ, value, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: expected key=type:value", part)
		}
		filter := models.Filter{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
			Type:  models.FilterType(strings.TrimSpace(typ)),
		}
		if err := filter.Validate(); err != nil {
			return nil, err
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
