package harvest

import (
	"context"
	"time"

	"github.com/catalog-harvester/pkg/harvest/models"
)

// Catalog is the remote action API of one source.
type Catalog interface {
	List(ctx context.Context) ([]string, error)
	Search(ctx context.Context, q string, rows int) ([]string, error)
	Show(ctx context.Context, id string) (any, error)
	DatasetURL(name string) string
}

type DatasetStore interface {
	// FindOrCreate returns the dataset bound to (sourceID, remoteID) or a
	// new unsaved one.
	FindOrCreate(ctx context.Context, sourceID, remoteID string) (*models.Dataset, error)
	Save(ctx context.Context, dataset *models.Dataset) error
	Count(ctx context.Context, sourceID string) (int, error)
}

type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	SaveJob(ctx context.Context, job *models.Job) error
	LastJob(ctx context.Context, sourceID string) (*models.Job, error)
	PruneJobs(ctx context.Context, sourceID string, keep int) (int64, error)
}

type LicenseRegistry interface {
	Guess(ctx context.Context, id, title string, def *models.License) *models.License
	Default(ctx context.Context) *models.License
}

type GeoZoneRegistry interface {
	Find(ctx context.Context, nameOrSlug string, validAt time.Time) ([]models.GeoZone, error)
}

type FrequencyVocabulary interface {
	FromURI(value string) (models.Frequency, bool)
	Lookup(label string) (models.Frequency, bool)
}

// Notifier is told about every finished job.
type Notifier interface {
	NotifyJob(ctx context.Context, source models.Source, job *models.Job) error
}

// Recorder collects run metrics.
type Recorder interface {
	ItemProcessed(source string, status models.ItemStatus, elapsed time.Duration)
	JobFinished(source string, status models.JobStatus)
}
