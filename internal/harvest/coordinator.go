// Package harvest lists, fetches and reconciles remote catalog datasets
// into the local store.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/catalog-harvester/internal/common/logger"
	"github.com/catalog-harvester/pkg/harvest/models"
)

const defaultConcurrency = 4

// CoordinatorDeps groups the collaborators of a Coordinator.
type CoordinatorDeps struct {
	Catalog   Catalog
	Processor *Processor
	Datasets  DatasetStore
	Jobs      JobStore
	Logger    logger.Logger

	// Optional.
	Notifier Notifier
	Recorder Recorder

	// Concurrency bounds the number of items processed at once (default: 4).
	Concurrency int
	Now         func() time.Time
}

// Coordinator runs harvest jobs for one source.
type Coordinator struct {
	source      models.Source
	catalog     Catalog
	processor   *Processor
	datasets    DatasetStore
	jobs        JobStore
	notifier    Notifier
	recorder    Recorder
	concurrency int
	logger      logger.Logger
	locks       *keyedMutex
	now         func() time.Time
}

// NewCoordinator returns a coordinator for source.
func NewCoordinator(source models.Source, deps CoordinatorDeps) *Coordinator {
	if deps.Concurrency <= 0 {
		deps.Concurrency = defaultConcurrency
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Coordinator{
		source:      source,
		catalog:     deps.Catalog,
		processor:   deps.Processor,
		datasets:    deps.Datasets,
		jobs:        deps.Jobs,
		notifier:    deps.Notifier,
		recorder:    deps.Recorder,
		concurrency: deps.Concurrency,
		logger:      deps.Logger.With("source", source.ID),
		locks:       newKeyedMutex(),
		now:         deps.Now,
	}
}

// Run executes one harvest and returns its job record. The returned error
// is non nil only when the job could not be run at all: a listing failure
// (as *ListingError, with the failed job still returned) or a job store
// failure.
func (c *Coordinator) Run(ctx context.Context) (*models.Job, error) {
	job := models.NewJob(c.source.ID)
	job.Started = c.now().UTC()
	job.Status = models.JobRunning
	log := c.logger.With("job_id", job.ID.String())

	if err := c.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	log.Info("Harvest started", "url", c.source.URL, "backend", c.source.Backend)

	ids, err := ListIdentifiers(ctx, c.catalog, c.source)
	if err != nil {
		log.Error("Listing failed", "error", err)
		job.Status = models.JobFailed
		job.Errors = append(job.Errors, err.Error())
		if saveErr := c.finish(ctx, job); saveErr != nil {
			return job, errors.Join(err, saveErr)
		}
		return job, err
	}
	log.Info("Listed remote datasets", "count", len(ids))

	job.Items = make([]*models.JobItem, len(ids))
	for i, id := range ids {
		job.Items[i] = &models.JobItem{RemoteID: id, Status: models.ItemPending}
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, item := range job.Items {
		g.Go(func() error {
			c.processItem(ctx, log, item)
			return nil
		})
	}
	g.Wait()

	job.Status = job.Classify()
	if err := c.finish(ctx, job); err != nil {
		return job, err
	}
	return job, nil
}

// processItem never fails: every outcome is recorded on the item.
func (c *Coordinator) processItem(ctx context.Context, log logger.Logger, item *models.JobItem) {
	started := c.now().UTC()
	item.Started = &started
	defer func() {
		ended := c.now().UTC()
		item.Ended = &ended
		if c.recorder != nil {
			c.recorder.ItemProcessed(c.source.ID, item.Status, ended.Sub(started))
		}
	}()

	// Cancelled runs stop calling the catalog but still account for
	// every listed identifier.
	if err := ctx.Err(); err != nil {
		c.fail(log, item, err)
		return
	}

	record, remoteID, err := c.processor.Fetch(ctx, item.RemoteID)
	item.RemoteID = remoteID
	switch {
	case errors.Is(err, ErrSkip):
		item.Status = models.ItemSkipped
		item.Error = err.Error()
		log.Info("Dataset skipped", "remote_id", remoteID, "reason", err.Error())
		return
	case err != nil:
		c.fail(log, item, err)
		return
	}

	unlock := c.locks.Lock(remoteID)
	defer unlock()

	dataset, err := c.processor.Apply(ctx, record)
	if err != nil {
		c.fail(log, item, err)
		return
	}
	if err := c.datasets.Save(ctx, dataset); err != nil {
		c.fail(log, item, fmt.Errorf("saving dataset: %w", err))
		return
	}

	id := dataset.ID
	item.DatasetID = &id
	item.Status = models.ItemDone
	log.Debug("Dataset harvested", "remote_id", remoteID, "dataset_id", id.String())
}

func (c *Coordinator) fail(log logger.Logger, item *models.JobItem, err error) {
	item.Status = models.ItemFailed
	item.Error = err.Error()
	log.Error("Dataset harvest failed", "remote_id", item.RemoteID, "error", err)
}

// finish stamps, persists and reports a terminal job. It keeps working
// after the run context is cancelled.
func (c *Coordinator) finish(ctx context.Context, job *models.Job) error {
	ctx = context.WithoutCancel(ctx)
	ended := c.now().UTC()
	job.Ended = &ended

	counts := job.Counts()
	c.logger.Info("Harvest finished",
		"job_id", job.ID.String(),
		"status", job.Status,
		"done", counts[models.ItemDone],
		"skipped", counts[models.ItemSkipped],
		"failed", counts[models.ItemFailed],
		"duration", ended.Sub(job.Started).String(),
	)

	if c.recorder != nil {
		c.recorder.JobFinished(c.source.ID, job.Status)
	}

	if err := c.jobs.SaveJob(ctx, job); err != nil {
		c.logger.Error("Failed to save job", "job_id", job.ID.String(), "error", err)
		return fmt.Errorf("saving job: %w", err)
	}

	if c.notifier != nil {
		if err := c.notifier.NotifyJob(ctx, c.source, job); err != nil {
			c.logger.Warn("Failed to send job notification", "job_id", job.ID.String(), "error", err)
		}
	}
	return nil
}
