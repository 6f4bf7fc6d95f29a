package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/catalog-harvester/internal/catalog"
	"github.com/catalog-harvester/internal/common/config"
	"github.com/catalog-harvester/internal/common/db"
	"github.com/catalog-harvester/internal/common/discord"
	"github.com/catalog-harvester/internal/common/logger"
	"github.com/catalog-harvester/internal/common/maintenance"
	"github.com/catalog-harvester/internal/common/metrics"
	"github.com/catalog-harvester/internal/harvest"
	"github.com/catalog-harvester/internal/reference"
	"github.com/catalog-harvester/internal/store/memory"
	"github.com/catalog-harvester/internal/store/postgres"
	"github.com/catalog-harvester/pkg/harvest/models"
)

// stores groups the persistence backends shared by all sources.
type stores struct {
	datasets harvest.DatasetStore
	jobs     harvest.JobStore
	licenses *reference.Licenses
	zones    harvest.GeoZoneRegistry
	health   metrics.HealthCheck
	// reloadLicenses refreshes licenses from the database; nil in memory mode.
	reloadLicenses func(ctx context.Context) error
}

// newStores uses PostgreSQL when a database is given and memory otherwise.
func newStores(ctx context.Context, database *db.DB, log logger.Logger) (*stores, error) {
	if database == nil {
		return &stores{
			datasets: memory.NewDatasets(),
			jobs:     memory.NewJobs(),
			licenses: reference.NewLicenses(reference.DefaultLicenses(), reference.DefaultLicenseID),
			zones:    reference.NewGeoZones(),
		}, nil
	}

	licenseStore := postgres.NewLicenseStore(database, log)
	if err := licenseStore.Seed(ctx, reference.DefaultLicenses()); err != nil {
		return nil, err
	}
	licenses, err := licenseStore.Load(ctx)
	if err != nil {
		return nil, err
	}
	registry := reference.NewLicenses(licenses, reference.DefaultLicenseID)

	return &stores{
		datasets: postgres.NewDatasetStore(database, log),
		jobs:     postgres.NewJobStore(database, log),
		licenses: registry,
		zones:    postgres.NewGeoZoneStore(database, log),
		health: func(ctx context.Context) error {
			return database.DB().PingContext(ctx)
		},
		reloadLicenses: func(ctx context.Context) error {
			licenses, err := licenseStore.Load(ctx)
			if err != nil {
				return err
			}
			registry.Replace(licenses)
			return nil
		},
	}, nil
}

// schedulerHealth fails once the scheduler has stopped, then defers to next.
func schedulerHealth(s *maintenance.Scheduler, next metrics.HealthCheck) metrics.HealthCheck {
	return func(ctx context.Context) error {
		if !s.IsRunning() {
			return errors.New("scheduler is not running")
		}
		if next != nil {
			return next(ctx)
		}
		return nil
	}
}

type sourceRunner struct {
	source      models.Source
	client      *catalog.Client
	coordinator *harvest.Coordinator
	datasets    harvest.DatasetStore
	jobs        harvest.JobStore
	logger      logger.Logger
}

// runner harvests every configured source.
type runner struct {
	sources  []*sourceRunner
	licenses *reference.Licenses
	reload   func(ctx context.Context) error
	logger   logger.Logger
}

func newRunner(cfg *config.Config, st *stores, recorder harvest.Recorder, notifier *discord.Client, log logger.Logger) (*runner, error) {
	var notify harvest.Notifier
	if notifier != nil {
		notify = notifier
	}
	frequencies := reference.NewVocabulary()

	r := &runner{
		licenses: st.licenses,
		reload:   st.reloadLicenses,
		logger:   log,
	}
	for _, source := range cfg.Sources {
		client, err := catalog.New(catalog.Config{
			BaseURL:   source.URL,
			APIKey:    source.APIKey,
			Timeout:   cfg.Harvest.Timeout,
			RateLimit: cfg.Harvest.RateLimit,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.ID, err)
		}

		processor, err := harvest.NewProcessor(source, harvest.ProcessorDeps{
			Catalog:     client,
			Datasets:    st.datasets,
			Licenses:    st.licenses,
			Zones:       st.zones,
			Frequencies: frequencies,
			Logger:      log,
		})
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.ID, err)
		}

		coordinator := harvest.NewCoordinator(source, harvest.CoordinatorDeps{
			Catalog:     client,
			Processor:   processor,
			Datasets:    st.datasets,
			Jobs:        st.jobs,
			Logger:      log,
			Notifier:    notify,
			Recorder:    recorder,
			Concurrency: cfg.Harvest.Concurrency,
		})

		r.sources = append(r.sources, &sourceRunner{
			source:      source,
			client:      client,
			coordinator: coordinator,
			datasets:    st.datasets,
			jobs:        st.jobs,
			logger:      log.With("source", source.ID),
		})
	}
	return r, nil
}

// RunAll refreshes licenses, then harvests all sources concurrently and
// joins their errors.
func (r *runner) RunAll(ctx context.Context) error {
	if r.reload != nil {
		if err := r.reload(ctx); err != nil {
			r.logger.Warn("Failed to reload licenses, keeping previous set", "error", err)
		}
	}
	r.logger.Info("Licenses loaded", "count", len(r.licenses.All()))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, s := range r.sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("source %s: %w", s.source.ID, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *sourceRunner) run(ctx context.Context) error {
	if status, err := s.client.Status(ctx); err != nil {
		s.logger.Warn("Catalog status check failed", "error", err)
	} else {
		s.logger.Info("Catalog reachable", "ckan_version", status["ckan_version"], "site_title", status["site_title"])
	}

	if last, err := s.jobs.LastJob(ctx, s.source.ID); err != nil {
		s.logger.Warn("Failed to read previous job", "error", err)
	} else if last != nil {
		s.logger.Info("Previous harvest", "job_id", last.ID.String(), "status", string(last.Status), "items", len(last.Items))
	}

	if _, err := s.coordinator.Run(ctx); err != nil {
		return err
	}

	total, err := s.datasets.Count(context.WithoutCancel(ctx), s.source.ID)
	if err != nil {
		s.logger.Warn("Failed to count local datasets", "error", err)
		return nil
	}
	s.logger.Info("Local datasets", "count", total)
	return nil
}
