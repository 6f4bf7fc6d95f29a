package maintenance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/catalog-harvester/internal/common/logger"
)

// HarvestFunc runs one harvest pass over all sources.
type HarvestFunc func(ctx context.Context) error

// Scheduler runs periodic harvests and job pruning
type Scheduler struct {
	maintenance         *Maintenance
	logger              logger.Logger
	config              SchedulerConfig
	sources             []string
	harvest             HarvestFunc
	isRunning           bool
	mu                  sync.RWMutex
	cancelFn            context.CancelFunc
	wg                  sync.WaitGroup
	harvestLock         sync.Mutex // Prevents pruning during a harvest
	isHarvestInProgress atomic.Bool
}

// SchedulerConfig contains configuration for the scheduler
type SchedulerConfig struct {
	HarvestInterval   time.Duration // How often to harvest all sources
	PruneInterval     time.Duration // How often to prune old jobs
	InitialPruneDelay time.Duration // Delay before the first prune
	KeepJobs          int           // Number of jobs to keep per source
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		HarvestInterval:   24 * time.Hour,
		PruneInterval:     24 * time.Hour,
		InitialPruneDelay: 5 * time.Minute,
		KeepJobs:          10,
	}
}

// NewScheduler creates a new scheduler
func NewScheduler(m *Maintenance, logger logger.Logger, config SchedulerConfig, sources []string, harvest HarvestFunc) *Scheduler {
	return &Scheduler{
		maintenance: m,
		logger:      logger,
		config:      config,
		sources:     sources,
		harvest:     harvest,
	}
}

// Start runs a first harvest immediately and then schedules the loops
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if s.config.HarvestInterval <= 0 || s.config.PruneInterval <= 0 {
		return fmt.Errorf("scheduler intervals must be positive")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFn = cancel
	s.isRunning = true

	s.logger.Info("Starting scheduler",
		"harvest_interval", s.config.HarvestInterval,
		"prune_interval", s.config.PruneInterval,
		"keep_jobs", s.config.KeepJobs)

	s.wg.Add(2)
	go s.harvestLoop(ctx)
	go s.pruneLoop(ctx)

	return nil
}

// Stop cancels the loops and waits for a running harvest to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}

	s.logger.Info("Stopping scheduler")
	if s.cancelFn != nil {
		s.cancelFn()
	}
	s.isRunning = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is active
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LockForHarvest prevents pruning while a harvest runs
func (s *Scheduler) LockForHarvest() {
	s.harvestLock.Lock()
	s.isHarvestInProgress.Store(true)
	s.logger.Debug("Pruning locked for harvest")
}

// UnlockAfterHarvest allows pruning to resume
func (s *Scheduler) UnlockAfterHarvest() {
	s.isHarvestInProgress.Store(false)
	s.harvestLock.Unlock()
	s.logger.Debug("Pruning unlocked after harvest")
}

// tryLockForPrune reports whether pruning may run now; callers must unlock
// the harvest lock when it returns true.
func (s *Scheduler) tryLockForPrune() bool {
	return s.harvestLock.TryLock()
}

func (s *Scheduler) harvestLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.HarvestInterval)
	defer ticker.Stop()

	s.performHarvest(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Harvest loop stopping")
			return

		case <-ticker.C:
			s.performHarvest(ctx)
		}
	}
}

func (s *Scheduler) pruneLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PruneInterval)
	defer ticker.Stop()

	initialDelay := time.NewTimer(s.config.InitialPruneDelay)
	defer initialDelay.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Prune loop stopping")
			return

		case <-initialDelay.C:
			s.performPrune(ctx)

		case <-ticker.C:
			s.performPrune(ctx)
		}
	}
}

func (s *Scheduler) performHarvest(ctx context.Context) {
	s.LockForHarvest()
	defer s.UnlockAfterHarvest()

	s.logger.Info("Starting scheduled harvest", "sources", len(s.sources))

	start := time.Now()
	err := s.harvest(ctx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("Scheduled harvest failed", "error", err, "duration", duration)
	} else {
		s.logger.Info("Scheduled harvest completed", "duration", duration)
	}
}

func (s *Scheduler) performPrune(ctx context.Context) {
	if !s.tryLockForPrune() {
		s.logger.Debug("Skipping prune - harvest in progress")
		return
	}
	defer s.harvestLock.Unlock()

	start := time.Now()
	_, err := s.maintenance.PruneJobs(ctx, s.sources, s.config.KeepJobs)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("Job pruning failed", "error", err, "duration", duration)
	} else {
		s.logger.Info("Job pruning completed", "duration", duration)
	}
}

// TriggerPrune manually prunes old jobs
func (s *Scheduler) TriggerPrune(ctx context.Context) error {
	if !s.tryLockForPrune() {
		return fmt.Errorf("cannot prune - harvest in progress")
	}
	defer s.harvestLock.Unlock()

	s.logger.Info("Manual job pruning triggered", "keep_jobs", s.config.KeepJobs)
	_, err := s.maintenance.PruneJobs(ctx, s.sources, s.config.KeepJobs)
	return err
}

// GetStatus returns the current status of the scheduler
func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"is_running":             s.isRunning,
		"is_harvest_in_progress": s.isHarvestInProgress.Load(),
		"harvest_interval":       s.config.HarvestInterval.String(),
		"prune_interval":         s.config.PruneInterval.String(),
		"keep_jobs":              s.config.KeepJobs,
		"sources":                len(s.sources),
	}
}
