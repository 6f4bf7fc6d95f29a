package maintenance

import (
	"context"
	"fmt"

	"github.com/catalog-harvester/internal/common/logger"
)

// JobPruner deletes old harvest jobs of a source.
type JobPruner interface {
	PruneJobs(ctx context.Context, sourceID string, keep int) (int64, error)
}

// PruneResult represents the result of pruning one source
type PruneResult struct {
	SourceID    string
	JobsDeleted int64
	Success     bool
	Error       string
}

// Maintenance handles cleanup of harvest bookkeeping
type Maintenance struct {
	jobs   JobPruner
	logger logger.Logger
}

// New creates a new Maintenance instance
func New(jobs JobPruner, logger logger.Logger) *Maintenance {
	return &Maintenance{
		jobs:   jobs,
		logger: logger,
	}
}

// PruneSourceJobs keeps only the keep most recent jobs of one source.
// A failure is reported in the result so other sources can still be pruned.
func (m *Maintenance) PruneSourceJobs(ctx context.Context, sourceID string, keep int) PruneResult {
	result := PruneResult{SourceID: sourceID}

	if keep < 1 {
		result.Error = fmt.Sprintf("keep must be at least 1, got %d", keep)
		return result
	}

	deleted, err := m.jobs.PruneJobs(ctx, sourceID, keep)
	if err != nil {
		result.Error = err.Error()
		m.logger.Error("Failed to prune harvest jobs", "source", sourceID, "error", err)
		return result
	}

	result.JobsDeleted = deleted
	result.Success = true
	m.logger.Info("Pruned harvest jobs", "source", sourceID, "jobs_deleted", deleted, "kept", keep)
	return result
}

// PruneJobs prunes every source and fails if any source failed.
func (m *Maintenance) PruneJobs(ctx context.Context, sourceIDs []string, keep int) ([]PruneResult, error) {
	m.logger.Info("Starting harvest job pruning", "sources", len(sourceIDs), "keep", keep)

	results := make([]PruneResult, 0, len(sourceIDs))
	var (
		failed  int
		deleted int64
	)
	for _, id := range sourceIDs {
		result := m.PruneSourceJobs(ctx, id, keep)
		if !result.Success {
			failed++
		}
		deleted += result.JobsDeleted
		results = append(results, result)
	}

	m.logger.Info("Harvest job pruning completed",
		"total_jobs_deleted", deleted,
		"sources_processed", len(sourceIDs),
		"sources_failed", failed)

	if failed > 0 {
		return results, fmt.Errorf("pruning failed for %d out of %d sources", failed, len(sourceIDs))
	}
	return results, nil
}
