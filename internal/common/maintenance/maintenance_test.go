package maintenance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/catalog-harvester/internal/common/logger"
)

type fakePruner struct {
	mu      sync.Mutex
	calls   map[string]int
	deleted int64
	fail    map[string]bool
}

func newFakePruner() *fakePruner {
	return &fakePruner{calls: make(map[string]int), fail: make(map[string]bool), deleted: 3}
}

func (p *fakePruner) PruneJobs(_ context.Context, sourceID string, keep int) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[sourceID]++
	if p.fail[sourceID] {
		return 0, errors.New("database unavailable")
	}
	return p.deleted, nil
}

func (p *fakePruner) count(sourceID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[sourceID]
}

func TestPruneSourceJobs(t *testing.T) {
	m := New(newFakePruner(), logger.Nop())

	result := m.PruneSourceJobs(context.Background(), "data-gouv", 5)
	if !result.Success {
		t.Fatalf("Expected success, got error %q", result.Error)
	}
	if result.JobsDeleted != 3 {
		t.Errorf("Expected 3 jobs deleted, got %d", result.JobsDeleted)
	}
	if result.SourceID != "data-gouv" {
		t.Errorf("Expected source data-gouv, got %s", result.SourceID)
	}
}

func TestPruneSourceJobsRejectsZeroKeep(t *testing.T) {
	pruner := newFakePruner()
	m := New(pruner, logger.Nop())

	result := m.PruneSourceJobs(context.Background(), "src", 0)
	if result.Success {
		t.Error("Expected failure for keep=0")
	}
	if pruner.count("src") != 0 {
		t.Error("Store should not be called for keep=0")
	}
}

func TestPruneJobsContinuesAfterFailure(t *testing.T) {
	pruner := newFakePruner()
	pruner.fail["b"] = true
	m := New(pruner, logger.Nop())

	results, err := m.PruneJobs(context.Background(), []string{"a", "b", "c"}, 2)
	if err == nil {
		t.Fatal("Expected an error when one source fails")
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Errorf("Unexpected results: %+v", results)
	}
	if pruner.count("c") != 1 {
		t.Error("Source after the failing one was not pruned")
	}
}

func TestSchedulerHarvestsOnStart(t *testing.T) {
	harvested := make(chan struct{}, 1)
	harvest := func(ctx context.Context) error {
		select {
		case harvested <- struct{}{}:
		default:
		}
		return nil
	}

	cfg := DefaultSchedulerConfig()
	s := NewScheduler(New(newFakePruner(), logger.Nop()), logger.Nop(), cfg, []string{"src"}, harvest)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error when starting twice")
	}

	select {
	case <-harvested:
	case <-time.After(2 * time.Second):
		t.Fatal("Harvest did not run on start")
	}

	if !s.IsRunning() {
		t.Error("Scheduler should be running")
	}
	s.Stop()
	if s.IsRunning() {
		t.Error("Scheduler should be stopped")
	}
}

func TestSchedulerRejectsZeroInterval(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.HarvestInterval = 0
	s := NewScheduler(New(newFakePruner(), logger.Nop()), logger.Nop(), cfg, nil, func(context.Context) error { return nil })

	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error for zero harvest interval")
	}
}

func TestTriggerPruneDuringHarvest(t *testing.T) {
	pruner := newFakePruner()
	s := NewScheduler(New(pruner, logger.Nop()), logger.Nop(), DefaultSchedulerConfig(), []string{"src"}, nil)

	s.LockForHarvest()
	if err := s.TriggerPrune(context.Background()); err == nil {
		t.Error("Expected error while harvest is in progress")
	}
	if status := s.GetStatus(); status["is_harvest_in_progress"] != true {
		t.Errorf("Expected harvest in progress, got %v", status["is_harvest_in_progress"])
	}
	s.UnlockAfterHarvest()

	if err := s.TriggerPrune(context.Background()); err != nil {
		t.Errorf("TriggerPrune() error = %v", err)
	}
	if pruner.count("src") != 1 {
		t.Errorf("Expected 1 prune call, got %d", pruner.count("src"))
	}
}
