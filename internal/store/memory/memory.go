// Package memory provides in-process stores used by tests and dry runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/catalog-harvester/pkg/harvest/models"
)

type datasetKey struct {
	sourceID string
	remoteID string
}

// Datasets is an in-memory dataset store keyed by (source, remote id).
// Stored datasets are copied on the way in and out.
type Datasets struct {
	mu       sync.RWMutex
	datasets map[datasetKey]*models.Dataset
}

func NewDatasets() *Datasets {
	return &Datasets{datasets: make(map[datasetKey]*models.Dataset)}
}

func (s *Datasets) FindOrCreate(_ context.Context, sourceID, remoteID string) (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.datasets[datasetKey{sourceID, remoteID}]; ok {
		return clone(d)
	}
	return models.NewDataset(sourceID, remoteID), nil
}

func (s *Datasets) Save(_ context.Context, dataset *models.Dataset) error {
	if dataset.ID == uuid.Nil {
		return fmt.Errorf("dataset %s has no id", dataset.RemoteID)
	}
	stored, err := clone(dataset)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[datasetKey{dataset.SourceID, dataset.RemoteID}] = stored
	return nil
}

func (s *Datasets) Count(_ context.Context, sourceID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for key := range s.datasets {
		if key.sourceID == sourceID {
			n++
		}
	}
	return n, nil
}

// Get returns a copy of a stored dataset, or nil.
func (s *Datasets) Get(sourceID, remoteID string) *models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[datasetKey{sourceID, remoteID}]
	if !ok {
		return nil
	}
	out, _ := clone(d)
	return out
}

func clone[T any](v *T) (*T, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("copying value: %w", err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("copying value: %w", err)
	}
	return &out, nil
}

// Jobs is an in-memory job store.
type Jobs struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.Job
}

func NewJobs() *Jobs {
	return &Jobs{jobs: make(map[uuid.UUID]*models.Job)}
}

func (s *Jobs) CreateJob(_ context.Context, job *models.Job) error {
	stored, err := clone(job)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = stored
	return nil
}

func (s *Jobs) SaveJob(_ context.Context, job *models.Job) error {
	stored, err := clone(job)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = stored
	return nil
}

func (s *Jobs) LastJob(_ context.Context, sourceID string) (*models.Job, error) {
	jobs := s.bySource(sourceID)
	if len(jobs) == 0 {
		return nil, nil
	}
	return clone(jobs[0])
}

func (s *Jobs) PruneJobs(_ context.Context, sourceID string, keep int) (int64, error) {
	jobs := s.bySource(sourceID)
	if keep < 0 || len(jobs) <= keep {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for _, job := range jobs[keep:] {
		delete(s.jobs, job.ID)
		removed++
	}
	return removed, nil
}

// bySource returns the jobs of a source, newest first.
func (s *Jobs) bySource(sourceID string) []*models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Job
	for _, job := range s.jobs {
		if job.SourceID == sourceID {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Started.After(out[j].Started)
	})
	return out
}
