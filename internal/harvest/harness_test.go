package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/catalog-harvester/internal/catalog"
	"github.com/catalog-harvester/internal/common/logger"
	"github.com/catalog-harvester/internal/reference"
	"github.com/catalog-harvester/internal/store/memory"
	"github.com/catalog-harvester/pkg/harvest/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeCatalog serves a mutable set of records through the CKAN action API.
type fakeCatalog struct {
	mu       sync.Mutex
	records  []map[string]any
	dkan     bool
	listHTML bool
	queries  []string
}

func (f *fakeCatalog) add(records ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
}

// update mutates the record with the given id in place.
func (f *fakeCatalog) update(id string, fn func(map[string]any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r["id"] == id {
			fn(r)
		}
	}
}

func (f *fakeCatalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	action := strings.TrimPrefix(r.URL.Path, "/api/3/action/")
	switch action {
	case "package_list":
		if f.listHTML {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>Bad gateway</html>"))
			return
		}
		names := make([]string, 0, len(f.records))
		for _, rec := range f.records {
			names = append(names, rec["name"].(string))
		}
		reply(w, names)
	case "package_search":
		q := r.URL.Query().Get("q")
		f.queries = append(f.queries, q)
		var results []map[string]any
		for _, rec := range f.records {
			if matchQuery(rec, q) {
				results = append(results, map[string]any{"id": rec["id"], "name": rec["name"]})
			}
		}
		reply(w, map[string]any{"count": len(results), "results": results})
	case "package_show":
		id := r.URL.Query().Get("id")
		for _, rec := range f.records {
			if rec["id"] == id || rec["name"] == id {
				if f.dkan {
					reply(w, []any{rec})
				} else {
					reply(w, rec)
				}
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "error": {"__type": "Not Found Error", "message": "Not found"}}`))
	default:
		http.NotFound(w, r)
	}
}

func reply(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "result": result})
}

// matchQuery understands the "key:value AND -key:value" queries built by
// SearchQuery.
func matchQuery(rec map[string]any, q string) bool {
	for _, clause := range strings.Split(q, " AND ") {
		negate := strings.HasPrefix(clause, "-")
		key, value, _ := strings.Cut(strings.TrimPrefix(clause, "-"), ":")

		var match bool
		switch key {
		case "organization":
			if org, ok := rec["organization"].(map[string]any); ok {
				match = org["name"] == value
			}
		case "tags":
			tags, _ := rec["tags"].([]any)
			for _, t := range tags {
				if t.(map[string]any)["name"] == value {
					match = true
				}
			}
		}
		if match == negate {
			return false
		}
	}
	return true
}

func resourceID(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}

func fixtureResource(n int) map[string]any {
	return map[string]any{
		"id":            resourceID(n),
		"name":          fmt.Sprintf("Resource %d", n),
		"description":   "A file",
		"url":           fmt.Sprintf("https://files.example.org/%d.csv", n),
		"format":        "CSV",
		"mimetype":      "text/csv",
		"created":       "2019-01-01T00:00:00",
		"last_modified": "2019-02-01T00:00:00",
		"resource_type": "file",
	}
}

func fixtureRecord(id, name string) map[string]any {
	return map[string]any{
		"id":                id,
		"name":              name,
		"title":             "Title of " + name,
		"notes":             "Description of " + name,
		"license_id":        "cc-by",
		"license_title":     "Creative Commons Attribution",
		"metadata_created":  "2019-01-01T00:00:00",
		"metadata_modified": "2019-06-01T00:00:00",
		"tags":              []any{map[string]any{"name": "transport"}},
		"organization":      map[string]any{"id": "org-1-id", "name": "org-1"},
		"extras":            []any{},
		"resources":         []any{fixtureResource(1)},
	}
}

func withExtras(rec map[string]any, kv ...any) map[string]any {
	extras := rec["extras"].([]any)
	for i := 0; i+1 < len(kv); i += 2 {
		extras = append(extras, map[string]any{"key": kv[i], "value": kv[i+1]})
	}
	rec["extras"] = extras
	return rec
}

type harness struct {
	t        *testing.T
	remote   *fakeCatalog
	client   *catalog.Client
	source   models.Source
	datasets *memory.Datasets
	jobs     *memory.Jobs
	zones    *reference.GeoZones
	recorder *countingRecorder
	notifier *recordingNotifier
}

func newHarness(t *testing.T, backend models.Backend, filters ...models.Filter) *harness {
	t.Helper()
	remote := &fakeCatalog{dkan: backend == models.BackendDKAN}
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	client, err := catalog.New(catalog.Config{BaseURL: srv.URL, RateLimit: 1000, RateBurst: 100}, logger.Nop())
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}

	return &harness{
		t:        t,
		remote:   remote,
		client:   client,
		source:   models.Source{ID: "src-1", URL: srv.URL, Backend: backend, Filters: filters},
		datasets: memory.NewDatasets(),
		jobs:     memory.NewJobs(),
		zones:    reference.NewGeoZones(),
		recorder: &countingRecorder{items: make(map[models.ItemStatus]int)},
		notifier: &recordingNotifier{},
	}
}

func (h *harness) coordinator(cat Catalog) *Coordinator {
	h.t.Helper()
	if cat == nil {
		cat = h.client
	}
	processor, err := NewProcessor(h.source, ProcessorDeps{
		Catalog:     cat,
		Datasets:    h.datasets,
		Licenses:    reference.NewLicenses(reference.DefaultLicenses(), reference.DefaultLicenseID),
		Zones:       h.zones,
		Frequencies: reference.NewVocabulary(),
		Logger:      logger.Nop(),
		Now:         func() time.Time { return fixedNow },
	})
	if err != nil {
		h.t.Fatalf("NewProcessor() error = %v", err)
	}
	return NewCoordinator(h.source, CoordinatorDeps{
		Catalog:     cat,
		Processor:   processor,
		Datasets:    h.datasets,
		Jobs:        h.jobs,
		Logger:      logger.Nop(),
		Notifier:    h.notifier,
		Recorder:    h.recorder,
		Concurrency: 4,
	})
}

func (h *harness) run() *models.Job {
	h.t.Helper()
	job, err := h.coordinator(nil).Run(context.Background())
	if err != nil {
		h.t.Fatalf("Run() error = %v", err)
	}
	return job
}

func (h *harness) dataset(remoteID string) *models.Dataset {
	h.t.Helper()
	d := h.datasets.Get(h.source.ID, remoteID)
	if d == nil {
		h.t.Fatalf("no dataset stored for %s", remoteID)
	}
	return d
}

func itemFor(job *models.Job, remoteID string) *models.JobItem {
	for _, item := range job.Items {
		if item.RemoteID == remoteID {
			return item
		}
	}
	return nil
}

type countingRecorder struct {
	mu    sync.Mutex
	items map[models.ItemStatus]int
	jobs  []models.JobStatus
}

func (r *countingRecorder) ItemProcessed(_ string, status models.ItemStatus, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[status]++
}

func (r *countingRecorder) JobFinished(_ string, status models.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, status)
}

type recordingNotifier struct {
	jobs []*models.Job
}

func (n *recordingNotifier) NotifyJob(_ context.Context, _ models.Source, job *models.Job) error {
	n.jobs = append(n.jobs, job)
	return nil
}
