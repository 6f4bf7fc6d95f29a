package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/catalog-harvester/pkg/harvest/models"
)

func TestBuildInsertQuery(t *testing.T) {
	got := buildInsertQuery("job_items", []string{"a", "b"}, 2)
	want := "INSERT INTO harvest.job_items (a, b) VALUES ($1, $2), ($3, $4)"
	if got != want {
		t.Errorf("buildInsertQuery() = %q, want %q", got, want)
	}
}

func TestItemValues(t *testing.T) {
	jobID := uuid.New()
	datasetID := uuid.New()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []*models.JobItem{
		{RemoteID: "a", Status: models.ItemDone, DatasetID: &datasetID, Started: &now, Ended: &now},
		{RemoteID: "b", Status: models.ItemFailed, Error: "boom"},
	}

	values := itemValues(jobID, 1000, items)
	if len(values) != 2*len(itemColumns) {
		t.Fatalf("len(values) = %d, want %d", len(values), 2*len(itemColumns))
	}
	if values[1] != 1000 || values[len(itemColumns)+1] != 1001 {
		t.Errorf("positions = %v, %v", values[1], values[len(itemColumns)+1])
	}
	if values[3] != "done" || values[len(itemColumns)+4] != "boom" {
		t.Errorf("values = %v", values)
	}
}

func TestDescribeUniqueViolation(t *testing.T) {
	err := fmt.Errorf("exec: %w", &pq.Error{Code: "23505", Constraint: "jobs_pkey"})
	got := describe(err)
	if !errors.Is(got, ErrDuplicate) {
		t.Errorf("describe() = %v, want ErrDuplicate", got)
	}

	plain := errors.New("connection refused")
	if describe(plain) != plain {
		t.Errorf("describe() changed a non-pq error")
	}
}

func TestNullTime(t *testing.T) {
	if nullTime(time.Time{}) != nil {
		t.Errorf("nullTime(zero) != nil")
	}
	now := time.Now()
	if got := nullTime(now); got == nil || !got.Equal(now) {
		t.Errorf("nullTime(now) = %v", got)
	}
}

func TestNonNil(t *testing.T) {
	if got := nonNil(nil); got == nil || len(got) != 0 {
		t.Errorf("nonNil(nil) = %#v", got)
	}
}
