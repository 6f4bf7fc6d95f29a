package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/catalog-harvester/internal/common/db"
	"github.com/catalog-harvester/internal/common/logger"
	"github.com/catalog-harvester/pkg/harvest/models"
)

// itemBatchSize keeps a batch under the PostgreSQL parameter limit.
const itemBatchSize = 1000

var itemColumns = []string{"job_id", "position", "remote_id", "status", "error", "dataset_id", "started", "ended"}

// JobStore persists harvest jobs and their items.
type JobStore struct {
	db     *db.DB
	logger logger.Logger
}

func NewJobStore(database *db.DB, log logger.Logger) *JobStore {
	return &JobStore{db: database, logger: log}
}

func (s *JobStore) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO harvest.jobs (id, source_id, status, started, ended, errors)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.DB().ExecContext(ctx, query,
		job.ID, job.SourceID, string(job.Status), job.Started, job.Ended, pq.Array(nonNil(job.Errors)))
	if err != nil {
		return fmt.Errorf("creating job %s: %w", job.ID, describe(err))
	}
	return nil
}

// SaveJob rewrites the job row and all of its items in one transaction.
func (s *JobStore) SaveJob(ctx context.Context, job *models.Job) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE harvest.jobs
		SET status = $2, started = $3, ended = $4, errors = $5
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, query,
		job.ID, string(job.Status), job.Started, job.Ended, pq.Array(nonNil(job.Errors)))
	if err != nil {
		return fmt.Errorf("updating job %s: %w", job.ID, describe(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating job %s: %w", job.ID, sql.ErrNoRows)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM harvest.job_items WHERE job_id = $1`, job.ID); err != nil {
		return fmt.Errorf("clearing job items: %w", err)
	}

	for start := 0; start < len(job.Items); start += itemBatchSize {
		end := min(start+itemBatchSize, len(job.Items))
		values := itemValues(job.ID, start, job.Items[start:end])
		if _, err := tx.ExecContext(ctx, buildInsertQuery("job_items", itemColumns, end-start), values...); err != nil {
			return fmt.Errorf("inserting job items: %w", describe(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing job %s: %w", job.ID, err)
	}

	s.logger.Debug("Job saved", "job_id", job.ID.String(), "status", string(job.Status), "items", len(job.Items))
	return nil
}

// LastJob returns the most recently started job of a source, or nil.
func (s *JobStore) LastJob(ctx context.Context, sourceID string) (*models.Job, error) {
	query := `
		SELECT id, source_id, status, started, ended, errors
		FROM harvest.jobs
		WHERE source_id = $1
		ORDER BY started DESC
		LIMIT 1
	`

	var (
		job    models.Job
		status string
		ended  sql.NullTime
		errs   pq.StringArray
	)
	err := s.db.DB().QueryRowContext(ctx, query, sourceID).
		Scan(&job.ID, &job.SourceID, &status, &job.Started, &ended, &errs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last job: %w", err)
	}
	job.Status = models.JobStatus(status)
	if ended.Valid {
		job.Ended = &ended.Time
	}
	if len(errs) > 0 {
		job.Errors = []string(errs)
	}

	items, err := s.items(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	job.Items = items
	return &job, nil
}

func (s *JobStore) items(ctx context.Context, jobID uuid.UUID) ([]*models.JobItem, error) {
	query := `
		SELECT remote_id, status, error, dataset_id, started, ended
		FROM harvest.job_items
		WHERE job_id = $1
		ORDER BY position
	`

	rows, err := s.db.DB().QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("querying job items: %w", err)
	}
	defer rows.Close()

	var items []*models.JobItem
	for rows.Next() {
		var (
			item      models.JobItem
			status    string
			datasetID uuid.NullUUID
			started   sql.NullTime
			ended     sql.NullTime
		)
		if err := rows.Scan(&item.RemoteID, &status, &item.Error, &datasetID, &started, &ended); err != nil {
			return nil, fmt.Errorf("scanning job item: %w", err)
		}
		item.Status = models.ItemStatus(status)
		if datasetID.Valid {
			item.DatasetID = &datasetID.UUID
		}
		if started.Valid {
			item.Started = &started.Time
		}
		if ended.Valid {
			item.Ended = &ended.Time
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// PruneJobs deletes all but the keep most recent jobs of a source.
func (s *JobStore) PruneJobs(ctx context.Context, sourceID string, keep int) (int64, error) {
	query := `
		DELETE FROM harvest.jobs
		WHERE source_id = $1 AND id NOT IN (
			SELECT id FROM harvest.jobs
			WHERE source_id = $1
			ORDER BY started DESC
			LIMIT $2
		)
	`

	res, err := s.db.DB().ExecContext(ctx, query, sourceID, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning jobs: %w", err)
	}
	return res.RowsAffected()
}

func itemValues(jobID uuid.UUID, offset int, items []*models.JobItem) []interface{} {
	values := make([]interface{}, 0, len(items)*len(itemColumns))
	for i, item := range items {
		values = append(values,
			jobID,
			offset+i,
			item.RemoteID,
			string(item.Status),
			item.Error,
			item.DatasetID,
			item.Started,
			item.Ended,
		)
	}
	return values
}

func buildInsertQuery(table string, columns []string, rows int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("INSERT INTO harvest.%s (%s) VALUES ", table, strings.Join(columns, ", ")))

	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range columns {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("$%d", i*len(columns)+j+1))
		}
		sb.WriteString(")")
	}

	return sb.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
