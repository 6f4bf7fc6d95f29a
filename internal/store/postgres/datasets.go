// Package postgres stores harvested datasets, harvest jobs and reference
// data in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/catalog-harvester/internal/common/db"
	"github.com/catalog-harvester/internal/common/logger"
	"github.com/catalog-harvester/pkg/harvest/models"
)

// DatasetStore keeps one JSONB document per (source, remote id).
type DatasetStore struct {
	db     *db.DB
	logger logger.Logger
}

func NewDatasetStore(database *db.DB, log logger.Logger) *DatasetStore {
	return &DatasetStore{db: database, logger: log}
}

func (s *DatasetStore) FindOrCreate(ctx context.Context, sourceID, remoteID string) (*models.Dataset, error) {
	query := `
		SELECT document
		FROM harvest.datasets
		WHERE source_id = $1 AND remote_id = $2
	`

	var document []byte
	err := s.db.DB().QueryRowContext(ctx, query, sourceID, remoteID).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewDataset(sourceID, remoteID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying dataset %s/%s: %w", sourceID, remoteID, err)
	}

	var dataset models.Dataset
	if err := json.Unmarshal(document, &dataset); err != nil {
		return nil, fmt.Errorf("decoding dataset %s/%s: %w", sourceID, remoteID, err)
	}
	if dataset.Extras == nil {
		dataset.Extras = make(map[string]any)
	}
	return &dataset, nil
}

func (s *DatasetStore) Save(ctx context.Context, dataset *models.Dataset) error {
	document, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("encoding dataset %s: %w", dataset.RemoteID, err)
	}

	query := `
		INSERT INTO harvest.datasets
			(id, source_id, remote_id, slug, title, tags, document, created_at, last_modified, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (source_id, remote_id) DO UPDATE SET
			slug = EXCLUDED.slug,
			title = EXCLUDED.title,
			tags = EXCLUDED.tags,
			document = EXCLUDED.document,
			created_at = EXCLUDED.created_at,
			last_modified = EXCLUDED.last_modified,
			updated_at = now()
	`

	_, err = s.db.DB().ExecContext(ctx, query,
		dataset.ID,
		dataset.SourceID,
		dataset.RemoteID,
		dataset.Slug,
		dataset.Title,
		pq.Array(dataset.Tags),
		document,
		nullTime(dataset.CreatedAt),
		nullTime(dataset.LastModified),
	)
	if err != nil {
		return fmt.Errorf("saving dataset %s: %w", dataset.RemoteID, describe(err))
	}

	s.logger.Debug("Dataset saved", "dataset_id", dataset.ID.String(), "remote_id", dataset.RemoteID)
	return nil
}

func (s *DatasetStore) Count(ctx context.Context, sourceID string) (int, error) {
	var n int
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT count(*) FROM harvest.datasets WHERE source_id = $1`, sourceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting datasets: %w", err)
	}
	return n, nil
}
