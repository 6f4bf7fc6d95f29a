package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/catalog-harvester/internal/common/db"
	"github.com/catalog-harvester/internal/common/logger"
	"github.com/catalog-harvester/pkg/harvest/models"
)

// LicenseStore loads and seeds the license table.
type LicenseStore struct {
	db     *db.DB
	logger logger.Logger
}

func NewLicenseStore(database *db.DB, log logger.Logger) *LicenseStore {
	return &LicenseStore{db: database, logger: log}
}

func (s *LicenseStore) Load(ctx context.Context) ([]*models.License, error) {
	query := `
		SELECT id, title, url, alternate_ids, alternate_titles
		FROM harvest.licenses
		ORDER BY id
	`

	rows, err := s.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying licenses: %w", err)
	}
	defer rows.Close()

	var licenses []*models.License
	for rows.Next() {
		var (
			license   models.License
			altIDs    pq.StringArray
			altTitles pq.StringArray
		)
		if err := rows.Scan(&license.ID, &license.Title, &license.URL, &altIDs, &altTitles); err != nil {
			return nil, fmt.Errorf("scanning license: %w", err)
		}
		license.AlternateIDs = altIDs
		license.AlternateTitles = altTitles
		licenses = append(licenses, &license)
	}
	return licenses, rows.Err()
}

// Seed upserts licenses by id.
func (s *LicenseStore) Seed(ctx context.Context, licenses []*models.License) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO harvest.licenses (id, title, url, alternate_ids, alternate_titles)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			alternate_ids = EXCLUDED.alternate_ids,
			alternate_titles = EXCLUDED.alternate_titles
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing license upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range licenses {
		_, err := stmt.ExecContext(ctx, l.ID, l.Title, l.URL,
			pq.Array(nonNil(l.AlternateIDs)), pq.Array(nonNil(l.AlternateTitles)))
		if err != nil {
			return fmt.Errorf("seeding license %s: %w", l.ID, describe(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing licenses: %w", err)
	}

	s.logger.Info("Licenses seeded", "count", len(licenses))
	return nil
}

// GeoZoneStore resolves geozones from the geozones table.
type GeoZoneStore struct {
	db     *db.DB
	logger logger.Logger
}

func NewGeoZoneStore(database *db.DB, log logger.Logger) *GeoZoneStore {
	return &GeoZoneStore{db: database, logger: log}
}

// Find returns zones named or slugged exactly q and valid at validAt.
func (s *GeoZoneStore) Find(ctx context.Context, q string, validAt time.Time) ([]models.GeoZone, error) {
	query := `
		SELECT id, slug, name, level, validity_start, validity_end
		FROM harvest.geozones
		WHERE (name = $1 OR slug = $1)
			AND (validity_start IS NULL OR validity_start <= $2)
			AND (validity_end IS NULL OR validity_end > $2)
		ORDER BY id
	`

	rows, err := s.db.DB().QueryContext(ctx, query, q, validAt)
	if err != nil {
		return nil, fmt.Errorf("querying geozones: %w", err)
	}
	defer rows.Close()

	var zones []models.GeoZone
	for rows.Next() {
		var (
			zone       models.GeoZone
			start, end sql.NullTime
		)
		if err := rows.Scan(&zone.ID, &zone.Slug, &zone.Name, &zone.Level, &start, &end); err != nil {
			return nil, fmt.Errorf("scanning geozone: %w", err)
		}
		if start.Valid {
			zone.ValidityStart = &start.Time
		}
		if end.Valid {
			zone.ValidityEnd = &end.Time
		}
		zones = append(zones, zone)
	}
	return zones, rows.Err()
}

func (s *GeoZoneStore) Upsert(ctx context.Context, zones ...models.GeoZone) error {
	query := `
		INSERT INTO harvest.geozones (id, slug, name, level, validity_start, validity_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			name = EXCLUDED.name,
			level = EXCLUDED.level,
			validity_start = EXCLUDED.validity_start,
			validity_end = EXCLUDED.validity_end
	`

	for _, z := range zones {
		_, err := s.db.DB().ExecContext(ctx, query, z.ID, z.Slug, z.Name, z.Level, z.ValidityStart, z.ValidityEnd)
		if err != nil {
			return fmt.Errorf("upserting geozone %s: %w", z.ID, describe(err))
		}
	}
	return nil
}
