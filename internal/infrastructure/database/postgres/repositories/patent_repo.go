// Package repositories holds the SQL access layer over the snapshot mirror.
package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	"github.com/ipbench/ipsignal/pkg/errors"
)

// PatentRepository mirrors the portfolio snapshot into PostgreSQL so that
// analysts can join sectors and scores with SQL after a run.
type PatentRepository interface {
	// UpsertBatch writes the snapshot candidates, replacing existing rows by
	// patent ID. Returns the number of rows written.
	UpsertBatch(ctx context.Context, patents []*patent.Patent) (int, error)

	// UpdateSector sets the sector columns for one patent.
	UpdateSector(ctx context.Context, patentID, sector, superSector, provenance string) error

	// UpdateScores sets the per-profile and unified score columns.
	UpdateScores(ctx context.Context, patentID string, scores map[string]float64, unified float64) error

	// FindAll returns every mirrored patent ordered by ID.
	FindAll(ctx context.Context) ([]*patent.Patent, error)

	// CountBySector returns row counts grouped by sector.
	CountBySector(ctx context.Context) (map[string]int, error)
}

type patentRepo struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewPatentRepository returns the pgx-backed PatentRepository.
func NewPatentRepository(pool *pgxpool.Pool, log logging.Logger) PatentRepository {
	return &patentRepo{pool: pool, logger: log}
}

const upsertPatentSQL = `
INSERT INTO patents (patent_id, title, grant_date, assignee, forward_citations, remaining_years, cpc_codes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (patent_id) DO UPDATE SET
    title             = EXCLUDED.title,
    grant_date        = EXCLUDED.grant_date,
    assignee          = EXCLUDED.assignee,
    forward_citations = EXCLUDED.forward_citations,
    remaining_years   = EXCLUDED.remaining_years,
    cpc_codes         = EXCLUDED.cpc_codes,
    updated_at        = now()`

func (r *patentRepo) UpsertBatch(ctx context.Context, patents []*patent.Patent) (int, error) {
	batch := &pgx.Batch{}
	for _, p := range patents {
		batch.Queue(upsertPatentSQL,
			p.ID, p.Title, p.GrantDate, p.Assignee,
			p.ForwardCitations, p.RemainingYears, p.CPCCodes,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for range patents {
		if _, err := results.Exec(); err != nil {
			return written, errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "patent upsert failed")
		}
		written++
	}

	r.logger.Info("mirrored snapshot to database", logging.Int("patents", written))
	return written, nil
}

func (r *patentRepo) UpdateSector(ctx context.Context, patentID, sector, superSector, provenance string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE patents SET sector = $2, super_sector = $3, sector_provenance = $4, updated_at = now() WHERE patent_id = $1`,
		patentID, sector, superSector, provenance,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "sector update failed").WithDetail(patentID)
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeNotFound, "patent not mirrored").WithDetail(patentID)
	}
	return nil
}

func (r *patentRepo) UpdateScores(ctx context.Context, patentID string, scores map[string]float64, unified float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE patents SET profile_scores = $2, unified_score = $3, updated_at = now() WHERE patent_id = $1`,
		patentID, scores, unified,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "score update failed").WithDetail(patentID)
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeNotFound, "patent not mirrored").WithDetail(patentID)
	}
	return nil
}

func (r *patentRepo) FindAll(ctx context.Context) ([]*patent.Patent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT patent_id, title, grant_date, assignee, forward_citations, remaining_years, cpc_codes,
		        COALESCE(sector, ''), COALESCE(super_sector, '')
		 FROM patents ORDER BY patent_id`,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "patent query failed")
	}
	defer rows.Close()

	var patents []*patent.Patent
	for rows.Next() {
		p := &patent.Patent{}
		if err := rows.Scan(&p.ID, &p.Title, &p.GrantDate, &p.Assignee,
			&p.ForwardCitations, &p.RemainingYears, &p.CPCCodes,
			&p.Sector, &p.SuperSector); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStoreCorrupt, "patent row scan failed")
		}
		patents = append(patents, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "patent query failed")
	}
	return patents, nil
}

func (r *patentRepo) CountBySector(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT COALESCE(sector, 'general'), count(*) FROM patents GROUP BY 1`,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "sector count query failed")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sector string
		var n int
		if err := rows.Scan(&sector, &n); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStoreCorrupt, "sector count scan failed")
		}
		counts[sector] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "sector count query failed")
	}
	return counts, nil
}
