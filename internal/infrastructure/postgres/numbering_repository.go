package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var _ repository.NumberingRepository = (*NumberingRepo)(nil)

// NumberingRepo rangos de numeración sobre PostgreSQL (usable con pool o tx).
type NumberingRepo struct {
	q Querier
}

// NewNumberingRepository construye el adaptador. Pasar pool o tx (Querier).
func NewNumberingRepository(q Querier) *NumberingRepo {
	return &NumberingRepo{q: q}
}

const numberingColumns = `id, tenant_id, resolution_number, technical_key, prefix, range_from, range_to,
	next_number, date_from, date_to, environment, status, created_at, updated_at`

func scanNumberingRange(row pgxScanner) (*entity.NumberingRange, error) {
	var rg entity.NumberingRange
	err := row.Scan(
		&rg.ID, &rg.TenantID, &rg.ResolutionNumber, &rg.TechnicalKey, &rg.Prefix, &rg.RangeFrom, &rg.RangeTo,
		&rg.NextNumber, &rg.DateFrom, &rg.DateTo, &rg.Environment, &rg.Status, &rg.CreatedAt, &rg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rg, nil
}

// AllocateNext lectura e incremento en una sola sentencia: la fila queda bloqueada hasta el fin de la tx,
// así que las asignaciones concurrentes de una empresa se serializan y nunca repiten número.
func (r *NumberingRepo) AllocateNext(ctx context.Context, tenantID string, today time.Time) (*entity.NumberingRange, int64, error) {
	query := `
		UPDATE numbering_ranges
		SET next_number = next_number + 1,
		    status = CASE WHEN next_number + 1 > range_to THEN 'EXHAUSTED' ELSE status END,
		    updated_at = now()
		WHERE tenant_id = $1 AND status = 'ACTIVE' AND next_number <= range_to
		  AND date_from <= $2::date AND date_to >= $2::date
		RETURNING ` + numberingColumns
	rg, err := scanNumberingRange(r.q.QueryRow(ctx, query, tenantID, today.Format("2006-01-02")))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("allocate invoice number: %w", err)
	}
	return rg, rg.NextNumber - 1, nil
}

func (r *NumberingRepo) GetActive(ctx context.Context, tenantID string) (*entity.NumberingRange, error) {
	query := `SELECT ` + numberingColumns + ` FROM numbering_ranges WHERE tenant_id = $1 AND status = 'ACTIVE'`
	return r.getOne(ctx, query, tenantID)
}

func (r *NumberingRepo) Latest(ctx context.Context, tenantID string) (*entity.NumberingRange, error) {
	query := `SELECT ` + numberingColumns + ` FROM numbering_ranges
		WHERE tenant_id = $1 AND status <> 'SUPERSEDED' ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, tenantID)
}

func (r *NumberingRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.NumberingRange, error) {
	query := `SELECT ` + numberingColumns + ` FROM numbering_ranges WHERE tenant_id = $1 AND id = $2`
	return r.getOne(ctx, query, tenantID, id)
}

func (r *NumberingRepo) getOne(ctx context.Context, query string, args ...any) (*entity.NumberingRange, error) {
	rg, err := scanNumberingRange(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get numbering range: %w", err)
	}
	return rg, nil
}

func (r *NumberingRepo) Create(ctx context.Context, rg *entity.NumberingRange) error {
	if rg.ID == "" {
		rg.ID = uuid.New().String()
	}
	query := `INSERT INTO numbering_ranges (` + numberingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		rg.ID, rg.TenantID, rg.ResolutionNumber, rg.TechnicalKey, rg.Prefix, rg.RangeFrom, rg.RangeTo,
		rg.NextNumber, rg.DateFrom, rg.DateTo, rg.Environment, rg.Status, rg.CreatedAt, rg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert numbering range: %w", err)
	}
	return nil
}

// Update nunca retrocede next_number.
func (r *NumberingRepo) Update(ctx context.Context, rg *entity.NumberingRange) error {
	const query = `
		UPDATE numbering_ranges
		SET resolution_number = $3, technical_key = $4, range_from = $5, range_to = $6,
		    next_number = GREATEST(next_number, $7), date_from = $8, date_to = $9,
		    environment = $10, status = $11, updated_at = $12
		WHERE tenant_id = $1 AND id = $2`
	_, err := r.q.Exec(ctx, query,
		rg.TenantID, rg.ID, rg.ResolutionNumber, rg.TechnicalKey, rg.RangeFrom, rg.RangeTo,
		rg.NextNumber, rg.DateFrom, rg.DateTo, rg.Environment, rg.Status, rg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update numbering range: %w", err)
	}
	return nil
}

func (r *NumberingRepo) Supersede(ctx context.Context, tenantID string) error {
	const query = `
		UPDATE numbering_ranges SET status = 'SUPERSEDED', updated_at = now()
		WHERE tenant_id = $1 AND status <> 'SUPERSEDED'`
	if _, err := r.q.Exec(ctx, query, tenantID); err != nil {
		return fmt.Errorf("supersede numbering ranges: %w", err)
	}
	return nil
}
