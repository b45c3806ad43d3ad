package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var _ repository.IdempotencyRepository = (*IdempotencyRepo)(nil)

// IdempotencyRepo registros de idempotencia sobre PostgreSQL (usable con pool o tx).
type IdempotencyRepo struct {
	q Querier
}

// NewIdempotencyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIdempotencyRepository(q Querier) *IdempotencyRepo {
	return &IdempotencyRepo{q: q}
}

// Insert la PK (tenant_id, request_key) decide el ganador entre solicitudes concurrentes.
func (r *IdempotencyRepo) Insert(ctx context.Context, rec *entity.IdempotencyRecord) (bool, error) {
	const query = `
		INSERT INTO idempotency_records (tenant_id, request_key, operation_type, request_hash, status, attempt, locked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (tenant_id, request_key) DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		rec.TenantID, rec.RequestKey, rec.OperationType, rec.RequestHash,
		rec.Status, rec.Attempt, rec.LockedUntil, rec.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert idempotency record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get retorna nil, nil si la clave no existe.
func (r *IdempotencyRepo) Get(ctx context.Context, tenantID, key string) (*entity.IdempotencyRecord, error) {
	const query = `
		SELECT tenant_id, request_key, operation_type, request_hash, status, attempt, locked_until,
		       response_code, response_body, error_code, error_message, created_at, updated_at, completed_at
		FROM idempotency_records WHERE tenant_id = $1 AND request_key = $2`
	var rec entity.IdempotencyRecord
	var code *int32
	var errCode, errMsg *string
	err := r.q.QueryRow(ctx, query, tenantID, key).Scan(
		&rec.TenantID, &rec.RequestKey, &rec.OperationType, &rec.RequestHash, &rec.Status,
		&rec.Attempt, &rec.LockedUntil, &code, &rec.ResponseBody, &errCode, &errMsg,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	if code != nil {
		rec.ResponseCode = int(*code)
	}
	rec.ErrorCode = derefStr(errCode)
	rec.ErrorMessage = derefStr(errMsg)
	return &rec, nil
}

// Reclaim solo gana si el registro sigue en el intento observado y su lease venció.
func (r *IdempotencyRepo) Reclaim(ctx context.Context, tenantID, key string, attempt int, now, lockedUntil time.Time) (bool, error) {
	const query = `
		UPDATE idempotency_records
		SET attempt = attempt + 1, locked_until = $5, updated_at = $4
		WHERE tenant_id = $1 AND request_key = $2 AND attempt = $3
		  AND status = 'IN_PROGRESS' AND locked_until <= $4`
	tag, err := r.q.Exec(ctx, query, tenantID, key, attempt, now, lockedUntil)
	if err != nil {
		return false, fmt.Errorf("reclaim idempotency record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IdempotencyRepo) Complete(ctx context.Context, tenantID, key string, attempt, responseCode int, body []byte) error {
	const query = `
		UPDATE idempotency_records
		SET status = 'COMPLETED', response_code = $4, response_body = $5, completed_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND request_key = $2 AND attempt = $3 AND status = 'IN_PROGRESS'`
	tag, err := r.q.Exec(ctx, query, tenantID, key, attempt, responseCode, body)
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}

func (r *IdempotencyRepo) Fail(ctx context.Context, tenantID, key string, attempt int, code, message string) error {
	const query = `
		UPDATE idempotency_records
		SET status = 'FAILED', error_code = $4, error_message = $5, completed_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND request_key = $2 AND attempt = $3 AND status = 'IN_PROGRESS'`
	tag, err := r.q.Exec(ctx, query, tenantID, key, attempt, code, message)
	if err != nil {
		return fmt.Errorf("fail idempotency record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}

func (r *IdempotencyRepo) Release(ctx context.Context, tenantID, key string, attempt int) error {
	const query = `
		UPDATE idempotency_records
		SET locked_until = now(), updated_at = now()
		WHERE tenant_id = $1 AND request_key = $2 AND attempt = $3 AND status = 'IN_PROGRESS'`
	if _, err := r.q.Exec(ctx, query, tenantID, key, attempt); err != nil {
		return fmt.Errorf("release idempotency record: %w", err)
	}
	return nil
}
