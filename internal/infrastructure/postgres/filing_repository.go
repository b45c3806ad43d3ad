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

var _ repository.FilingRepository = (*FilingRepo)(nil)

// FilingRepo cola durable de documentos DIAN sobre PostgreSQL.
type FilingRepo struct {
	q Querier
}

// NewFilingRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFilingRepository(q Querier) *FilingRepo {
	return &FilingRepo{q: q}
}

const filingColumns = `id, tenant_id, invoice_id, status, attempts, next_attempt_at, locked_by, locked_until,
	track_id, cufe, qr_data, signed_xml, zip_name, last_error, created_at, updated_at, completed_at`

func scanFiling(row pgxScanner) (*entity.FilingDocument, error) {
	var d entity.FilingDocument
	err := row.Scan(
		&d.ID, &d.TenantID, &d.InvoiceID, &d.Status, &d.Attempts, &d.NextAttemptAt, &d.LockedBy, &d.LockedUntil,
		&d.TrackID, &d.CUFE, &d.QRData, &d.SignedXML, &d.ZipName, &d.LastError, &d.CreatedAt, &d.UpdatedAt, &d.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create un documento por factura; se inserta en la misma tx que la factura.
func (r *FilingRepo) Create(ctx context.Context, d *entity.FilingDocument) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `INSERT INTO filing_documents (` + filingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.TenantID, d.InvoiceID, d.Status, d.Attempts, d.NextAttemptAt, d.LockedBy, d.LockedUntil,
		d.TrackID, d.CUFE, d.QRData, d.SignedXML, d.ZipName, d.LastError, d.CreatedAt, d.UpdatedAt, d.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert filing document: %w", err)
	}
	return nil
}

func (r *FilingRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.FilingDocument, error) {
	query := `SELECT ` + filingColumns + ` FROM filing_documents WHERE tenant_id = $1 AND id = $2`
	return r.getOne(ctx, query, tenantID, id)
}

func (r *FilingRepo) GetByInvoiceID(ctx context.Context, tenantID, invoiceID string) (*entity.FilingDocument, error) {
	query := `SELECT ` + filingColumns + ` FROM filing_documents WHERE tenant_id = $1 AND invoice_id = $2`
	return r.getOne(ctx, query, tenantID, invoiceID)
}

func (r *FilingRepo) getOne(ctx context.Context, query string, args ...any) (*entity.FilingDocument, error) {
	d, err := scanFiling(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get filing document: %w", err)
	}
	return d, nil
}

// ClaimDue SKIP LOCKED reparte los documentos entre instancias sin que dos tomen el mismo.
func (r *FilingRepo) ClaimDue(ctx context.Context, workerID string, now time.Time, lease time.Duration, limit int) ([]*entity.FilingDocument, error) {
	query := `
		UPDATE filing_documents
		SET locked_by = $1, locked_until = $2
		WHERE id IN (
			SELECT id FROM filing_documents
			WHERE status IN ('DRAFT', 'SIGNED', 'SENT')
			  AND next_attempt_at IS NOT NULL AND next_attempt_at <= $3
			  AND (locked_until IS NULL OR locked_until <= $3)
			ORDER BY next_attempt_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + filingColumns
	rows, err := r.q.Query(ctx, query, workerID, now.Add(lease), now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim filing documents: %w", err)
	}
	defer rows.Close()
	var list []*entity.FilingDocument
	for rows.Next() {
		d, err := scanFiling(rows)
		if err != nil {
			return nil, fmt.Errorf("scan filing document: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// Save compare-and-set sobre (status, locked_by); libera el lease.
func (r *FilingRepo) Save(ctx context.Context, d *entity.FilingDocument, expectedStatus string) error {
	const query = `
		UPDATE filing_documents
		SET status = $4, attempts = $5, next_attempt_at = $6, locked_by = '', locked_until = NULL,
		    track_id = $7, cufe = $8, qr_data = $9, signed_xml = $10, zip_name = $11, last_error = $12,
		    updated_at = $13, completed_at = $14
		WHERE id = $1 AND status = $2 AND locked_by = $3`
	tag, err := r.q.Exec(ctx, query,
		d.ID, expectedStatus, d.LockedBy,
		d.Status, d.Attempts, d.NextAttemptAt, d.TrackID, d.CUFE, d.QRData, d.SignedXML, d.ZipName, d.LastError,
		d.UpdatedAt, d.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save filing document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeaseLost
	}
	d.LockedBy = ""
	d.LockedUntil = nil
	return nil
}

// Requeue solo aplica a documentos no terminales sin próximo intento (reintentos agotados).
func (r *FilingRepo) Requeue(ctx context.Context, tenantID, id string, now time.Time) (*entity.FilingDocument, error) {
	query := `
		UPDATE filing_documents
		SET attempts = 0, next_attempt_at = $3, last_error = '', updated_at = $3
		WHERE tenant_id = $1 AND id = $2
		  AND status IN ('DRAFT', 'SIGNED', 'SENT') AND next_attempt_at IS NULL
		RETURNING ` + filingColumns
	d, err := scanFiling(r.q.QueryRow(ctx, query, tenantID, id, now))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("requeue filing document: %w", err)
	}
	cur, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrInvalidTransition
}
