package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// FilingRepository cola durable de documentos electrónicos.
type FilingRepository interface {
	Create(ctx context.Context, d *entity.FilingDocument) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.FilingDocument, error)
	GetByInvoiceID(ctx context.Context, tenantID, invoiceID string) (*entity.FilingDocument, error)
	// ClaimDue toma hasta limit documentos pendientes y vencidos (FOR UPDATE SKIP LOCKED)
	// y los marca con el lease del worker.
	ClaimDue(ctx context.Context, workerID string, now time.Time, lease time.Duration, limit int) ([]*entity.FilingDocument, error)
	// Save persiste el documento si sigue en expectedStatus y con el lease del worker,
	// liberando el lease. domain.ErrLeaseLost si no.
	Save(ctx context.Context, d *entity.FilingDocument, expectedStatus string) error
	// Requeue reprograma un documento sin reintentos pendientes. No aplica a estados terminales.
	Requeue(ctx context.Context, tenantID, id string, now time.Time) (*entity.FilingDocument, error)
}
