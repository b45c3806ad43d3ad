package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y detalles.
type InvoiceRepository interface {
	// Create guarda cabecera y detalles. (empresa, prefijo, número) es único.
	Create(ctx context.Context, inv *entity.Invoice, details []*entity.InvoiceDetail) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Invoice, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Invoice, error)
	GetDetails(ctx context.Context, tenantID, invoiceID string) ([]*entity.InvoiceDetail, error)
	// Void ISSUED → VOIDED; domain.ErrInvalidTransition si no estaba emitida.
	Void(ctx context.Context, tenantID, id, reason string, at time.Time) error
}
