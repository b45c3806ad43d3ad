package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SaleRepository ventas registradas por el orquestador.
type SaleRepository interface {
	Create(ctx context.Context, s *entity.Sale) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Sale, error)
}

// QuoteRepository cotizaciones.
type QuoteRepository interface {
	Create(ctx context.Context, q *entity.Quote) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Quote, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Quote, error)
	MarkConverted(ctx context.Context, tenantID, id, saleID string) error
}

// PurchaseOrderRepository órdenes de compra.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.PurchaseOrder, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.PurchaseOrder, error)
	MarkReceived(ctx context.Context, tenantID, id, movementID string, at time.Time) error
}

// ReturnRepository devoluciones sobre facturas.
type ReturnRepository interface {
	Create(ctx context.Context, r *entity.SaleReturn) error
	// ReturnedQuantities cantidades ya devueltas por producto para la factura.
	ReturnedQuantities(ctx context.Context, tenantID, invoiceID string) (map[string]decimal.Decimal, error)
}
