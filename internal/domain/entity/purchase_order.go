package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de orden de compra.
const (
	PurchaseOrderOpen     = "OPEN"
	PurchaseOrderReceived = "RECEIVED"
)

// PurchaseOrder orden de compra a proveedor; su recepción solo toca inventario.
type PurchaseOrder struct {
	ID         string
	TenantID   string
	Supplier   string
	Status     string
	MovementID string
	ReceivedAt *time.Time
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Items      []PurchaseOrderItem
}

// PurchaseOrderItem línea de la orden con el costo unitario pactado.
type PurchaseOrderItem struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}
