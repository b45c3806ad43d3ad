package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale venta registrada por el orquestador. Las líneas viven en InvoiceDetail.
type Sale struct {
	ID             string
	TenantID       string
	InvoiceID      string
	QuoteID        string
	CustomerID     string
	CashSessionID  string
	MovementID     string // movimiento OUT de inventario
	CashMovementID string
	PaymentMethod  string
	AmountTendered decimal.Decimal
	ChangeDue      decimal.Decimal
	CreatedBy      string
	CreatedAt      time.Time
}
