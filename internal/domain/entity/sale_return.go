package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleReturn devolución parcial o total de una factura.
type SaleReturn struct {
	ID             string
	TenantID       string
	InvoiceID      string
	Reason         string
	RefundAmount   decimal.Decimal
	RefundMethod   string // vacío = sin reembolso en caja
	MovementID     string
	CashMovementID string
	CreatedBy      string
	CreatedAt      time.Time
	Items          []ReturnItem
}

// ReturnItem producto devuelto.
type ReturnItem struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}
