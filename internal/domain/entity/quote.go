package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de cotización.
const (
	QuoteStatusOpen      = "OPEN"
	QuoteStatusConverted = "CONVERTED"
)

// Quote cotización; al convertirse genera una venta completa.
type Quote struct {
	ID         string
	TenantID   string
	CustomerID string
	Status     string
	SaleID     string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Items      []QuoteItem
}

// QuoteItem línea de cotización.
type QuoteItem struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}
