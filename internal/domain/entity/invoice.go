package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la factura (documento legal).
const (
	InvoiceStatusDraft  = "DRAFT"
	InvoiceStatusIssued = "ISSUED"
	InvoiceStatusVoided = "VOIDED"
)

// Invoice cabecera de factura. Solo existe con un número asignado por el rango vigente.
type Invoice struct {
	ID         string
	TenantID   string
	SaleID     string
	CustomerID string // vacío = consumidor final
	RangeID    string // rango de numeración del que salió el consecutivo
	Prefix     string
	Number     int64
	Date       time.Time
	NetTotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
	Status     string
	VoidReason string
	VoidedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullNumber número legal (prefijo + consecutivo, sin separador).
func (i *Invoice) FullNumber() string {
	return FormatInvoiceNumber(i.Prefix, i.Number)
}

// CanVoid solo una factura emitida se puede anular.
func (i *Invoice) CanVoid() bool { return i.Status == InvoiceStatusIssued }
