package entity

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// InvoiceDetail línea de detalle de una factura.
type InvoiceDetail struct {
	ID        string
	InvoiceID string
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
}

// FormatInvoiceNumber arma el número legal de factura.
func FormatInvoiceNumber(prefix string, number int64) string {
	return strings.TrimSpace(prefix) + strconv.FormatInt(number, 10)
}
