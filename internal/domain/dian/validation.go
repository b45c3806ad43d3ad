// Package dian reglas de dominio del documento electrónico: CUFE y coherencia de la factura
// antes de armar el XML.
package dian

import (
	"errors"
	"fmt"

	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/pkg/dian"
	"github.com/shopspring/decimal"
)

// ErrInvalidInvoice envuelve todos los hallazgos de ValidateInvoice.
var ErrInvalidInvoice = errors.New("factura inválida para DIAN")

type findings []error

func (f *findings) addf(format string, args ...any) {
	*f = append(*f, fmt.Errorf(format, args...))
}

func (f findings) err() error {
	if len(f) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidInvoice}, f...)...)
}

// ValidateInvoice revisa que los totales del encabezado salgan de las líneas (impuesto por
// línea redondeado a 2 decimales) y, si el adquiriente se identifica con NIT (tipo 31), que
// su dígito de verificación sea correcto. Reporta todos los hallazgos juntos.
func ValidateInvoice(inv *entity.Invoice, lines []*entity.InvoiceDetail, idType, taxID string) error {
	if inv == nil {
		return fmt.Errorf("%w: factura nula", ErrInvalidInvoice)
	}
	var f findings
	if idType == dian.IdentificationTypeNIT {
		if err := dian.ValidateNITVerificationDigit(taxID); err != nil {
			f.addf("adquiriente: %w", err)
		}
	}
	if len(lines) == 0 {
		f.addf("sin líneas")
		return f.err()
	}

	net, tax := decimal.Zero, decimal.Zero
	for i, l := range lines {
		if !l.Quantity.IsPositive() {
			f.addf("línea %d (%s): cantidad %s no positiva", i+1, l.ProductID, l.Quantity)
		}
		want := l.Subtotal.Mul(l.TaxRate).Round(2)
		if !l.TaxAmount.IsZero() && !l.TaxAmount.Equal(want) {
			f.addf("línea %d (%s): impuesto %s, esperado %s", i+1, l.ProductID, l.TaxAmount, want)
		}
		net = net.Add(l.Subtotal)
		tax = tax.Add(want)
	}
	net, tax = net.Round(2), tax.Round(2)

	for _, c := range []struct {
		name      string
		got, want decimal.Decimal
	}{
		{"subtotal", inv.NetTotal, net},
		{"impuestos", inv.TaxTotal, tax},
		{"total", inv.GrandTotal, net.Add(tax)},
	} {
		if !c.got.Equal(c.want) {
			f.addf("%s %s no cuadra con las líneas (%s)", c.name, c.got, c.want)
		}
	}
	return f.err()
}
