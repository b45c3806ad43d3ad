// Package pdf representación gráfica de la factura electrónica DIAN (Resolución 000042/2020)
// en dos formatos: hoja A4 y tirilla de 80 mm para impresora térmica de punto de venta.
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	appbilling "github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorVoided  = &props.Color{Red: 180, Green: 30, Blue: 30}
)

// separador de miles con punto, como se imprime en Colombia.
var moneyPrinter = message.NewPrinter(language.MustParse("es-CO"))

// ancho de la tirilla y margen lateral, en mm.
const (
	receiptWidth  = 80
	receiptMargin = 3
)

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator con Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF arma el documento en el formato pedido y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(_ context.Context, data appbilling.InvoicePDFData) ([]byte, error) {
	if data.Invoice == nil || data.Company == nil || data.Customer == nil {
		return nil, fmt.Errorf("pdf: faltan datos de factura, empresa o adquiriente")
	}

	var (
		m    core.Maroto
		rows []core.Row
	)
	switch data.Format {
	case appbilling.PDFFormatReceipt:
		m = maroto.New(config.NewBuilder().
			WithDimensions(receiptWidth, 297).
			WithLeftMargin(receiptMargin).WithRightMargin(receiptMargin).
			WithTopMargin(4).WithBottomMargin(4).
			WithDefaultFont(&props.Font{Family: "courier", Size: 7}).
			WithTitle("Tirilla "+data.Invoice.FullNumber(), true).
			WithAuthor(data.Company.Name, true).
			Build())
		rows = receiptRows(data)
	default:
		m = maroto.New(config.NewBuilder().
			WithPageSize(pagesize.A4).
			WithLeftMargin(10).WithRightMargin(10).
			WithTopMargin(10).WithBottomMargin(10).
			WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
			WithTitle("Factura Electrónica DIAN", true).
			WithAuthor(data.Company.Name, true).
			Build())
		rows = letterRows(data)
	}
	m.AddRows(rows...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// money "$25.000" sin decimales; los negativos conservan el signo antes del símbolo.
func money(d decimal.Decimal) string {
	n := d.Round(0).IntPart()
	if n < 0 {
		return "-$" + moneyPrinter.Sprintf("%d", -n)
	}
	return "$" + moneyPrinter.Sprintf("%d", n)
}

// percent tasa fraccionaria como porcentaje entero (0.19 → "19%").
func percent(rate decimal.Decimal) string {
	return rate.Shift(2).StringFixed(0) + "%"
}

// quantity sin decimales cuando la cantidad es entera.
func quantity(q decimal.Decimal) string {
	if q.Equal(q.Truncate(0)) {
		return q.StringFixed(0)
	}
	return q.StringFixed(2)
}

func paymentLabel(method string) string {
	switch method {
	case entity.PaymentMethodCash:
		return "Efectivo"
	case entity.PaymentMethodCard:
		return "Tarjeta"
	case entity.PaymentMethodTransfer:
		return "Transferencia"
	}
	return method
}

// filingNote leyenda según el estado del documento ante la DIAN.
func filingNote(status string) string {
	switch status {
	case entity.FilingStatusAccepted:
		return "Validada por la DIAN"
	case entity.FilingStatusRejected:
		return "Rechazada por la DIAN: documento sin validez fiscal"
	}
	return "Pendiente de validación DIAN"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

// chunks parte s en trozos de n caracteres (el CUFE no cabe en una línea).
func chunks(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
