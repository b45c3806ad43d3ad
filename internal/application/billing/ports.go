package billing

import (
	"context"

	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// Notifier despierta al despachador de documentos electrónicos tras confirmar una venta.
type Notifier interface {
	Notify()
}

// Recorder métricas de las operaciones del orquestador.
type Recorder interface {
	SagaResult(operation, result string)
}

// InvoiceDetailForPDF línea de detalle enriquecida con el nombre del producto.
type InvoiceDetailForPDF struct {
	entity.InvoiceDetail
	ProductName string
}

// PDFFormat formato de impresión de la representación gráfica.
type PDFFormat string

const (
	PDFFormatLetter  PDFFormat = "letter"  // hoja A4
	PDFFormatReceipt PDFFormat = "receipt" // tirilla de 80 mm para impresora térmica
)

// ParsePDFFormat vacío equivale a hoja completa.
func ParsePDFFormat(s string) (PDFFormat, error) {
	switch PDFFormat(s) {
	case "", PDFFormatLetter:
		return PDFFormatLetter, nil
	case PDFFormatReceipt:
		return PDFFormatReceipt, nil
	}
	return "", domain.NewValidationError("format", "debe ser uno de: letter receipt")
}

// InvoicePDFData datos de la representación gráfica. CUFE y QR vienen del documento electrónico;
// Sale es nil en facturas que no salieron del punto de venta.
type InvoicePDFData struct {
	Format       PDFFormat
	Invoice      *entity.Invoice
	Company      *entity.Company
	Customer     *entity.Customer
	Sale         *entity.Sale
	Details      []InvoiceDetailForPDF
	CUFE         string
	QRData       string
	FilingStatus string
}

// InvoicePDFGenerator genera el PDF de la factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, data InvoicePDFData) ([]byte, error)
}
