package pdf_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	appbilling "github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/infrastructure/pdf"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfData(format appbilling.PDFFormat) appbilling.InvoicePDFData {
	dec := decimal.RequireFromString
	return appbilling.InvoicePDFData{
		Format: format,
		Invoice: &entity.Invoice{
			ID: "inv-1", Prefix: "SETP", Number: 990000000, Date: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
			NetTotal: dec("25000"), TaxTotal: dec("3800"), GrandTotal: dec("28800"), Status: entity.InvoiceStatusIssued,
		},
		Company:  &entity.Company{ID: "t-1", Name: "Tienda La 14", NIT: "900123456-8", Address: "Cra 7 # 12-30"},
		Customer: entity.FinalConsumer("t-1"),
		Sale: &entity.Sale{
			PaymentMethod: entity.PaymentMethodCash, AmountTendered: dec("30000"), ChangeDue: dec("1200"),
		},
		Details: []appbilling.InvoiceDetailForPDF{
			{InvoiceDetail: entity.InvoiceDetail{ProductID: "p-cafe", Quantity: dec("2"), UnitPrice: dec("10000"), TaxRate: dec("0.19"), Subtotal: dec("20000"), TaxAmount: dec("3800")}, ProductName: "Café 500g"},
			{InvoiceDetail: entity.InvoiceDetail{ProductID: "p-pan", Quantity: dec("1"), UnitPrice: dec("5000"), TaxRate: dec("0"), Subtotal: dec("5000")}, ProductName: "Pan tajado"},
		},
		CUFE:         strings.Repeat("a1", 48),
		QRData:       "NumFac: SETP990000000\nhttps://catalogo-vpfe-hab.dian.gov.co/document/searchqr?documentkey=" + strings.Repeat("a1", 48),
		FilingStatus: entity.FilingStatusAccepted,
	}
}

func TestGenerateInvoicePDF_Formats(t *testing.T) {
	g := pdf.NewMarotoPDFGenerator()
	for _, f := range []appbilling.PDFFormat{appbilling.PDFFormatLetter, appbilling.PDFFormatReceipt} {
		t.Run(string(f), func(t *testing.T) {
			out, err := g.GenerateInvoicePDF(context.Background(), pdfData(f))
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
		})
	}
}

func TestGenerateInvoicePDF_VoidedWithoutSale(t *testing.T) {
	data := pdfData(appbilling.PDFFormatReceipt)
	data.Invoice.Status = entity.InvoiceStatusVoided
	data.Invoice.VoidReason = "error de digitación"
	data.Sale = nil
	data.QRData = ""
	out, err := pdf.NewMarotoPDFGenerator().GenerateInvoicePDF(context.Background(), data)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestGenerateInvoicePDF_MissingData(t *testing.T) {
	data := pdfData(appbilling.PDFFormatLetter)
	data.Company = nil
	_, err := pdf.NewMarotoPDFGenerator().GenerateInvoicePDF(context.Background(), data)
	assert.Error(t, err)
}

func TestParsePDFFormat(t *testing.T) {
	f, err := appbilling.ParsePDFFormat("")
	require.NoError(t, err)
	assert.Equal(t, appbilling.PDFFormatLetter, f)
	f, err = appbilling.ParsePDFFormat("receipt")
	require.NoError(t, err)
	assert.Equal(t, appbilling.PDFFormatReceipt, f)
	_, err = appbilling.ParsePDFFormat("carta")
	assert.Error(t, err)
}
