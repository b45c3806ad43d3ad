package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

// PDFUseCase representación gráfica de una factura. Solo hay PDF cuando el documento
// electrónico ya está firmado (tiene CUFE).
type PDFUseCase struct {
	invoices  repository.InvoiceRepository
	filing    repository.FilingRepository
	companies repository.CompanyRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	sales     repository.SaleRepository
	generator InvoicePDFGenerator
}

// NewPDFUseCase construye el caso de uso sobre repositorios fuera de transacción.
func NewPDFUseCase(repos repository.TxRepos, generator InvoicePDFGenerator) *PDFUseCase {
	return &PDFUseCase{
		invoices:  repos.Invoices,
		filing:    repos.Filing,
		companies: repos.Companies,
		customers: repos.Customers,
		products:  repos.Products,
		sales:     repos.Sales,
		generator: generator,
	}
}

// DownloadInvoicePDF devuelve el PDF y su nombre de archivo.
// domain.ErrNotFound si la factura no es de la empresa; domain.ErrConflict si aún no está firmada.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, tenantID, invoiceID string, format PDFFormat) ([]byte, string, error) {
	inv, err := uc.invoices.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}
	doc, err := uc.filing.GetByInvoiceID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener documento electrónico: %w", err)
	}
	if doc == nil || doc.CUFE == "" {
		return nil, "", fmt.Errorf("%w: el documento electrónico aún no está firmado, espere antes de descargar el PDF", domain.ErrConflict)
	}

	data, err := uc.load(ctx, tenantID, inv)
	if err != nil {
		return nil, "", err
	}
	data.Format = format
	data.CUFE = doc.CUFE
	data.QRData = doc.QRData
	data.FilingStatus = doc.Status

	out, err := uc.generator.GenerateInvoicePDF(ctx, data)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	name := "factura_" + inv.FullNumber()
	if format == PDFFormatReceipt {
		name = "tirilla_" + inv.FullNumber()
	}
	return out, name + ".pdf", nil
}

// load empresa, adquiriente, venta y líneas con el nombre del producto.
func (uc *PDFUseCase) load(ctx context.Context, tenantID string, inv *entity.Invoice) (InvoicePDFData, error) {
	company, err := uc.companies.GetByID(ctx, tenantID)
	if err != nil {
		return InvoicePDFData{}, fmt.Errorf("pdf: obtener empresa: %w", err)
	}
	if company == nil {
		return InvoicePDFData{}, domain.ErrNotFound
	}
	data := InvoicePDFData{Invoice: inv, Company: company, Customer: entity.FinalConsumer(tenantID)}

	if inv.CustomerID != "" {
		c, err := uc.customers.GetByID(ctx, tenantID, inv.CustomerID)
		if err != nil {
			return InvoicePDFData{}, fmt.Errorf("pdf: obtener cliente: %w", err)
		}
		if c != nil {
			data.Customer = c
		}
	}
	if inv.SaleID != "" {
		if data.Sale, err = uc.sales.GetByID(ctx, tenantID, inv.SaleID); err != nil {
			return InvoicePDFData{}, fmt.Errorf("pdf: obtener venta: %w", err)
		}
	}

	details, err := uc.invoices.GetDetails(ctx, tenantID, inv.ID)
	if err != nil {
		return InvoicePDFData{}, fmt.Errorf("pdf: obtener detalles: %w", err)
	}
	names := make(map[string]string, len(details))
	for _, d := range details {
		name, ok := names[d.ProductID]
		if !ok {
			name = "Producto " + d.ProductID
			if p, err := uc.products.GetByID(ctx, tenantID, d.ProductID); err == nil && p != nil {
				name = p.Name
			}
			names[d.ProductID] = name
		}
		data.Details = append(data.Details, InvoiceDetailForPDF{InvoiceDetail: *d, ProductName: name})
	}
	return data, nil
}
