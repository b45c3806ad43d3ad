package billing

import (
	"context"
	"time"

	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

// InvoiceQueryUseCase consultas de facturas y de su estado ante la DIAN.
type InvoiceQueryUseCase struct {
	invoiceRepo  repository.InvoiceRepository
	filingRepo   repository.FilingRepository
	customerRepo repository.CustomerRepository
}

// NewInvoiceQueryUseCase construye el caso de uso.
func NewInvoiceQueryUseCase(
	invoiceRepo repository.InvoiceRepository,
	filingRepo repository.FilingRepository,
	customerRepo repository.CustomerRepository,
) *InvoiceQueryUseCase {
	return &InvoiceQueryUseCase{invoiceRepo: invoiceRepo, filingRepo: filingRepo, customerRepo: customerRepo}
}

// GetInvoice obtiene una factura por ID con su detalle completo y el estado del documento electrónico.
func (uc *InvoiceQueryUseCase) GetInvoice(ctx context.Context, tenantID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	details, err := uc.invoiceRepo.GetDetails(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	customerName := entity.FinalConsumer(tenantID).Name
	if inv.CustomerID != "" {
		if c, _ := uc.customerRepo.GetByID(ctx, tenantID, inv.CustomerID); c != nil {
			customerName = c.Name
		}
	}
	doc, err := uc.filingRepo.GetByInvoiceID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := toInvoiceResponse(inv, customerName, details, doc)
	return &resp, nil
}

// GetInvoiceStatus estado del documento electrónico de la factura (polling del frontend).
func (uc *InvoiceQueryUseCase) GetInvoiceStatus(ctx context.Context, tenantID, id string) (*dto.FilingStatusResponse, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	doc, err := uc.filingRepo.GetByInvoiceID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return ToFilingStatusResponse(doc), nil
}

func toInvoiceResponse(inv *entity.Invoice, customerName string, details []*entity.InvoiceDetail, doc *entity.FilingDocument) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:           inv.ID,
		SaleID:       inv.SaleID,
		CustomerID:   inv.CustomerID,
		CustomerName: customerName,
		Prefix:       inv.Prefix,
		Number:       inv.Number,
		FullNumber:   inv.FullNumber(),
		Date:         inv.Date.Format(time.DateOnly),
		NetTotal:     inv.NetTotal,
		TaxTotal:     inv.TaxTotal,
		GrandTotal:   inv.GrandTotal,
		Status:       inv.Status,
		VoidReason:   inv.VoidReason,
		Details:      make([]dto.InvoiceDetailResponse, 0, len(details)),
	}
	if doc != nil {
		resp.Filing = ToFilingStatusResponse(doc)
	}
	for _, d := range details {
		resp.Details = append(resp.Details, dto.InvoiceDetailResponse{
			ID:        d.ID,
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
			TaxRate:   d.TaxRate,
			Subtotal:  d.Subtotal,
			TaxAmount: d.TaxAmount,
		})
	}
	return resp
}

// ToFilingStatusResponse mapea el documento electrónico.
func ToFilingStatusResponse(doc *entity.FilingDocument) *dto.FilingStatusResponse {
	return &dto.FilingStatusResponse{
		ID:            doc.ID,
		InvoiceID:     doc.InvoiceID,
		Status:        doc.Status,
		Attempts:      doc.Attempts,
		NextAttemptAt: dto.FormatTimePtr(doc.NextAttemptAt),
		TrackID:       doc.TrackID,
		CUFE:          doc.CUFE,
		QRData:        doc.QRData,
		LastError:     doc.LastError,
	}
}
