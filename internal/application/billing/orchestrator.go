// Package billing orquesta las operaciones de punto de venta: venta, conversión de cotización,
// recepción de compras, devoluciones y anulación de facturas.
package billing

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/application/cash"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/inventory"
	"github.com/jhoicas/pos-core/internal/application/numbering"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Tipos de operación registrados en idempotencia.
const (
	OperationSale         = "sale.create"
	OperationConvertQuote = "quote.convert"
	OperationCreateQuote  = "quote.create"
	OperationCreatePO     = "purchase_order.create"
	OperationReceivePO    = "purchase_order.receive"
	OperationCreateReturn = "return.create"
	OperationVoidInvoice  = "invoice.void"
)

var hundred = decimal.NewFromInt(100)

// Orchestrator ejecuta cada operación como una única transacción local detrás del gate de
// idempotencia. El envío a la DIAN queda como trabajo durable para el despachador.
type Orchestrator struct {
	gate      *idempotency.Gate
	numbers   *numbering.Allocator
	inventory *inventory.Ledger
	cash      *cash.Ledger
	notifier  Notifier
	metrics   Recorder
	log       zerolog.Logger
}

// NewOrchestrator construye el orquestador. notifier y metrics pueden ser nil.
func NewOrchestrator(
	gate *idempotency.Gate,
	numbers *numbering.Allocator,
	inv *inventory.Ledger,
	cashLedger *cash.Ledger,
	notifier Notifier,
	metrics Recorder,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		gate:      gate,
		numbers:   numbers,
		inventory: inv,
		cash:      cashLedger,
		notifier:  notifier,
		metrics:   metrics,
		log:       log,
	}
}

// saleLine línea a facturar.
type saleLine struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
}

// saleInput entrada común de venta directa y conversión de cotización.
type saleInput struct {
	CustomerID     string
	CashSessionID  string
	PaymentMethod  string
	AmountTendered *decimal.Decimal
	QuoteID        string
	CreatedBy      string
	Lines          []saleLine
}

// pricedLine línea valorizada.
type pricedLine struct {
	product   *entity.Product
	quantity  decimal.Decimal
	unitPrice decimal.Decimal
	taxRate   decimal.Decimal
	subtotal  decimal.Decimal
	taxAmount decimal.Decimal
}

// CreateSale registra una venta: número de factura, salida de inventario, ingreso de caja,
// factura emitida y documento electrónico pendiente. Todo o nada.
func (o *Orchestrator) CreateSale(ctx context.Context, tenantID, userID, key string, req dto.CreateSaleRequest) (*idempotency.Outcome[dto.SaleResponse], error) {
	in := saleInput{
		CustomerID:     req.CustomerID,
		CashSessionID:  req.CashSessionID,
		PaymentMethod:  req.PaymentMethod,
		AmountTendered: req.AmountTendered,
		CreatedBy:      userID,
	}
	for _, it := range req.Items {
		in.Lines = append(in.Lines, saleLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	out, err := idempotency.Execute(ctx, o.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationSale,
		Payload:       req,
		SuccessStatus: http.StatusCreated,
	}, func(ctx context.Context, r repository.TxRepos) (dto.SaleResponse, error) {
		return o.executeSale(ctx, r, tenantID, in)
	})
	o.afterSale(OperationSale, out, err)
	return out, err
}

// ConvertQuote convierte una cotización abierta en venta con sus mismas líneas y precios.
func (o *Orchestrator) ConvertQuote(ctx context.Context, tenantID, userID, key, quoteID string, req dto.ConvertQuoteRequest) (*idempotency.Outcome[dto.SaleResponse], error) {
	payload := struct {
		QuoteID string                  `json:"quote_id"`
		Convert dto.ConvertQuoteRequest `json:"convert"`
	}{quoteID, req}
	out, err := idempotency.Execute(ctx, o.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationConvertQuote,
		Payload:       payload,
		SuccessStatus: http.StatusCreated,
	}, func(ctx context.Context, r repository.TxRepos) (dto.SaleResponse, error) {
		q, err := r.Quotes.GetForUpdate(ctx, tenantID, quoteID)
		if err != nil {
			return dto.SaleResponse{}, err
		}
		if q == nil {
			return dto.SaleResponse{}, domain.ErrNotFound
		}
		if q.Status != entity.QuoteStatusOpen {
			return dto.SaleResponse{}, domain.ErrQuoteNotOpen
		}
		in := saleInput{
			CustomerID:     q.CustomerID,
			CashSessionID:  req.CashSessionID,
			PaymentMethod:  req.PaymentMethod,
			AmountTendered: req.AmountTendered,
			QuoteID:        q.ID,
			CreatedBy:      userID,
		}
		for _, it := range q.Items {
			price := it.UnitPrice
			in.Lines = append(in.Lines, saleLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: &price})
		}
		resp, err := o.executeSale(ctx, r, tenantID, in)
		if err != nil {
			return dto.SaleResponse{}, err
		}
		if err := r.Quotes.MarkConverted(ctx, tenantID, q.ID, resp.SaleID); err != nil {
			return dto.SaleResponse{}, err
		}
		return resp, nil
	})
	o.afterSale(OperationConvertQuote, out, err)
	return out, err
}

// executeSale pasos de la venta dentro de la transacción del gate. Cualquier error revierte
// todo, incluido el consecutivo asignado.
func (o *Orchestrator) executeSale(ctx context.Context, r repository.TxRepos, tenantID string, in saleInput) (dto.SaleResponse, error) {
	// ── 1. Validación (solo lectura) ──────────────────────────────────────────
	lines, err := o.priceLines(ctx, r, tenantID, in.Lines)
	if err != nil {
		return dto.SaleResponse{}, err
	}
	if in.CustomerID != "" {
		c, err := r.Customers.GetByID(ctx, tenantID, in.CustomerID)
		if err != nil {
			return dto.SaleResponse{}, err
		}
		if c == nil {
			return dto.SaleResponse{}, domain.NewValidationError("customer_id", "cliente no encontrado")
		}
	}
	var netTotal, taxTotal decimal.Decimal
	for _, l := range lines {
		netTotal = netTotal.Add(l.subtotal)
		taxTotal = taxTotal.Add(l.taxAmount)
	}
	grandTotal := netTotal.Add(taxTotal)
	tendered, change, err := settlePayment(in.PaymentMethod, in.AmountTendered, grandTotal)
	if err != nil {
		return dto.SaleResponse{}, err
	}
	session, err := o.cash.ResolveSession(ctx, r, tenantID, in.CashSessionID)
	if err != nil {
		return dto.SaleResponse{}, err
	}

	now := time.Now().UTC()
	saleID := uuid.New().String()
	invoiceID := uuid.New().String()

	// ── 2. Consecutivo ────────────────────────────────────────────────────────
	alloc, err := o.numbers.Allocate(ctx, r, tenantID, now)
	if err != nil {
		return dto.SaleResponse{}, err
	}

	// ── 3. Salida de inventario ───────────────────────────────────────────────
	movIn := inventory.MovementInput{
		Type:         entity.MovementTypeOUT,
		CausedByType: entity.CauseSale,
		CausedByID:   saleID,
		Note:         alloc.Formatted,
		CreatedBy:    in.CreatedBy,
	}
	for _, l := range lines {
		movIn.Items = append(movIn.Items, inventory.MovementLine{ProductID: l.product.ID, Quantity: l.quantity})
	}
	mov, err := o.inventory.Apply(ctx, r, tenantID, movIn)
	if err != nil {
		return dto.SaleResponse{}, err
	}

	// ── 4. Ingreso de caja por el total ───────────────────────────────────────
	cashMov, err := o.cash.AddMovementTx(ctx, r, tenantID, cash.MovementInput{
		SessionID:     session.ID,
		Type:          entity.CashMovementIN,
		Method:        in.PaymentMethod,
		Amount:        grandTotal,
		Reference:     alloc.Formatted,
		RelatedSaleID: saleID,
		CreatedBy:     in.CreatedBy,
	})
	if err != nil {
		return dto.SaleResponse{}, err
	}

	// ── 5. Factura, detalle y venta ───────────────────────────────────────────
	inv := &entity.Invoice{
		ID:         invoiceID,
		TenantID:   tenantID,
		SaleID:     saleID,
		CustomerID: in.CustomerID,
		RangeID:    alloc.RangeID,
		Prefix:     alloc.Prefix,
		Number:     alloc.Number,
		Date:       now,
		NetTotal:   netTotal,
		TaxTotal:   taxTotal,
		GrandTotal: grandTotal,
		Status:     entity.InvoiceStatusIssued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	details := make([]*entity.InvoiceDetail, 0, len(lines))
	for _, l := range lines {
		details = append(details, &entity.InvoiceDetail{
			ID:        uuid.New().String(),
			InvoiceID: invoiceID,
			ProductID: l.product.ID,
			Quantity:  l.quantity,
			UnitPrice: l.unitPrice,
			TaxRate:   l.taxRate,
			Subtotal:  l.subtotal,
			TaxAmount: l.taxAmount,
		})
	}
	if err := r.Invoices.Create(ctx, inv, details); err != nil {
		return dto.SaleResponse{}, err
	}
	sale := &entity.Sale{
		ID:             saleID,
		TenantID:       tenantID,
		InvoiceID:      invoiceID,
		QuoteID:        in.QuoteID,
		CustomerID:     in.CustomerID,
		CashSessionID:  session.ID,
		MovementID:     mov.ID,
		CashMovementID: cashMov.ID,
		PaymentMethod:  in.PaymentMethod,
		AmountTendered: tendered,
		ChangeDue:      change,
		CreatedBy:      in.CreatedBy,
		CreatedAt:      now,
	}
	if err := r.Sales.Create(ctx, sale); err != nil {
		return dto.SaleResponse{}, err
	}

	// ── 6. Documento electrónico pendiente (lo procesa el despachador) ────────
	doc := &entity.FilingDocument{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		InvoiceID:     invoiceID,
		Status:        entity.FilingStatusDraft,
		NextAttemptAt: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.Filing.Create(ctx, doc); err != nil {
		return dto.SaleResponse{}, err
	}

	o.log.Info().Str("tenant_id", tenantID).Str("sale_id", saleID).Str("invoice_number", alloc.Formatted).
		Str("grand_total", grandTotal.String()).Msg("venta registrada")

	return dto.SaleResponse{
		SaleID:           saleID,
		InvoiceID:        invoiceID,
		InvoiceNumber:    alloc.Formatted,
		Prefix:           alloc.Prefix,
		Number:           alloc.Number,
		FilingDocumentID: doc.ID,
		QuoteID:          in.QuoteID,
		CustomerID:       in.CustomerID,
		CashSessionID:    session.ID,
		MovementID:       mov.ID,
		CashMovementID:   cashMov.ID,
		PaymentMethod:    in.PaymentMethod,
		NetTotal:         netTotal,
		TaxTotal:         taxTotal,
		GrandTotal:       grandTotal,
		AmountTendered:   tendered,
		ChangeDue:        change,
		Status:           inv.Status,
		CreatedAt:        dto.FormatTime(now),
		Items:            toSaleLines(details),
		NumbersRemaining: alloc.Remaining,
		LowNumberRange:   o.numbers.IsLow(alloc.Remaining),
	}, nil
}

// priceLines valida productos y calcula subtotales e IVA por línea.
func (o *Orchestrator) priceLines(ctx context.Context, r repository.TxRepos, tenantID string, in []saleLine) ([]pricedLine, error) {
	if len(in) == 0 {
		return nil, domain.NewValidationError("items", "es obligatorio")
	}
	out := make([]pricedLine, 0, len(in))
	for i, it := range in {
		field := fmt.Sprintf("items[%d]", i)
		if !it.Quantity.IsPositive() {
			return nil, domain.NewValidationError(field+".quantity", "debe ser mayor que 0")
		}
		p, err := r.Products.GetByID(ctx, tenantID, it.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, domain.NewValidationError(field+".product_id", "producto no encontrado")
		}
		if !p.IsActive {
			return nil, domain.NewValidationError(field+".product_id", "producto inactivo")
		}
		price := p.Price
		if it.UnitPrice != nil {
			if it.UnitPrice.IsNegative() {
				return nil, domain.NewValidationError(field+".unit_price", "debe ser mayor o igual a 0")
			}
			price = *it.UnitPrice
		}
		rate := normalizeTaxRate(p.TaxRate)
		subtotal := it.Quantity.Mul(price).Round(2)
		out = append(out, pricedLine{
			product:   p,
			quantity:  it.Quantity,
			unitPrice: price,
			taxRate:   rate,
			subtotal:  subtotal,
			taxAmount: subtotal.Mul(rate).Round(2),
		})
	}
	return out, nil
}

// settlePayment monto recibido y vueltas. Solo el efectivo admite pagar de más.
func settlePayment(method string, tendered *decimal.Decimal, total decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	switch method {
	case entity.PaymentMethodCash, entity.PaymentMethodCard, entity.PaymentMethodTransfer:
	default:
		return decimal.Zero, decimal.Zero, domain.NewValidationError("payment_method", "debe ser uno de: CASH CARD TRANSFER")
	}
	if !total.IsPositive() {
		return decimal.Zero, decimal.Zero, domain.NewValidationError("items", "el total de la venta debe ser mayor que 0")
	}
	if tendered == nil {
		return total, decimal.Zero, nil
	}
	switch {
	case tendered.LessThan(total):
		return decimal.Zero, decimal.Zero, domain.NewValidationError("amount_tendered", "es menor que el total de la venta")
	case tendered.GreaterThan(total) && method != entity.PaymentMethodCash:
		return decimal.Zero, decimal.Zero, domain.NewValidationError("amount_tendered", "solo el pago en efectivo puede superar el total")
	}
	return *tendered, tendered.Sub(total), nil
}

// normalizeTaxRate acepta la tarifa como fracción (0.19) o porcentaje (19).
func normalizeTaxRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.Div(hundred)
	}
	return rate
}

func toSaleLines(details []*entity.InvoiceDetail) []dto.SaleLineResponse {
	out := make([]dto.SaleLineResponse, 0, len(details))
	for _, d := range details {
		out = append(out, dto.SaleLineResponse{
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
			TaxRate:   d.TaxRate,
			Subtotal:  d.Subtotal,
			TaxAmount: d.TaxAmount,
		})
	}
	return out
}

// afterSale tras confirmar una venta nueva despierta al despachador. Las repeticiones no.
func (o *Orchestrator) afterSale(operation string, out *idempotency.Outcome[dto.SaleResponse], err error) {
	o.record(operation, err, out != nil && out.Replayed)
	if err != nil || out.Replayed {
		return
	}
	if o.notifier != nil {
		o.notifier.Notify()
	}
}

func (o *Orchestrator) record(operation string, err error, replayed bool) {
	if o.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case replayed:
		result = "replayed"
	case err != nil:
		result = strings.ToLower(string(domain.KindOf(err)))
	}
	o.metrics.SagaResult(operation, result)
}
