package billing

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/application/cash"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/inventory"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ── Cotizaciones ──────────────────────────────────────────────────────────────

// CreateQuote guarda una cotización con los precios vigentes. No toca inventario ni caja.
func (o *Orchestrator) CreateQuote(ctx context.Context, tenantID, userID, key string, req dto.CreateQuoteRequest) (*idempotency.Outcome[dto.QuoteResponse], error) {
	out, err := idempotency.Execute(ctx, o.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationCreateQuote,
		Payload:       req,
		SuccessStatus: http.StatusCreated,
	}, func(ctx context.Context, r repository.TxRepos) (dto.QuoteResponse, error) {
		lines := make([]saleLine, 0, len(req.Items))
		for _, it := range req.Items {
			lines = append(lines, saleLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
		}
		priced, err := o.priceLines(ctx, r, tenantID, lines)
		if err != nil {
			return dto.QuoteResponse{}, err
		}
		if req.CustomerID != "" {
			c, err := r.Customers.GetByID(ctx, tenantID, req.CustomerID)
			if err != nil {
				return dto.QuoteResponse{}, err
			}
			if c == nil {
				return dto.QuoteResponse{}, domain.NewValidationError("customer_id", "cliente no encontrado")
			}
		}
		now := time.Now().UTC()
		q := &entity.Quote{
			ID:         uuid.New().String(),
			TenantID:   tenantID,
			CustomerID: req.CustomerID,
			Status:     entity.QuoteStatusOpen,
			CreatedBy:  userID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		for _, l := range priced {
			q.Items = append(q.Items, entity.QuoteItem{ProductID: l.product.ID, Quantity: l.quantity, UnitPrice: l.unitPrice})
		}
		if err := r.Quotes.Create(ctx, q); err != nil {
			return dto.QuoteResponse{}, err
		}
		return toQuoteResponse(q), nil
	})
	o.record(OperationCreateQuote, err, out != nil && out.Replayed)
	return out, err
}

// ── Órdenes de compra ─────────────────────────────────────────────────────────

// CreatePurchaseOrder registra la orden en estado OPEN.
func (o *Orchestrator) CreatePurchaseOrder(ctx context.Context, tenantID, userID, key string, req dto.CreatePurchaseOrderRequest) (*idempotency.Outcome[dto.PurchaseOrderResponse], error) {
	out, err := idempotency.Execute(ctx, o.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationCreatePO,
		Payload:       req,
		SuccessStatus: http.StatusCreated,
	}, func(ctx context.Context, r repository.TxRepos) (dto.PurchaseOrderResponse, error) {
		if len(req.Items) == 0 {
			return dto.PurchaseOrderResponse{}, domain.NewValidationError("items", "es obligatorio")
		}
		now := time.Now().UTC()
		po := &entity.PurchaseOrder{
			ID:        uuid.New().String(),
			TenantID:  tenantID,
			Supplier:  req.Supplier,
			Status:    entity.PurchaseOrderOpen,
			CreatedBy: userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for i, it := range req.Items {
			p, err := r.Products.GetByID(ctx, tenantID, it.ProductID)
			if err != nil {
				return dto.PurchaseOrderResponse{}, err
			}
			if p == nil {
				return dto.PurchaseOrderResponse{}, domain.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "producto no encontrado")
			}
			if !it.Quantity.IsPositive() {
				return dto.PurchaseOrderResponse{}, domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "debe ser mayor que 0")
			}
			po.Items = append(po.Items, entity.PurchaseOrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitCost: it.UnitCost})
		}
		if err := r.PurchaseOrders.Create(ctx, po); err != nil {
			return dto.PurchaseOrderResponse{}, err
		}
		return toPurchaseOrderResponse(po), nil
	})
	o.record(OperationCreatePO, err, out != nil && out.Replayed)
	return out, err
}

// ReceivePurchaseOrder da entrada a la mercancía al costo pactado. Sin numeración ni caja.
func (o *Orchestrator) ReceivePurchaseOrder(ctx context.Context, tenantID, userID, key, poID string) (*idempotency.Outcome[dto.PurchaseOrderResponse], error) {
	payload := struct {
		PurchaseOrderID string `json:"purchase_order_id"`
	}{poID}
	out, err := idempotency.Execute(ctx, o.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationReceivePO,
		Payload:       payload,
		SuccessStatus: http.StatusOK,
	}, func(ctx context.Context, r repository.TxRepos) (dto.PurchaseOrderResponse, error) {
		po, err := r.PurchaseOrders.GetForUpdate(ctx, tenantID, poID)
		if err != nil {
			return dto.PurchaseOrderResponse{}, err
		}
		if po == nil {
			return dto.PurchaseOrderResponse{}, domain.ErrNotFound
		}
		if po.Status != entity.PurchaseOrderOpen {
			return dto.PurchaseOrderResponse{}, domain.ErrPurchaseOrderClosed
		}

		movIn := inventory.MovementInput{
			Type:         entity.MovementTypeIN,
			CausedByType: entity.CausePurchaseOrder,
			CausedByID:   po.ID,
			Note:         po.Supplier,
			CreatedBy:    userID,
		}
		for _, it := range po.Items {
			cost := it.UnitCost
			movIn.Items = append(movIn.Items, inventory.MovementLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitCost: &cost})
		}
		mov, err := o.inventory.Apply(ctx, r, tenantID, movIn)
		if err != nil {
			return dto.PurchaseOrderResponse{}, err
		}

		now := time.Now().UTC()
		if err := r.PurchaseOrders.MarkReceived(ctx, tenantID, po.ID, mov.ID, now); err != nil {
			return dto.PurchaseOrderResponse{}, err
		}
		po.Status = entity.PurchaseOrderReceived
		po.MovementID = mov.ID
		po.ReceivedAt = &now
		o.log.Info().Str("tenant_id", tenantID).Str("purchase_order_id", po.ID).Str("movement_id", mov.ID).
			Msg("orden de compra recibida")
		return toPurchaseOrderResponse(po), nil
	})
	o.record(OperationReceivePO, err, out != nil && out.Replayed)
	return out, err
}

// ── Devoluciones ──────────────────────────────────────────────────────────────

// CreateReturn devuelve productos de una factura: entrada de inventario y, si se indica medio
// de reembolso, salida de dinero en la sesión de caja. Nunca más de lo vendido.
func (o *Orchestrator) CreateReturn(ctx context.Context, tenantID, userID, key string, req dto.CreateReturnRequest) (*idempotency.Outcome[dto.ReturnResponse], error) {
	out, err := idempotency.Execute(ctx, o.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationCreateReturn,
		Payload:       req,
		SuccessStatus: http.StatusCreated,
	}, func(ctx context.Context, r repository.TxRepos) (dto.ReturnResponse, error) {
		return o.executeReturn(ctx, r, tenantID, userID, req)
	})
	o.record(OperationCreateReturn, err, out != nil && out.Replayed)
	return out, err
}

type soldLine struct {
	quantity decimal.Decimal
	subtotal decimal.Decimal
	taxRate  decimal.Decimal
}

func (o *Orchestrator) executeReturn(ctx context.Context, r repository.TxRepos, tenantID, userID string, req dto.CreateReturnRequest) (dto.ReturnResponse, error) {
	inv, err := r.Invoices.GetForUpdate(ctx, tenantID, req.InvoiceID)
	if err != nil {
		return dto.ReturnResponse{}, err
	}
	if inv == nil {
		return dto.ReturnResponse{}, domain.ErrNotFound
	}
	if inv.Status == entity.InvoiceStatusVoided {
		return dto.ReturnResponse{}, domain.ErrInvoiceVoided
	}

	details, err := r.Invoices.GetDetails(ctx, tenantID, inv.ID)
	if err != nil {
		return dto.ReturnResponse{}, err
	}
	sold := make(map[string]*soldLine, len(details))
	for _, d := range details {
		s, ok := sold[d.ProductID]
		if !ok {
			s = &soldLine{taxRate: d.TaxRate}
			sold[d.ProductID] = s
		}
		s.quantity = s.quantity.Add(d.Quantity)
		s.subtotal = s.subtotal.Add(d.Subtotal)
	}
	returned, err := r.Returns.ReturnedQuantities(ctx, tenantID, inv.ID)
	if err != nil {
		return dto.ReturnResponse{}, err
	}

	requested := make(map[string]decimal.Decimal, len(req.Items))
	for i, it := range req.Items {
		if !it.Quantity.IsPositive() {
			return dto.ReturnResponse{}, domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "debe ser mayor que 0")
		}
		if _, ok := sold[it.ProductID]; !ok {
			return dto.ReturnResponse{}, domain.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "el producto no está en la factura")
		}
		requested[it.ProductID] = requested[it.ProductID].Add(it.Quantity)
	}
	productIDs := make([]string, 0, len(requested))
	for id := range requested {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	now := time.Now().UTC()
	ret := &entity.SaleReturn{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		InvoiceID:    inv.ID,
		Reason:       req.Reason,
		RefundMethod: req.RefundMethod,
		CreatedBy:    userID,
		CreatedAt:    now,
	}
	movIn := inventory.MovementInput{
		Type:         entity.MovementTypeIN,
		CausedByType: entity.CauseReturn,
		CausedByID:   ret.ID,
		Note:         inv.FullNumber(),
		CreatedBy:    userID,
	}
	for _, id := range productIDs {
		qty := requested[id]
		s := sold[id]
		if qty.GreaterThan(s.quantity.Sub(returned[id])) {
			return dto.ReturnResponse{}, fmt.Errorf("producto %s: %w", id, domain.ErrReturnExceedsSold)
		}
		// Precio unitario promedio facturado para el producto.
		unitPrice := s.subtotal.Div(s.quantity).Round(2)
		subtotal := qty.Mul(unitPrice).Round(2)
		ret.RefundAmount = ret.RefundAmount.Add(subtotal).Add(subtotal.Mul(s.taxRate).Round(2))
		ret.Items = append(ret.Items, entity.ReturnItem{ProductID: id, Quantity: qty, UnitPrice: unitPrice, Subtotal: subtotal})
		movIn.Items = append(movIn.Items, inventory.MovementLine{ProductID: id, Quantity: qty})
	}

	mov, err := o.inventory.Apply(ctx, r, tenantID, movIn)
	if err != nil {
		return dto.ReturnResponse{}, err
	}
	ret.MovementID = mov.ID

	if req.RefundMethod != "" && ret.RefundAmount.IsPositive() {
		session, err := o.cash.ResolveSession(ctx, r, tenantID, req.CashSessionID)
		if err != nil {
			return dto.ReturnResponse{}, err
		}
		cm, err := o.cash.AddMovementTx(ctx, r, tenantID, cash.MovementInput{
			SessionID:     session.ID,
			Type:          entity.CashMovementOUT,
			Method:        req.RefundMethod,
			Amount:        ret.RefundAmount,
			Reference:     "DEV " + inv.FullNumber(),
			RelatedSaleID: inv.SaleID,
			CreatedBy:     userID,
		})
		if err != nil {
			return dto.ReturnResponse{}, err
		}
		ret.CashMovementID = cm.ID
	}

	if err := r.Returns.Create(ctx, ret); err != nil {
		return dto.ReturnResponse{}, err
	}
	o.log.Info().Str("tenant_id", tenantID).Str("return_id", ret.ID).Str("invoice_number", inv.FullNumber()).
		Str("refund_amount", ret.RefundAmount.String()).Msg("devolución registrada")
	return toReturnResponse(ret), nil
}

// ── Anulación ─────────────────────────────────────────────────────────────────

// VoidInvoice anula una factura emitida. El consecutivo queda consumido: la numeración nunca
// se reutiliza.
func (o *Orchestrator) VoidInvoice(ctx context.Context, tenantID, userID, key, invoiceID string, req dto.VoidInvoiceRequest) (*idempotency.Outcome[dto.InvoiceResponse], error) {
	payload := struct {
		InvoiceID string                 `json:"invoice_id"`
		Void      dto.VoidInvoiceRequest `json:"void"`
	}{invoiceID, req}
	out, err := idempotency.Execute(ctx, o.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationVoidInvoice,
		Payload:       payload,
		SuccessStatus: http.StatusOK,
	}, func(ctx context.Context, r repository.TxRepos) (dto.InvoiceResponse, error) {
		if req.Reason == "" {
			return dto.InvoiceResponse{}, domain.NewValidationError("reason", "es obligatorio")
		}
		inv, err := r.Invoices.GetForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return dto.InvoiceResponse{}, err
		}
		if inv == nil {
			return dto.InvoiceResponse{}, domain.ErrNotFound
		}
		if !inv.CanVoid() {
			return dto.InvoiceResponse{}, domain.ErrInvalidTransition
		}
		now := time.Now().UTC()
		if err := r.Invoices.Void(ctx, tenantID, inv.ID, req.Reason, now); err != nil {
			return dto.InvoiceResponse{}, err
		}
		inv.Status = entity.InvoiceStatusVoided
		inv.VoidReason = req.Reason
		inv.VoidedAt = &now

		details, err := r.Invoices.GetDetails(ctx, tenantID, inv.ID)
		if err != nil {
			return dto.InvoiceResponse{}, err
		}
		doc, err := r.Filing.GetByInvoiceID(ctx, tenantID, inv.ID)
		if err != nil {
			return dto.InvoiceResponse{}, err
		}
		o.log.Info().Str("tenant_id", tenantID).Str("invoice_number", inv.FullNumber()).Str("user_id", userID).
			Msg("factura anulada")
		return toInvoiceResponse(inv, "", details, doc), nil
	})
	o.record(OperationVoidInvoice, err, out != nil && out.Replayed)
	return out, err
}

// ── Mapeos ────────────────────────────────────────────────────────────────────

func toQuoteResponse(q *entity.Quote) dto.QuoteResponse {
	out := dto.QuoteResponse{
		ID:         q.ID,
		CustomerID: q.CustomerID,
		Status:     q.Status,
		SaleID:     q.SaleID,
		CreatedAt:  dto.FormatTime(q.CreatedAt),
		Items:      make([]dto.QuoteItemResponse, 0, len(q.Items)),
	}
	for _, it := range q.Items {
		out.Items = append(out.Items, dto.QuoteItemResponse{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out
}

func toPurchaseOrderResponse(po *entity.PurchaseOrder) dto.PurchaseOrderResponse {
	out := dto.PurchaseOrderResponse{
		ID:         po.ID,
		Supplier:   po.Supplier,
		Status:     po.Status,
		MovementID: po.MovementID,
		ReceivedAt: dto.FormatTimePtr(po.ReceivedAt),
		CreatedAt:  dto.FormatTime(po.CreatedAt),
		Items:      make([]dto.PurchaseOrderItemRequest, 0, len(po.Items)),
	}
	for _, it := range po.Items {
		out.Items = append(out.Items, dto.PurchaseOrderItemRequest{ProductID: it.ProductID, Quantity: it.Quantity, UnitCost: it.UnitCost})
	}
	return out
}

func toReturnResponse(ret *entity.SaleReturn) dto.ReturnResponse {
	out := dto.ReturnResponse{
		ID:             ret.ID,
		InvoiceID:      ret.InvoiceID,
		MovementID:     ret.MovementID,
		CashMovementID: ret.CashMovementID,
		RefundMethod:   ret.RefundMethod,
		RefundAmount:   ret.RefundAmount,
		CreatedAt:      dto.FormatTime(ret.CreatedAt),
		Items:          make([]dto.ReturnLineResponse, 0, len(ret.Items)),
	}
	for _, it := range ret.Items {
		out.Items = append(out.Items, dto.ReturnLineResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	return out
}
