package dto

import "github.com/shopspring/decimal"

// SaleItemRequest línea de venta o cotización. Sin unit_price se usa el precio del producto.
type SaleItemRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
}

// CreateSaleRequest body para POST /api/sales.
// CashSessionID vacío = sesión abierta actual de la empresa.
type CreateSaleRequest struct {
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	CustomerID     string            `json:"customer_id,omitempty"`
	CashSessionID  string            `json:"cash_session_id,omitempty"`
	PaymentMethod  string            `json:"payment_method" validate:"required,oneof=CASH CARD TRANSFER"`
	AmountTendered *decimal.Decimal  `json:"amount_tendered,omitempty" validate:"omitempty,gte=0"`
	Items          []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ConvertQuoteRequest body para POST /api/quotes/:id/convert.
type ConvertQuoteRequest struct {
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	CashSessionID  string           `json:"cash_session_id,omitempty"`
	PaymentMethod  string           `json:"payment_method" validate:"required,oneof=CASH CARD TRANSFER"`
	AmountTendered *decimal.Decimal `json:"amount_tendered,omitempty" validate:"omitempty,gte=0"`
}

// SaleLineResponse línea facturada.
type SaleLineResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

// SaleResponse resultado de una venta. Es lo que se guarda contra la clave de idempotencia
// y se devuelve idéntico en cada repetición.
type SaleResponse struct {
	SaleID           string             `json:"sale_id"`
	InvoiceID        string             `json:"invoice_id"`
	InvoiceNumber    string             `json:"invoice_number"`
	Prefix           string             `json:"prefix"`
	Number           int64              `json:"number"`
	FilingDocumentID string             `json:"filing_document_id"`
	QuoteID          string             `json:"quote_id,omitempty"`
	CustomerID       string             `json:"customer_id,omitempty"`
	CashSessionID    string             `json:"cash_session_id"`
	MovementID       string             `json:"movement_id"`
	CashMovementID   string             `json:"cash_movement_id"`
	PaymentMethod    string             `json:"payment_method"`
	NetTotal         decimal.Decimal    `json:"net_total"`
	TaxTotal         decimal.Decimal    `json:"tax_total"`
	GrandTotal       decimal.Decimal    `json:"grand_total"`
	AmountTendered   decimal.Decimal    `json:"amount_tendered"`
	ChangeDue        decimal.Decimal    `json:"change_due"`
	Status           string             `json:"status"`
	CreatedAt        string             `json:"created_at"`
	Items            []SaleLineResponse `json:"items"`
	NumbersRemaining int64              `json:"numbers_remaining"`
	LowNumberRange   bool               `json:"low_number_range,omitempty"`
}

// CreateQuoteRequest body para POST /api/quotes.
type CreateQuoteRequest struct {
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	CustomerID     string            `json:"customer_id,omitempty"`
	Items          []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

// QuoteItemResponse línea cotizada.
type QuoteItemResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// QuoteResponse cotización.
type QuoteResponse struct {
	ID         string              `json:"id"`
	CustomerID string              `json:"customer_id,omitempty"`
	Status     string              `json:"status"`
	SaleID     string              `json:"sale_id,omitempty"`
	CreatedAt  string              `json:"created_at"`
	Items      []QuoteItemResponse `json:"items"`
}

// PurchaseOrderItemRequest línea de orden de compra.
type PurchaseOrderItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

// CreatePurchaseOrderRequest body para POST /api/purchase-orders.
type CreatePurchaseOrderRequest struct {
	IdempotencyKey string                     `json:"idempotency_key,omitempty"`
	Supplier       string                     `json:"supplier" validate:"required"`
	Items          []PurchaseOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// PurchaseOrderResponse orden de compra.
type PurchaseOrderResponse struct {
	ID         string                     `json:"id"`
	Supplier   string                     `json:"supplier"`
	Status     string                     `json:"status"`
	MovementID string                     `json:"movement_id,omitempty"`
	ReceivedAt *string                    `json:"received_at,omitempty"`
	CreatedAt  string                     `json:"created_at"`
	Items      []PurchaseOrderItemRequest `json:"items"`
}

// ReturnItemRequest producto devuelto.
type ReturnItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
}

// CreateReturnRequest body para POST /api/returns. Con refund_method se registra la salida
// de dinero en la sesión de caja (cash_session_id o la abierta actual).
type CreateReturnRequest struct {
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	InvoiceID      string              `json:"invoice_id" validate:"required"`
	Reason         string              `json:"reason,omitempty"`
	RefundMethod   string              `json:"refund_method,omitempty" validate:"omitempty,oneof=CASH CARD TRANSFER"`
	CashSessionID  string              `json:"cash_session_id,omitempty"`
	Items          []ReturnItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ReturnLineResponse línea devuelta valorizada al precio facturado.
type ReturnLineResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// ReturnResponse devolución registrada.
type ReturnResponse struct {
	ID             string               `json:"id"`
	InvoiceID      string               `json:"invoice_id"`
	MovementID     string               `json:"movement_id"`
	CashMovementID string               `json:"cash_movement_id,omitempty"`
	RefundMethod   string               `json:"refund_method,omitempty"`
	RefundAmount   decimal.Decimal      `json:"refund_amount"`
	CreatedAt      string               `json:"created_at"`
	Items          []ReturnLineResponse `json:"items"`
}

// VoidInvoiceRequest body para POST /api/invoices/:id/void.
type VoidInvoiceRequest struct {
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Reason         string `json:"reason" validate:"required"`
}

// InvoiceResponse factura con detalle para GET /api/invoices/:id.
type InvoiceResponse struct {
	ID           string                  `json:"id"`
	SaleID       string                  `json:"sale_id"`
	CustomerID   string                  `json:"customer_id,omitempty"`
	CustomerName string                  `json:"customer_name,omitempty"`
	Prefix       string                  `json:"prefix"`
	Number       int64                   `json:"number"`
	FullNumber   string                  `json:"full_number"`
	Date         string                  `json:"date"`
	NetTotal     decimal.Decimal         `json:"net_total"`
	TaxTotal     decimal.Decimal         `json:"tax_total"`
	GrandTotal   decimal.Decimal         `json:"grand_total"`
	Status       string                  `json:"status"`
	VoidReason   string                  `json:"void_reason,omitempty"`
	Filing       *FilingStatusResponse   `json:"filing,omitempty"`
	Details      []InvoiceDetailResponse `json:"details"`
}

// InvoiceDetailResponse línea de detalle en la respuesta.
type InvoiceDetailResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

// FilingStatusResponse estado del documento electrónico para GET /api/invoices/:id/status.
// El frontend consulta periódicamente hasta que status sea ACCEPTED o REJECTED.
type FilingStatusResponse struct {
	ID            string  `json:"id"`
	InvoiceID     string  `json:"invoice_id"`
	Status        string  `json:"status"` // DRAFT|SIGNED|SENT|ACCEPTED|REJECTED
	Attempts      int     `json:"attempts"`
	NextAttemptAt *string `json:"next_attempt_at,omitempty"`
	TrackID       string  `json:"track_id,omitempty"` // ZipKey devuelto por el WS DIAN
	CUFE          string  `json:"cufe,omitempty"`     // Código único de factura (SHA-384)
	QRData        string  `json:"qr_data,omitempty"`
	LastError     string  `json:"last_error,omitempty"`
}
