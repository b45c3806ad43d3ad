package dto

import "github.com/shopspring/decimal"

// OpenCashSessionRequest body para POST /api/cash-sessions.
type OpenCashSessionRequest struct {
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	OpeningAmount  decimal.Decimal `json:"opening_amount" validate:"gte=0"`
}

// CashMovementRequest body para POST /api/cash-sessions/:id/movements (gastos, ajustes).
// En ADJUST el monto lleva signo.
type CashMovementRequest struct {
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Type           string          `json:"type" validate:"required,oneof=IN OUT ADJUST"`
	Method         string          `json:"method" validate:"required,oneof=CASH CARD TRANSFER"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	Reference      string          `json:"reference,omitempty"`
}

// CloseCashSessionRequest body para POST /api/cash-sessions/:id/close.
type CloseCashSessionRequest struct {
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	ClosingAmount  decimal.Decimal `json:"closing_amount" validate:"gte=0"`
}

// CashMovementResponse movimiento de caja.
type CashMovementResponse struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id"`
	Type          string          `json:"type"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference,omitempty"`
	RelatedSaleID string          `json:"related_sale_id,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

// CashTotals totales por tipo de movimiento.
type CashTotals struct {
	In     decimal.Decimal `json:"in"`
	Out    decimal.Decimal `json:"out"`
	Adjust decimal.Decimal `json:"adjust"`
}

// CashSessionResponse sesión de caja con su arqueo (si está cerrada) o el esperado a la fecha.
type CashSessionResponse struct {
	ID             string                 `json:"id"`
	Status         string                 `json:"status"` // OPEN | CLOSED
	OpenedBy       string                 `json:"opened_by"`
	OpenedAt       string                 `json:"opened_at"`
	OpeningAmount  decimal.Decimal        `json:"opening_amount"`
	ClosedBy       string                 `json:"closed_by,omitempty"`
	ClosedAt       *string                `json:"closed_at,omitempty"`
	ClosingAmount  *decimal.Decimal       `json:"closing_amount,omitempty"`
	ExpectedAmount decimal.Decimal        `json:"expected_amount"`
	Difference     *decimal.Decimal       `json:"difference,omitempty"`
	Totals         CashTotals             `json:"totals"`
	Movements      []CashMovementResponse `json:"movements,omitempty"`
}
