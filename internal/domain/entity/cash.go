package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de caja.
const (
	CashMovementIN     = "IN"
	CashMovementOUT    = "OUT"
	CashMovementADJUST = "ADJUST" // monto con signo
)

// Medios de pago.
const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)

// CashSession turno de caja. A lo sumo una abierta por empresa (ClosedAt == nil).
// Una vez cerrada es inmutable.
type CashSession struct {
	ID             string
	TenantID       string
	OpenedBy       string
	OpeningAmount  decimal.Decimal
	OpenedAt       time.Time
	ClosedBy       string
	ClosedAt       *time.Time
	ClosingAmount  decimal.Decimal
	ExpectedAmount decimal.Decimal
	Difference     decimal.Decimal
}

// IsOpen indica si la sesión sigue abierta.
func (s *CashSession) IsOpen() bool { return s.ClosedAt == nil }

// CashMovement entrada o salida de dinero ligada a una sesión.
type CashMovement struct {
	ID            string
	TenantID      string
	SessionID     string
	Type          string
	Method        string
	Amount        decimal.Decimal
	Reference     string
	RelatedSaleID string
	CreatedBy     string
	CreatedAt     time.Time
}

// ExpectedCash saldo esperado = apertura + ΣIN − ΣOUT + ΣADJUST.
func ExpectedCash(opening decimal.Decimal, movements []*CashMovement) decimal.Decimal {
	total := opening
	for _, m := range movements {
		switch m.Type {
		case CashMovementIN, CashMovementADJUST:
			total = total.Add(m.Amount)
		case CashMovementOUT:
			total = total.Sub(m.Amount)
		}
	}
	return total
}
