package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeIN     = "IN"     // entrada
	MovementTypeOUT    = "OUT"    // salida
	MovementTypeADJUST = "ADJUST" // ajuste (cantidad con signo)
)

// Origen del movimiento (caused_by).
const (
	CauseSale          = "SALE"
	CauseReturn        = "RETURN"
	CausePurchaseOrder = "PURCHASE_ORDER"
	CauseManual        = "MANUAL"
)

// InventoryMovement cabecera de un movimiento de inventario (append-only).
type InventoryMovement struct {
	ID           string
	TenantID     string
	Type         string
	CausedByType string
	CausedByID   string
	Note         string
	CreatedBy    string
	CreatedAt    time.Time
	Items        []MovementItem
}

// MovementItem línea de un movimiento. Quantity es positiva en IN/OUT y con signo en ADJUST.
type MovementItem struct {
	ID           string
	MovementID   string
	ProductID    string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	BalanceAfter decimal.Decimal
}
