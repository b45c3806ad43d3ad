package dto

import "github.com/shopspring/decimal"

// MovementItemRequest línea de movimiento manual. En ADJUST la cantidad lleva signo.
type MovementItemRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"required"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
}

// RegisterMovementRequest body para POST /api/inventory/movements.
type RegisterMovementRequest struct {
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
	Type           string                `json:"type" validate:"required,oneof=IN OUT ADJUST"`
	Note           string                `json:"note,omitempty"`
	Items          []MovementItemRequest `json:"items" validate:"required,min=1,dive"`
}

// MovementItemResponse línea aplicada con el saldo resultante.
type MovementItemResponse struct {
	ProductID    string          `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// MovementResponse movimiento de inventario.
type MovementResponse struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	CausedByType string                 `json:"caused_by_type"`
	CausedByID   string                 `json:"caused_by_id,omitempty"`
	Note         string                 `json:"note,omitempty"`
	CreatedAt    string                 `json:"created_at"`
	Items        []MovementItemResponse `json:"items"`
}

// StockBalanceResponse saldo de un producto.
type StockBalanceResponse struct {
	ProductID        string          `json:"product_id"`
	QuantityOnHand   decimal.Decimal `json:"quantity_on_hand"`
	QuantityReserved decimal.Decimal `json:"quantity_reserved"`
	UpdatedAt        string          `json:"updated_at,omitempty"`
}
