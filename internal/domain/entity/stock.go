package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockBalance existencias de un producto por empresa. Solo cambia junto con un InventoryMovement.
type StockBalance struct {
	TenantID         string
	ProductID        string
	QuantityOnHand   decimal.Decimal
	QuantityReserved decimal.Decimal
	UpdatedAt        time.Time
}
