package repository

import (
	"context"

	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockRepository puerto de saldos por producto. Solo el ledger de inventario escribe aquí,
// siempre junto con el movimiento que lo explica.
type StockRepository interface {
	// Get devuelve saldo cero si el producto aún no tiene fila.
	Get(ctx context.Context, tenantID, productID string) (*entity.StockBalance, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) o devuelve saldo cero.
	GetForUpdate(ctx context.Context, tenantID, productID string) (*entity.StockBalance, error)
	// Decrement resta qty solo si el saldo resultante no queda negativo (chequeo y escritura atómicos).
	// nil, nil si no alcanzó.
	Decrement(ctx context.Context, tenantID, productID string, qty decimal.Decimal) (*entity.StockBalance, error)
	// Adjust suma delta (con signo) sin cota inferior, creando la fila si hace falta.
	Adjust(ctx context.Context, tenantID, productID string, delta decimal.Decimal) (*entity.StockBalance, error)
}
