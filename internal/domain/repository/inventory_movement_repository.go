package repository

import (
	"context"

	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// InventoryMovementRepository bitácora append-only de movimientos de inventario.
type InventoryMovementRepository interface {
	Create(ctx context.Context, m *entity.InventoryMovement) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.InventoryMovement, error)
	ListByProduct(ctx context.Context, tenantID, productID string, limit, offset int) ([]*entity.InventoryMovement, error)
}
