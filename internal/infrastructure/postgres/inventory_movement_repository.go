package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

// InventoryMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

// Create persiste la cabecera y sus líneas. Llamar dentro de una tx.
func (r *InventoryMovementRepo) Create(ctx context.Context, m *entity.InventoryMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	const header = `
		INSERT INTO inventory_movements (id, tenant_id, type, caused_by_type, caused_by_id, note, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.q.Exec(ctx, header,
		m.ID, m.TenantID, m.Type, m.CausedByType, m.CausedByID, m.Note, m.CreatedBy, m.CreatedAt,
	); err != nil {
		return fmt.Errorf("create inventory movement: %w", err)
	}
	const item = `
		INSERT INTO inventory_movement_items (id, movement_id, product_id, quantity, unit_cost, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range m.Items {
		it := &m.Items[i]
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.MovementID = m.ID
		if _, err := r.q.Exec(ctx, item, it.ID, m.ID, it.ProductID, it.Quantity, it.UnitCost, it.BalanceAfter); err != nil {
			return fmt.Errorf("create inventory movement item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene un movimiento con sus líneas.
func (r *InventoryMovementRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.InventoryMovement, error) {
	const query = `
		SELECT id, tenant_id, type, caused_by_type, caused_by_id, note, created_by, created_at
		FROM inventory_movements WHERE tenant_id = $1 AND id = $2`
	m, err := scanMovement(r.q.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	if err := r.loadItems(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListByProduct movimientos que tocan el producto, más recientes primero.
func (r *InventoryMovementRepo) ListByProduct(ctx context.Context, tenantID, productID string, limit, offset int) ([]*entity.InventoryMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT m.id, m.tenant_id, m.type, m.caused_by_type, m.caused_by_id, m.note, m.created_by, m.created_at
		FROM inventory_movements m
		WHERE m.tenant_id = $1
		  AND EXISTS (SELECT 1 FROM inventory_movement_items i WHERE i.movement_id = m.id AND i.product_id = $2)
		ORDER BY m.created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, tenantID, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movements by product: %w", err)
	}
	var list []*entity.InventoryMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, m := range list {
		if err := r.loadItems(ctx, m); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func scanMovement(row pgxScanner) (*entity.InventoryMovement, error) {
	var m entity.InventoryMovement
	if err := row.Scan(&m.ID, &m.TenantID, &m.Type, &m.CausedByType, &m.CausedByID, &m.Note, &m.CreatedBy, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *InventoryMovementRepo) loadItems(ctx context.Context, m *entity.InventoryMovement) error {
	const query = `
		SELECT id, movement_id, product_id, quantity, unit_cost, balance_after
		FROM inventory_movement_items WHERE movement_id = $1 ORDER BY product_id`
	rows, err := r.q.Query(ctx, query, m.ID)
	if err != nil {
		return fmt.Errorf("list movement items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.MovementItem
		if err := rows.Scan(&it.ID, &it.MovementID, &it.ProductID, &it.Quantity, &it.UnitCost, &it.BalanceAfter); err != nil {
			return fmt.Errorf("scan movement item: %w", err)
		}
		m.Items = append(m.Items, it)
	}
	return rows.Err()
}
