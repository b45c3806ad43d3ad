package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `tenant_id, product_id, quantity_on_hand, quantity_reserved, updated_at`

func scanStock(row pgxScanner) (*entity.StockBalance, error) {
	var s entity.StockBalance
	if err := row.Scan(&s.TenantID, &s.ProductID, &s.QuantityOnHand, &s.QuantityReserved, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func zeroBalance(tenantID, productID string) *entity.StockBalance {
	return &entity.StockBalance{TenantID: tenantID, ProductID: productID, QuantityOnHand: decimal.Zero, QuantityReserved: decimal.Zero}
}

// Get obtiene el saldo actual de un producto.
func (r *StockRepo) Get(ctx context.Context, tenantID, productID string) (*entity.StockBalance, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_balances WHERE tenant_id = $1 AND product_id = $2`
	s, err := scanStock(r.q.QueryRow(ctx, query, tenantID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zeroBalance(tenantID, productID), nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

// GetForUpdate obtiene el saldo y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, tenantID, productID string) (*entity.StockBalance, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_balances WHERE tenant_id = $1 AND product_id = $2 FOR UPDATE`
	s, err := scanStock(r.q.QueryRow(ctx, query, tenantID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zeroBalance(tenantID, productID), nil
		}
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return s, nil
}

// Decrement la condición y la resta van en el mismo UPDATE: dos ventas concurrentes no pueden
// pasar ambas el chequeo contra un saldo viejo.
func (r *StockRepo) Decrement(ctx context.Context, tenantID, productID string, qty decimal.Decimal) (*entity.StockBalance, error) {
	query := `
		UPDATE stock_balances
		SET quantity_on_hand = quantity_on_hand - $3, updated_at = now()
		WHERE tenant_id = $1 AND product_id = $2 AND quantity_on_hand - $3 >= 0
		RETURNING ` + stockColumns
	s, err := scanStock(r.q.QueryRow(ctx, query, tenantID, productID, qty))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	return s, nil
}

// Adjust suma delta creando la fila si no existe.
func (r *StockRepo) Adjust(ctx context.Context, tenantID, productID string, delta decimal.Decimal) (*entity.StockBalance, error) {
	query := `
		INSERT INTO stock_balances (tenant_id, product_id, quantity_on_hand, quantity_reserved, updated_at)
		VALUES ($1, $2, $3, 0, now())
		ON CONFLICT (tenant_id, product_id)
		DO UPDATE SET quantity_on_hand = stock_balances.quantity_on_hand + EXCLUDED.quantity_on_hand, updated_at = now()
		RETURNING ` + stockColumns
	s, err := scanStock(r.q.QueryRow(ctx, query, tenantID, productID, delta))
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	return s, nil
}
