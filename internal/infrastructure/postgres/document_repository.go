package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.QuoteRepository         = (*QuoteRepo)(nil)
	_ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)
	_ repository.ReturnRepository        = (*ReturnRepo)(nil)
)

// ── Cotizaciones ──────────────────────────────────────────────────────────────

// QuoteRepo cotizaciones sobre PostgreSQL (usable con pool o tx).
type QuoteRepo struct {
	q Querier
}

// NewQuoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewQuoteRepository(q Querier) *QuoteRepo {
	return &QuoteRepo{q: q}
}

func (r *QuoteRepo) Create(ctx context.Context, qt *entity.Quote) error {
	if qt.ID == "" {
		qt.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO quotes (id, tenant_id, customer_id, status, sale_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.q.Exec(ctx, query,
		qt.ID, qt.TenantID, qt.CustomerID, qt.Status, qt.SaleID, qt.CreatedBy, qt.CreatedAt, qt.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	const item = `INSERT INTO quote_items (quote_id, line, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4, $5)`
	for i, it := range qt.Items {
		if _, err := r.q.Exec(ctx, item, qt.ID, i+1, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return fmt.Errorf("insert quote item: %w", err)
		}
	}
	return nil
}

func (r *QuoteRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Quote, error) {
	return r.get(ctx, tenantID, id, "")
}

func (r *QuoteRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Quote, error) {
	return r.get(ctx, tenantID, id, " FOR UPDATE")
}

func (r *QuoteRepo) get(ctx context.Context, tenantID, id, lock string) (*entity.Quote, error) {
	query := `
		SELECT id, tenant_id, customer_id, status, sale_id, created_by, created_at, updated_at
		FROM quotes WHERE tenant_id = $1 AND id = $2` + lock
	var qt entity.Quote
	err := r.q.QueryRow(ctx, query, tenantID, id).Scan(
		&qt.ID, &qt.TenantID, &qt.CustomerID, &qt.Status, &qt.SaleID, &qt.CreatedBy, &qt.CreatedAt, &qt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	rows, err := r.q.Query(ctx, `SELECT product_id, quantity, unit_price FROM quote_items WHERE quote_id = $1 ORDER BY line`, id)
	if err != nil {
		return nil, fmt.Errorf("list quote items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.QuoteItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan quote item: %w", err)
		}
		qt.Items = append(qt.Items, it)
	}
	return &qt, rows.Err()
}

func (r *QuoteRepo) MarkConverted(ctx context.Context, tenantID, id, saleID string) error {
	const query = `
		UPDATE quotes SET status = 'CONVERTED', sale_id = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND status = 'OPEN'`
	tag, err := r.q.Exec(ctx, query, tenantID, id, saleID)
	if err != nil {
		return fmt.Errorf("convert quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuoteNotOpen
	}
	return nil
}

// ── Órdenes de compra ─────────────────────────────────────────────────────────

// PurchaseOrderRepo órdenes de compra sobre PostgreSQL (usable con pool o tx).
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	if po.ID == "" {
		po.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO purchase_orders (id, tenant_id, supplier, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.q.Exec(ctx, query,
		po.ID, po.TenantID, po.Supplier, po.Status, po.CreatedBy, po.CreatedAt, po.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert purchase order: %w", err)
	}
	const item = `
		INSERT INTO purchase_order_items (purchase_order_id, line, product_id, quantity, unit_cost)
		VALUES ($1, $2, $3, $4, $5)`
	for i, it := range po.Items {
		if _, err := r.q.Exec(ctx, item, po.ID, i+1, it.ProductID, it.Quantity, it.UnitCost); err != nil {
			return fmt.Errorf("insert purchase order item: %w", err)
		}
	}
	return nil
}

func (r *PurchaseOrderRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, tenantID, id, "")
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, tenantID, id, " FOR UPDATE")
}

func (r *PurchaseOrderRepo) get(ctx context.Context, tenantID, id, lock string) (*entity.PurchaseOrder, error) {
	query := `
		SELECT id, tenant_id, supplier, status, movement_id, received_at, created_by, created_at, updated_at
		FROM purchase_orders WHERE tenant_id = $1 AND id = $2` + lock
	var po entity.PurchaseOrder
	err := r.q.QueryRow(ctx, query, tenantID, id).Scan(
		&po.ID, &po.TenantID, &po.Supplier, &po.Status, &po.MovementID, &po.ReceivedAt,
		&po.CreatedBy, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT product_id, quantity, unit_cost FROM purchase_order_items
		WHERE purchase_order_id = $1 ORDER BY line`, id)
	if err != nil {
		return nil, fmt.Errorf("list purchase order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.PurchaseOrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitCost); err != nil {
			return nil, fmt.Errorf("scan purchase order item: %w", err)
		}
		po.Items = append(po.Items, it)
	}
	return &po, rows.Err()
}

func (r *PurchaseOrderRepo) MarkReceived(ctx context.Context, tenantID, id, movementID string, at time.Time) error {
	const query = `
		UPDATE purchase_orders SET status = 'RECEIVED', movement_id = $3, received_at = $4, updated_at = $4
		WHERE tenant_id = $1 AND id = $2 AND status = 'OPEN'`
	tag, err := r.q.Exec(ctx, query, tenantID, id, movementID, at)
	if err != nil {
		return fmt.Errorf("receive purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPurchaseOrderClosed
	}
	return nil
}

// ── Devoluciones ──────────────────────────────────────────────────────────────

// ReturnRepo devoluciones sobre PostgreSQL (usable con pool o tx).
type ReturnRepo struct {
	q Querier
}

// NewReturnRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReturnRepository(q Querier) *ReturnRepo {
	return &ReturnRepo{q: q}
}

func (r *ReturnRepo) Create(ctx context.Context, ret *entity.SaleReturn) error {
	if ret.ID == "" {
		ret.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO sale_returns (id, tenant_id, invoice_id, reason, refund_amount, refund_method, movement_id, cash_movement_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.q.Exec(ctx, query,
		ret.ID, ret.TenantID, ret.InvoiceID, ret.Reason, ret.RefundAmount, ret.RefundMethod,
		ret.MovementID, ret.CashMovementID, ret.CreatedBy, ret.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert sale return: %w", err)
	}
	const item = `
		INSERT INTO sale_return_items (return_id, line, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, it := range ret.Items {
		if _, err := r.q.Exec(ctx, item, ret.ID, i+1, it.ProductID, it.Quantity, it.UnitPrice, it.Subtotal); err != nil {
			return fmt.Errorf("insert sale return item: %w", err)
		}
	}
	return nil
}

func (r *ReturnRepo) ReturnedQuantities(ctx context.Context, tenantID, invoiceID string) (map[string]decimal.Decimal, error) {
	const query = `
		SELECT i.product_id, SUM(i.quantity)
		FROM sale_return_items i JOIN sale_returns r ON r.id = i.return_id
		WHERE r.tenant_id = $1 AND r.invoice_id = $2
		GROUP BY i.product_id`
	rows, err := r.q.Query(ctx, query, tenantID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("sum returned quantities: %w", err)
	}
	defer rows.Close()
	out := map[string]decimal.Decimal{}
	for rows.Next() {
		var productID string
		var qty decimal.Decimal
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, fmt.Errorf("scan returned quantity: %w", err)
		}
		out[productID] = qty
	}
	return out, rows.Err()
}
