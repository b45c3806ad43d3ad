package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo catálogo por empresa; (company_id, sku) es único.
type ProductRepo struct{ q Querier }

func NewProductRepository(q Querier) *ProductRepo { return &ProductRepo{q: q} }

const productCols = `id, company_id, sku, name, price, cost, tax_rate, unit_measure, is_active, allow_backorder, created_at, updated_at`

func scanProduct(s pgxScanner, p *entity.Product) error {
	return s.Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Price, &p.Cost, &p.TaxRate, &p.UnitMeasure,
		&p.IsActive, &p.AllowBackorder, &p.CreatedAt, &p.UpdatedAt)
}

func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	_, err := r.q.Exec(ctx, `INSERT INTO products (`+productCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.CompanyID, p.SKU, p.Name, p.Price, p.Cost, p.TaxRate, p.UnitMeasure,
		p.IsActive, p.AllowBackorder, p.CreatedAt, p.UpdatedAt)
	return insertErr(err, "product")
}

// GetByID nil si no existe o es de otra empresa.
func (r *ProductRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Product, error) {
	row := r.q.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE company_id = $1 AND id = $2`, tenantID, id)
	return scanOne(row, "product", scanProduct)
}

// UpdateCost guarda el nuevo costo promedio ponderado.
func (r *ProductRepo) UpdateCost(ctx context.Context, tenantID, id string, cost decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE products SET cost = $3, updated_at = now() WHERE company_id = $1 AND id = $2`, tenantID, id, cost)
	if err != nil {
		return fmt.Errorf("update product cost: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
