package repository

import (
	"context"

	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ProductRepository lectura del catálogo (lo administra otro servicio) y costo promedio.
type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Product, error)
	UpdateCost(ctx context.Context, tenantID, id string, cost decimal.Decimal) error
}
