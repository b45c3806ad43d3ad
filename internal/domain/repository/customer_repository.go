package repository

import (
	"context"

	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// CustomerRepository lectura de clientes (referencia opcional de la venta).
type CustomerRepository interface {
	Create(ctx context.Context, c *entity.Customer) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Customer, error)
}
