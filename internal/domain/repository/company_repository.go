package repository

import (
	"context"

	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// CompanyRepository empresa emisora (tenant). Se usa para el NIT del documento electrónico.
type CompanyRepository interface {
	Create(ctx context.Context, c *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}
