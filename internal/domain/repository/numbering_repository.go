package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// NumberingRepository puerto del rango de numeración autorizado (uno ACTIVE por empresa).
type NumberingRepository interface {
	// AllocateNext incrementa next_number en una sola sentencia condicional y devuelve el
	// número asignado. nil, 0, nil si no hay rango activo, vigente y con números disponibles.
	AllocateNext(ctx context.Context, tenantID string, today time.Time) (*entity.NumberingRange, int64, error)
	GetActive(ctx context.Context, tenantID string) (*entity.NumberingRange, error)
	// Latest último rango no reemplazado (ACTIVE o EXHAUSTED), para diagnosticar fallos de asignación.
	Latest(ctx context.Context, tenantID string) (*entity.NumberingRange, error)
	GetByID(ctx context.Context, tenantID, id string) (*entity.NumberingRange, error)
	Create(ctx context.Context, r *entity.NumberingRange) error
	Update(ctx context.Context, r *entity.NumberingRange) error
	// Supersede marca como SUPERSEDED los rangos ACTIVE/EXHAUSTED de la empresa.
	Supersede(ctx context.Context, tenantID string) error
}
