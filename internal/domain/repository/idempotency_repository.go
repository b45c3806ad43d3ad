package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// IdempotencyRepository persiste el resultado de solicitudes mutantes por (empresa, clave).
// Todas las transiciones son condicionales sobre (empresa, clave, intento, IN_PROGRESS).
type IdempotencyRepository interface {
	// Insert crea el registro IN_PROGRESS. inserted=false si la clave ya existía.
	Insert(ctx context.Context, rec *entity.IdempotencyRecord) (inserted bool, err error)
	// Get retorna nil, nil si no existe.
	Get(ctx context.Context, tenantID, key string) (*entity.IdempotencyRecord, error)
	// Reclaim toma un registro IN_PROGRESS cuyo lease venció; el intento pasa a attempt+1.
	Reclaim(ctx context.Context, tenantID, key string, attempt int, now, lockedUntil time.Time) (bool, error)
	// Complete guarda la respuesta. domain.ErrLeaseLost si otro intento tomó el registro.
	Complete(ctx context.Context, tenantID, key string, attempt, responseCode int, body []byte) error
	// Fail registra un fallo determinista. domain.ErrLeaseLost si otro intento tomó el registro.
	Fail(ctx context.Context, tenantID, key string, attempt int, code, message string) error
	// Release vence el lease para que un reintento pueda reclamar el registro.
	Release(ctx context.Context, tenantID, key string, attempt int) error
}
