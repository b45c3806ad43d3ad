package repository

import (
	"context"

	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// CashRepository sesiones de caja y sus movimientos.
type CashRepository interface {
	// Open falla con domain.ErrSessionAlreadyOpen si la empresa ya tiene una sesión abierta.
	Open(ctx context.Context, s *entity.CashSession) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.CashSession, error)
	GetOpen(ctx context.Context, tenantID string) (*entity.CashSession, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.CashSession, error)
	// AddMovement inserta solo si la sesión sigue abierta en ese instante:
	// domain.ErrSessionClosed si se cerró, domain.ErrNotFound si no existe.
	AddMovement(ctx context.Context, m *entity.CashMovement) error
	ListMovements(ctx context.Context, tenantID, sessionID string) ([]*entity.CashMovement, error)
	// Close guarda el arqueo; domain.ErrSessionClosed si ya estaba cerrada.
	Close(ctx context.Context, s *entity.CashSession) error
}
