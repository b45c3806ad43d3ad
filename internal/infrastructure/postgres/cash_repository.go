package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.CashRepository = (*CashRepo)(nil)

// CashRepo sesiones y movimientos de caja sobre PostgreSQL (usable con pool o tx).
type CashRepo struct {
	q Querier
}

// NewCashRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCashRepository(q Querier) *CashRepo {
	return &CashRepo{q: q}
}

const sessionColumns = `id, tenant_id, opened_by, opening_amount, opened_at, closed_by, closed_at,
	closing_amount, expected_amount, difference`

func scanSession(row pgxScanner) (*entity.CashSession, error) {
	var s entity.CashSession
	var closedBy *string
	var closing, expected, diff decimal.NullDecimal
	err := row.Scan(
		&s.ID, &s.TenantID, &s.OpenedBy, &s.OpeningAmount, &s.OpenedAt, &closedBy, &s.ClosedAt,
		&closing, &expected, &diff,
	)
	if err != nil {
		return nil, err
	}
	s.ClosedBy = derefStr(closedBy)
	s.ClosingAmount = closing.Decimal
	s.ExpectedAmount = expected.Decimal
	s.Difference = diff.Decimal
	return &s, nil
}

// Open el índice único parcial (tenant_id) WHERE closed_at IS NULL garantiza una sola sesión abierta.
func (r *CashRepo) Open(ctx context.Context, s *entity.CashSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO cash_sessions (id, tenant_id, opened_by, opening_amount, opened_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, query, s.ID, s.TenantID, s.OpenedBy, s.OpeningAmount, s.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSessionAlreadyOpen
		}
		return fmt.Errorf("open cash session: %w", err)
	}
	return nil
}

func (r *CashRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.CashSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM cash_sessions WHERE tenant_id = $1 AND id = $2`
	return r.getOne(ctx, query, tenantID, id)
}

func (r *CashRepo) GetOpen(ctx context.Context, tenantID string) (*entity.CashSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM cash_sessions WHERE tenant_id = $1 AND closed_at IS NULL`
	return r.getOne(ctx, query, tenantID)
}

func (r *CashRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.CashSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM cash_sessions WHERE tenant_id = $1 AND id = $2 FOR UPDATE`
	return r.getOne(ctx, query, tenantID, id)
}

func (r *CashRepo) getOne(ctx context.Context, query string, args ...any) (*entity.CashSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cash session: %w", err)
	}
	return s, nil
}

// AddMovement el INSERT ... SELECT toma FOR SHARE sobre la sesión abierta: un cierre concurrente
// espera a esta tx o, si ya cerró, el INSERT no inserta nada.
func (r *CashRepo) AddMovement(ctx context.Context, m *entity.CashMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO cash_movements (id, tenant_id, session_id, type, method, amount, reference, related_sale_id, created_by, created_at)
		SELECT $1, s.tenant_id, s.id, $4, $5, $6, $7, $8, $9, $10
		FROM cash_sessions s
		WHERE s.id = $3 AND s.tenant_id = $2 AND s.closed_at IS NULL
		FOR SHARE`
	tag, err := r.q.Exec(ctx, query,
		m.ID, m.TenantID, m.SessionID, m.Type, m.Method, m.Amount, m.Reference, m.RelatedSaleID, m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cash movement: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	s, err := r.GetByID(ctx, m.TenantID, m.SessionID)
	if err != nil {
		return err
	}
	if s == nil {
		return domain.ErrNotFound
	}
	return domain.ErrSessionClosed
}

func (r *CashRepo) ListMovements(ctx context.Context, tenantID, sessionID string) ([]*entity.CashMovement, error) {
	const query = `
		SELECT id, tenant_id, session_id, type, method, amount, reference, related_sale_id, created_by, created_at
		FROM cash_movements WHERE tenant_id = $1 AND session_id = $2 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, tenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list cash movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.CashMovement
	for rows.Next() {
		var m entity.CashMovement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.SessionID, &m.Type, &m.Method, &m.Amount,
			&m.Reference, &m.RelatedSaleID, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cash movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// Close solo cierra una sesión abierta; la fila cerrada no vuelve a cambiar.
func (r *CashRepo) Close(ctx context.Context, s *entity.CashSession) error {
	const query = `
		UPDATE cash_sessions
		SET closed_by = $3, closed_at = $4, closing_amount = $5, expected_amount = $6, difference = $7
		WHERE tenant_id = $1 AND id = $2 AND closed_at IS NULL`
	tag, err := r.q.Exec(ctx, query,
		s.TenantID, s.ID, s.ClosedBy, s.ClosedAt, s.ClosingAmount, s.ExpectedAmount, s.Difference,
	)
	if err != nil {
		return fmt.Errorf("close cash session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionClosed
	}
	return nil
}
