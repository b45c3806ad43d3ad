// Package cash administra las sesiones de caja y sus movimientos de dinero.
package cash

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Tipos de operación registrados en idempotencia.
const (
	OperationOpen     = "cash.open"
	OperationMovement = "cash.movement"
	OperationClose    = "cash.close"
)

// MovementInput movimiento de dinero a registrar en una sesión.
type MovementInput struct {
	SessionID     string
	Type          string
	Method        string
	Amount        decimal.Decimal
	Reference     string
	RelatedSaleID string
	CreatedBy     string
}

// Ledger sesiones de caja.
type Ledger struct {
	gate     *idempotency.Gate
	sessions repository.CashRepository
	log      zerolog.Logger
}

// NewLedger construye el ledger. sessions opera fuera de transacción (lecturas).
func NewLedger(gate *idempotency.Gate, sessions repository.CashRepository, log zerolog.Logger) *Ledger {
	return &Ledger{gate: gate, sessions: sessions, log: log}
}

// Open abre una sesión. domain.ErrSessionAlreadyOpen si la empresa ya tiene una abierta.
func (l *Ledger) Open(ctx context.Context, tenantID, userID, key string, req dto.OpenCashSessionRequest) (*idempotency.Outcome[dto.CashSessionResponse], error) {
	if req.OpeningAmount.IsNegative() {
		return nil, domain.NewValidationError("opening_amount", "debe ser mayor o igual a 0")
	}
	return idempotency.Execute(ctx, l.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationOpen,
		Payload:       req,
		SuccessStatus: http.StatusCreated,
	}, func(ctx context.Context, r repository.TxRepos) (dto.CashSessionResponse, error) {
		s := &entity.CashSession{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			OpenedBy:      userID,
			OpeningAmount: req.OpeningAmount,
			OpenedAt:      time.Now().UTC(),
		}
		if err := r.Cash.Open(ctx, s); err != nil {
			return dto.CashSessionResponse{}, err
		}
		l.log.Info().Str("tenant_id", tenantID).Str("session_id", s.ID).Str("opening_amount", s.OpeningAmount.String()).
			Msg("sesión de caja abierta")
		return ToSessionResponse(s, nil, false), nil
	})
}

// AddMovementTx registra el movimiento dentro de la transacción del llamador. La inserción
// solo ocurre si la sesión sigue abierta en ese instante.
func (l *Ledger) AddMovementTx(ctx context.Context, r repository.TxRepos, tenantID string, in MovementInput) (*entity.CashMovement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	m := &entity.CashMovement{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		SessionID:     in.SessionID,
		Type:          in.Type,
		Method:        in.Method,
		Amount:        in.Amount,
		Reference:     in.Reference,
		RelatedSaleID: in.RelatedSaleID,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.Cash.AddMovement(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// AddMovement gasto, ingreso o ajuste manual sobre la sesión.
func (l *Ledger) AddMovement(ctx context.Context, tenantID, userID, key, sessionID string, req dto.CashMovementRequest) (*idempotency.Outcome[dto.CashMovementResponse], error) {
	in := MovementInput{
		SessionID: sessionID,
		Type:      req.Type,
		Method:    req.Method,
		Amount:    req.Amount,
		Reference: req.Reference,
		CreatedBy: userID,
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	payload := struct {
		SessionID string                  `json:"session_id"`
		Movement  dto.CashMovementRequest `json:"movement"`
	}{sessionID, req}
	return idempotency.Execute(ctx, l.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationMovement,
		Payload:       payload,
		SuccessStatus: http.StatusCreated,
	}, func(ctx context.Context, r repository.TxRepos) (dto.CashMovementResponse, error) {
		m, err := l.AddMovementTx(ctx, r, tenantID, in)
		if err != nil {
			return dto.CashMovementResponse{}, err
		}
		return ToMovementResponse(m), nil
	})
}

// Close cierra la sesión con el arqueo: esperado = apertura + ΣIN − ΣOUT + ΣADJUST.
// Una sesión cerrada no admite más cambios.
func (l *Ledger) Close(ctx context.Context, tenantID, userID, key, sessionID string, req dto.CloseCashSessionRequest) (*idempotency.Outcome[dto.CashSessionResponse], error) {
	if req.ClosingAmount.IsNegative() {
		return nil, domain.NewValidationError("closing_amount", "debe ser mayor o igual a 0")
	}
	payload := struct {
		SessionID string                      `json:"session_id"`
		Close     dto.CloseCashSessionRequest `json:"close"`
	}{sessionID, req}
	return idempotency.Execute(ctx, l.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationClose,
		Payload:       payload,
		SuccessStatus: http.StatusOK,
	}, func(ctx context.Context, r repository.TxRepos) (dto.CashSessionResponse, error) {
		s, err := r.Cash.GetForUpdate(ctx, tenantID, sessionID)
		if err != nil {
			return dto.CashSessionResponse{}, err
		}
		if s == nil {
			return dto.CashSessionResponse{}, domain.ErrNotFound
		}
		if !s.IsOpen() {
			return dto.CashSessionResponse{}, domain.ErrSessionClosed
		}
		movements, err := r.Cash.ListMovements(ctx, tenantID, sessionID)
		if err != nil {
			return dto.CashSessionResponse{}, err
		}
		now := time.Now().UTC()
		s.ClosedBy = userID
		s.ClosedAt = &now
		s.ClosingAmount = req.ClosingAmount
		s.ExpectedAmount = entity.ExpectedCash(s.OpeningAmount, movements)
		s.Difference = s.ClosingAmount.Sub(s.ExpectedAmount)
		if err := r.Cash.Close(ctx, s); err != nil {
			return dto.CashSessionResponse{}, err
		}
		l.log.Info().Str("tenant_id", tenantID).Str("session_id", s.ID).Str("expected", s.ExpectedAmount.String()).
			Str("difference", s.Difference.String()).Msg("sesión de caja cerrada")
		return ToSessionResponse(s, movements, false), nil
	})
}

// ResolveSession sesión donde registrar un cobro: la indicada o, si sessionID es vacío, la abierta.
func (l *Ledger) ResolveSession(ctx context.Context, r repository.TxRepos, tenantID, sessionID string) (*entity.CashSession, error) {
	if sessionID == "" {
		s, err := r.Cash.GetOpen(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, domain.ErrNoOpenSession
		}
		return s, nil
	}
	s, err := r.Cash.GetByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("sesión de caja: %w", domain.ErrNotFound)
	}
	if !s.IsOpen() {
		return nil, domain.ErrSessionClosed
	}
	return s, nil
}

// Current sesión abierta con sus movimientos. domain.ErrNoOpenSession si no hay.
func (l *Ledger) Current(ctx context.Context, tenantID string) (*dto.CashSessionResponse, error) {
	s, err := l.sessions.GetOpen(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrNoOpenSession
	}
	return l.summary(ctx, s)
}

// Summary sesión (abierta o cerrada) con sus movimientos y totales.
func (l *Ledger) Summary(ctx context.Context, tenantID, sessionID string) (*dto.CashSessionResponse, error) {
	s, err := l.sessions.GetByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	return l.summary(ctx, s)
}

func (l *Ledger) summary(ctx context.Context, s *entity.CashSession) (*dto.CashSessionResponse, error) {
	movements, err := l.sessions.ListMovements(ctx, s.TenantID, s.ID)
	if err != nil {
		return nil, err
	}
	out := ToSessionResponse(s, movements, true)
	return &out, nil
}

func (in MovementInput) validate() error {
	switch in.Type {
	case entity.CashMovementIN, entity.CashMovementOUT:
		if !in.Amount.IsPositive() {
			return domain.NewValidationError("amount", "debe ser mayor que 0")
		}
	case entity.CashMovementADJUST:
		if in.Amount.IsZero() {
			return domain.NewValidationError("amount", "no puede ser cero")
		}
	default:
		return domain.NewValidationError("type", "debe ser uno de: IN OUT ADJUST")
	}
	switch in.Method {
	case entity.PaymentMethodCash, entity.PaymentMethodCard, entity.PaymentMethodTransfer:
	default:
		return domain.NewValidationError("method", "debe ser uno de: CASH CARD TRANSFER")
	}
	if in.SessionID == "" {
		return domain.NewValidationError("session_id", "es obligatorio")
	}
	return nil
}

// ToSessionResponse mapea la sesión. Para una sesión abierta el esperado se calcula a la fecha.
func ToSessionResponse(s *entity.CashSession, movements []*entity.CashMovement, withMovements bool) dto.CashSessionResponse {
	out := dto.CashSessionResponse{
		ID:            s.ID,
		Status:        "OPEN",
		OpenedBy:      s.OpenedBy,
		OpenedAt:      dto.FormatTime(s.OpenedAt),
		OpeningAmount: s.OpeningAmount,
	}
	for _, m := range movements {
		switch m.Type {
		case entity.CashMovementIN:
			out.Totals.In = out.Totals.In.Add(m.Amount)
		case entity.CashMovementOUT:
			out.Totals.Out = out.Totals.Out.Add(m.Amount)
		case entity.CashMovementADJUST:
			out.Totals.Adjust = out.Totals.Adjust.Add(m.Amount)
		}
		if withMovements {
			out.Movements = append(out.Movements, ToMovementResponse(m))
		}
	}
	if s.IsOpen() {
		out.ExpectedAmount = entity.ExpectedCash(s.OpeningAmount, movements)
		return out
	}
	out.Status = "CLOSED"
	out.ClosedBy = s.ClosedBy
	out.ClosedAt = dto.FormatTimePtr(s.ClosedAt)
	closing, diff := s.ClosingAmount, s.Difference
	out.ClosingAmount = &closing
	out.ExpectedAmount = s.ExpectedAmount
	out.Difference = &diff
	return out
}

// ToMovementResponse mapea el movimiento de caja.
func ToMovementResponse(m *entity.CashMovement) dto.CashMovementResponse {
	return dto.CashMovementResponse{
		ID:            m.ID,
		SessionID:     m.SessionID,
		Type:          m.Type,
		Method:        m.Method,
		Amount:        m.Amount,
		Reference:     m.Reference,
		RelatedSaleID: m.RelatedSaleID,
		CreatedAt:     dto.FormatTime(m.CreatedAt),
	}
}
