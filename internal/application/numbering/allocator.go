// Package numbering asigna números consecutivos de factura dentro del rango autorizado por la DIAN.
package numbering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/rs/zerolog"
)

// Recorder métricas de asignación.
type Recorder interface {
	NumberAllocated(tenantID string, remaining int64)
}

// Allocation número asignado a una factura.
type Allocation struct {
	RangeID          string
	ResolutionNumber string
	TechnicalKey     string
	Environment      string
	Prefix           string
	Number           int64
	Formatted        string
	RangeTo          int64
	Remaining        int64
}

// Remaining números disponibles del rango vigente.
type Remaining struct {
	Prefix   string
	Status   string
	Count    int64
	LowRange bool
}

// RangeConfig nueva resolución de numeración.
type RangeConfig struct {
	ResolutionNumber string
	TechnicalKey     string
	Prefix           string
	RangeFrom        int64
	RangeTo          int64
	DateFrom         time.Time
	DateTo           time.Time
	Environment      string
}

// Allocator asigna números. Allocate y Configure corren dentro de la transacción del llamador.
type Allocator struct {
	repo         repository.NumberingRepository
	lowThreshold int64
	metrics      Recorder
	log          zerolog.Logger
}

// NewAllocator construye el asignador. repo opera fuera de transacción (consultas).
func NewAllocator(repo repository.NumberingRepository, lowThreshold int64, metrics Recorder, log zerolog.Logger) *Allocator {
	return &Allocator{repo: repo, lowThreshold: lowThreshold, metrics: metrics, log: log}
}

// Allocate toma el siguiente número del rango activo. Dos llamadas concurrentes nunca
// reciben el mismo número; si la transacción se revierte el número vuelve al rango.
func (a *Allocator) Allocate(ctx context.Context, r repository.TxRepos, tenantID string, today time.Time) (*Allocation, error) {
	rg, number, err := r.Numbering.AllocateNext(ctx, tenantID, today)
	if err != nil {
		return nil, fmt.Errorf("asignar número: %w", err)
	}
	if rg == nil {
		return nil, a.diagnose(ctx, r.Numbering, tenantID, today)
	}
	alloc := &Allocation{
		RangeID:          rg.ID,
		ResolutionNumber: rg.ResolutionNumber,
		TechnicalKey:     rg.TechnicalKey,
		Environment:      rg.Environment,
		Prefix:           rg.Prefix,
		Number:           number,
		Formatted:        entity.FormatInvoiceNumber(rg.Prefix, number),
		RangeTo:          rg.RangeTo,
		Remaining:        rg.RangeTo - number,
	}
	if a.metrics != nil {
		a.metrics.NumberAllocated(tenantID, alloc.Remaining)
	}
	if alloc.Remaining <= a.lowThreshold {
		a.log.Warn().Str("tenant_id", tenantID).Str("prefix", rg.Prefix).Int64("remaining", alloc.Remaining).
			Msg("rango de numeración por agotarse")
	}
	return alloc, nil
}

// diagnose explica por qué no se pudo asignar.
func (a *Allocator) diagnose(ctx context.Context, repo repository.NumberingRepository, tenantID string, today time.Time) error {
	rg, err := repo.Latest(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("consultar rango de numeración: %w", err)
	}
	switch {
	case rg == nil:
		return domain.ErrRangeNotConfigured
	case rg.Status == entity.RangeStatusExhausted || rg.NextNumber > rg.RangeTo:
		return domain.ErrRangeExhausted
	case !rg.ValidOn(today):
		return domain.ErrRangeExpired
	default:
		return domain.ErrRangeNotConfigured
	}
}

// PeekRemaining números que quedan en el rango vigente. No reserva nada.
func (a *Allocator) PeekRemaining(ctx context.Context, tenantID string) (*Remaining, error) {
	rg, err := a.repo.Latest(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if rg == nil {
		return &Remaining{LowRange: true}, nil
	}
	out := &Remaining{Prefix: rg.Prefix, Status: rg.Status, Count: rg.Remaining()}
	out.LowRange = out.Count <= a.lowThreshold
	if out.LowRange {
		a.log.Warn().Str("tenant_id", tenantID).Str("prefix", rg.Prefix).Int64("remaining", out.Count).
			Msg("rango de numeración bajo, solicite una nueva resolución")
	}
	return out, nil
}

// Active rango vigente (o el último agotado). domain.ErrRangeNotConfigured si no hay.
func (a *Allocator) Active(ctx context.Context, tenantID string) (*entity.NumberingRange, error) {
	rg, err := a.repo.Latest(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if rg == nil {
		return nil, domain.ErrRangeNotConfigured
	}
	return rg, nil
}

// Configure instala una resolución. Con el mismo prefijo y vigencias solapadas se conserva el
// consecutivo (nunca retrocede); con otro prefijo el rango anterior queda reemplazado.
func (a *Allocator) Configure(ctx context.Context, r repository.TxRepos, tenantID string, cfg RangeConfig) (*entity.NumberingRange, error) {
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	current, err := r.Numbering.Latest(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Prefix == cfg.Prefix && overlaps(current, cfg) {
		if cfg.RangeTo < current.NextNumber-1 {
			return nil, domain.NewValidationError("range_to", "no puede ser menor que el último número emitido")
		}
		current.ResolutionNumber = cfg.ResolutionNumber
		current.TechnicalKey = cfg.TechnicalKey
		current.RangeFrom = cfg.RangeFrom
		current.RangeTo = cfg.RangeTo
		current.DateFrom = cfg.DateFrom
		current.DateTo = cfg.DateTo
		current.Environment = cfg.Environment
		if current.NextNumber < cfg.RangeFrom {
			current.NextNumber = cfg.RangeFrom
		}
		current.Status = entity.RangeStatusActive
		if current.NextNumber > current.RangeTo {
			current.Status = entity.RangeStatusExhausted
		}
		current.UpdatedAt = now
		if err := r.Numbering.Update(ctx, current); err != nil {
			return nil, err
		}
		a.log.Info().Str("tenant_id", tenantID).Str("prefix", cfg.Prefix).Int64("next_number", current.NextNumber).
			Msg("resolución de numeración actualizada")
		return current, nil
	}

	if err := r.Numbering.Supersede(ctx, tenantID); err != nil {
		return nil, err
	}
	rg := &entity.NumberingRange{
		TenantID:         tenantID,
		ResolutionNumber: cfg.ResolutionNumber,
		TechnicalKey:     cfg.TechnicalKey,
		Prefix:           cfg.Prefix,
		RangeFrom:        cfg.RangeFrom,
		RangeTo:          cfg.RangeTo,
		NextNumber:       cfg.RangeFrom,
		DateFrom:         cfg.DateFrom,
		DateTo:           cfg.DateTo,
		Environment:      cfg.Environment,
		Status:           entity.RangeStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.Numbering.Create(ctx, rg); err != nil {
		return nil, err
	}
	a.log.Info().Str("tenant_id", tenantID).Str("prefix", cfg.Prefix).Int64("range_from", cfg.RangeFrom).
		Int64("range_to", cfg.RangeTo).Msg("nueva resolución de numeración")
	return rg, nil
}

func (c RangeConfig) validate() error {
	fields := map[string]string{}
	if c.Prefix == "" {
		fields["prefix"] = "es obligatorio"
	}
	if c.ResolutionNumber == "" {
		fields["resolution_number"] = "es obligatorio"
	}
	if c.RangeFrom < 1 {
		fields["range_from"] = "debe ser mayor o igual a 1"
	}
	if c.RangeTo < c.RangeFrom {
		fields["range_to"] = "debe ser mayor o igual a range_from"
	}
	if c.DateTo.Before(c.DateFrom) {
		fields["date_to"] = "debe ser posterior a date_from"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func overlaps(rg *entity.NumberingRange, cfg RangeConfig) bool {
	return !cfg.DateFrom.After(rg.DateTo) && !cfg.DateTo.Before(rg.DateFrom)
}

// IsLow indica si quedan pocos números (umbral configurado).
func (a *Allocator) IsLow(remaining int64) bool {
	return remaining <= a.lowThreshold
}
