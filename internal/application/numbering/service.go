package numbering

import (
	"context"
	"net/http"
	"time"

	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

// OperationConfigure tipo de operación registrado en idempotencia.
const OperationConfigure = "numbering.configure"

// Service casos de uso HTTP del rango de numeración.
type Service struct {
	gate  *idempotency.Gate
	alloc *Allocator
}

// NewService construye el caso de uso.
func NewService(gate *idempotency.Gate, alloc *Allocator) *Service {
	return &Service{gate: gate, alloc: alloc}
}

// Configure instala la resolución indicada en el request.
func (s *Service) Configure(ctx context.Context, tenantID, key string, req dto.ConfigureNumberingRequest) (*idempotency.Outcome[dto.NumberingRangeResponse], error) {
	cfg, err := toRangeConfig(req)
	if err != nil {
		return nil, err
	}
	return idempotency.Execute(ctx, s.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationConfigure,
		Payload:       req,
		SuccessStatus: http.StatusOK,
	}, func(ctx context.Context, r repository.TxRepos) (dto.NumberingRangeResponse, error) {
		rg, err := s.alloc.Configure(ctx, r, tenantID, cfg)
		if err != nil {
			return dto.NumberingRangeResponse{}, err
		}
		return ToRangeResponse(rg), nil
	})
}

// Remaining números disponibles.
func (s *Service) Remaining(ctx context.Context, tenantID string) (*dto.RemainingNumbersResponse, error) {
	rem, err := s.alloc.PeekRemaining(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &dto.RemainingNumbersResponse{Prefix: rem.Prefix, Status: rem.Status, Remaining: rem.Count, LowRange: rem.LowRange}, nil
}

// Current rango vigente.
func (s *Service) Current(ctx context.Context, tenantID string) (*dto.NumberingRangeResponse, error) {
	rg, err := s.alloc.Active(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := ToRangeResponse(rg)
	return &out, nil
}

func toRangeConfig(req dto.ConfigureNumberingRequest) (RangeConfig, error) {
	from, err := time.Parse(time.DateOnly, req.DateFrom)
	if err != nil {
		return RangeConfig{}, domain.NewValidationError("date_from", "fecha inválida, formato 2006-01-02")
	}
	to, err := time.Parse(time.DateOnly, req.DateTo)
	if err != nil {
		return RangeConfig{}, domain.NewValidationError("date_to", "fecha inválida, formato 2006-01-02")
	}
	return RangeConfig{
		ResolutionNumber: req.ResolutionNumber,
		TechnicalKey:     req.TechnicalKey,
		Prefix:           req.Prefix,
		RangeFrom:        req.RangeFrom,
		RangeTo:          req.RangeTo,
		DateFrom:         from,
		DateTo:           to,
		Environment:      req.Environment,
	}, nil
}

// ToRangeResponse mapea el rango a su DTO.
func ToRangeResponse(rg *entity.NumberingRange) dto.NumberingRangeResponse {
	return dto.NumberingRangeResponse{
		ID:               rg.ID,
		ResolutionNumber: rg.ResolutionNumber,
		Prefix:           rg.Prefix,
		RangeFrom:        rg.RangeFrom,
		RangeTo:          rg.RangeTo,
		NextNumber:       rg.NextNumber,
		DateFrom:         rg.DateFrom.Format(time.DateOnly),
		DateTo:           rg.DateTo.Format(time.DateOnly),
		Environment:      rg.Environment,
		Status:           rg.Status,
		Remaining:        rg.Remaining(),
	}
}
