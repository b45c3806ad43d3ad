package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/numbering"
)

// NumberingHandler resolución de numeración e inspección de claves de idempotencia.
type NumberingHandler struct {
	svc  *numbering.Service
	gate *idempotency.Gate
}

// NewNumberingHandler construye el handler.
func NewNumberingHandler(svc *numbering.Service, gate *idempotency.Gate) *NumberingHandler {
	return &NumberingHandler{svc: svc, gate: gate}
}

// Configure godoc
// @Summary      Configurar resolución de numeración
// @Description  Reemplaza el rango vigente. Con el mismo prefijo el consecutivo nunca retrocede.
// @Tags         numbering
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                         true  "clave única de la solicitud"
// @Param        body             body    dto.ConfigureNumberingRequest  true  "resolución DIAN"
// @Success      200   {object}  dto.NumberingRangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/numbering-range [put]
func (h *NumberingHandler) Configure(c *fiber.Ctx) error {
	var req dto.ConfigureNumberingRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.Configure(c.Context(), GetCompanyID(c), key, req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// Current godoc
// @Summary      Rango de numeración vigente
// @Tags         numbering
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.NumberingRangeResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/numbering-range [get]
func (h *NumberingHandler) Current(c *fiber.Ctx) error {
	rg, err := h.svc.Current(c.Context(), GetCompanyID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rg)
}

// Remaining godoc
// @Summary      Números disponibles
// @Tags         numbering
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.RemainingNumbersResponse
// @Router       /api/numbering-range/remaining [get]
func (h *NumberingHandler) Remaining(c *fiber.Ctx) error {
	rem, err := h.svc.Remaining(c.Context(), GetCompanyID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rem)
}

// LookupKey godoc
// @Summary      Estado de una clave de idempotencia
// @Tags         idempotency
// @Security     Bearer
// @Produce      json
// @Param        key  path      string  true  "clave de idempotencia"
// @Success      200  {object}  dto.IdempotencyRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/idempotency/{key} [get]
func (h *NumberingHandler) LookupKey(c *fiber.Ctx) error {
	rec, err := h.gate.Lookup(c.Context(), GetCompanyID(c), c.Params("key"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.IdempotencyRecordResponse{
		Key:          rec.RequestKey,
		Operation:    rec.OperationType,
		Status:       rec.Status,
		Attempt:      rec.Attempt,
		ResponseCode: rec.ResponseCode,
		ErrorCode:    rec.ErrorCode,
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    dto.FormatTime(rec.CreatedAt),
		CompletedAt:  dto.FormatTimePtr(rec.CompletedAt),
	})
}
