package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-core/internal/application/cash"
	"github.com/jhoicas/pos-core/internal/application/dto"
)

// CashHandler sesiones de caja (protegido).
type CashHandler struct {
	ledger *cash.Ledger
}

// NewCashHandler construye el handler.
func NewCashHandler(ledger *cash.Ledger) *CashHandler {
	return &CashHandler{ledger: ledger}
}

// Open godoc
// @Summary      Abrir sesión de caja
// @Tags         cash
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                      true  "clave única de la solicitud"
// @Param        body             body    dto.OpenCashSessionRequest  true  "opening_amount"
// @Success      201   {object}  dto.CashSessionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cash-sessions [post]
func (h *CashHandler) Open(c *fiber.Ctx) error {
	var req dto.OpenCashSessionRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.ledger.Open(c.Context(), GetCompanyID(c), GetUserID(c), key, req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// AddMovement godoc
// @Summary      Movimiento manual de caja
// @Tags         cash
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string                   true  "ID de la sesión"
// @Param        Idempotency-Key  header  string                   true  "clave única de la solicitud"
// @Param        body             body    dto.CashMovementRequest  true  "type, method, amount"
// @Success      201   {object}  dto.CashMovementResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cash-sessions/{id}/movements [post]
func (h *CashHandler) AddMovement(c *fiber.Ctx) error {
	var req dto.CashMovementRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.ledger.AddMovement(c.Context(), GetCompanyID(c), GetUserID(c), key, c.Params("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// Close godoc
// @Summary      Cerrar sesión de caja
// @Description  Calcula el esperado y la diferencia contra el conteo físico.
// @Tags         cash
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string                       true  "ID de la sesión"
// @Param        Idempotency-Key  header  string                       true  "clave única de la solicitud"
// @Param        body             body    dto.CloseCashSessionRequest  true  "closing_amount"
// @Success      200   {object}  dto.CashSessionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cash-sessions/{id}/close [post]
func (h *CashHandler) Close(c *fiber.Ctx) error {
	var req dto.CloseCashSessionRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.ledger.Close(c.Context(), GetCompanyID(c), GetUserID(c), key, c.Params("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// Current godoc
// @Summary      Sesión de caja abierta
// @Tags         cash
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.CashSessionResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/cash-sessions/current [get]
func (h *CashHandler) Current(c *fiber.Ctx) error {
	s, err := h.ledger.Current(c.Context(), GetCompanyID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(s)
}

// GetByID godoc
// @Summary      Resumen de sesión de caja
// @Tags         cash
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la sesión"
// @Success      200  {object}  dto.CashSessionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/cash-sessions/{id} [get]
func (h *CashHandler) GetByID(c *fiber.Ctx) error {
	s, err := h.ledger.Summary(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(s)
}
