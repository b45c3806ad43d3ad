package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/inventory"
	"github.com/jhoicas/pos-core/internal/domain"
)

// InventoryHandler movimientos manuales y existencias (protegido).
type InventoryHandler struct {
	svc *inventory.Service
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(svc *inventory.Service) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                       true  "clave única de la solicitud"
// @Param        body             body    dto.RegisterMovementRequest  true  "type IN|OUT|ADJUST, items"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var req dto.RegisterMovementRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.RegisterMovement(c.Context(), GetCompanyID(c), GetUserID(c), key, req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// GetBalance godoc
// @Summary      Existencia de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path      string  true  "ID del producto"
// @Success      200         {object}  dto.StockBalanceResponse
// @Failure      404         {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/{product_id} [get]
func (h *InventoryHandler) GetBalance(c *fiber.Ctx) error {
	b, err := h.svc.GetBalance(c.Context(), GetCompanyID(c), c.Params("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(b)
}

// ListMovements godoc
// @Summary      Movimientos de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path      string  true   "ID del producto"
// @Param        limit       query     int     false  "máximo 100"
// @Param        offset      query     int     false  "desplazamiento"
// @Success      200         {array}   dto.MovementResponse
// @Router       /api/inventory/balances/{product_id}/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return writeError(c, domain.NewValidationError("query", "parámetros de paginación inválidos"))
	}
	if err := dto.Validate(page); err != nil {
		return writeError(c, err)
	}
	page.DefaultPage()
	list, err := h.svc.ListMovements(c.Context(), GetCompanyID(c), c.Params("product_id"), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}
