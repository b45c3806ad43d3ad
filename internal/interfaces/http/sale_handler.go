package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/domain"
)

// SaleHandler ventas, cotizaciones, órdenes de compra y devoluciones (protegido).
type SaleHandler struct {
	orch *billing.Orchestrator
}

// NewSaleHandler construye el handler.
func NewSaleHandler(orch *billing.Orchestrator) *SaleHandler {
	return &SaleHandler{orch: orch}
}

// CreateSale godoc
// @Summary      Registrar venta
// @Description  Asigna número de factura, descuenta inventario, registra el ingreso en caja y deja el documento electrónico pendiente.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                 true  "clave única de la solicitud"
// @Param        body             body    dto.CreateSaleRequest  true  "items, payment_method, cash_session_id"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req dto.CreateSaleRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orch.CreateSale(c.Context(), GetCompanyID(c), GetUserID(c), key, req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// CreateQuote godoc
// @Summary      Crear cotización
// @Tags         quotes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                  true  "clave única de la solicitud"
// @Param        body             body    dto.CreateQuoteRequest  true  "items"
// @Success      201   {object}  dto.QuoteResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/quotes [post]
func (h *SaleHandler) CreateQuote(c *fiber.Ctx) error {
	var req dto.CreateQuoteRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orch.CreateQuote(c.Context(), GetCompanyID(c), GetUserID(c), key, req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// ConvertQuote godoc
// @Summary      Convertir cotización en venta
// @Tags         quotes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string                   true  "ID de la cotización"
// @Param        Idempotency-Key  header  string                   true  "clave única de la solicitud"
// @Param        body             body    dto.ConvertQuoteRequest  true  "payment_method, cash_session_id"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/quotes/{id}/convert [post]
func (h *SaleHandler) ConvertQuote(c *fiber.Ctx) error {
	var req dto.ConvertQuoteRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orch.ConvertQuote(c.Context(), GetCompanyID(c), GetUserID(c), key, c.Params("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// CreatePurchaseOrder godoc
// @Summary      Crear orden de compra
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                          true  "clave única de la solicitud"
// @Param        body             body    dto.CreatePurchaseOrderRequest  true  "supplier, items"
// @Success      201   {object}  dto.PurchaseOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders [post]
func (h *SaleHandler) CreatePurchaseOrder(c *fiber.Ctx) error {
	var req dto.CreatePurchaseOrderRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orch.CreatePurchaseOrder(c.Context(), GetCompanyID(c), GetUserID(c), key, req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// ReceivePurchaseOrder godoc
// @Summary      Recibir orden de compra
// @Description  Registra la entrada de inventario con los costos de la orden.
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id               path    string  true  "ID de la orden"
// @Param        Idempotency-Key  header  string  true  "clave única de la solicitud"
// @Success      200   {object}  dto.PurchaseOrderResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/receive [post]
func (h *SaleHandler) ReceivePurchaseOrder(c *fiber.Ctx) error {
	key, err := keyFromOptionalBody(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orch.ReceivePurchaseOrder(c.Context(), GetCompanyID(c), GetUserID(c), key, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// CreateReturn godoc
// @Summary      Registrar devolución
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                   true  "clave única de la solicitud"
// @Param        body             body    dto.CreateReturnRequest  true  "invoice_id, items, refund_method"
// @Success      201   {object}  dto.ReturnResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/returns [post]
func (h *SaleHandler) CreateReturn(c *fiber.Ctx) error {
	var req dto.CreateReturnRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orch.CreateReturn(c.Context(), GetCompanyID(c), GetUserID(c), key, req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// requireTenant corta la cadena si el token no trajo empresa o usuario.
func requireTenant(c *fiber.Ctx) error {
	if GetCompanyID(c) == "" || GetUserID(c) == "" {
		return writeError(c, domain.ErrUnauthorized)
	}
	return c.Next()
}
