package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/filing"
)

// InvoiceHandler consultas de facturas, anulación y reencolado del documento electrónico.
type InvoiceHandler struct {
	orch       *billing.Orchestrator
	queries    *billing.InvoiceQueryUseCase
	pdf        *billing.PDFUseCase
	dispatcher *filing.Dispatcher
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(orch *billing.Orchestrator, queries *billing.InvoiceQueryUseCase, pdf *billing.PDFUseCase, dispatcher *filing.Dispatcher) *InvoiceHandler {
	return &InvoiceHandler{orch: orch, queries: queries, pdf: pdf, dispatcher: dispatcher}
}

// GetByID godoc
// @Summary      Detalle de factura
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	inv, err := h.queries.GetInvoice(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(inv)
}

// GetStatus godoc
// @Summary      Estado del documento electrónico
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la factura"
// @Success      200  {object}  dto.FilingStatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/status [get]
func (h *InvoiceHandler) GetStatus(c *fiber.Ctx) error {
	st, err := h.queries.GetInvoiceStatus(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(st)
}

// DownloadPDF godoc
// @Summary      Representación gráfica (PDF)
// @Description  Disponible cuando el documento electrónico ya está firmado.
// @Tags         invoices
// @Security     Bearer
// @Produce      application/pdf
// @Param        id      path      string  true   "ID de la factura"
// @Param        format  query     string  false  "letter (A4) o receipt (tirilla 80 mm)"
// @Success      200     {file}    binary
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	format, err := billing.ParsePDFFormat(c.Query("format"))
	if err != nil {
		return writeError(c, err)
	}
	pdf, filename, err := h.pdf.DownloadInvoicePDF(c.Context(), GetCompanyID(c), c.Params("id"), format)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdf)
}

// Void godoc
// @Summary      Anular factura
// @Description  Cambia el estado a VOIDED; el número queda consumido.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string                  true  "ID de la factura"
// @Param        Idempotency-Key  header  string                  true  "clave única de la solicitud"
// @Param        body             body    dto.VoidInvoiceRequest  true  "reason"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/void [post]
func (h *InvoiceHandler) Void(c *fiber.Ctx) error {
	var req dto.VoidInvoiceRequest
	key, err := parseBody(c, &req, &req.IdempotencyKey)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orch.VoidInvoice(c.Context(), GetCompanyID(c), GetUserID(c), key, c.Params("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOutcome(c, out)
}

// RequeueFiling godoc
// @Summary      Reencolar documento electrónico
// @Description  Para documentos que agotaron los reintentos. Un documento RECHAZADO no se reencola.
// @Tags         filing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del documento electrónico"
// @Success      200  {object}  dto.FilingStatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/filing/{id}/requeue [post]
func (h *InvoiceHandler) RequeueFiling(c *fiber.Ctx) error {
	doc, err := h.dispatcher.Requeue(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(billing.ToFilingStatusResponse(doc))
}
