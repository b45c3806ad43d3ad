package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-core/internal/application/catalog"
	"github.com/jhoicas/pos-core/internal/application/dto"
)

// CompanyHandler datos de la empresa emisora del token.
type CompanyHandler struct {
	svc *catalog.Service
}

// NewCompanyHandler construye el handler.
func NewCompanyHandler(svc *catalog.Service) *CompanyHandler {
	return &CompanyHandler{svc: svc}
}

// Register godoc
// @Summary      Registrar la empresa emisora
// @Description  Una sola vez por tenant; el NIT debe incluir dígito de verificación válido.
// @Tags         company
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterCompanyRequest  true  "Datos del emisor"
// @Success      201   {object}  dto.CompanyResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/company [post]
func (h *CompanyHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterCompanyRequest
	if _, err := parseBody(c, &in, nil); err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.RegisterCompany(c.Context(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Get GET /api/company
func (h *CompanyHandler) Get(c *fiber.Ctx) error {
	out, err := h.svc.GetCompany(c.Context(), GetCompanyID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
