package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-core/internal/application/catalog"
	"github.com/jhoicas/pos-core/internal/application/dto"
)

// CustomerHandler maneja las peticiones HTTP de clientes (facturación, protegido).
type CustomerHandler struct {
	svc *catalog.Service
}

// NewCustomerHandler construye el handler.
func NewCustomerHandler(svc *catalog.Service) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

// Create POST /api/customers
func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCustomerRequest
	if _, err := parseBody(c, &in, nil); err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.CreateCustomer(c.Context(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID GET /api/customers/:id
func (h *CustomerHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.GetCustomer(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
