package http

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/pkg/jwt"
)

// Claves en c.Locals.
const (
	LocalUserID    = "user_id"
	LocalCompanyID = "company_id"
	LocalRole      = "role"
)

const (
	RoleAdmin     = "admin"
	RoleVendedor  = "vendedor"
	RoleBodeguero = "bodeguero"
)

func unauthorized(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// AuthMiddleware exige "Authorization: Bearer <token>" y deja la identidad en Locals. La
// empresa del token es el tenant de la petición.
func AuthMiddleware(tokens *jwt.Codec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if header == "" {
			return unauthorized(c, "MISSING_TOKEN", "Authorization header requerido")
		}
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return unauthorized(c, "INVALID_TOKEN", "formato: Bearer <token>")
		}
		if raw = strings.TrimSpace(raw); raw == "" {
			return unauthorized(c, "MISSING_TOKEN", "token vacío")
		}
		id, err := tokens.Verify(raw)
		if err != nil {
			return unauthorized(c, "INVALID_TOKEN", "token inválido o expirado")
		}
		c.Locals(LocalUserID, id.UserID)
		c.Locals(LocalCompanyID, id.CompanyID)
		c.Locals(LocalRole, id.Role)
		return c.Next()
	}
}

// RequireRole va después de AuthMiddleware. Token sin rol: 401 MISSING_ROLE; rol no
// permitido: 403 FORBIDDEN.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		switch {
		case role == "":
			return unauthorized(c, "MISSING_ROLE", "el token no incluye rol")
		case !slices.Contains(roles, role):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "FORBIDDEN",
				Message: "el rol '" + role + "' no tiene acceso a este recurso",
			})
		}
		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) string    { return local(c, LocalUserID) }
func GetCompanyID(c *fiber.Ctx) string { return local(c, LocalCompanyID) }
func GetRole(c *fiber.Ctx) string      { return local(c, LocalRole) }

func local(c *fiber.Ctx, key string) string {
	s, _ := c.Locals(key).(string)
	return s
}
