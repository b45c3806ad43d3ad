package http

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/domain"
)

// Cabeceras del protocolo de idempotencia.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// idempotencyKey toma la clave de la cabecera o, si falta, del campo del cuerpo. El campo
// se limpia para que el hash de la solicitud no dependa de dónde llegó la clave.
func idempotencyKey(c *fiber.Ctx, bodyKey *string) string {
	key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
	if bodyKey != nil {
		if key == "" {
			key = strings.TrimSpace(*bodyKey)
		}
		*bodyKey = ""
	}
	return key
}

// parseBody decodifica y valida el cuerpo JSON. Devuelve la clave de idempotencia.
func parseBody(c *fiber.Ctx, req any, bodyKey *string) (string, error) {
	if err := c.BodyParser(req); err != nil {
		return "", domain.NewValidationError("body", "JSON inválido")
	}
	key := idempotencyKey(c, bodyKey)
	if err := dto.Validate(req); err != nil {
		return key, err
	}
	return key, nil
}

// keyOnly cuerpo de las acciones sin datos propias (recibir orden de compra).
type keyOnly struct {
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// keyFromOptionalBody acepta cuerpo vacío.
func keyFromOptionalBody(c *fiber.Ctx) (string, error) {
	var body keyOnly
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return "", domain.NewValidationError("body", "JSON inválido")
		}
	}
	return idempotencyKey(c, &body.IdempotencyKey), nil
}

// writeOutcome responde con los bytes y el código registrados. Una repetición devuelve
// exactamente la misma respuesta que la primera ejecución.
func writeOutcome[T any](c *fiber.Ctx, out *idempotency.Outcome[T]) error {
	if out.Replayed {
		c.Set(HeaderReplayed, "true")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(out.Status).Send(out.Body)
}

// writeError traduce el error de dominio al código HTTP y al cuerpo ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	status, body := errorResponse(err)
	var busy *domain.InProgressError
	if errors.As(err, &busy) {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds(busy.RetryAfter))
	}
	return c.Status(status).JSON(body)
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	code := domain.CodeOf(err)
	body := dto.ErrorResponse{Code: code, Message: err.Error()}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, body
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, body
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, body
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "TRANSIENT", Message: "la operación no terminó, reintente con la misma clave"}
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		return fiber.StatusBadRequest, body
	case domain.KindConflict, domain.KindDuplicate:
		return fiber.StatusConflict, body
	}
	// Los errores internos no se exponen.
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno, reintente con la misma clave"}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// ErrorHandler manejador de errores de la app fiber (rutas inexistentes, pánicos recuperados).
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "HTTP_ERROR"
		switch fe.Code {
		case fiber.StatusNotFound:
			code = "NOT_FOUND"
		case fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case fiber.StatusRequestEntityTooLarge:
			code = "BODY_TOO_LARGE"
		}
		return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: code, Message: fe.Message})
	}
	return writeError(c, err)
}
