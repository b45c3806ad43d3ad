package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Numeración
	ErrRangeExhausted     = errors.New("rango de numeración agotado")
	ErrRangeNotConfigured = errors.New("no hay rango de numeración configurado")
	ErrRangeExpired       = errors.New("el rango de numeración no está vigente")

	// Caja
	ErrSessionAlreadyOpen = errors.New("ya existe una sesión de caja abierta")
	ErrSessionClosed      = errors.New("la sesión de caja está cerrada")
	ErrNoOpenSession      = errors.New("no hay sesión de caja abierta")

	// Idempotencia
	ErrRequestInProgress   = errors.New("la solicitud se está procesando")
	ErrIdempotencyMismatch = errors.New("la clave de idempotencia ya se usó con otra operación o contenido")
	ErrLeaseLost           = errors.New("se perdió la reserva de la solicitud")

	// Documentos
	ErrInvalidTransition   = errors.New("transición de estado inválida")
	ErrQuoteNotOpen        = errors.New("la cotización no está abierta")
	ErrPurchaseOrderClosed = errors.New("la orden de compra ya fue recibida")
	ErrReturnExceedsSold   = errors.New("la cantidad devuelta supera la vendida")
	ErrInvoiceVoided       = errors.New("la factura está anulada")
)

// Kind clasifica un error según cómo debe reaccionar el llamador.
type Kind string

const (
	KindValidation     Kind = "VALIDATION"      // corregir y reintentar
	KindConflict       Kind = "CONFLICT"        // resolver el conflicto y reintentar
	KindDuplicate      Kind = "DUPLICATE"       // solicitud repetida
	KindTransient      Kind = "TRANSIENT"       // resultado desconocido, reintentar igual
	KindExternalFiling Kind = "EXTERNAL_FILING" // aislado al documento electrónico
)

// errorCodes código estable por sentinel (respuesta HTTP y registro de idempotencia).
var errorCodes = []struct {
	err  error
	code string
	kind Kind
}{
	{ErrInvalidInput, "VALIDATION", KindValidation},
	{ErrNotFound, "NOT_FOUND", KindValidation},
	{ErrForbidden, "FORBIDDEN", KindValidation},
	{ErrUnauthorized, "UNAUTHORIZED", KindValidation},
	{ErrIdempotencyMismatch, "IDEMPOTENCY_MISMATCH", KindValidation},
	{ErrInsufficientStock, "INSUFFICIENT_STOCK", KindConflict},
	{ErrRangeExhausted, "RANGE_EXHAUSTED", KindConflict},
	{ErrRangeNotConfigured, "RANGE_NOT_CONFIGURED", KindConflict},
	{ErrRangeExpired, "RANGE_EXPIRED", KindConflict},
	{ErrSessionAlreadyOpen, "SESSION_ALREADY_OPEN", KindConflict},
	{ErrSessionClosed, "SESSION_CLOSED", KindConflict},
	{ErrNoOpenSession, "NO_OPEN_SESSION", KindConflict},
	{ErrInvalidTransition, "INVALID_TRANSITION", KindConflict},
	{ErrQuoteNotOpen, "QUOTE_NOT_OPEN", KindConflict},
	{ErrPurchaseOrderClosed, "PURCHASE_ORDER_CLOSED", KindConflict},
	{ErrReturnExceedsSold, "RETURN_EXCEEDS_SOLD", KindConflict},
	{ErrInvoiceVoided, "INVOICE_VOIDED", KindConflict},
	{ErrConflict, "CONFLICT", KindConflict},
	{ErrRequestInProgress, "REQUEST_IN_PROGRESS", KindDuplicate},
	{ErrLeaseLost, "REQUEST_IN_PROGRESS", KindDuplicate},
	{ErrDuplicate, "DUPLICATE", KindDuplicate},
}

// CodeOf devuelve el código estable del error ("INTERNAL" si no es de dominio).
func CodeOf(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return "INTERNAL"
}

// KindOf clasifica el error. Los errores desconocidos se tratan como transitorios.
func KindOf(err error) Kind {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindTransient
}

// IsDeterministic indica si repetir la misma solicitud produciría el mismo error.
func IsDeterministic(err error) bool {
	k := KindOf(err)
	return k == KindValidation || k == KindConflict
}

// sentinelByCode es el inverso de errorCodes para reconstruir fallos registrados.
func sentinelByCode(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return nil
}

// ValidationError errores de validación por campo.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrInvalidInput.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError atajo para un único campo.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// InsufficientStockError indica qué producto no alcanzó.
type InsufficientStockError struct {
	ProductID string
	Requested string
	Available string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para el producto %s (solicitado %s, disponible %s)", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InProgressError solicitud concurrente con la misma clave; RetryAfter sugiere cuándo reintentar.
type InProgressError struct {
	RetryAfter time.Duration
}

func (e *InProgressError) Error() string { return ErrRequestInProgress.Error() }

func (e *InProgressError) Unwrap() error { return ErrRequestInProgress }

// RecordedFailure fallo ya registrado contra una clave de idempotencia. Se devuelve en cada
// repetición de la solicitud con el mismo código y mensaje.
type RecordedFailure struct {
	Code    string
	Message string
}

func (e *RecordedFailure) Error() string { return e.Message }

func (e *RecordedFailure) Unwrap() error {
	if s := sentinelByCode(e.Code); s != nil {
		return s
	}
	return ErrConflict
}
