package filing

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// ErrLockBusy otro proceso tiene el turno de envío del emisor.
var ErrLockBusy = errors.New("otro proceso está enviando documentos de este emisor")

// Bundle datos de la factura necesarios para armar el documento electrónico.
type Bundle struct {
	Invoice  *entity.Invoice
	Sale     *entity.Sale // nil si la venta no se encuentra; se asume contado en efectivo
	Details  []*entity.InvoiceDetail
	Products map[string]*entity.Product
	Company  *entity.Company
	Customer *entity.Customer
	Range    *entity.NumberingRange
}

// Signed documento UBL firmado, listo para empaquetar.
type Signed struct {
	XML      []byte
	CUFE     string
	QRData   string
	FileName string // nombre del ZIP a enviar
}

// Builder arma, calcula el CUFE y firma el XML de la factura.
type Builder interface {
	Build(ctx context.Context, b *Bundle) (*Signed, error)
}

// SubmitResult respuesta de la recepción asíncrona.
type SubmitResult struct {
	TrackID  string
	Accepted bool // recibido para validación
	Errors   string
}

// StatusResult respuesta de la consulta de estado. Done=false: la DIAN sigue validando.
type StatusResult struct {
	Done     bool
	Accepted bool
	Errors   string
}

// Submitter transporte hacia la DIAN. Un error significa resultado desconocido (se reintenta).
type Submitter interface {
	Submit(ctx context.Context, fileName string, signedXML []byte) (*SubmitResult, error)
	Status(ctx context.Context, trackID string) (*StatusResult, error)
}

// Unlocker libera un lock obtenido.
type Unlocker interface {
	Release(ctx context.Context) error
}

// Locker exclusión entre instancias. Obtain devuelve ErrLockBusy si el lock está tomado.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Unlocker, error)
}

// Recorder métricas del despachador.
type Recorder interface {
	FilingTransition(from, to string)
	FilingRetry(status string, exhausted bool)
}
