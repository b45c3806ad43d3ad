package entity

import "time"

// Estados del documento electrónico ante la DIAN.
const (
	FilingStatusDraft    = "DRAFT"
	FilingStatusSigned   = "SIGNED"
	FilingStatusSent     = "SENT"
	FilingStatusAccepted = "ACCEPTED"
	FilingStatusRejected = "REJECTED"
)

var filingTransitions = map[string][]string{
	FilingStatusDraft:  {FilingStatusSigned},
	FilingStatusSigned: {FilingStatusSent, FilingStatusRejected},
	FilingStatusSent:   {FilingStatusAccepted, FilingStatusRejected},
}

// FilingDocument envío de una factura a la DIAN. Vive fuera de la transacción de la venta:
// su resultado nunca invalida la factura.
type FilingDocument struct {
	ID            string
	TenantID      string
	InvoiceID     string
	Status        string
	Attempts      int
	NextAttemptAt *time.Time // nil = no se reprograma (terminal o reintentos agotados)
	LockedBy      string
	LockedUntil   *time.Time
	TrackID       string // ZipKey devuelto por la DIAN
	CUFE          string
	QRData        string
	SignedXML     []byte
	ZipName       string
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// CanTransition valida la máquina de estados DRAFT → SIGNED → SENT → ACCEPTED | REJECTED.
func CanTransition(from, to string) bool {
	for _, s := range filingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal ACCEPTED y REJECTED no se reintentan.
func (d *FilingDocument) IsTerminal() bool {
	return d.Status == FilingStatusAccepted || d.Status == FilingStatusRejected
}
