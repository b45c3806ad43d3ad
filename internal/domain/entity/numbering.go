package entity

import "time"

// Estados del rango de numeración.
const (
	RangeStatusActive     = "ACTIVE"
	RangeStatusExhausted  = "EXHAUSTED"
	RangeStatusSuperseded = "SUPERSEDED" // reemplazado por una nueva resolución
)

// NumberingRange rango de numeración autorizado por la DIAN (resolución de facturación).
// Invariante: RangeFrom <= NextNumber <= RangeTo+1. Solo un rango vigente por empresa.
type NumberingRange struct {
	ID               string
	TenantID         string
	ResolutionNumber string // Número de resolución (ej: "18764000000001")
	TechnicalKey     string // Clave técnica de la resolución (CUFE)
	Prefix           string // Prefijo autorizado (ej: "SETP", "FE")
	RangeFrom        int64
	RangeTo          int64
	NextNumber       int64
	DateFrom         time.Time // Inicio de vigencia
	DateTo           time.Time // Vencimiento
	Environment      string    // "1" = Producción, "2" = Pruebas
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Remaining números que aún se pueden emitir.
func (r *NumberingRange) Remaining() int64 {
	if r == nil || r.Status == RangeStatusSuperseded || r.NextNumber > r.RangeTo {
		return 0
	}
	return r.RangeTo - r.NextNumber + 1
}

// ValidOn indica si la resolución está vigente en la fecha dada (comparación por día).
func (r *NumberingRange) ValidOn(t time.Time) bool {
	day := t.Format("2006-01-02")
	return day >= r.DateFrom.Format("2006-01-02") && day <= r.DateTo.Format("2006-01-02")
}
