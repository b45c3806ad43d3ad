// Package dian reúne los códigos del Anexo Técnico de factura electrónica (v1.9) que usa el
// núcleo POS y las reglas del NIT.
package dian

// Unidades de cantidad (@unitCode, tabla 13.3.6). UnitUnit es la unidad por defecto de los productos.
const (
	UnitUnit     = "94"
	UnitKilogram = "KGM"
	UnitGram     = "GRM"
	UnitLitre    = "LTR"
	UnitMetre    = "MTR"
	UnitDozen    = "DZN"
	UnitHour     = "HUR"
)

// ValidMeasurementUnitCodes unidades aceptadas en las líneas; cualquier otra se emite como UnitUnit.
var ValidMeasurementUnitCodes = map[string]bool{
	UnitUnit:     true,
	UnitKilogram: true,
	UnitGram:     true,
	UnitLitre:    true,
	UnitMetre:    true,
	UnitDozen:    true,
	UnitHour:     true,
}

// La venta POS siempre es de contado (tabla 13.3.4.1).
const PaymentFormContado = "1"

// Medios de pago (tabla 13.3.4.2) a los que se traducen CASH, CARD y TRANSFER.
const (
	PaymentMethodEfectivo      = "10"
	PaymentMethodTransferencia = "47"
	PaymentMethodTarjetaDebito = "49"
)

const TaxCodeIVA = "01"

// Tipos de documento del adquiriente (tabla 13.2.1). El NIT exige dígito de verificación.
const (
	IdentificationTypeNIT = "31"
	IdentificationTypeCC  = "13"
)
