package dian

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Códigos de tributo en la cadena del CUFE.
const (
	TaxIVA = "01"
	TaxICA = "03"
	TaxINC = "04"
)

// CUFEInput datos de la factura que entran en el CUFE.
type CUFEInput struct {
	Number       string // prefijo + consecutivo
	IssueDate    string // YYYY-MM-DD
	Subtotal     decimal.Decimal
	IVA          decimal.Decimal
	INC          decimal.Decimal
	ICA          decimal.Decimal
	Total        decimal.Decimal
	IssuerNIT    string
	BuyerID      string
	TechnicalKey string
	Environment  string // 1 producción, 2 habilitación
}

var (
	errCUFENumber = errors.New("dian: número de factura requerido para el CUFE")
	errCUFEDate   = errors.New("dian: fecha de emisión requerida para el CUFE")
	errCUFEIssuer = errors.New("dian: NIT del emisor requerido para el CUFE")
	errCUFEBuyer  = errors.New("dian: identificación del adquiriente requerida para el CUFE")
	errCUFEKey    = errors.New("dian: clave técnica requerida para el CUFE")
)

// CUFE SHA-384 en hex de la concatenación, sin separadores, de número, fecha, subtotal,
// cada tributo precedido de su código (01, 04, 03), total, NIT emisor, documento del
// adquiriente, clave técnica y ambiente.
func CUFE(in CUFEInput) (string, error) {
	number := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, in.Number)
	issuer, buyer := digits(in.IssuerNIT), digits(in.BuyerID)
	switch {
	case number == "":
		return "", errCUFENumber
	case in.IssueDate == "":
		return "", errCUFEDate
	case issuer == "":
		return "", errCUFEIssuer
	case buyer == "":
		return "", errCUFEBuyer
	case in.TechnicalKey == "":
		return "", errCUFEKey
	}
	env := in.Environment
	if env == "" {
		env = "1"
	}

	var b strings.Builder
	b.WriteString(number)
	b.WriteString(in.IssueDate)
	b.WriteString(amount(in.Subtotal))
	for _, t := range []struct {
		code string
		v    decimal.Decimal
	}{{TaxIVA, in.IVA}, {TaxINC, in.INC}, {TaxICA, in.ICA}} {
		b.WriteString(t.code)
		b.WriteString(amount(t.v))
	}
	b.WriteString(amount(in.Total))
	b.WriteString(issuer)
	b.WriteString(buyer)
	b.WriteString(in.TechnicalKey)
	b.WriteString(env)

	sum := sha512.Sum384([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// amount dos decimales con punto, sin miles.
func amount(d decimal.Decimal) string { return d.StringFixed(2) }

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
