package dian

import (
	"fmt"
	"strings"
)

// Factores primos del módulo 11 DIAN, aplicados del dígito menos significativo hacia la izquierda.
var dvFactors = [...]int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

// ValidateNITVerificationDigit acepta "900123456-8", "900.123.456-8" o "9001234568": el
// último dígito es el DV y los anteriores (mínimo 9) la base.
func ValidateNITVerificationDigit(taxID string) error {
	all := keepDigits(taxID)
	if len(all) < 10 {
		return fmt.Errorf("dian: NIT %q sin dígito de verificación o incompleto", taxID)
	}
	base, got := all[:len(all)-1], all[len(all)-1]
	want, err := checkDigit(base)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("dian: dígito de verificación del NIT inválido: esperado %c, recibido %c", want, got)
	}
	return nil
}

// ComputeNITVerificationDigit DV de una base de al menos 9 dígitos; ignora separadores.
func ComputeNITVerificationDigit(base string) (byte, error) {
	d := keepDigits(base)
	if len(d) < 9 {
		return 0, fmt.Errorf("dian: base de NIT %q con menos de 9 dígitos", base)
	}
	return checkDigit(d)
}

func checkDigit(base string) (byte, error) {
	if len(base) > len(dvFactors) {
		return 0, fmt.Errorf("dian: base de NIT de %d dígitos excede el máximo", len(base))
	}
	sum := 0
	for i := 0; i < len(base); i++ {
		sum += int(base[len(base)-1-i]-'0') * dvFactors[i]
	}
	r := sum % 11
	if r > 1 {
		r = 11 - r
	}
	return byte('0' + r), nil
}

func keepDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < '0' || r > '9' {
			return -1
		}
		return r
	}, s)
}
