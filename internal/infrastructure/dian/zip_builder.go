package dian

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/jhoicas/pos-core/internal/domain/entity"
)

// CompressXMLToZip empaqueta el XML firmado en un ZIP en memoria con un único archivo.
func CompressXMLToZip(xmlBytes []byte, xmlFilename string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fw, err := zw.Create(xmlFilename)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", xmlFilename, err)
	}
	if _, err := fw.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// Filenames nombres del XML y del ZIP: {NIT sin DV}{PREFIJO}{NÚMERO}.
// Ejemplo: 900123456SETP990000001.zip
func Filenames(companyNIT string, inv *entity.Invoice) (xmlName, zipName string) {
	base := BaseNIT(companyNIT) + inv.FullNumber()
	return base + ".xml", base + ".zip"
}

// xmlNameFor nombre del XML interno a partir del nombre del ZIP.
func xmlNameFor(zipName string) string {
	return strings.TrimSuffix(zipName, ".zip") + ".xml"
}
