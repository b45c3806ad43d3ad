package dian

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jhoicas/pos-core/internal/application/filing"
	domdian "github.com/jhoicas/pos-core/internal/domain/dian"
	"github.com/shopspring/decimal"
)

var _ filing.Builder = (*DocumentBuilder)(nil)

// Signer inyecta ds:Signature en el XML del documento.
type Signer interface {
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}

// QRBaseURL consulta pública del documento por CUFE.
const QRBaseURL = "https://catalogo-vpfe.dian.gov.co/document/searchqr?documentkey="

// DocumentBuilder arma el documento firmado: valida totales, calcula el CUFE, genera el XML
// y lo firma. Sin certificado el XML sale sin firma (modo dev).
type DocumentBuilder struct {
	xml          *XMLBuilder
	signer       Signer
	cert         *tls.Certificate
	technicalKey string
}

// NewDocumentBuilder technicalKey se usa cuando la resolución no trae clave técnica.
func NewDocumentBuilder(signer Signer, cert *tls.Certificate, technicalKey string) *DocumentBuilder {
	return &DocumentBuilder{
		xml:          NewXMLBuilder(),
		signer:       signer,
		cert:         cert,
		technicalKey: technicalKey,
	}
}

// Build implementa filing.Builder.
func (b *DocumentBuilder) Build(_ context.Context, bd *filing.Bundle) (*filing.Signed, error) {
	if bd == nil || bd.Invoice == nil || bd.Company == nil || bd.Customer == nil || bd.Range == nil {
		return nil, fmt.Errorf("dian: datos incompletos para el documento")
	}
	inv := bd.Invoice
	if err := domdian.ValidateInvoice(inv, bd.Details, CustomerIdentificationType(bd.Customer.TaxID), bd.Customer.TaxID); err != nil {
		return nil, err
	}

	key := bd.Range.TechnicalKey
	if key == "" {
		key = b.technicalKey
	}
	issuedAt := inv.Date
	if issuedAt.IsZero() {
		issuedAt = inv.CreatedAt
	}
	cufe, err := domdian.CUFE(domdian.CUFEInput{
		Number:       inv.FullNumber(),
		IssueDate:    issuedAt.Format("2006-01-02"),
		Subtotal:     inv.NetTotal,
		IVA:          inv.TaxTotal,
		Total:        inv.GrandTotal,
		IssuerNIT:    BaseNIT(bd.Company.NIT),
		BuyerID:      BaseNIT(bd.Customer.TaxID),
		TechnicalKey: key,
		Environment:  bd.Range.Environment,
	})
	if err != nil {
		return nil, err
	}
	qr := BuildQR(inv.FullNumber(), issuedAt.Format("2006-01-02"), inv.GrandTotal, inv.TaxTotal, cufe)

	xmlBytes, err := b.xml.Build(&InvoiceXML{Bundle: bd, CUFE: cufe, QRData: qr, IssuedAt: issuedAt})
	if err != nil {
		return nil, err
	}
	if b.cert != nil && b.signer != nil {
		xmlBytes, err = b.signer.Sign(xmlBytes, *b.cert)
		if err != nil {
			return nil, fmt.Errorf("dian: firmar XML: %w", err)
		}
	}

	_, zipName := Filenames(bd.Company.NIT, inv)
	return &filing.Signed{XML: xmlBytes, CUFE: cufe, QRData: qr, FileName: zipName}, nil
}

// BuildQR contenido del código QR de la representación gráfica.
func BuildQR(number, date string, total, tax decimal.Decimal, cufe string) string {
	return strings.Join([]string{
		"NumFac:" + number,
		"FecFac:" + date,
		"ValFac:" + formatAmount(total),
		"CodImp:01",
		"ValImp:" + formatAmount(tax),
		"CUFE:" + cufe,
		QRBaseURL + cufe,
	}, "\n")
}
