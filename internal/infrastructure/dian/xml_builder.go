// Package dian implementa la factura electrónica de venta DIAN (Colombia): XML UBL 2.1,
// CUFE, firma XAdES, empaquetado ZIP y el cliente SOAP de recepción.
package dian

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/pos-core/internal/application/filing"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/infrastructure/dian/signer"
	"github.com/jhoicas/pos-core/pkg/dian"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Namespaces oficiales UBL 2.1 y DIAN (Anexo Técnico 1.9).
const (
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsSts     = "dian:gov:co:facturaelectronica:v1"
	NsDs      = "http://www.w3.org/2000/09/xmldsig#"
	NsXades   = "http://uri.etsi.org/01903/v1.3.2#"
	nsXsi     = "http://www.w3.org/2001/XMLSchema-instance"

	schemaLocationInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2 http://docs.oasis-open.org/ubl/os-UBL-2.1/xsd/maindoc/UBL-Invoice-2.1.xsd"
	currency              = "COP"
)

// InvoiceXML datos para generar el XML de una factura.
type InvoiceXML struct {
	Bundle   *filing.Bundle
	CUFE     string
	QRData   string
	IssuedAt time.Time
}

// XMLBuilder construye el XML UBL 2.1 de la factura (sin firma).
type XMLBuilder struct{}

// NewXMLBuilder crea el builder.
func NewXMLBuilder() *XMLBuilder {
	return &XMLBuilder{}
}

// Build genera el documento Invoice. ext:UBLExtensions queda como primer hijo y su segundo
// ExtensionContent vacío para la firma.
func (b *XMLBuilder) Build(in *InvoiceXML) ([]byte, error) {
	if in == nil || in.Bundle == nil || in.Bundle.Invoice == nil || in.Bundle.Company == nil ||
		in.Bundle.Customer == nil || in.Bundle.Range == nil {
		return nil, fmt.Errorf("dian: faltan factura, empresa, cliente o resolución para el XML")
	}
	bd := in.Bundle
	inv := bd.Invoice

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="no"`)
	root := doc.CreateElement("Invoice")
	root.CreateAttr("xmlns", NsInvoice)
	root.CreateAttr("xmlns:cac", NsCac)
	root.CreateAttr("xmlns:cbc", NsCbc)
	root.CreateAttr("xmlns:ds", NsDs)
	root.CreateAttr("xmlns:ext", NsExt)
	root.CreateAttr("xmlns:sts", NsSts)
	root.CreateAttr("xmlns:xades", NsXades)
	root.CreateAttr("xmlns:xsi", nsXsi)
	root.CreateAttr("xsi:schemaLocation", schemaLocationInvoice)
	root.CreateAttr("Id", signer.InvoiceElementID)

	writeExtensions(root, bd.Range, in.QRData)

	text(root, "cbc:UBLVersionID", "UBL 2.1")
	text(root, "cbc:CustomizationID", "10")
	text(root, "cbc:ProfileID", "DIAN 2.1: Factura Electrónica de Venta")
	text(root, "cbc:ProfileExecutionID", bd.Range.Environment)
	text(root, "cbc:ID", inv.FullNumber())
	cufe := text(root, "cbc:UUID", in.CUFE)
	cufe.CreateAttr("schemeID", bd.Range.Environment)
	cufe.CreateAttr("schemeName", "CUFE-SHA384")
	text(root, "cbc:IssueDate", in.IssuedAt.Format("2006-01-02"))
	text(root, "cbc:IssueTime", in.IssuedAt.Format("15:04:05-07:00"))
	text(root, "cbc:InvoiceTypeCode", "01")
	text(root, "cbc:DocumentCurrencyCode", currency)
	text(root, "cbc:LineCountNumeric", strconv.Itoa(len(bd.Details)))

	writeParty(root.CreateElement("cac:AccountingSupplierParty"), dian.IdentificationTypeNIT, bd.Company.NIT, bd.Company.Name, bd.Company.Address)
	writeParty(root.CreateElement("cac:AccountingCustomerParty"), CustomerIdentificationType(bd.Customer.TaxID), bd.Customer.TaxID, bd.Customer.Name, "")

	means := root.CreateElement("cac:PaymentMeans")
	text(means, "cbc:ID", dian.PaymentFormContado)
	text(means, "cbc:PaymentMeansCode", paymentMeansCode(bd.Sale))

	writeTaxTotals(root, bd)

	total := root.CreateElement("cac:LegalMonetaryTotal")
	amount(total, "cbc:LineExtensionAmount", inv.NetTotal)
	amount(total, "cbc:TaxExclusiveAmount", inv.NetTotal)
	amount(total, "cbc:TaxInclusiveAmount", inv.GrandTotal)
	amount(total, "cbc:PayableAmount", inv.GrandTotal)

	for i, d := range bd.Details {
		writeLine(root, i+1, d, bd.Products[d.ProductID])
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("dian: serializar XML: %w", err)
	}
	return out, nil
}

// writeExtensions extensión 1: resolución y QR. Extensión 2: vacía para ds:Signature.
func writeExtensions(root *etree.Element, rg *entity.NumberingRange, qr string) {
	exts := root.CreateElement("ext:UBLExtensions")
	content := exts.CreateElement("ext:UBLExtension").CreateElement("ext:ExtensionContent")
	dianExt := content.CreateElement("sts:DianExtensions")

	control := dianExt.CreateElement("sts:InvoiceControl")
	text(control, "sts:InvoiceAuthorization", rg.ResolutionNumber)
	period := control.CreateElement("sts:AuthorizationPeriod")
	text(period, "cbc:StartDate", rg.DateFrom.Format("2006-01-02"))
	text(period, "cbc:EndDate", rg.DateTo.Format("2006-01-02"))
	auth := control.CreateElement("sts:AuthorizedInvoices")
	text(auth, "sts:Prefix", rg.Prefix)
	text(auth, "sts:From", strconv.FormatInt(rg.RangeFrom, 10))
	text(auth, "sts:To", strconv.FormatInt(rg.RangeTo, 10))

	if qr != "" {
		text(dianExt, "sts:QRCode", qr)
	}
	exts.CreateElement("ext:UBLExtension").CreateElement("ext:ExtensionContent")
}

func writeParty(parent *etree.Element, schemeID, taxID, name, address string) {
	party := parent.CreateElement("cac:Party")
	id := text(party.CreateElement("cac:PartyIdentification"), "cbc:ID", BaseNIT(taxID))
	id.CreateAttr("schemeID", schemeID)
	text(party.CreateElement("cac:PartyName"), "cbc:Name", name)
	if address != "" {
		text(party.CreateElement("cac:PostalAddress"), "cbc:StreetName", address)
	}
	legal := party.CreateElement("cac:PartyLegalEntity")
	text(legal, "cbc:RegistrationName", name)
	text(legal, "cbc:CompanyID", BaseNIT(taxID)).CreateAttr("schemeName", schemeID)
}

func writeLine(root *etree.Element, n int, d *entity.InvoiceDetail, p *entity.Product) {
	unit := dian.UnitUnit
	name := "Item " + strconv.Itoa(n)
	code := d.ProductID
	if p != nil {
		name = p.Name
		if p.SKU != "" {
			code = p.SKU
		}
		if dian.ValidMeasurementUnitCodes[p.UnitMeasure] {
			unit = p.UnitMeasure
		}
	}

	line := root.CreateElement("cac:InvoiceLine")
	text(line, "cbc:ID", strconv.Itoa(n))
	text(line, "cbc:InvoicedQuantity", d.Quantity.Round(4).String()).CreateAttr("unitCode", unit)
	amount(line, "cbc:LineExtensionAmount", d.Subtotal)

	tax := line.CreateElement("cac:TaxTotal")
	amount(tax, "cbc:TaxAmount", d.TaxAmount)
	writeTaxSubtotal(tax, d.Subtotal, d.TaxAmount, d.TaxRate)

	item := line.CreateElement("cac:Item")
	text(item, "cbc:Description", name)
	text(item.CreateElement("cac:SellersItemIdentification"), "cbc:ID", code)

	price := line.CreateElement("cac:Price")
	amount(price, "cbc:PriceAmount", d.UnitPrice)
	text(price, "cbc:BaseQuantity", "1").CreateAttr("unitCode", unit)
}

// writeTaxTotals un cac:TaxTotal de IVA con un subtotal por tarifa.
func writeTaxTotals(root *etree.Element, bd *filing.Bundle) {
	type bucket struct {
		rate, base, tax decimal.Decimal
	}
	byRate := map[string]*bucket{}
	for _, d := range bd.Details {
		k := d.TaxRate.String()
		if byRate[k] == nil {
			byRate[k] = &bucket{rate: d.TaxRate}
		}
		byRate[k].base = byRate[k].base.Add(d.Subtotal)
		byRate[k].tax = byRate[k].tax.Add(d.TaxAmount)
	}
	keys := make([]string, 0, len(byRate))
	for k := range byRate {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := root.CreateElement("cac:TaxTotal")
	amount(total, "cbc:TaxAmount", bd.Invoice.TaxTotal)
	for _, k := range keys {
		b := byRate[k]
		writeTaxSubtotal(total, b.base, b.tax, b.rate)
	}
}

func writeTaxSubtotal(parent *etree.Element, base, tax, rate decimal.Decimal) {
	sub := parent.CreateElement("cac:TaxSubtotal")
	amount(sub, "cbc:TaxableAmount", base)
	amount(sub, "cbc:TaxAmount", tax)
	cat := sub.CreateElement("cac:TaxCategory")
	text(cat, "cbc:Percent", rate.Mul(decimal.NewFromInt(100)).StringFixed(2))
	scheme := cat.CreateElement("cac:TaxScheme")
	text(scheme, "cbc:ID", dian.TaxCodeIVA)
	text(scheme, "cbc:Name", "IVA")
}

// text agrega un hijo con texto en forma NFC (tildes compuestas).
func text(parent *etree.Element, tag, value string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(norm.NFC.String(strings.TrimSpace(value)))
	return el
}

func amount(parent *etree.Element, tag string, v decimal.Decimal) {
	text(parent, tag, formatAmount(v)).CreateAttr("currencyID", currency)
}

func paymentMeansCode(sale *entity.Sale) string {
	if sale == nil {
		return dian.PaymentMethodEfectivo
	}
	switch sale.PaymentMethod {
	case entity.PaymentMethodCard:
		return dian.PaymentMethodTarjetaDebito
	case entity.PaymentMethodTransfer:
		return dian.PaymentMethodTransferencia
	default:
		return dian.PaymentMethodEfectivo
	}
}

// CustomerIdentificationType NIT (31) si el documento trae dígito de verificación; si no, cédula (13).
func CustomerIdentificationType(taxID string) string {
	if strings.Contains(taxID, "-") {
		return dian.IdentificationTypeNIT
	}
	return dian.IdentificationTypeCC
}

// BaseNIT dígitos del NIT sin el dígito de verificación ("900123456-7" → "900123456").
func BaseNIT(taxID string) string {
	if i := strings.LastIndex(taxID, "-"); i > 0 {
		taxID = taxID[:i]
	}
	var b strings.Builder
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func formatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
