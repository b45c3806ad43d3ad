package signer

// Política de firma v2 de la DIAN y hash SHA-256 (Base64) de su PDF.
const (
	policyURL    = "https://facturaelectronica.dian.gov.co/politicadefirma/v2/politicadefirmav2.pdf"
	policyDigest = "dMoMvtcG5aIzgYo0tIsSQeVJBDnUnfSOfBpxXrmor0Y="
)

const (
	nsDS    = "http://www.w3.org/2000/09/xmldsig#"
	nsXAdES = "http://uri.etsi.org/01903/v1.3.2#"

	algC14N       = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	algRSASHA256  = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	algSHA256     = "http://www.w3.org/2001/04/xmlenc#sha256"
	algEnveloped  = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	typeSignedPro = "http://uri.etsi.org/01903#SignedProperties"

	// rol del firmante exigido por la DIAN para el emisor.
	signerRole = "supplier"
)

// InvoiceElementID Id del elemento raíz del documento.
const InvoiceElementID = "invoice-id"
