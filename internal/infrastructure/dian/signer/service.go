// Package signer firma XAdES-EPES de los documentos electrónicos DIAN. La firma queda en el
// segundo ext:ExtensionContent, que el constructor del XML deja vacío.
package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/ucarion/c14n"
)

// DigitalSignatureService firma documentos con el certificado del emisor.
type DigitalSignatureService struct {
	now   func() time.Time
	newID func() string
}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{now: time.Now, newID: uuid.NewString}
}

// WithClock fija la hora de firma (pruebas).
func (s *DigitalSignatureService) WithClock(now func() time.Time) *DigitalSignatureService {
	s.now = now
	return s
}

// Sign devuelve el XML con ds:Signature inyectado. La firma cubre tres referencias: el
// documento (enveloped), el KeyInfo y las SignedProperties.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("dian: XML vacío")
	}
	key, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("dian: el certificado debe incluir llave privada RSA")
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("dian: certificado vacío")
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("dian: parsear certificado: %w", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("dian: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("dian: XML sin elemento raíz")
	}
	slot := root.FindElement("./UBLExtensions/UBLExtension[2]/ExtensionContent")
	if slot == nil {
		return nil, fmt.Errorf("dian: no se encontró el segundo ext:ExtensionContent para inyectar la firma")
	}

	docDigest, err := digest(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("dian: canonicalizar documento: %w", err)
	}

	id := "xmldsig-" + s.newID()
	keyInfo := keyInfoElement(id, leaf)
	signedProps := signedPropertiesElement(id, leaf, s.now().UTC())

	keyInfoDigest, err := elementDigest(keyInfo)
	if err != nil {
		return nil, fmt.Errorf("dian: digest KeyInfo: %w", err)
	}
	propsDigest, err := elementDigest(signedProps)
	if err != nil {
		return nil, fmt.Errorf("dian: digest SignedProperties: %w", err)
	}

	signedInfo := newDS("SignedInfo")
	signedInfo.CreateAttr("xmlns:ds", nsDS)
	withAlgorithm(signedInfo.CreateElement("ds:CanonicalizationMethod"), algC14N)
	withAlgorithm(signedInfo.CreateElement("ds:SignatureMethod"), algRSASHA256)
	addReference(signedInfo, id+"-ref0", "", "", docDigest, true)
	addReference(signedInfo, "", "#"+id+"-keyinfo", "", keyInfoDigest, false)
	addReference(signedInfo, "", "#"+id+"-signedprops", typeSignedPro, propsDigest, false)

	canonical, err := canonicalElement(signedInfo)
	if err != nil {
		return nil, fmt.Errorf("dian: canonicalizar SignedInfo: %w", err)
	}
	hash := sha256.Sum256(canonical)
	sigValue, err := rsa.SignPKCS1v15(nil, key, crypto.SHA256, hash[:])
	if err != nil {
		return nil, fmt.Errorf("dian: firmar SignedInfo: %w", err)
	}

	signature := newDS("Signature")
	signature.CreateAttr("xmlns:ds", nsDS)
	signature.CreateAttr("Id", id)
	signedInfo.RemoveAttr("xmlns:ds")
	signature.AddChild(signedInfo)
	value := signature.CreateElement("ds:SignatureValue")
	value.CreateAttr("Id", id+"-sigvalue")
	value.SetText(base64.StdEncoding.EncodeToString(sigValue))
	keyInfo.RemoveAttr("xmlns:ds")
	signature.AddChild(keyInfo)

	qualifying := signature.CreateElement("ds:Object").CreateElement("xades:QualifyingProperties")
	qualifying.CreateAttr("xmlns:xades", nsXAdES)
	qualifying.CreateAttr("Target", "#"+id)
	signedProps.RemoveAttr("xmlns:ds")
	signedProps.RemoveAttr("xmlns:xades")
	qualifying.AddChild(signedProps)

	slot.AddChild(signature)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("dian: serializar XML firmado: %w", err)
	}
	return out, nil
}

func keyInfoElement(id string, leaf *x509.Certificate) *etree.Element {
	ki := newDS("KeyInfo")
	ki.CreateAttr("xmlns:ds", nsDS)
	ki.CreateAttr("Id", id+"-keyinfo")
	ki.CreateElement("ds:X509Data").CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(leaf.Raw))
	return ki
}

func signedPropertiesElement(id string, leaf *x509.Certificate, at time.Time) *etree.Element {
	sp := etree.NewElement("xades:SignedProperties")
	sp.CreateAttr("xmlns:ds", nsDS)
	sp.CreateAttr("xmlns:xades", nsXAdES)
	sp.CreateAttr("Id", id+"-signedprops")

	ssp := sp.CreateElement("xades:SignedSignatureProperties")
	ssp.CreateElement("xades:SigningTime").SetText(at.Format("2006-01-02T15:04:05.000Z"))

	certDigest, issuer, serial := CertDigestAndIssuerSerial(leaf)
	c := ssp.CreateElement("xades:SigningCertificate").CreateElement("xades:Cert")
	cd := c.CreateElement("xades:CertDigest")
	withAlgorithm(cd.CreateElement("ds:DigestMethod"), algSHA256)
	cd.CreateElement("ds:DigestValue").SetText(certDigest)
	is := c.CreateElement("xades:IssuerSerial")
	is.CreateElement("ds:X509IssuerName").SetText(issuer)
	is.CreateElement("ds:X509SerialNumber").SetText(serial)

	policy := ssp.CreateElement("xades:SignaturePolicyIdentifier").CreateElement("xades:SignaturePolicyId")
	policy.CreateElement("xades:SigPolicyId").CreateElement("xades:Identifier").SetText(policyURL)
	ph := policy.CreateElement("xades:SigPolicyHash")
	withAlgorithm(ph.CreateElement("ds:DigestMethod"), algSHA256)
	ph.CreateElement("ds:DigestValue").SetText(policyDigest)

	ssp.CreateElement("xades:SignerRole").CreateElement("xades:ClaimedRoles").CreateElement("xades:ClaimedRole").SetText(signerRole)
	return sp
}

func addReference(signedInfo *etree.Element, id, uri, typ, digestB64 string, enveloped bool) {
	ref := signedInfo.CreateElement("ds:Reference")
	if id != "" {
		ref.CreateAttr("Id", id)
	}
	if typ != "" {
		ref.CreateAttr("Type", typ)
	}
	ref.CreateAttr("URI", uri)
	if enveloped {
		withAlgorithm(ref.CreateElement("ds:Transforms").CreateElement("ds:Transform"), algEnveloped)
	}
	withAlgorithm(ref.CreateElement("ds:DigestMethod"), algSHA256)
	ref.CreateElement("ds:DigestValue").SetText(digestB64)
}

func newDS(tag string) *etree.Element { return etree.NewElement("ds:" + tag) }

func withAlgorithm(e *etree.Element, alg string) { e.CreateAttr("Algorithm", alg) }

// elementDigest SHA-256 (Base64) del elemento canonicalizado por separado.
func elementDigest(e *etree.Element) (string, error) {
	canonical, err := canonicalElement(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func canonicalElement(e *etree.Element) ([]byte, error) {
	d := etree.NewDocument()
	d.SetRoot(e.Copy())
	raw, err := d.WriteToBytes()
	if err != nil {
		return nil, err
	}
	return canonicalize(raw)
}

func digest(raw []byte) (string, error) {
	canonical, err := canonicalize(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func canonicalize(raw []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}
