package signer_test

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/pos-core/internal/infrastructure/dian/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucarion/c14n"
)

const unsigned = `<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2" xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2" xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">` +
	`<ext:UBLExtensions><ext:UBLExtension><ext:ExtensionContent/></ext:UBLExtension><ext:UBLExtension><ext:ExtensionContent/></ext:UBLExtension></ext:UBLExtensions>` +
	`<cbc:ID>SETP990000001</cbc:ID></Invoice>`

func canonical(t *testing.T, e *etree.Element) []byte {
	t.Helper()
	d := etree.NewDocument()
	d.SetRoot(e)
	raw, err := d.WriteToBytes()
	require.NoError(t, err)
	out, err := c14n.Canonicalize(xml.NewDecoder(bytes.NewReader(raw)))
	require.NoError(t, err)
	return out
}

func TestSign_StructureAndSignatureValue(t *testing.T) {
	cert, key, der := newCert(t)
	at := time.Date(2026, 3, 10, 9, 30, 0, 0, time.FixedZone("COT", -5*3600))

	out, err := signer.NewDigitalSignatureService().WithClock(func() time.Time { return at }).Sign([]byte(unsigned), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	root := doc.Root()
	assert.Empty(t, root.FindElements("./UBLExtensions/UBLExtension[1]/ExtensionContent/*"), "el primer ExtensionContent queda libre")
	sig := root.FindElement("./UBLExtensions/UBLExtension[2]/ExtensionContent/Signature")
	require.NotNil(t, sig)
	id := sig.SelectAttrValue("Id", "")
	require.NotEmpty(t, id)

	refs := sig.FindElements("./SignedInfo/Reference")
	require.Len(t, refs, 3)
	assert.Equal(t, "", refs[0].SelectAttrValue("URI", "x"), "el documento completo")
	assert.NotNil(t, refs[0].FindElement("./Transforms/Transform[@Algorithm='http://www.w3.org/2000/09/xmldsig#enveloped-signature']"))
	assert.Equal(t, "#"+id+"-keyinfo", refs[1].SelectAttrValue("URI", ""))
	assert.Equal(t, "#"+id+"-signedprops", refs[2].SelectAttrValue("URI", ""))
	assert.Equal(t, "http://uri.etsi.org/01903#SignedProperties", refs[2].SelectAttrValue("Type", ""))

	assert.Equal(t, id+"-keyinfo", sig.FindElement("./KeyInfo").SelectAttrValue("Id", ""))
	assert.Equal(t, base64.StdEncoding.EncodeToString(der), sig.FindElement("./KeyInfo/X509Data/X509Certificate").Text())

	props := sig.FindElement("./Object/QualifyingProperties/SignedProperties")
	require.NotNil(t, props)
	assert.Equal(t, "2026-03-10T14:30:00.000Z", props.FindElement(".//SigningTime").Text(), "hora de firma en UTC")
	assert.Equal(t, "supplier", props.FindElement(".//ClaimedRole").Text())
	assert.Contains(t, props.FindElement(".//SigPolicyId/Identifier").Text(), "politicadefirmav2")

	signedInfo := sig.FindElement("./SignedInfo").Copy()
	signedInfo.CreateAttr("xmlns:ds", "http://www.w3.org/2000/09/xmldsig#")
	sum := sha256.Sum256(canonical(t, signedInfo))
	value, err := base64.StdEncoding.DecodeString(sig.FindElement("./SignatureValue").Text())
	require.NoError(t, err)
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, sum[:], value))
}

func TestSign_Errors(t *testing.T) {
	cert, _, _ := newCert(t)
	svc := signer.NewDigitalSignatureService()

	_, err := svc.Sign(nil, cert)
	assert.Error(t, err)

	_, err = svc.Sign([]byte(`<Invoice><UBLExtensions><UBLExtension><ExtensionContent/></UBLExtension></UBLExtensions></Invoice>`), cert)
	assert.ErrorContains(t, err, "segundo ext:ExtensionContent")

	noKey := cert
	noKey.PrivateKey = nil
	_, err = svc.Sign([]byte(unsigned), noKey)
	assert.ErrorContains(t, err, "RSA")
}
