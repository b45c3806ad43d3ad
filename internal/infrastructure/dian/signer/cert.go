// Carga de certificado desde .p12 (PKCS#12) o par PEM.

package signer

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	// pkcs12.Decode devuelve un solo certificado; tls.Certificate espera una cadena.
	// Para DIAN suele bastar el certificado hoja.
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// LoadFromPEM carga certificado y llave desde archivos PEM (certificado y llave por separado, o combinados).
func LoadFromPEM(certPath, keyPath string) (tls.Certificate, error) {
	if certPath == "" {
		return tls.Certificate{}, nil
	}
	if keyPath == "" {
		return tls.LoadX509KeyPair(certPath, certPath)
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM: %w", err)
	}
	return cert, nil
}

// CertDigestAndIssuerSerial devuelve el digest SHA-256 del certificado (Base64) y el serial en hex para XAdES.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64 string, issuerName string, serialHex string) {
	h := sha256.Sum256(cert.Raw)
	digestB64 = base64.StdEncoding.EncodeToString(h[:])
	issuerName = cert.Issuer.String()
	serialHex = cert.SerialNumber.Text(16)
	return digestB64, issuerName, serialHex
}

// LoadCertificate elige el cargador por extensión: .p12/.pfx con contraseña, si no PEM.
// path vacío devuelve nil (sin firma).
func LoadCertificate(path, keyPath, password string) (*tls.Certificate, error) {
	if path == "" {
		return nil, nil
	}
	var (
		cert tls.Certificate
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		cert, err = LoadFromP12(path, password)
	default:
		cert, err = LoadFromPEM(path, keyPath)
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// CertInfo datos del certificado de firma que interesan a la operación.
type CertInfo struct {
	Subject   string
	Issuer    string
	Serial    string
	NotBefore time.Time
	NotAfter  time.Time
	Remaining time.Duration // tiempo hasta el vencimiento respecto de now; negativo si venció
}

// Inspect valida que el certificado sirva para firmar documentos: llave RSA y vigencia en now.
func Inspect(cert *tls.Certificate, now time.Time) (CertInfo, error) {
	if cert == nil || len(cert.Certificate) == 0 {
		return CertInfo{}, fmt.Errorf("certificado vacío")
	}
	leaf := cert.Leaf
	if leaf == nil {
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return CertInfo{}, fmt.Errorf("parsear certificado: %w", err)
		}
		leaf = parsed
	}
	info := CertInfo{
		Subject:   leaf.Subject.String(),
		Issuer:    leaf.Issuer.String(),
		Serial:    leaf.SerialNumber.Text(16),
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
		Remaining: leaf.NotAfter.Sub(now),
	}
	if _, ok := cert.PrivateKey.(*rsa.PrivateKey); !ok {
		return info, fmt.Errorf("la llave privada debe ser RSA")
	}
	if now.Before(leaf.NotBefore) {
		return info, fmt.Errorf("certificado aún no vigente (desde %s)", leaf.NotBefore.Format(time.DateOnly))
	}
	if now.After(leaf.NotAfter) {
		return info, fmt.Errorf("certificado vencido el %s", leaf.NotAfter.Format(time.DateOnly))
	}
	return info, nil
}
