// certcheck verifica el certificado de firma configurado (DIAN_CERT_PATH, DIAN_CERT_KEY_PATH,
// DIAN_CERT_PASSWORD) sin levantar la API: lo carga, revisa llave y vigencia e imprime sus datos.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/pos-core/internal/infrastructure/dian/signer"
	"github.com/jhoicas/pos-core/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if cfg.DIAN.CertPath == "" {
		fmt.Fprintln(os.Stderr, "DIAN_CERT_PATH no está definido")
		os.Exit(1)
	}

	cert, err := signer.LoadCertificate(cfg.DIAN.CertPath, cfg.DIAN.CertKeyPath, cfg.DIAN.CertPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "no se pudo cargar %s: %v\n", cfg.DIAN.CertPath, err)
		os.Exit(1)
	}
	info, err := signer.Inspect(cert, time.Now())
	fmt.Printf("archivo:  %s\nsujeto:   %s\nemisor:   %s\nserial:   %s\nvigencia: %s a %s\n",
		cfg.DIAN.CertPath, info.Subject, info.Issuer, info.Serial,
		info.NotBefore.Format(time.DateOnly), info.NotAfter.Format(time.DateOnly))
	if err != nil {
		fmt.Fprintf(os.Stderr, "certificado no utilizable: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("vence en %d días\n", int(info.Remaining.Hours()/24))
}
