// devtoken emite un token de acceso para pruebas locales con el JWT_SECRET configurado.
//
//	devtoken <company_id> <user_id> <rol>
package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/jhoicas/pos-core/pkg/config"
	"github.com/jhoicas/pos-core/pkg/jwt"
)

var roles = []string{"admin", "vendedor", "bodeguero"}

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "uso: devtoken <company_id> <user_id> <admin|vendedor|bodeguero>")
		os.Exit(2)
	}
	companyID, userID, role := os.Args[1], os.Args[2], os.Args[3]
	if !slices.Contains(roles, role) {
		fmt.Fprintf(os.Stderr, "rol desconocido %q\n", role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.Env == "production" {
		fmt.Fprintln(os.Stderr, "devtoken no se usa en producción")
		os.Exit(1)
	}
	codec, err := jwt.NewCodec(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	tok, err := codec.Issue(jwt.Identity{UserID: userID, CompanyID: companyID, Role: role})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
