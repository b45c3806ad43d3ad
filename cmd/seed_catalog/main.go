// seed_catalog carga el catálogo inicial de una empresa desde un archivo separado por ';'
// con columnas sku;nombre;precio;iva;cantidad;costo. Las cantidades entran como existencia
// inicial. Repetir la carga omite los SKU existentes.
//
// Uso: go run ./cmd/seed_catalog <company_id> <archivo.csv>
// SEED_CHARSET=latin1 para archivos exportados en ISO-8859-1 (por defecto utf8).
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jhoicas/pos-core/internal/application/catalog"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/inventory"
	"github.com/jhoicas/pos-core/internal/infrastructure/postgres"
	"github.com/jhoicas/pos-core/pkg/config"
	"github.com/jhoicas/pos-core/pkg/logger"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "uso: seed_catalog <company_id> <archivo.csv>")
		os.Exit(2)
	}
	companyID, path := os.Args[1], os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("abrir archivo")
	}
	defer f.Close()
	rows, err := catalog.ReadProductsCSV(f, strings.EqualFold(os.Getenv("SEED_CHARSET"), "latin1"))
	if err != nil {
		log.Fatal().Err(err).Msg("leer catálogo")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("aplicar migraciones")
	}
	runner, repos := postgres.NewTxRunner(pool), postgres.NewRepos(pool)

	company, err := repos.Companies.GetByID(ctx, companyID)
	if err != nil {
		log.Fatal().Err(err).Msg("consultar empresa")
	}
	if company == nil {
		log.Fatal().Str("company_id", companyID).Msg("la empresa no existe; regístrela con POST /api/company")
	}

	gate := idempotency.NewGate(runner, repos.Idempotency, idempotency.Options{Logger: log.Component("idempotency")})
	inv := inventory.NewService(gate, inventory.NewLedger(log.Component("inventory")), repos.Products, repos.Stock, repos.Movements)
	svc := catalog.NewService(repos, log.Component("catalog"))

	res, err := svc.Import(ctx, companyID, rows, inv)
	if err != nil {
		log.Fatal().Err(err).Msg("importar catálogo")
	}
	fmt.Printf("%s: %d creados, %d existentes, %d con error\n", company.Name, res.Created, res.Skipped, res.Failed)
}
